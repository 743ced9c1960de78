package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

var ErrNoSession = errors.New("no saved session")

type file struct {
	UserToken  string `yaml:"user_token"`
	AdminToken string `yaml:"admin_token,omitempty"`
}

// Service holds the credentials every API request is signed with. One Service is built at
// startup and injected wherever requests are made. Init loads the session file exactly once;
// repeated calls return the result of the first one.
type Service struct {
	path string

	initOnce sync.Once
	initErr  error

	mu         sync.RWMutex
	userToken  string
	adminToken string
	now        func() time.Time
}

func New(path string) *Service {
	return &Service{path: path, now: time.Now}
}

func (s *Service) Init() error {
	s.initOnce.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			s.initErr = fmt.Errorf("failed to read session file: %w", err)
			return
		}

		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			s.initErr = fmt.Errorf("failed to parse session file: %w", err)
			return
		}

		s.mu.Lock()
		s.userToken = f.UserToken
		s.adminToken = f.AdminToken
		s.mu.Unlock()
	})
	return s.initErr
}

// Save stores a user token and persists it.
func (s *Service) Save(token string) error {
	if _, err := parseClaims(token); err != nil {
		return err
	}

	s.mu.Lock()
	s.userToken = token
	f := file{UserToken: s.userToken, AdminToken: s.adminToken}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear forgets the session in memory and on disk.
func (s *Service) Clear() error {
	s.mu.Lock()
	s.userToken = ""
	s.adminToken = ""
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

func (s *Service) UserToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToken
}

func (s *Service) AdminToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminToken
}

// Authenticated reports whether a user token is present and not expired.
func (s *Service) Authenticated() bool {
	claims, err := parseClaims(s.UserToken())
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return s.now().Before(exp.Time)
}

// SelfID returns the user id the token was issued for.
func (s *Service) SelfID() (int64, error) {
	claims, err := parseClaims(s.UserToken())
	if err != nil {
		return 0, err
	}

	for _, key := range []string{"user_id", "id", "sub"} {
		raw, ok := claims[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return int64(v), nil
		case string:
			id, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("token carries no numeric user id")
}

// parseClaims reads the token payload. Signatures are verified by the backend, not here.
func parseClaims(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}
