package sellers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no saved seller has the requested name.
var ErrNotFound = errors.New("seller not found")

// Seller is a marketplace user saved locally so a conversation can be started by name.
type Seller struct {
	Name   string `yaml:"name"`
	UserID int64  `yaml:"user_id"`
	Note   string `yaml:"note,omitempty"`
}

const cacheDuration = 30 * time.Second

// Book is the set of saved sellers, one YAML file each, under a directory.
type Book struct {
	dir string

	mu        sync.RWMutex
	cache     []Seller
	byUserID  map[int64]string
	cacheTime time.Time
}

// NewBook returns a book rooted at dir. The directory is created on first write.
func NewBook(dir string) *Book {
	return &Book{dir: dir}
}

// Dir returns the directory holding the seller files.
func (b *Book) Dir() string {
	return b.dir
}

// sanitizeFilename converts a seller name to a safe filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(name)
}

func (b *Book) path(name string) string {
	return filepath.Join(b.dir, sanitizeFilename(name)+".yml")
}

// Save writes a seller file, replacing any seller with the same name.
func (b *Book) Save(s Seller) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("seller name cannot be empty")
	}
	if s.UserID <= 0 {
		return fmt.Errorf("seller user id must be positive")
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sellers directory: %w", err)
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("failed to marshal seller: %w", err)
	}
	if err := os.WriteFile(b.path(s.Name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write seller file: %w", err)
	}

	b.Invalidate()
	return nil
}

// Load reads one seller by name.
func (b *Book) Load(name string) (*Seller, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read seller file: %w", err)
	}

	var s Seller
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seller file: %w", err)
	}
	return &s, nil
}

// Delete removes a seller file.
func (b *Book) Delete(name string) error {
	if err := os.Remove(b.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete seller: %w", err)
	}

	b.Invalidate()
	return nil
}

// List returns every saved seller sorted by name. Results are cached for 30 seconds;
// writes through the Book invalidate the cache.
func (b *Book) List() ([]Seller, error) {
	b.mu.RLock()
	if b.cache != nil && time.Since(b.cacheTime) < cacheDuration {
		defer b.mu.RUnlock()
		return b.cache, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cache != nil && time.Since(b.cacheTime) < cacheDuration {
		return b.cache, nil
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read sellers directory: %w", err)
	}

	list := []Seller{}
	byUserID := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			continue
		}
		var s Seller
		if err := yaml.Unmarshal(data, &s); err != nil || s.Name == "" {
			continue
		}

		list = append(list, s)
		if s.UserID > 0 {
			byUserID[s.UserID] = s.Name
		}
	}
	slices.SortFunc(list, func(a, c Seller) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(c.Name))
	})

	b.cache = list
	b.byUserID = byUserID
	b.cacheTime = time.Now()
	return list, nil
}

// Invalidate forces the next List to reread the directory.
func (b *Book) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheTime = time.Time{}
	b.cache = nil
}

// NameFor returns the saved name for a marketplace user id, or "".
func (b *Book) NameFor(userID int64) string {
	if userID <= 0 {
		return ""
	}
	if _, err := b.List(); err != nil {
		return ""
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byUserID[userID]
}
