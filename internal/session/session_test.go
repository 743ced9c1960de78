package session

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestSaveAndInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	token := signToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(time.Hour).Unix()})

	svc := New(path)
	if err := svc.Init(); err != nil {
		t.Fatalf("Init without file: %v", err)
	}
	if svc.Authenticated() {
		t.Fatal("expected unauthenticated before save")
	}
	if err := svc.Save(token); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if reloaded.UserToken() != token {
		t.Fatal("token not persisted")
	}
	id, err := reloaded.SelfID()
	if err != nil || id != 7 {
		t.Fatalf("SelfID = %d, %v", id, err)
	}
	if !reloaded.Authenticated() {
		t.Fatal("expected authenticated")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	first := signToken(t, jwt.MapClaims{"user_id": 1})
	if err := os.WriteFile(path, []byte("user_token: "+first+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	svc := New(path)
	if err := svc.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	second := signToken(t, jwt.MapClaims{"user_id": 2})
	if err := os.WriteFile(path, []byte("user_token: "+second+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := svc.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if svc.UserToken() != first {
		t.Fatal("second Init reloaded the file")
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "session.yml"))
	svc.userToken = signToken(t, jwt.MapClaims{"sub": "3", "exp": time.Now().Add(-time.Minute).Unix()})
	if svc.Authenticated() {
		t.Fatal("expired token reported as authenticated")
	}
}

func TestSaveRejectsGarbage(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "session.yml"))
	if err := svc.Save("not-a-jwt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	svc := New(path)
	if err := svc.Save(signToken(t, jwt.MapClaims{"sub": "1"})); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if svc.UserToken() != "" {
		t.Fatal("token still in memory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("session file still present")
	}
}

func TestSignersPickStrategyByRoute(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "session.yml"))
	svc.userToken = "user-token"
	svc.adminToken = "admin-token"

	classifier := NewClassifier()
	classifier.Register(ClassAdmin, Route("admin.login"))
	signers := NewSigners(svc, classifier)

	tests := []struct {
		route Route
		want  string
	}{
		{Route("conversations.list"), "Bearer user-token"},
		{Route("admin.login"), "Bearer admin-token"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "http://example/admin/conversations", nil)
		if err := signers.Sign(tt.route, req); err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if got := req.Header.Get("Authorization"); got != tt.want {
			t.Fatalf("%s: Authorization = %q, want %q", tt.route, got, tt.want)
		}
	}
}

func TestBearerSkipsEmptyToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example/", nil)
	if err := Bearer(func() string { return "" }).Sign(req); err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("unexpected Authorization header")
	}
}
