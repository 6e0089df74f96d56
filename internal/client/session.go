package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xpresstask/core/internal/infrastructure/logger"
)

// DefaultGracePeriod is how long a rejected session waits before asking for
// a new login
const DefaultGracePeriod = 3 * time.Second

// TokenStore persists the single bearer token of a client
type TokenStore interface {
	// Load returns "" when no token is stored.
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryTokenStore keeps the token in process memory
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.Save("")
}

// FileTokenStore keeps the token in a small JSON document readable only by
// the owner
type FileTokenStore struct {
	path string
}

type sessionFile struct {
	Token string `json:"token"`
}

// NewFileTokenStore creates a store backed by path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read session file: %w", err)
	}

	var doc sessionFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode session file: %w", err)
	}
	return doc.Token, nil
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.Marshal(sessionFile{Token: token})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(s.path, 0o600)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Session is the client-side login state handed to every API call
type Session struct {
	store           TokenStore
	grace           time.Duration
	onLoginRequired func()
	logger          *logger.Logger

	mu      sync.Mutex
	pending *time.Timer
}

// NewSession creates a session. onLoginRequired runs when the user has to
// log in again; it may be nil. A non-positive grace uses DefaultGracePeriod.
func NewSession(store TokenStore, grace time.Duration, onLoginRequired func(), log *logger.Logger) *Session {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if onLoginRequired == nil {
		onLoginRequired = func() {}
	}
	return &Session{
		store:           store,
		grace:           grace,
		onLoginRequired: onLoginRequired,
		logger:          log.WithComponent("session"),
	}
}

// Token returns the stored token, or "" when logged out
func (s *Session) Token() string {
	token, err := s.store.Load()
	if err != nil {
		s.logger.Warnw("Failed to load token", "error", err)
		return ""
	}
	return token
}

// SetToken stores a freshly issued token and cancels any pending redirect
func (s *Session) SetToken(token string) error {
	s.cancelPending()
	return s.store.Save(token)
}

// LoggedIn reports whether a token is present. It does not check validity.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Username decodes the username from the stored token for display. The
// signature is not checked. An undecodable token is discarded.
func (s *Session) Username() string {
	token := s.Token()
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.logger.Warnw("Discarding undecodable token", "error", err)
		s.clear()
		return ""
	}

	username, _ := claims["username"].(string)
	return username
}

// Authorize attaches the bearer token to req when one is stored
func (s *Session) Authorize(req *http.Request) {
	if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Reject clears the token and asks for a login after the grace period. A
// second rejection replaces the pending request.
func (s *Session) Reject() {
	s.clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.grace, s.onLoginRequired)
}

// Discard clears the token without asking for a login
func (s *Session) Discard() {
	s.clear()
}

// RequireLogin asks for a login right away
func (s *Session) RequireLogin() {
	s.cancelPending()
	s.onLoginRequired()
}

// Logout clears the token immediately
func (s *Session) Logout() error {
	s.cancelPending()
	return s.store.Clear()
}

// Close cancels a pending login request
func (s *Session) Close() {
	s.cancelPending()
}

func (s *Session) clear() {
	if err := s.store.Clear(); err != nil {
		s.logger.Warnw("Failed to clear token", "error", err)
	}
}

func (s *Session) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
