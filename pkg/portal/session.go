package portal

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type sessionData struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
	DarkMode bool   `json:"dark_mode"`
}

// Session is the persisted client state: the access token, the signed-in
// role and username, and the dark-mode preference. It implements
// TokenSource, so a Client and a Socket can read the token live.
type Session struct {
	path string

	mu   sync.Mutex
	data sessionData
}

// DefaultSessionPath is the session file under the user config directory
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "patientportal", "session.json"), nil
}

// LoadSession reads the session file, returning an empty session when none
// exists yet
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// A corrupt session file just means signed out
		return &Session{path: path}, nil
	}
	return s, nil
}

func (s *Session) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Token returns the current access token, empty when signed out
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}

// Role returns the signed-in role, empty when signed out
func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Role
}

// Username returns the signed-in username, empty when signed out
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Username
}

// SetCredentials persists a successful login
func (s *Session) SetCredentials(token, role, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	s.data.Role = role
	s.data.Username = username
	return s.saveLocked()
}

// Clear signs out, keeping the dark-mode preference
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = ""
	s.data.Role = ""
	s.data.Username = ""
	return s.saveLocked()
}

// DarkMode returns the persisted display preference
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DarkMode
}

// SetDarkMode persists the display preference
func (s *Session) SetDarkMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DarkMode = enabled
	return s.saveLocked()
}
