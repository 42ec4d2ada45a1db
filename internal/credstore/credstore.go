// Package credstore persists the session id and remembered user id between
// runs. Credentials are stored in ~/.local/share/gsclient/session.toml.
package credstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Credentials is what a later run needs to resume without a full handshake.
type Credentials struct {
	SessionID  string    `toml:"session_id"`
	UserID     string    `toml:"user_id"`
	InstanceID string    `toml:"instance_id"`
	UpdatedAt  time.Time `toml:"updated_at"`
}

const defaultPath = "~/.local/share/gsclient/session.toml"

// DefaultPath returns the default credentials file path.
func DefaultPath() string {
	return defaultPath
}

// Load reads credentials from path. A missing or unreadable file yields zero
// credentials so the client simply starts a fresh session.
func Load(path string) (Credentials, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Credentials{}, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Credentials{}, nil // Graceful degradation
	}

	var creds Credentials
	if err := toml.Unmarshal(bytes, &creds); err != nil {
		return Credentials{}, nil // Graceful degradation
	}
	creds.SessionID = strings.TrimSpace(creds.SessionID)
	creds.UserID = strings.TrimSpace(creds.UserID)
	creds.InstanceID = strings.TrimSpace(creds.InstanceID)
	return creds, nil
}

// Save writes credentials to path, creating directories as needed.
func Save(path string, c Credentials) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	bytes, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return nil
}

// Store saves credentials on every change reported by the session manager.
// The instance id is kept stable across saves.
type Store struct {
	Path       string
	InstanceID string

	mu  sync.Mutex
	now func() time.Time
}

// Persist implements session.Persister.
func (s *Store) Persist(sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return Save(s.Path, Credentials{
		SessionID:  sessionID,
		UserID:     userID,
		InstanceID: s.InstanceID,
		UpdatedAt:  now().UTC(),
	})
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
