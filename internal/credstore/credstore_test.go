package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileYieldsZero(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c != (Credentials{}) {
		t.Fatalf("Load = %+v, want zero credentials", c)
	}
}

func TestLoad_ReadsDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".local", "share", "gsclient")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "session_id = \" abc123 \"\nuser_id = \"42\"\n"
	if err := os.WriteFile(filepath.Join(dir, "session.toml"), []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.SessionID != "abc123" || c.UserID != "42" {
		t.Fatalf("Load = %+v, want session abc123 user 42", c)
	}
}

func TestLoad_InvalidFileDegradesGracefully(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte("session_id = ["), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.SessionID != "" {
		t.Fatalf("SessionID = %q, want empty", c.SessionID)
	}
}

func TestSave_CreatesDirectoriesAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.toml")
	want := Credentials{SessionID: "s1", UserID: "7", InstanceID: "ABC"}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("file mode = %v, want 0600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.SessionID != want.SessionID || got.UserID != want.UserID || got.InstanceID != want.InstanceID {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestStore_PersistKeepsInstanceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &Store{Path: path, InstanceID: "INSTANCE", now: func() time.Time { return fixed }}

	if err := s.Persist("sess", "42"); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if err := s.Persist("", ""); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}

	got, _ := Load(path)
	if got.SessionID != "" || got.UserID != "" {
		t.Fatalf("Load = %+v, want cleared session and user", got)
	}
	if got.InstanceID != "INSTANCE" {
		t.Fatalf("InstanceID = %q, want INSTANCE", got.InstanceID)
	}
	if !got.UpdatedAt.Equal(fixed) {
		t.Fatalf("UpdatedAt = %v, want %v", got.UpdatedAt, fixed)
	}
}
