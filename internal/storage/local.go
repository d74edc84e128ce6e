package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is where the HTTP server exposes locally stored audio.
const URLPrefix = "/audio/"

// LocalStore stores audio files on the local filesystem.
type LocalStore struct {
	audioDir string
}

// NewLocalStore creates a local filesystem audio store.
func NewLocalStore(audioDir string) *LocalStore {
	return &LocalStore{audioDir: audioDir}
}

// Save writes through a temp file and rename so /audio/ never serves a
// partial clip.
func (s *LocalStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	_, werr := tmp.Write(data)
	if err := errors.Join(werr, tmp.Close()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) LocalPath(key string) string {
	p, err := s.resolve(key)
	if err != nil {
		return ""
	}
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return p
	}
	return ""
}

func (s *LocalStore) URL(ctx context.Context, key string) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	return URLPrefix + filepath.ToSlash(filepath.Clean(key)), nil
}

// Check creates the audio directory and confirms it is writable.
func (s *LocalStore) Check(ctx context.Context) error {
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.audioDir, err)
	}
	f, err := os.CreateTemp(s.audioDir, ".writable-*")
	if err != nil {
		return fmt.Errorf("audio dir %s not writable: %w", s.audioDir, err)
	}
	f.Close()
	return os.Remove(f.Name())
}

func (s *LocalStore) Type() string { return "local" }

// resolve maps a key to a path inside audioDir, rejecting keys that escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid audio key %q", key)
	}
	return filepath.Join(s.audioDir, clean), nil
}
