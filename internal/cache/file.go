package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is a directory-backed cache, one JSON file per key.
type File struct {
	dir string
	mu  sync.RWMutex
}

type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFile creates the cache directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.RLock()
	raw, err := os.ReadFile(f.path(key))
	f.mu.RUnlock()
	if err != nil {
		return nil, false
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		_ = f.Delete(context.Background(), key)
		return nil, false
	}
	return entry.Data, true
}

func (f *File) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	raw, err := json.Marshal(fileEntry{Key: key, Data: data, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return os.WriteFile(f.path(key), raw, 0o644)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// CleanupExpired removes every expired entry file
func (f *File) CleanupExpired() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		p := filepath.Join(f.dir, de.Name())
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var entry fileEntry
		if json.Unmarshal(raw, &entry) != nil || now.After(entry.ExpiresAt) {
			_ = os.Remove(p)
		}
	}
	return nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%x.json", md5.Sum([]byte(key))))
}
