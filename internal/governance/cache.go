package governance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// ColumnCache is the local fallback for a user's column preference.
type ColumnCache interface {
	Load(tenantID string) ([]string, error)
	Store(tenantID string, columns []string) error
}

type cachedColumns struct {
	Columns []string `json:"columns"`
}

// FileCache keeps one JSON file per tenant under Dir.
type FileCache struct {
	Dir string
	mu  sync.Mutex
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

// DefaultCacheDir is the per-user cache location of the workflow.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "contactsctl"), nil
}

func (c *FileCache) path(tenantID string) string {
	return filepath.Join(c.Dir, url.PathEscape(tenantID)+".columns.json")
}

// Load returns nil without error when nothing is cached for tenantID.
func (c *FileCache) Load(tenantID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(tenantID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("column cache: read: %w", err)
	}
	var cached cachedColumns
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("column cache: decode %s: %w", c.path(tenantID), err)
	}
	return cached.Columns, nil
}

func (c *FileCache) Store(tenantID string, columns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.Dir, 0o700); err != nil {
		return fmt.Errorf("column cache: create dir: %w", err)
	}
	data, err := json.Marshal(cachedColumns{Columns: columns})
	if err != nil {
		return fmt.Errorf("column cache: encode: %w", err)
	}

	tmp, err := os.CreateTemp(c.Dir, ".columns-*")
	if err != nil {
		return fmt.Errorf("column cache: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("column cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("column cache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(tenantID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("column cache: rename: %w", err)
	}
	return nil
}

type noCache struct{}

func (noCache) Load(string) ([]string, error) { return nil, nil }

func (noCache) Store(string, []string) error { return nil }
