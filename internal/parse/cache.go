// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/paperflow/pkg/types"
)

// cache is a flat key->file store of parse results. Keys are hashed so any
// item key makes a safe filename. Corrupt or unreadable entries are treated
// as misses.
type cache struct {
	dir string
}

func newCache(dir string) (*cache, error) {
	if dir == "" {
		dir = ".cache/parsed"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &cache{dir: dir}, nil
}

func (c *cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", md5.Sum([]byte(key))))
}

func (c *cache) get(key string) (types.ParsedPaper, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return types.ParsedPaper{}, false
	}
	var paper types.ParsedPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return types.ParsedPaper{}, false
	}
	return paper, true
}

func (c *cache) put(key string, paper types.ParsedPaper) error {
	data, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshaling parse result: %w", err)
	}
	return os.WriteFile(c.path(key), data, 0o644)
}
