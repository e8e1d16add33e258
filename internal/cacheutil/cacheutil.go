// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
)

const (
	dirPerm   = 0o755
	filePerm  = 0o600
	tmpPrefix = ".tmp-"
)

// Cache is a content-addressed store of opaque byte blobs rooted at a single
// directory. Entries are keyed by Key(url) and live until ClearAll. It is safe
// for concurrent use; no operation takes a lock because reads tolerate
// concurrent writes, writes to a key are idempotent and clears are a full
// reset.
type Cache struct {
	dir     string
	pending sync.WaitGroup
}

// Stats summarizes the entries currently on disk.
type Stats struct {
	Dir        string `json:"dir" yaml:"dir"`
	Entries    int    `json:"entries" yaml:"entries"`
	TotalBytes int64  `json:"totalBytes" yaml:"totalBytes"`
}

// DefaultDir resolves the default cache root.
// Precedence:
//  1. RECIPECTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/recipectl/ImageCache
//
// Returns ("", false) if a root cannot be resolved.
func DefaultDir() (string, bool) {
	if c, ok := os.LookupEnv("RECIPECTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "recipectl", "ImageCache"), true
	}
	return "", false
}

// New returns a Cache rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	return &Cache{dir: filepath.Clean(dir)}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// EntryPath returns where the entry for url lives, whether or not it exists.
func (c *Cache) EntryPath(url string) string {
	return filepath.Join(c.dir, Key(url))
}

// Read returns the cached bytes for url. Any failure, including a missing
// root, is reported as a miss.
func (c *Cache) Read(url string) ([]byte, bool) {
	p := c.EntryPath(url)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("cache miss: %s", p)
		} else {
			log.WithError(err).Warnf("failed to read cache entry %s", p)
		}
		return nil, false
	}
	log.Debugf("cache hit: %s", p)
	return b, true
}

// Contains reports whether an entry for url exists.
func (c *Cache) Contains(url string) bool {
	info, err := os.Stat(c.EntryPath(url))
	return err == nil && info.Mode().IsRegular()
}

// Write stores data for url in the background. Failures are logged and
// otherwise ignored. Use Wait to block until it lands. data is copied, so the
// caller may reuse it as soon as Write returns.
func (c *Cache) Write(url string, data []byte) {
	data = bytes.Clone(data)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.WriteSync(url, data); err != nil {
			log.WithError(err).Warnf("failed to write cache entry for %s", url)
		}
	}()
}

// WriteSync stores data for url, creating the root as needed. The entry is
// written to a temp file and renamed into place so readers never observe a
// partial file.
func (c *Cache) WriteSync(url string, data []byte) error {
	if err := os.MkdirAll(c.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	p := c.EntryPath(url)
	tmp, err := os.CreateTemp(c.dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		log.WithError(err).Debugf("failed to chmod %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	log.Debugf("cached %d bytes at %s", len(data), p)
	return nil
}

// ClearAll removes every entry in the background. Failures are logged and
// otherwise ignored.
func (c *Cache) ClearAll() {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.ClearAllSync(); err != nil {
			log.WithError(err).Errorf("failed to clear cache %s", c.dir)
		}
	}()
}

// ClearAllSync deletes the root recursively and recreates it empty. A missing
// root is not an error.
func (c *Cache) ClearAllSync() error {
	if _, err := os.Stat(c.dir); errors.Is(err, fs.ErrNotExist) {
		log.Debugf("cache %s does not exist, nothing to clear", c.dir)
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove cache directory: %w", err)
	}
	if err := os.MkdirAll(c.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}
	log.Debugf("cleared cache %s", c.dir)
	return nil
}

// Wait blocks until all background writes and clears dispatched so far have
// finished.
func (c *Cache) Wait() {
	c.pending.Wait()
}

// Stats walks the root and totals the entries. A missing root yields zero
// stats.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed since ReadDir.
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}
