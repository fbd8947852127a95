// Package nix drives the external nix tooling for nixpr.
// This file implements the advisory on-disk inventory cache.
package nix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/nixpr/nixpr/internal/git"
)

// InventoryCache memoizes inventory snapshots to compressed files keyed by
// the tree state and query shape. The cache is strictly advisory: every
// failure path degrades to a miss and every miss is transparent to callers.
type InventoryCache struct {
	dir    string
	logger zerolog.Logger
}

// NewInventoryCache creates a cache rooted at dir.
func NewInventoryCache(dir string, logger zerolog.Logger) *InventoryCache {
	return &InventoryCache{dir: dir, logger: logger}
}

// key derives the cache key for a checkout. Returns false when the checkout
// state cannot be hashed reliably, e.g. a dirty worktree.
func (c *InventoryCache) key(ctx context.Context, worktree, system string, withMeta bool) (string, bool) {
	dirty, err := git.IsDirty(ctx, worktree)
	if err != nil || dirty {
		return "", false
	}
	rev, err := git.HeadRev(ctx, worktree)
	if err != nil {
		return "", false
	}

	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%t", rev, system, withMeta))
	return hex.EncodeToString(h[:]), true
}

// Get returns the cached snapshot for the checkout, or ok=false on a miss.
func (c *InventoryCache) Get(ctx context.Context, worktree, system string, withMeta bool) ([]Package, bool) {
	key, ok := c.key(ctx, worktree, system, withMeta)
	if !ok {
		return nil, false
	}

	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("discarding unreadable inventory cache entry")
		return nil, false
	}
	defer func() { _ = gz.Close() }()

	var pkgs []Package
	if err := json.NewDecoder(gz).Decode(&pkgs); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("discarding corrupt inventory cache entry")
		return nil, false
	}

	c.logger.Debug().Str("key", key).Int("packages", len(pkgs)).Msg("inventory cache hit")
	return pkgs, true
}

// Put stores a snapshot. Errors are logged and otherwise ignored.
func (c *InventoryCache) Put(ctx context.Context, worktree, system string, withMeta bool, pkgs []Package) {
	key, ok := c.key(ctx, worktree, system, withMeta)
	if !ok {
		return
	}

	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		c.logger.Debug().Err(err).Msg("cannot create inventory cache directory")
		return
	}

	tmp, err := os.CreateTemp(c.dir, "inventory-*.tmp")
	if err != nil {
		c.logger.Debug().Err(err).Msg("cannot create inventory cache entry")
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	gz := gzip.NewWriter(tmp)
	encErr := json.NewEncoder(gz).Encode(pkgs)
	if err := gz.Close(); err == nil {
		err = encErr
	} else if encErr != nil {
		err = encErr
	}
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		c.logger.Debug().AnErr("encode", err).AnErr("close", closeErr).Msg("failed to write inventory cache entry")
		return
	}

	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		c.logger.Debug().Err(err).Msg("failed to publish inventory cache entry")
	}
}

func (c *InventoryCache) path(key string) string {
	return filepath.Join(c.dir, key+".json.gz")
}

// cacheGet and cachePut are nil-safe helpers used by the Lister.

func (l *Lister) cacheGet(ctx context.Context, worktree, system string, withMeta bool) ([]Package, bool) {
	if l.cache == nil {
		return nil, false
	}
	return l.cache.Get(ctx, worktree, system, withMeta)
}

func (l *Lister) cachePut(ctx context.Context, worktree, system string, withMeta bool, pkgs []Package) {
	if l.cache == nil {
		return
	}
	l.cache.Put(ctx, worktree, system, withMeta, pkgs)
}
