// Package objcache implements the Object Cache (C4): a content-
// addressed store of compiled object files, keyed so that parallel
// compiles from independent invocations of the driver can share
// results, per spec.md §4.4.
package objcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	paths "github.com/arduino/go-paths-helper"
	timeutils "github.com/arduino/go-timeutils"
	"github.com/gofrs/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	sentinelName    = ".last_maintenance"
	maintainEvery   = 30 * 24 * time.Hour
	maxEntries      = 50000
	maxBytes  int64 = 1 << 30 // 1 GiB
	firstSweepAge   = 30 * 24 * time.Hour
	secondSweepAge  = 7 * 24 * time.Hour
)

// Cache is the object cache root, per spec.md §4.4's layout:
// cacheRoot/<hexprefix(2)>/<hex>.o and the matching .meta.json.
type Cache struct {
	root *paths.Path

	hardLinks int64 // atomic
	copies    int64 // atomic
}

// Meta is the sidecar JSON recorded next to every cached blob. It
// embeds go-timeutils' TimeInfo the same way the teacher's inventory
// package uses gofrs/uuid for install identifiers: a small, already
// JSON-tagged type instead of a hand-rolled timestamp field.
type Meta struct {
	timeutils.TimeInfo
	SourcePath    string `json:"source_path"`
	SourceModTime int64  `json:"source_mod_time"` // unix nanoseconds
	Size          int64  `json:"size"`
	// OriginalArgs is the recipe text the object was compiled with,
	// recorded so `cache diff` can explain a cache miss by diffing two
	// records' recipe text instead of just their keys.
	OriginalArgs string `json:"original_args"`
}

// Stats is the aggregate cache report of spec.md §4.4's stats() call.
type Stats struct {
	Count     int64
	Bytes     int64
	HardLinks int64
	Copies    int64
}

// New opens (and, if necessary, creates) the cache rooted at root. An
// empty root resolves to "<home>/.cache/aily-builder/objects", via
// go-homedir the way the teacher resolves its own config/inventory
// directories relative to the user's home.
func New(root string) (*Cache, error) {
	if root == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, errors.Wrap(err, "objcache: resolving home directory")
		}
		root = filepath.Join(home, ".cache", "aily-builder", "objects")
	}
	p := paths.New(root)
	if err := p.MkdirAll(); err != nil {
		return nil, errors.Wrapf(err, "objcache: creating cache root %s", root)
	}
	return &Cache{root: p}, nil
}

// Key computes the content-address for a compile unit: the hash of the
// WorkItem identity of spec.md:38, the triple (compiler-path,
// canonical-args, source-path), the same way GetCachedCoreArchiveFileName
// hashes fqbn+optimizationFlags+coreFolder in
// legacy/builder/phases/core_builder.go. The compiler binary's own
// mtime is folded in as a version token: touching the compiler (a
// toolchain upgrade) changes every key even though canonicalArgs and
// sourceFile are untouched, so every object recompiles (spec.md
// scenario S4) instead of serving a stale cached blob.
func Key(compilerPath, canonicalArgs string, sourceFile *paths.Path) string {
	abs := sourceFile
	if a, err := sourceFile.Abs(); err == nil {
		abs = a
	}
	mtime := ""
	if stat, err := os.Stat(compilerPath); err == nil {
		mtime = strconv.FormatInt(stat.ModTime().UnixNano(), 10)
	}
	sum := md5.Sum([]byte(compilerPath + "\x00" + canonicalArgs + "\x00" + mtime + "\x00" + abs.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) blobPath(key string) *paths.Path {
	return c.root.Join(key[:2], key+".o")
}

func (c *Cache) metaPath(key string) *paths.Path {
	return c.root.Join(key[:2], key+".meta.json")
}

// Has reports whether key is present and still valid: both blob and
// meta exist, and sourceFile's mtime is no newer than the blob's,
// per spec.md §4.4's invariant that the cache never serves a blob
// older than its recorded source.
func (c *Cache) Has(key string, sourceFile *paths.Path) (bool, error) {
	blob := c.blobPath(key)
	meta := c.metaPath(key)
	if !blob.Exist() || !meta.Exist() {
		return false, nil
	}

	blobStat, err := blob.Stat()
	if err != nil {
		return false, errors.WithStack(err)
	}
	sourceStat, err := sourceFile.Stat()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	if sourceStat.ModTime().After(blobStat.ModTime()) {
		return false, nil
	}
	return true, nil
}

// Restore implements spec.md §4.4's restore(key, targetPath): it
// requires has(key), ensures targetPath's parent directory exists,
// attempts a hardlink and falls back to a byte copy on any failure
// (cross-device link, permissions, ...).
func (c *Cache) Restore(key string, targetPath *paths.Path) (bool, error) {
	blob := c.blobPath(key)
	if !blob.Exist() {
		return false, nil
	}
	if err := targetPath.Parent().MkdirAll(); err != nil {
		return false, errors.WithStack(err)
	}
	targetPath.Remove() // ignore: target may not exist yet

	if err := os.Link(blob.String(), targetPath.String()); err == nil {
		atomic.AddInt64(&c.hardLinks, 1)
		c.touchMeta(key)
		return true, nil
	}
	if err := blob.CopyTo(targetPath); err != nil {
		return false, errors.Wrapf(err, "objcache: restoring %s", key)
	}
	atomic.AddInt64(&c.copies, 1)
	c.touchMeta(key)
	return true, nil
}

// Store implements spec.md §4.4's store(key, objectPath): it writes
// (or overwrites) the blob and its meta, preferring a hardlink into
// the cache with a byte-copy fallback, and writes through a
// uuid-suffixed temp file renamed into place so concurrent stores for
// the same key never leave a partial file visible to another reader
// (the ordering guarantee of §5: "observers never see a partial file").
func (c *Cache) Store(key string, sourceFile *paths.Path, objectPath *paths.Path, originalArgs string) error {
	blob := c.blobPath(key)
	meta := c.metaPath(key)
	if err := blob.Parent().MkdirAll(); err != nil {
		return errors.WithStack(err)
	}

	tmpSuffix, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "objcache: generating temp suffix")
	}
	tmpBlob := blob.Parent().Join(key + "." + tmpSuffix.String() + ".tmp")

	if err := os.Link(objectPath.String(), tmpBlob.String()); err != nil {
		if err := objectPath.CopyTo(tmpBlob); err != nil {
			return errors.Wrapf(err, "objcache: copying %s into cache", objectPath)
		}
		atomic.AddInt64(&c.copies, 1)
	} else {
		atomic.AddInt64(&c.hardLinks, 1)
	}
	if err := os.Rename(tmpBlob.String(), blob.String()); err != nil {
		tmpBlob.Remove()
		return errors.Wrapf(err, "objcache: publishing %s", key)
	}

	sourceStat, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	objStat, err := blob.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	abs := sourceFile
	if a, err := sourceFile.Abs(); err == nil {
		abs = a
	}
	m := Meta{
		TimeInfo:      timeutils.TimeInfo{LastUsed: time.Now()},
		SourcePath:    abs.String(),
		SourceModTime: sourceStat.ModTime().UnixNano(),
		Size:          objStat.Size(),
		OriginalArgs:  originalArgs,
	}
	return writeMetaJSON(meta, m)
}

func (c *Cache) touchMeta(key string) {
	meta := c.metaPath(key)
	m, err := readMetaJSON(meta)
	if err != nil {
		return
	}
	m.LastUsed = time.Now()
	_ = writeMetaJSON(meta, m)
}

func writeMetaJSON(p *paths.Path, m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(p.WriteFile(data))
}

func readMetaJSON(p *paths.Path) (Meta, error) {
	data, err := p.ReadFile()
	if err != nil {
		return Meta{}, errors.WithStack(err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, errors.WithStack(err)
	}
	return m, nil
}

// Stats walks the cache root and reports the aggregate counters of
// spec.md §4.4's stats() call. HardLinks/Copies reflect activity
// since this Cache value was created, not the whole cache's history.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	s.HardLinks = atomic.LoadInt64(&c.hardLinks)
	s.Copies = atomic.LoadInt64(&c.copies)

	entries, err := c.listEntries()
	if err != nil {
		return s, err
	}
	for _, e := range entries {
		stat, err := e.blob.Stat()
		if err != nil {
			continue
		}
		s.Count++
		s.Bytes += stat.Size()
	}
	return s, nil
}
