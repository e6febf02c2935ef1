package objcache

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	paths "github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
)

type cacheEntry struct {
	key  string
	dir  *paths.Path
	blob *paths.Path
	meta *paths.Path
}

// listEntries walks the two-level hexprefix/hex.o layout and returns
// every entry currently on disk.
func (c *Cache) listEntries() ([]cacheEntry, error) {
	var out []cacheEntry
	if !c.root.Exist() {
		return out, nil
	}
	err := filepath.WalkDir(c.root.String(), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".o") {
			return nil
		}
		key := strings.TrimSuffix(filepath.Base(p), ".o")
		dir := paths.New(filepath.Dir(p))
		out = append(out, cacheEntry{
			key:  key,
			dir:  dir,
			blob: paths.New(p),
			meta: dir.Join(key + ".meta.json"),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// Sweep implements spec.md §4.4's sweep(maxAgeDays?, pattern?): it
// deletes every entry whose meta LastUsed is older than maxAge (when
// maxAge > 0) and whose key contains pattern as a plain substring (when
// pattern != ""; no glob or regex matching is done), then
// removes any directory left empty by the deletions.
func (c *Cache) Sweep(maxAge time.Duration, pattern string) (int, error) {
	entries, err := c.listEntries()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	touchedDirs := map[string]*paths.Path{}

	for _, e := range entries {
		if pattern != "" && !strings.Contains(e.key, pattern) {
			continue
		}
		if maxAge > 0 {
			m, err := readMetaJSON(e.meta)
			if err == nil && now.Sub(m.LastUsed) < maxAge {
				continue
			}
		}
		e.blob.Remove()
		e.meta.Remove()
		touchedDirs[e.dir.String()] = e.dir
		removed++
	}

	for _, dir := range touchedDirs {
		removeIfEmpty(dir)
	}
	return removed, nil
}

func removeIfEmpty(dir *paths.Path) {
	entries, err := os.ReadDir(dir.String())
	if err != nil || len(entries) > 0 {
		return
	}
	dir.RemoveAll()
}

// Maintain implements spec.md §4.4's maintain(): at most once every 30
// days of wall-clock time (tracked via a sentinel file at the cache
// root, the same "guarded but unfenced" shared-resource pattern §5
// accepts for concurrent invocations), it sweeps old entries whenever
// the cache has grown past the configured bounds.
func (c *Cache) Maintain() error {
	sentinel := c.root.Join(sentinelName)
	if due, err := c.maintenanceDue(sentinel); err != nil {
		return err
	} else if !due {
		return nil
	}

	stats, err := c.Stats()
	if err != nil {
		return err
	}
	if stats.Count > maxEntries || stats.Bytes > maxBytes {
		if _, err := c.Sweep(firstSweepAge, ""); err != nil {
			return err
		}
		stats, err = c.Stats()
		if err != nil {
			return err
		}
		if stats.Count > maxEntries || stats.Bytes > maxBytes {
			if _, err := c.Sweep(secondSweepAge, ""); err != nil {
				return err
			}
		}
	}

	return errors.WithStack(sentinel.WriteFile([]byte(strconv.FormatInt(time.Now().Unix(), 10))))
}

func (c *Cache) maintenanceDue(sentinel *paths.Path) (bool, error) {
	if !sentinel.Exist() {
		return true, nil
	}
	data, err := sentinel.ReadFile()
	if err != nil {
		return false, errors.WithStack(err)
	}
	unix, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return true, nil // corrupt sentinel: treat as due
	}
	last := time.Unix(unix, 0)
	return time.Since(last) >= maintainEvery, nil
}
