package objcache

import (
	"github.com/pkg/errors"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// ReadMeta loads the .meta.json record for key, for callers (the
// cache diff subcommand, debugging) that want the sidecar directly
// rather than going through Has/Restore.
func (c *Cache) ReadMeta(key string) (Meta, error) {
	m, err := readMetaJSON(c.metaPath(key))
	if err != nil {
		return Meta{}, errors.Wrapf(err, "objcache: reading meta for %s", key)
	}
	return m, nil
}

// Diff renders a human-readable diff between two cache entries'
// OriginalArgs, to explain why a key changed (and so a build stopped
// hitting the cache) without requiring the caller to eyeball two long
// recipe command lines side by side.
func Diff(a, b Meta) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a.OriginalArgs, b.OriginalArgs, false)
	return dmp.DiffPrettyText(diffs)
}
