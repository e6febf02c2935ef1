package objcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	monkey "bou.ke/monkey"
	paths "github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, path, content string) *paths.Path {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return paths.New(path)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestStoreThenHasThenRestore(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	source := writeSource(t, filepath.Join(dir, "a.cpp"), "int a;\n")
	object := writeSource(t, filepath.Join(dir, "a.o"), "fake-object-bytes")

	key := Key("/usr/bin/fake-gcc", "recipe-v1", source)
	require.NoError(t, c.Store(key, source, object, "test-recipe"))

	ok, err := c.Has(key, source)
	require.NoError(t, err)
	assert.True(t, ok)

	target := paths.New(filepath.Join(dir, "restored", "a.o"))
	restored, err := c.Restore(key, target)
	require.NoError(t, err)
	assert.True(t, restored)

	data, err := target.ReadFile()
	require.NoError(t, err)
	assert.Equal(t, "fake-object-bytes", string(data))
}

func TestHasFalseWhenSourceNewerThanBlob(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	source := writeSource(t, filepath.Join(dir, "a.cpp"), "int a;\n")
	object := writeSource(t, filepath.Join(dir, "a.o"), "bytes")

	key := Key("/usr/bin/fake-gcc", "recipe-v1", source)
	require.NoError(t, c.Store(key, source, object, "test-recipe"))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(source.String(), future, future))

	ok, err := c.Has(key, source)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyChangesWhenCompilerMTimeChanges(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, filepath.Join(dir, "a.cpp"), "int a;\n")
	compiler := writeSource(t, filepath.Join(dir, "g++"), "#!/bin/sh\n")

	before := Key(compiler.String(), "-c -Iinc", source)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(compiler.String(), future, future))

	after := Key(compiler.String(), "-c -Iinc", source)
	assert.NotEqual(t, before, after, "touching the compiler binary must change the key even though the source and args are unchanged (scenario S4)")
}

func TestHasFalseWhenUnknownKey(t *testing.T) {
	c := newTestCache(t)
	source := writeSource(t, filepath.Join(t.TempDir(), "a.cpp"), "int a;\n")
	ok, err := c.Has("0123456789abcdef0123456789abcdef", source)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCountsStoredEntries(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		source := writeSource(t, filepath.Join(dir, "f.cpp"), "x")
		object := writeSource(t, filepath.Join(dir, "f.o"), "some bytes here")
		key := Key("/usr/bin/fake-gcc", "recipe-"+string(rune('a'+i)), source)
		require.NoError(t, c.Store(key, source, object, "test-recipe"))
	}

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
	assert.True(t, stats.Bytes > 0)
}

func TestSweepRemovesOldEntriesMatchingPattern(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	source := writeSource(t, filepath.Join(dir, "old.cpp"), "x")
	object := writeSource(t, filepath.Join(dir, "old.o"), "bytes")
	key := Key("/usr/bin/fake-gcc", "recipe-old", source)
	require.NoError(t, c.Store(key, source, object, "test-recipe"))

	future := time.Now().Add(40 * 24 * time.Hour)
	defer monkey.Patch(time.Now, func() time.Time { return future }).Unpatch()

	removed, err := c.Sweep(30*24*time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ok, err := c.Has(key, source)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaintainSkipsWhenNotDue(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Maintain())

	sentinel := c.root.Join(sentinelName)
	first, err := sentinel.ReadFile()
	require.NoError(t, err)

	require.NoError(t, c.Maintain())
	second, err := sentinel.ReadFile()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMaintainRunsAgainAfterThirtyDays(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Maintain())

	future := time.Now().Add(31 * 24 * time.Hour)
	guard := monkey.Patch(time.Now, func() time.Time { return future })
	defer guard.Unpatch()

	require.NoError(t, c.Maintain())

	sentinel := c.root.Join(sentinelName)
	data, err := sentinel.ReadFile()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
