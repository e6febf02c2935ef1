package toolchain

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("hardware/platform.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("name=Test\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestExtractIfArchiveReturnsDirUnchanged(t *testing.T) {
	dir := t.TempDir()
	out, err := ExtractIfArchive(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, out)
}

func TestExtractIfArchiveUnpacksZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "sdk.zip")
	writeTestZip(t, zipPath)

	out, err := ExtractIfArchive(zipPath)
	require.NoError(t, err)
	assert.DirExists(t, out)
	assert.FileExists(t, filepath.Join(out, "hardware", "platform.txt"))
}

func TestExtractIfArchiveRejectsNonArchiveFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("just some text, not an archive at all, padded out to be long enough to sniff"), 0o644))

	_, err := ExtractIfArchive(p)
	assert.Error(t, err)
}
