// Package toolchain is a thin archive-extraction helper:
// ExtractIfArchive unpacks an archive file into a sibling directory
// and returns that directory's path. The driver and the CLI do not
// call it, so a --sdk-path naming an archive is not extracted before
// resolution. It does not fetch,
// index, or install toolchains — those remain out of scope per
// spec.md §1.
package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	extract "github.com/codeclysm/extract"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// ExtractIfArchive inspects path: if it names a regular file whose
// content sniffs as a supported archive type, it is extracted into
// path with its last extension replaced by ".d" (sdk.zip -> sdk.d;
// created if needed) and that directory is returned.
// If path is already a directory, it is returned unchanged.
func ExtractIfArchive(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if info.IsDir() {
		return path, nil
	}

	header := make([]byte, 261)
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()
	if _, err := f.Read(header); err != nil {
		return "", errors.Wrapf(err, "toolchain: sniffing %s", path)
	}

	if !filetype.IsArchive(header) {
		return "", errors.Errorf("toolchain: %s is not a recognized archive", path)
	}

	destDir := strings.TrimSuffix(path, filepath.Ext(path)) + ".d"
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return "", errors.WithStack(err)
	}
	if err := extract.Archive(context.Background(), f, destDir, nil); err != nil {
		return "", errors.Wrapf(err, "toolchain: extracting %s", path)
	}

	return destDir, nil
}
