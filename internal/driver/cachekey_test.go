package driver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aily-project/aily-builder/internal/buildgraph"
	"github.com/aily-project/aily-builder/internal/deps"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/aily-project/aily-builder/internal/objcache"
	paths "github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalArgsDropsOutputPair(t *testing.T) {
	src := buildgraph.ObjectSource{
		SourcePath:   "/tmp/sketch/a.cpp",
		ArgsPattern:  `g++ -c {includes} -o {object_file} {source_file} -Wall`,
		CompilerPath: "/usr/bin/g++",
	}
	args, err := canonicalArgs(src, `-I"/tmp/lib"`)
	require.NoError(t, err)
	assert.NotContains(t, args, "-o")
	assert.Contains(t, args, "/tmp/sketch/a.cpp")
	assert.Contains(t, args, `-I"/tmp/lib"`)
}

func TestCanonicalArgsIgnoresTheRecipesOwnFlagOrdering(t *testing.T) {
	a := buildgraph.ObjectSource{SourcePath: "/tmp/a.cpp", ArgsPattern: `g++ -Wall -c {includes} {source_file} -o {object_file}`, CompilerPath: "/usr/bin/g++"}
	b := buildgraph.ObjectSource{SourcePath: "/tmp/a.cpp", ArgsPattern: `g++ -c {source_file} {includes} -Wall -o {object_file}`, CompilerPath: "/usr/bin/g++"}

	argsA, err := canonicalArgs(a, "-Iinc")
	require.NoError(t, err)
	argsB, err := canonicalArgs(b, "-Iinc")
	require.NoError(t, err)
	assert.Equal(t, argsA, argsB, "sorted tokens make the key insensitive to a recipe's own flag ordering (Invariant 2)")
}

func TestRestorePhaseMissesAfterCompilerMTimeBumps(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "a.cpp")
	require.NoError(t, os.WriteFile(sourcePath, []byte("int a;\n"), 0o644))
	objPath := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(objPath, []byte("obj-bytes"), 0o644))
	compilerPath := filepath.Join(dir, "g++")
	require.NoError(t, os.WriteFile(compilerPath, []byte("#!/bin/sh\n"), 0o755))

	cache, err := objcache.New(t.TempDir())
	require.NoError(t, err)

	src := buildgraph.ObjectSource{
		SourcePath:   sourcePath,
		DepKind:      deps.KindLibrary,
		CompilerPath: compilerPath,
		ArgsPattern:  `g++ -c {includes} {source_file} -o {object_file}`,
	}
	sourceByObject := map[string]buildgraph.ObjectSource{objPath: src}

	args, err := canonicalArgs(src, "")
	require.NoError(t, err)
	key := objcache.Key(src.CompilerPath, args, paths.New(sourcePath))
	require.NoError(t, cache.Store(key, paths.New(sourcePath), paths.New(objPath), args))

	log := logger.Discard{}
	hits := restorePhase(sourceByObject, cache, "", log)
	assert.Equal(t, 1, hits, "the freshly stored object must restore before the compiler changes")

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(compilerPath, future, future))

	hits = restorePhase(sourceByObject, cache, "", log)
	assert.Equal(t, 0, hits, "bumping the compiler's mtime must change the cache key, forcing a miss (scenario S4)")
}
