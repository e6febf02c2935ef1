package deps

import (
	"path/filepath"
	"testing"

	"github.com/aily-project/aily-builder/internal/macros"
	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFindsDirectLibrary(t *testing.T) {
	libsRoot := t.TempDir()
	writeFile(t, filepath.Join(libsRoot, "Servo", "Servo.h"), "")
	writeFile(t, filepath.Join(libsRoot, "Servo", "Servo.cpp"), "#include \"Servo.h\"\n")

	sketchDir := t.TempDir()
	sketchFile := filepath.Join(sketchDir, "sketch.ino.cpp")
	writeFile(t, sketchFile, "#include <Servo.h>\nvoid setup(){}\nvoid loop(){}\n")

	libMap, err := BuildLibraryMap([]*paths.Path{paths.New(libsRoot)})
	require.NoError(t, err)

	graph, err := Resolve(Request{
		SketchPath:   paths.New(sketchDir),
		SketchFiles:  []*paths.Path{paths.New(sketchFile)},
		LibraryMap:   libMap,
		SeedEnv:      macros.New(nil),
		Architecture: "avr",
	})
	require.NoError(t, err)
	require.Len(t, graph.Libraries, 1)
	assert.Equal(t, "Servo", graph.Libraries[0].Name)
}

func TestResolveTransitiveLibrary(t *testing.T) {
	libsRoot := t.TempDir()
	writeFile(t, filepath.Join(libsRoot, "Outer", "Outer.h"), "#include <Inner.h>\n")
	writeFile(t, filepath.Join(libsRoot, "Outer", "Outer.cpp"), "#include \"Outer.h\"\n")
	writeFile(t, filepath.Join(libsRoot, "Inner", "Inner.h"), "")
	writeFile(t, filepath.Join(libsRoot, "Inner", "Inner.cpp"), "#include \"Inner.h\"\n")

	sketchDir := t.TempDir()
	sketchFile := filepath.Join(sketchDir, "sketch.ino.cpp")
	writeFile(t, sketchFile, "#include <Outer.h>\n")

	libMap, err := BuildLibraryMap([]*paths.Path{paths.New(libsRoot)})
	require.NoError(t, err)

	graph, err := Resolve(Request{
		SketchPath:  paths.New(sketchDir),
		SketchFiles: []*paths.Path{paths.New(sketchFile)},
		LibraryMap:  libMap,
		SeedEnv:     macros.New(nil),
	})
	require.NoError(t, err)

	var names []string
	for _, l := range graph.Libraries {
		names = append(names, l.Name)
	}
	assert.Contains(t, names, "Outer")
	assert.Contains(t, names, "Inner")
}

func TestResolveSkipsSystemHeaderAndUnresolvable(t *testing.T) {
	sketchDir := t.TempDir()
	sketchFile := filepath.Join(sketchDir, "sketch.ino.cpp")
	writeFile(t, sketchFile, "#include <Arduino.h>\n#include <NoSuchLib.h>\n")

	libMap, err := BuildLibraryMap(nil)
	require.NoError(t, err)

	graph, err := Resolve(Request{
		SketchPath:  paths.New(sketchDir),
		SketchFiles: []*paths.Path{paths.New(sketchFile)},
		LibraryMap:  libMap,
		SeedEnv:     macros.New(nil),
	})
	require.NoError(t, err)
	assert.Empty(t, graph.Libraries)
}

func TestResolveSTM32AddsSrcWrapper(t *testing.T) {
	libsRoot := t.TempDir()
	writeFile(t, filepath.Join(libsRoot, "SrcWrapper", "SrcWrapper.h"), "")
	writeFile(t, filepath.Join(libsRoot, "SrcWrapper", "SrcWrapper.cpp"), "")

	sketchDir := t.TempDir()
	sketchFile := filepath.Join(sketchDir, "sketch.ino.cpp")
	writeFile(t, sketchFile, "void setup(){}\n")

	libMap, err := BuildLibraryMap([]*paths.Path{paths.New(libsRoot)})
	require.NoError(t, err)

	graph, err := Resolve(Request{
		SketchPath:  paths.New(sketchDir),
		SketchFiles: []*paths.Path{paths.New(sketchFile)},
		LibraryMap:  libMap,
		SeedEnv:     macros.New(nil),
		IsSTM32:     true,
	})
	require.NoError(t, err)
	require.Len(t, graph.Libraries, 1)
	assert.Equal(t, "SrcWrapper", graph.Libraries[0].Name)
}

func TestResolvePropagatesEnvMutatedBeforeInclude(t *testing.T) {
	libsRoot := t.TempDir()
	writeFile(t, filepath.Join(libsRoot, "Lib", "Lib.h"), "#ifdef FOO\n#include <Conditional.h>\n#endif\n")
	writeFile(t, filepath.Join(libsRoot, "Lib", "Lib.cpp"), "#include \"Lib.h\"\n")
	writeFile(t, filepath.Join(libsRoot, "Conditional", "Conditional.h"), "")
	writeFile(t, filepath.Join(libsRoot, "Conditional", "Conditional.cpp"), "#include \"Conditional.h\"\n")

	sketchDir := t.TempDir()
	sketchFile := filepath.Join(sketchDir, "sketch.ino.cpp")
	writeFile(t, sketchFile, "#define FOO 1\n#include <Lib.h>\n")

	libMap, err := BuildLibraryMap([]*paths.Path{paths.New(libsRoot)})
	require.NoError(t, err)

	graph, err := Resolve(Request{
		SketchPath:  paths.New(sketchDir),
		SketchFiles: []*paths.Path{paths.New(sketchFile)},
		LibraryMap:  libMap,
		SeedEnv:     macros.New(nil),
	})
	require.NoError(t, err)

	var names []string
	for _, l := range graph.Libraries {
		names = append(names, l.Name)
	}
	assert.Contains(t, names, "Lib")
	assert.Contains(t, names, "Conditional", "Lib.h's files must be analyzed with the env as of the #include, so its own #ifdef FOO sees FOO defined by the sketch")
}

func TestDependencyGraphIncludePathsDeduplicated(t *testing.T) {
	p := paths.New("/tmp/shared")
	graph := &DependencyGraph{
		Core:    &Dependency{Name: "core", Kind: KindCore, Path: p},
		Variant: &Dependency{Name: "variant", Kind: KindVariant, Path: p},
	}
	assert.Equal(t, []string{"/tmp/shared"}, graph.IncludePaths())
}
