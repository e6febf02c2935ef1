package deps

import (
	"os"
	"sort"
	"strings"

	"github.com/aily-project/aily-builder/internal/macros"
	"github.com/aily-project/aily-builder/internal/preprocessor"
	"github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
)

// maxResolutionDepth bounds #include-driven library recursion
// (spec.md §4.2.3: "Recursion is bounded (default depth 10)").
const maxResolutionDepth = 10

// Request carries everything Resolve needs to build the
// DependencyGraph for one sketch build.
type Request struct {
	SketchPath   *paths.Path
	SketchFiles  []*paths.Path // the sketch's own .ino/.cpp/.h files, merged-form included
	CorePath     *paths.Path
	VariantPath  *paths.Path // empty/nil if the board has no variant
	LibraryMap   *LibraryMap
	SeedEnv      *macros.Env
	Architecture string
	IsSTM32      bool
}

// Resolve builds the DependencyGraph of spec.md §4.2: it analyzes the
// sketch's own files and, transitively, every library pulled in by an
// #include, stopping at system headers and at libraries already
// resolved.
func Resolve(req Request) (*DependencyGraph, error) {
	graph := &DependencyGraph{}

	if req.CorePath != nil {
		graph.Core = &Dependency{
			Name:       "core",
			Kind:       KindCore,
			Path:       req.CorePath,
			SourceDirs: []SourceDir{{Dir: req.CorePath, Recurse: true}},
		}
	}
	if req.VariantPath != nil {
		graph.Variant = &Dependency{
			Name:       "variant",
			Kind:       KindVariant,
			Path:       req.VariantPath,
			SourceDirs: []SourceDir{{Dir: req.VariantPath, Recurse: false}},
		}
	}
	graph.Sketch = &Dependency{
		Name:       "sketch",
		Kind:       KindSketch,
		Path:       req.SketchPath,
		SourceDirs: []SourceDir{{Dir: req.SketchPath, Recurse: false}},
	}

	resolved := map[string]*Dependency{}

	queue := make([]queuedFile, 0, len(req.SketchFiles))
	for _, f := range req.SketchFiles {
		queue = append(queue, queuedFile{path: f, env: req.SeedEnv, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		libs, fileEnv, err := resolveIncludesOfFile(item, req.LibraryMap, resolved, &graph.Libraries)
		if err != nil {
			return nil, err
		}
		for _, lib := range libs {
			for _, sd := range lib.SourceDirs {
				files, err := walkSourceFiles(sd.Dir, sd.Recurse)
				if err != nil {
					return nil, err
				}
				for _, f := range files {
					queue = append(queue, queuedFile{path: f, env: fileEnv, depth: item.depth + 1, origin: lib})
				}
			}
			headerPaths := make([]string, 0, len(lib.Headers))
			for _, h := range lib.Headers {
				headerPaths = append(headerPaths, h)
			}
			sort.Strings(headerPaths)
			for _, h := range headerPaths {
				queue = append(queue, queuedFile{path: paths.New(h), env: fileEnv, depth: item.depth + 1, origin: lib})
			}
		}
	}

	if req.IsSTM32 {
		if srcWrapper := req.LibraryMap.Lookup("SrcWrapper.h"); srcWrapper != nil {
			addIfNotResolved(srcWrapper, resolved, &graph.Libraries)
		} else if dep := lookupByName(req.LibraryMap, "SrcWrapper"); dep != nil {
			addIfNotResolved(dep, resolved, &graph.Libraries)
		}
	}

	return graph, nil
}

type queuedFile struct {
	path   *paths.Path
	env    *macros.Env
	depth  int
	origin *Dependency
}

// resolveIncludesOfFile analyzes item's file and returns both the
// libraries it newly pulls in and the macro environment current at
// the end of that analysis (spec.md §4.2.3: a library's headers are
// recursively analyzed with a copy of the current macro environment,
// i.e. the one in effect at the #include, not the one the including
// file started with).
func resolveIncludesOfFile(item queuedFile, libMap *LibraryMap, resolved map[string]*Dependency, libs *[]*Dependency) ([]*Dependency, *macros.Env, error) {
	if item.depth > maxResolutionDepth {
		return nil, item.env, nil
	}
	content, err := os.ReadFile(item.path.String())
	if err != nil {
		return nil, item.env, errors.WithStack(err)
	}
	result, err := preprocessor.Analyze(content, item.env)
	if err != nil {
		return nil, item.env, errors.WithStack(err)
	}

	var newlyResolved []*Dependency
	for _, header := range result.Includes {
		if IsSystemHeader(header) {
			continue
		}
		dep := libMap.Lookup(header)
		if dep == nil {
			// unresolvable reference: skipped without failing the
			// resolution; nothing is logged or recorded for it.
			continue
		}
		if _, already := resolved[dep.Name]; already {
			continue
		}
		resolved[dep.Name] = dep
		*libs = append(*libs, dep)
		newlyResolved = append(newlyResolved, dep)
	}
	return newlyResolved, result.Env, nil
}

func addIfNotResolved(dep *Dependency, resolved map[string]*Dependency, libs *[]*Dependency) {
	if _, already := resolved[dep.Name]; already {
		return
	}
	resolved[dep.Name] = dep
	*libs = append(*libs, dep)
}

func lookupByName(libMap *LibraryMap, name string) *Dependency {
	if libMap == nil {
		return nil
	}
	for _, dep := range libMap.byHeader {
		if strings.EqualFold(dep.Name, name) {
			return dep
		}
	}
	return nil
}
