package deps

import (
	"strings"

	"github.com/arduino/go-paths-helper"
)

// CompileUnits maps each dependency in a resolved graph to the
// concrete set of source files it contributes to the build-graph
// emitter (C3), after the architecture and code-fragment filters of
// spec.md §4.2.4 have been applied where they apply.
type CompileUnits struct {
	ByDependency map[*Dependency][]*paths.Path
}

// BuildCompileUnits enumerates and filters the final source set for
// every dependency in graph. The core dependency is exempt from the
// architecture and code-fragment filters, and has variant.cpp removed
// explicitly (spec.md §4.2.4/§4.2.5); the sketch and variant are
// likewise never filtered, since a sketch and a board's own variant
// folder are not libraries. Only KindLibrary dependencies go through
// both filters.
func BuildCompileUnits(graph *DependencyGraph, architecture string) (*CompileUnits, error) {
	result := &CompileUnits{ByDependency: map[*Dependency][]*paths.Path{}}

	for _, dep := range graph.All() {
		applyFilters := dep.Kind == KindLibrary
		files, err := EnumerateSources(dep.SourceDirs, architecture, applyFilters)
		if err != nil {
			return nil, err
		}
		if dep.Kind == KindCore {
			files = removeVariantCpp(files)
		}
		result.ByDependency[dep] = files
	}

	return result, nil
}

func removeVariantCpp(files []*paths.Path) []*paths.Path {
	var out []*paths.Path
	for _, f := range files {
		if strings.EqualFold(f.Base(), "variant.cpp") {
			continue
		}
		out = append(out, f)
	}
	return out
}
