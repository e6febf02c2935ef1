// Package deps builds the header-to-library map and the ordered
// DependencyGraph of spec.md §4.2.3-§4.2.5: given a sketch, the
// resolved platform's core/variant paths and a set of library search
// roots, it walks #include chains (via internal/preprocessor) to
// discover exactly the dependencies the sketch actually needs.
package deps

import "github.com/arduino/go-paths-helper"

// Kind distinguishes the four dependency roles spec.md's build-graph
// emitter treats differently (sketch is pinned, sketch and variant
// objects are linked unarchived, core skips the architecture filter).
type Kind int

const (
	KindSketch Kind = iota
	KindCore
	KindVariant
	KindLibrary
)

func (k Kind) String() string {
	switch k {
	case KindSketch:
		return "sketch"
	case KindCore:
		return "core"
	case KindVariant:
		return "variant"
	case KindLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// SourceDir is one directory within a Dependency that contributes
// source files, along with whether it is walked recursively (the
// library root is recursive; a src/ split gets its own entry).
type SourceDir struct {
	Dir     *paths.Path
	Recurse bool
}

// PrebuiltArchives is the "others" set of spec.md §4.3: extra -L/-l
// flags contributed by a dependency that ships precompiled archives
// instead of (or in addition to) buildable sources.
type PrebuiltArchives struct {
	LibPaths []string // -L entries
	LibNames []string // -l entries
}

// Dependency is one node of the DependencyGraph: the core, the
// variant, the sketch, or one resolved library.
type Dependency struct {
	Name       string
	Kind       Kind
	Path       *paths.Path
	SourceDirs []SourceDir
	Headers    map[string]string // header name (no dir) -> absolute path, non-recursive
	Prebuilt   PrebuiltArchives
	UtilityDir *paths.Path // library's "utility" subdir, if present, added to its own include path only
}

// DependencyGraph is the ordered result of C2: the sketch and
// platform dependencies plus every library transitively pulled in by
// an #include, in first-resolved order (spec.md invariant: resolution
// order is deterministic and matches discovery order).
type DependencyGraph struct {
	Sketch    *Dependency
	Core      *Dependency
	Variant   *Dependency // nil if the board has no variant
	Libraries []*Dependency
}

// All returns every dependency in the graph in build-relevant order:
// sketch, core, variant (if any), then libraries in resolution order.
func (g *DependencyGraph) All() []*Dependency {
	out := make([]*Dependency, 0, 3+len(g.Libraries))
	if g.Sketch != nil {
		out = append(out, g.Sketch)
	}
	if g.Core != nil {
		out = append(out, g.Core)
	}
	if g.Variant != nil {
		out = append(out, g.Variant)
	}
	out = append(out, g.Libraries...)
	return out
}

// IncludePaths returns the -I entries for the whole graph, path
// deduplicated in first-seen order, matching spec.md §4.3's
// %INCLUDE_PATHS% substitution rule.
func (g *DependencyGraph) IncludePaths() []string {
	seen := map[string]bool{}
	var out []string
	add := func(p *paths.Path) {
		if p == nil {
			return
		}
		s := p.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, d := range g.All() {
		add(d.Path)
		add(d.UtilityDir)
	}
	return out
}
