// Package buildgraph implements the Build-Graph Emitter (C3): it
// turns a resolved DependencyGraph and its compile units into a
// ninja-syntax build file plus the list of object paths the linker
// needs, per spec.md §4.3.
package buildgraph

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aily-project/aily-builder/internal/deps"
	"github.com/aily-project/aily-builder/internal/platform"
	paths "github.com/arduino/go-paths-helper"
	properties "github.com/arduino/go-properties-orderedmap"
	"github.com/pkg/errors"
)

// Request bundles everything the emitter needs.
type Request struct {
	Config      *platform.ResolvedConfig
	Graph       *deps.DependencyGraph
	Units       *deps.CompileUnits
	BuildDir    *paths.Path
	Parallelism int // compile_pool depth; 0 or less means a depth of 8
}

// Result is what Emit produces.
type Result struct {
	NinjaPath   *paths.Path
	NinjaText   string
	ObjectFiles []string // every object file that feeds the final link, in emission order

	// SourceByObject maps every emitted compile-unit's object path back
	// to its source file and owning dependency kind, so the driver's
	// progress-line parser (spec.md §4.5 step 7) can recover a cache
	// key from a "-o <path>.o" line without re-deriving object-path
	// naming itself.
	SourceByObject map[string]ObjectSource
}

// ObjectSource identifies the compile unit an emitted object path came
// from, plus the per-language compiler path and recipe-pattern text
// (already globally expanded save for its per-compile-unit
// placeholders) that actually produced it. The driver's cache-key
// construction needs both: spec.md:38 defines a WorkItem's identity as
// the triple (compiler-path, canonical-args, source-path), and a
// cache key built from one shared recipe string regardless of source
// language would never change when a compiler is upgraded (spec.md
// scenario S4).
type ObjectSource struct {
	SourcePath   string
	DepKind      deps.Kind
	CompilerPath string
	ArgsPattern  string
}

const (
	sketchPoolName  = "sketch_pool"
	compilePoolName = "compile_pool"
)

// Emit builds the ninja file content and writes it to
// <buildDir>/build.ninja, per spec.md §4.3.
func Emit(req Request) (*Result, error) {
	if req.BuildDir == nil {
		return nil, errors.New("buildgraph: BuildDir is required")
	}

	var b strings.Builder
	tools := req.Config.CompilerTools()
	templates := req.Config.ArgTemplates()

	writePools(&b, req.Parallelism)
	writeRules(&b, tools, templates)

	var objectFiles []string
	var archiveTargets []string
	coreArchiveObjects := map[string][]string{} // archive name -> object files
	sourceByObject := map[string]ObjectSource{}

	for _, dep := range req.Graph.All() {
		files := req.Units.ByDependency[dep]
		sort.Slice(files, func(i, j int) bool { return files[i].String() < files[j].String() })

		for _, src := range files {
			objPath := objectPathFor(dep, src, req.BuildDir)
			pool := compilePoolName
			if dep.Kind == deps.KindSketch {
				pool = sketchPoolName
			}
			rule := ruleForExtension(filepath.Ext(src.String()))
			if rule == "" {
				continue
			}
			compilerPath, argsPattern := toolAndTemplateForRule(rule, tools, templates)
			writeBuildStatement(&b, objPath, rule, src.String(), pool, IncludePathsFlag(req.Graph))
			sourceByObject[objPath] = ObjectSource{
				SourcePath:   src.String(),
				DepKind:      dep.Kind,
				CompilerPath: compilerPath,
				ArgsPattern:  argsPattern,
			}

			switch dep.Kind {
			case deps.KindSketch, deps.KindVariant:
				objectFiles = append(objectFiles, objPath)
			case deps.KindCore:
				coreArchiveObjects["core"] = append(coreArchiveObjects["core"], objPath)
			case deps.KindLibrary:
				coreArchiveObjects[dep.Name] = append(coreArchiveObjects[dep.Name], objPath)
			}
		}
	}

	// Variant objects are never archived: like sketch objects they go
	// straight to the link line (the KindVariant case above), so no
	// archive target exists for the variant and nothing of it is added
	// to core.a.

	for _, name := range sortedArchiveNames(coreArchiveObjects) {
		archivePath := filepath.Join(req.BuildDir.String(), name+".a")
		writeArchiveStatement(&b, archivePath, coreArchiveObjects[name])
		archiveTargets = append(archiveTargets, archivePath)
	}

	elfPath := filepath.Join(req.BuildDir.String(), "firmware.elf")
	writeLinkStatement(&b, elfPath, objectFiles, archiveTargets, templates.Ld, prebuiltFlags(req.Graph))

	objectFiles = append(objectFiles, archiveTargets...)

	for _, recipeKey := range req.Config.ObjcopyRecipes() {
		variant := objcopyVariantName(recipeKey)
		outPath := filepath.Join(req.BuildDir.String(), "firmware."+variant)
		writeObjcopyStatement(&b, outPath, elfPath, variant)
	}

	fmt.Fprintf(&b, "\ndefault %s\n", relTo(req.BuildDir, elfPath))

	ninjaPath := req.BuildDir.Join("build.ninja")
	if err := ninjaPath.Parent().MkdirAll(); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := ninjaPath.WriteFile([]byte(b.String())); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Result{
		NinjaPath:      ninjaPath,
		NinjaText:      b.String(),
		ObjectFiles:    objectFiles,
		SourceByObject: sourceByObject,
	}, nil
}

func sortedArchiveNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ruleForExtension(ext string) string {
	switch ext {
	case ".cpp", ".cc", ".cxx":
		return "cxx"
	case ".c":
		return "cc"
	case ".S", ".s":
		return "asm"
	default:
		return ""
	}
}

// toolAndTemplateForRule maps a ninja rule name back to the compiler
// path and recipe-pattern text writeRules used to build that rule's
// command, mirroring writeCompileRule's own tool/template selection
// (assembly shares the C++ compiler binary, per the teacher's
// platform.txt convention).
func toolAndTemplateForRule(rule string, tools platform.CompilerTools, templates platform.ArgTemplates) (string, string) {
	switch rule {
	case "cxx":
		return tools.Cpp, templates.Cpp
	case "cc":
		return tools.C, templates.C
	case "asm":
		return tools.Cpp, templates.S
	default:
		return "", ""
	}
}

// objectPathFor implements spec.md §4.3's object-path naming: sketch
// and core objects are "<type>/<file>.o"; library objects are
// "<type>/<depName>/<file>.o".
func objectPathFor(dep *deps.Dependency, src *paths.Path, buildDir *paths.Path) string {
	base := strings.TrimSuffix(src.Base(), filepath.Ext(src.Base())) + ".o"
	switch dep.Kind {
	case deps.KindSketch:
		return filepath.Join(buildDir.String(), "sketch", base)
	case deps.KindCore:
		return filepath.Join(buildDir.String(), "core", base)
	case deps.KindVariant:
		return filepath.Join(buildDir.String(), "variant", base)
	default:
		return filepath.Join(buildDir.String(), "libraries", dep.Name, base)
	}
}

func objcopyVariantName(recipeKey string) string {
	// recipeKey looks like "recipe.objcopy.hex.pattern"
	parts := strings.Split(recipeKey, ".")
	if len(parts) >= 3 {
		return parts[2]
	}
	return "bin"
}

func relTo(base *paths.Path, target string) string {
	rel, err := filepath.Rel(base.String(), target)
	if err != nil {
		return target
	}
	return rel
}

// IncludePathsFlag builds the build-wide -I flag string (spec.md §4.3's
// %INCLUDE_PATHS% substitution): the same set applies to every compile
// unit, so the driver reuses it when constructing each object's
// canonical cache-key arguments after the fact.
func IncludePathsFlag(graph *deps.DependencyGraph) string {
	var flags []string
	for _, p := range graph.IncludePaths() {
		flags = append(flags, `-I"`+p+`"`)
	}
	return strings.Join(flags, " ")
}

func prebuiltFlags(graph *deps.DependencyGraph) string {
	var flags []string
	for _, dep := range graph.All() {
		for _, p := range dep.Prebuilt.LibPaths {
			flags = append(flags, `-L"`+p+`"`)
		}
		for _, n := range dep.Prebuilt.LibNames {
			flags = append(flags, "-l"+n)
		}
	}
	return strings.Join(flags, " ")
}

// substitutePattern fills in the platform's own {source_file},
// {object_file}, {includes}, {object_files} and {archive_file_path}
// placeholders — the real tokens arduino-style platform.txt recipes
// leave unresolved after the Configuration Resolver's global
// expansion pass, since those are inherently per-compile-unit values.
// This is the concrete realization of spec.md §4.3's %SOURCE_FILE_PATH%
// / %OBJECT_FILE_PATH% / %INCLUDE_PATHS% / %OBJECT_FILE_PATHS% /
// %LD_FLAGS% substitution table, expressed in the platform's native
// placeholder spelling rather than an invented one (see DESIGN.md).
func substitutePattern(pattern, sourceFile, objectFile, includes, objectFiles, archiveFile, ldFlags string) string {
	props := properties.NewMap()
	props.Set("source_file", sourceFile)
	props.Set("object_file", objectFile)
	props.Set("includes", includes)
	props.Set("object_files", objectFiles)
	props.Set("archive_file_path", archiveFile)
	props.Set("ld_flags", ldFlags)
	return props.ExpandPropsInString(pattern)
}
