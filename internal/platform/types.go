// Package platform implements the Configuration Resolver (C1): it
// turns an FQBN plus a vendor platform tree into a fully expanded
// ResolvedConfig, following spec.md §4.1.
package platform

import (
	"strconv"
	"strings"

	properties "github.com/arduino/go-properties-orderedmap"
)

// runtimePlaceholders are the tokens (matched case-insensitively) that
// are allowed to survive expansion unresolved without a warning: the
// per-compile-unit tokens the Build-Graph Emitter (C3) fills in later
// ({source_file}, {object_file}, {object_files}, {includes},
// {archive_file_path}, {ld_flags}) plus the %NAME%-style placeholder
// names.
var runtimePlaceholders = map[string]bool{
	"SOURCE_FILE_PATH":   true,
	"OBJECT_FILE_PATH":   true,
	"OBJECT_FILE_PATHS":  true,
	"INCLUDE_PATHS":      true,
	"LD_FLAGS":           true,
	"SOURCE_FILE":        true,
	"OBJECT_FILE":        true,
	"OBJECT_FILES":       true,
	"INCLUDES":           true,
	"ARCHIVE_FILE_PATH":  true,
}

// maxExpansionIterations bounds the iterative {token} rewrite (§4.1 step 8).
const maxExpansionIterations = 10

// ResolvedConfig is a mapping from property name to fully-expanded
// string value, per spec.md §3. It wraps the ordered property map the
// corpus uses everywhere (github.com/arduino/go-properties-orderedmap)
// instead of a bare map[string]string, so recipe lookups, SubTree
// projections and {token} expansion reuse the library's own helpers.
type ResolvedConfig struct {
	props *properties.Map
}

// Raw returns the underlying ordered property map. Callers that need
// to hand the whole resolved set to another component (e.g. C3's
// template substitution) use this rather than re-deriving individual
// getters.
func (rc *ResolvedConfig) Raw() *properties.Map { return rc.props }

// Get returns the expanded value for key, or "" if absent.
func (rc *ResolvedConfig) Get(key string) string { return rc.props.Get(key) }

// Has reports whether key is present.
func (rc *ResolvedConfig) Has(key string) bool { return rc.props.ContainsKey(key) }

// CompilerTools is the compiler.{cpp,c,ar,ld,objcopy} projection.
type CompilerTools struct {
	Cpp     string
	C       string
	Ar      string
	Ld      string
	Objcopy string
}

// CompilerTools projects the compiler.* tool paths out of the resolved config.
func (rc *ResolvedConfig) CompilerTools() CompilerTools {
	sub := rc.props.SubTree("compiler")
	return CompilerTools{
		Cpp:     sub.Get("cpp.cmd"),
		C:       sub.Get("c.cmd"),
		Ar:      sub.Get("ar.cmd"),
		Ld:      sub.Get("c.cmd"), // linking is driven through the C/C++ front-end, not a separate ld
		Objcopy: sub.Get("objcopy.cmd"),
	}
}

// ArgTemplates is the args.{cpp,c,s,ld,hex,eep,bin} projection: the
// recipe strings, globally expanded except for the per-compile-unit
// placeholders the Build-Graph Emitter substitutes into them.
type ArgTemplates struct {
	Cpp string
	C   string
	S   string
	Ld  string
	Hex string
	Eep string
	Bin string
}

// ArgTemplates returns the recipe.*.pattern strings used to build
// per-language compile/link/objcopy commands.
func (rc *ResolvedConfig) ArgTemplates() ArgTemplates {
	r := rc.props.SubTree("recipe")
	return ArgTemplates{
		Cpp: r.Get("cpp.o.pattern"),
		C:   r.Get("c.o.pattern"),
		S:   r.Get("S.o.pattern"),
		Ld:  r.Get("c.combine.pattern"),
		Hex: r.Get("objcopy.hex.pattern"),
		Eep: r.Get("objcopy.eep.pattern"),
		Bin: r.Get("objcopy.bin.pattern"),
	}
}

// UploadLimits is the upload.{maximum_size,maximum_data_size} projection.
type UploadLimits struct {
	MaximumSize     int64
	MaximumDataSize int64
}

// UploadLimits projects the flash/RAM ceilings used by size diagnostics (§4.5 step 10).
func (rc *ResolvedConfig) UploadLimits() UploadLimits {
	u := rc.props.SubTree("upload")
	return UploadLimits{
		MaximumSize:     parseInt64OrZero(u.Get("maximum_size")),
		MaximumDataSize: parseInt64OrZero(u.Get("maximum_data_size")),
	}
}

func parseInt64OrZero(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SizeRecipe is the recipe.size.* projection used by size diagnostics.
type SizeRecipe struct {
	Pattern   string
	Regex     string
	RegexData string
}

// SizeRecipe projects the recipe.size.* family.
func (rc *ResolvedConfig) SizeRecipe() SizeRecipe {
	s := rc.props.SubTree("recipe").SubTree("size")
	return SizeRecipe{
		Pattern:   s.Get("pattern"),
		Regex:     s.Get("regex"),
		RegexData: s.Get("regex.data"),
	}
}

// HookRecipes returns every configured recipe.hooks.<phase>.<n>.pattern
// key in sorted order, for the given phase ("prebuild", "postbuild",
// "objcopy.postobjcopy", ...).
func (rc *ResolvedConfig) HookRecipes(phase string) []string {
	return findRecipes(rc.props, "recipe.hooks."+phase+".", ".pattern")
}

// ObjcopyRecipes returns the recipe.objcopy.<variant>.pattern keys
// configured for this platform (e.g. "hex", "eep", "bin").
func (rc *ResolvedConfig) ObjcopyRecipes() []string {
	return findRecipes(rc.props, "recipe.objcopy.", ".pattern")
}

// PathBag carries the derived filesystem locations the spec requires
// C1 to publish (§4.1 Outputs, §6 environment variables), threaded
// explicitly instead of exported into process-global os.Environ() —
// see DESIGN.md's "Ambient process-global state" redesign note.
type PathBag struct {
	SketchName         string
	SketchPath         string
	SketchDirPath      string
	BuildPath          string
	SDKPath            string
	SDKCorePath        string
	SDKVariantPath     string
	SDKCoreLibraries   string
	LibrariesPaths     []string
	CompilerPath       string
	CompilerGppPath    string
	BuildMCU           string
	Package            string
	Platform           string
}

// ToolBag carries resolved tool paths, keyed by tool name (e.g.
// "gcc", "ctags"), after applying any caller-supplied version pins.
type ToolBag struct {
	ToolPaths   map[string]string
	ToolVersion map[string]string
}

// Warning is a non-fatal resolution diagnostic (§4.1 Errors: unresolved
// variables are warnings, not errors).
type Warning struct {
	Key     string
	Message string
}
