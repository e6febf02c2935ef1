package buildgraph

import (
	"fmt"
	"strings"

	"github.com/aily-project/aily-builder/internal/platform"
)

func writePools(b *strings.Builder, parallelism int) {
	fmt.Fprintf(b, "pool %s\n  depth = 1\n\n", sketchPoolName)
	depth := parallelism
	if depth <= 0 {
		depth = 8
	}
	fmt.Fprintf(b, "pool %s\n  depth = %d\n\n", compilePoolName, depth)
}

// writeRules emits one ninja rule per compile language plus archive,
// link and objcopy, with $in/$out standing in for the per-compile-unit
// source_file/object_file placeholders (spec.md §4.3's
// %SOURCE_FILE_PATH%/%OBJECT_FILE_PATH% realized as ninja's own
// input/output variables, since that is what a ninja rule's $in/$out
// already mean).
func writeRules(b *strings.Builder, tools platform.CompilerTools, templates platform.ArgTemplates) {
	writeCompileRule(b, "cxx", tools.Cpp, templates.Cpp)
	writeCompileRule(b, "cc", tools.C, templates.C)
	writeCompileRule(b, "asm", tools.Cpp, templates.S)

	fmt.Fprintf(b, "rule archive\n  command = %s rcs $out $in\n  description = AR $out\n\n", tools.Ar)
	fmt.Fprintf(b, "rule link\n  command = %s\n  description = LINK $out\n\n", "$LD_COMMAND")
	fmt.Fprintf(b, "rule objcopy\n  command = %s --output-target=$FORMAT $in $out\n  description = OBJCOPY $out\n\n", tools.Objcopy)
}

func writeCompileRule(b *strings.Builder, name, tool, template string) {
	command := substitutePattern(template, "$in", "$out", "$INCLUDES", "", "", "")
	fmt.Fprintf(b, "rule %s\n  command = %s\n  description = %s $out\n  depfile = $out.d\n  deps = gcc\n\n",
		name, commandOrFallback(command, tool), strings.ToUpper(name))
}

func commandOrFallback(command, tool string) string {
	if strings.TrimSpace(command) == "" {
		return tool + " -c $in -o $out"
	}
	return command
}

func writeBuildStatement(b *strings.Builder, objPath, rule, sourcePath, pool, includes string) {
	fmt.Fprintf(b, "build %s: %s %s\n  pool = %s\n", objPath, rule, sourcePath, pool)
	if includes != "" {
		fmt.Fprintf(b, "  INCLUDES = %s\n", includes)
	}
	b.WriteString("\n")
}

func writeArchiveStatement(b *strings.Builder, archivePath string, objects []string) {
	fmt.Fprintf(b, "build %s: archive %s\n\n", archivePath, strings.Join(objects, " "))
}

func writeLinkStatement(b *strings.Builder, elfPath string, looseObjects, archives []string, ldTemplate, prebuilt string) {
	inputs := append(append([]string{}, looseObjects...), archives...)
	fmt.Fprintf(b, "build %s: link %s\n", elfPath, strings.Join(inputs, " "))
	fmt.Fprintf(b, "  LD_COMMAND = %s\n", substitutePattern(ldTemplate, "", elfPath, "", "-Wl,--whole-archive $in -Wl,--no-whole-archive", elfPath, prebuilt))
	b.WriteString("\n")
}

func writeObjcopyStatement(b *strings.Builder, outPath, elfPath, variant string) {
	fmt.Fprintf(b, "build %s: objcopy %s\n  FORMAT = %s\n\n", outPath, elfPath, objcopyFormat(variant))
}

func objcopyFormat(variant string) string {
	switch variant {
	case "hex":
		return "ihex"
	case "bin":
		return "binary"
	case "eep":
		return "ihex"
	default:
		return "binary"
	}
}
