package driver

import (
	"regexp"
	"strings"
)

// cKeywords excludes C/C++ control-flow and type keywords from being
// mistaken for a user function name, per spec.md §4.5.1.
var cKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "default": true, "return": true,
	"sizeof": true, "new": true, "delete": true, "catch": true,
	"setup": true, "loop": true,
}

var stringOrCharLiteralRe = regexp.MustCompile(`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`)
var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
var lineCommentRe = regexp.MustCompile(`//[^\n]*`)
var includeRe = regexp.MustCompile(`(?m)^\s*#\s*include\b[^\n]*`)

var funcDefRe = regexp.MustCompile(`(?m)^[A-Za-z_][A-Za-z0-9_:<>\*&\s]*\b([A-Za-z_][A-Za-z0-9_]*)\s*\(([^;{}()]*)\)\s*\{`)
var identCallRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// forwardDeclaration is one synthesized prototype.
type forwardDeclaration struct {
	Name        string
	Declaration string // "<signature>;"
}

// stripForScanning removes string/char literals and comments so the
// function-definition and call-site regexes never misfire inside
// quoted text or a comment, per spec.md §4.5.1 step 1. The result has
// the same length and line structure as the input (literal/comment
// bodies are replaced with spaces), so byte offsets still line up
// with the original text.
func stripForScanning(src string) string {
	blank := func(s string) string {
		return strings.Repeat(" ", len(s))
	}
	out := blockCommentRe.ReplaceAllStringFunc(src, func(m string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' {
				return '\n'
			}
			return ' '
		}, m)
	})
	out = lineCommentRe.ReplaceAllStringFunc(out, blank)
	out = stringOrCharLiteralRe.ReplaceAllStringFunc(out, blank)
	return out
}

// synthesizeForwardDeclarations implements spec.md §4.5.1: it scans
// sketchText for top-level function definitions and the first call
// site of every identifier, and returns (in first-definition order) a
// forward declaration for every function whose first call precedes
// its own definition.
func synthesizeForwardDeclarations(sketchText string) []forwardDeclaration {
	scan := stripForScanning(sketchText)

	type def struct {
		name string
		sig  string
		pos  int
	}
	var defs []def
	for _, m := range funcDefRe.FindAllStringSubmatchIndex(scan, -1) {
		name := scan[m[2]:m[3]]
		if cKeywords[name] {
			continue
		}
		whole := scan[m[0]:m[1]]
		sig := strings.TrimSpace(strings.TrimSuffix(whole, "{"))
		defs = append(defs, def{name: name, sig: sig, pos: m[0]})
	}

	firstCall := map[string]int{}
	for _, m := range identCallRe.FindAllStringSubmatchIndex(scan, -1) {
		name := scan[m[2]:m[3]]
		if cKeywords[name] {
			continue
		}
		if _, seen := firstCall[name]; !seen {
			firstCall[name] = m[0]
		}
	}

	var out []forwardDeclaration
	for _, d := range defs {
		callPos, called := firstCall[d.name]
		if !called || callPos >= d.pos {
			continue
		}
		out = append(out, forwardDeclaration{Name: d.name, Declaration: d.sig + ";"})
	}

	return out
}

// insertForwardDeclarations inserts decls immediately after the last
// top-level #include line (or at the top of the file if there is
// none), matching §4.5.1's placement rule.
func insertForwardDeclarations(sketchText string, decls []forwardDeclaration) string {
	if len(decls) == 0 {
		return sketchText
	}

	var block strings.Builder
	for _, d := range decls {
		block.WriteString(d.Declaration)
		block.WriteString("\n")
	}

	matches := includeRe.FindAllStringIndex(sketchText, -1)
	if len(matches) == 0 {
		return block.String() + sketchText
	}
	last := matches[len(matches)-1]
	insertAt := last[1]
	// skip the newline terminating the #include line, if present.
	if insertAt < len(sketchText) && sketchText[insertAt] == '\n' {
		insertAt++
	}
	return sketchText[:insertAt] + block.String() + sketchText[insertAt:]
}
