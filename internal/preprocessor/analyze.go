// Package preprocessor implements the conditional-compilation-aware
// file analyzer of spec.md §4.2.1-§4.2.2: it walks a source file's
// preprocessor directives, tracks the #if/#ifdef/#elif/#else/#endif
// frame stack, and reports which #include lines and #define
// directives are reachable under the active branch.
package preprocessor

import (
	"bufio"
	"strings"
	"unicode/utf8"

	"github.com/aily-project/aily-builder/internal/macros"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Result is what analyzing one file yields: the headers it includes
// under active branches (in file order, spec.md invariant 3), and the
// macro environment after any #defines on taken branches.
type Result struct {
	Includes []string
	Env      *macros.Env
}

type frame struct {
	active        bool
	parentActive  bool
	hadTrueBranch bool
}

// Analyze scans content (the raw bytes of one source or header file)
// and returns the includes reachable under env, plus env mutated by
// any #defines that executed (spec.md §4.2.1).
func Analyze(content []byte, env *macros.Env) (Result, error) {
	text, err := stripBOM(content)
	if err != nil {
		return Result{}, err
	}

	lines := collapseContinuations(text)

	var stack []frame
	var includes []string
	cur := env

	activeNow := func() bool {
		for _, f := range stack {
			if !f.active {
				return false
			}
		}
		return true
	}

	for _, line := range lines {
		directive, arg, ok := parseDirective(line)
		if !ok {
			continue
		}

		switch directive {
		case "ifdef", "ifndef":
			name := strings.TrimSpace(arg)
			parentActive := activeNow()
			met := cur.Defined(name)
			if directive == "ifndef" {
				met = !met
			}
			stack = append(stack, frame{
				active:        parentActive && met,
				parentActive:  parentActive,
				hadTrueBranch: met,
			})
		case "if":
			parentActive := activeNow()
			met := macros.Eval(arg, cur)
			stack = append(stack, frame{
				active:        parentActive && met,
				parentActive:  parentActive,
				hadTrueBranch: met,
			})
		case "elif":
			if len(stack) == 0 {
				continue
			}
			top := &stack[len(stack)-1]
			if top.hadTrueBranch {
				top.active = false
			} else {
				met := macros.Eval(arg, cur)
				top.active = top.parentActive && met
				if met {
					top.hadTrueBranch = true
				}
			}
		case "else":
			if len(stack) == 0 {
				continue
			}
			top := &stack[len(stack)-1]
			if top.hadTrueBranch {
				top.active = false
			} else {
				top.active = top.parentActive
				top.hadTrueBranch = true
			}
		case "endif":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case "define":
			if activeNow() {
				name, value := splitDefine(arg)
				cur = cur.Extend(name, value)
			}
		case "undef":
			if activeNow() {
				cur = cur.Undefine(strings.TrimSpace(arg))
			}
		case "include":
			if activeNow() {
				if header, ok := parseIncludeArg(arg); ok {
					includes = append(includes, header)
				}
			}
		}
	}

	return Result{Includes: includes, Env: cur}, nil
}

// stripBOM removes a leading UTF-8 byte-order mark, which some
// vendor headers ship with, before line-scanning. Grounded on the
// teacher's use of golang.org/x/text for BOM/encoding handling
// (legacy/builder/utils reads source with golang.org/x/text/unicode/norm
// and golang.org/x/text/transform); wired here for the same purpose.
func stripBOM(content []byte) (string, error) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}
	decoder := unicode.UTF8.NewDecoder()
	out, _, err := transform.Bytes(decoder, content)
	if err != nil {
		// not valid UTF-8 BOM-wrapped text; analyze the raw bytes as-is
		return string(content), nil
	}
	if !utf8.Valid(out) {
		return string(content), nil
	}
	return string(out), nil
}

// collapseContinuations joins any line ending in an unescaped '\' with
// the following line, so a multi-line directive is seen as one
// logical line (spec.md §4.2.1).
func collapseContinuations(text string) []string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var logical []string
	var pending strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			continue
		}
		pending.WriteString(line)
		logical = append(logical, pending.String())
		pending.Reset()
	}
	if pending.Len() > 0 {
		logical = append(logical, pending.String())
	}
	return logical
}

// parseDirective recognizes a preprocessor directive line (possibly
// indented) and splits it into directive name and argument text.
func parseDirective(line string) (directive, arg string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	rest := strings.TrimLeft(trimmed[1:], " \t")
	i := 0
	for i < len(rest) && (isAlpha(rest[i])) {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	directive = rest[:i]
	arg = strings.TrimSpace(rest[i:])
	switch directive {
	case "ifdef", "ifndef", "if", "elif", "else", "endif", "define", "undef", "include", "include_next":
		if directive == "include_next" {
			directive = "include"
		}
		return directive, arg, true
	default:
		return "", "", false
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// splitDefine splits "NAME value..." or "NAME(args) value" into a
// name and a value; function-like macros are recorded under their
// bare name, with the parameter list dropped and the text after it
// kept as the value (parameters are never expanded).
func splitDefine(arg string) (name, value string) {
	arg = strings.TrimSpace(arg)
	i := 0
	for i < len(arg) && (isAlpha(arg[i]) || arg[i] == '_' || (i > 0 && arg[i] >= '0' && arg[i] <= '9')) {
		i++
	}
	name = arg[:i]
	rest := strings.TrimSpace(arg[i:])
	if strings.HasPrefix(rest, "(") {
		// function-like macro: drop the parameter list; the body after
		// it becomes the value.
		if close := strings.Index(rest, ")"); close >= 0 {
			rest = strings.TrimSpace(rest[close+1:])
		}
	}
	return name, rest
}

// parseIncludeArg extracts the header name from an #include argument,
// supporting both "local.h" and <system.h> forms.
func parseIncludeArg(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if len(arg) < 2 {
		return "", false
	}
	if arg[0] == '"' {
		if end := strings.IndexByte(arg[1:], '"'); end >= 0 {
			return arg[1 : 1+end], true
		}
		return "", false
	}
	if arg[0] == '<' {
		if end := strings.IndexByte(arg, '>'); end > 0 {
			return arg[1:end], true
		}
		return "", false
	}
	return "", false
}
