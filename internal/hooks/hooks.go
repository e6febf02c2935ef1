// Package hooks implements the Hook Runner (C6): it takes an
// already-recipe-expanded command string and applies the remaining
// variable-expansion, quoting and elision passes of spec.md §4.6
// before running it as a direct process (the first token is the
// program, the rest its arguments; no shell is spawned, so shell
// syntax in the command is not interpreted), per legacy/builder/recipe_runner.go's
// RecipeByPrefixSuffixRunner/PrepareCommandForRecipe/utils.ExecCommand.
package hooks

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/aily-project/aily-builder/internal/logger"
	properties "github.com/arduino/go-properties-orderedmap"
	"github.com/pkg/errors"
)

// StreamMode mirrors legacy/builder/utils.go's Ignore/Show/ShowIfVerbose/Capture
// constants: how a hook's stdout/stderr should be handled.
type StreamMode int

const (
	Ignore StreamMode = iota
	Show
	ShowIfVerbose
	Capture
)

// Warning is a non-fatal hook diagnostic (an unresolved {NAME} token,
// a suppressed self-copy).
type Warning struct {
	Message string
}

// Runner dispatches hook recipes, per spec.md §4.6.
type Runner struct {
	Logger  logger.Logger
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

var tokenRe = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// Prepare applies §4.6 passes 1-3 (variable expansion, quoted-define
// escaping, empty-argument elision) to an already-recipe-expanded
// command line, returning the dispatch-ready string and any warnings.
func (r *Runner) Prepare(commandLine string) (string, []Warning) {
	var warnings []Warning

	expanded := tokenRe.ReplaceAllStringFunc(commandLine, func(m string) string {
		name := tokenRe.FindStringSubmatch(m)[1]
		if v, ok := os.LookupEnv(strings.ToUpper(name)); ok {
			return v
		}
		warnings = append(warnings, Warning{Message: "unresolved hook variable {" + name + "}"})
		return m
	})

	parts, err := properties.SplitQuotedString(expanded, `"'`, false)
	if err != nil {
		// fall back to the raw string; the shell gets a chance to
		// reject it instead of the runner silently dropping the hook.
		return expanded, warnings
	}

	var kept []string
	for _, part := range parts {
		part = escapeQuotedDefine(part)
		if part == "" || part == `""` || part == "''" {
			continue
		}
		kept = append(kept, part)
	}

	return strings.Join(kept, " "), warnings
}

var quotedDefineRe = regexp.MustCompile(`^(-D[A-Za-z_][A-Za-z0-9_]*)=(?:"([^"]*)"|'([^']*)')$`)
var shellMetacharRe = regexp.MustCompile(`[()$` + "`" + `\\!"'<>|&;*?#~\[\]{}]`)

// escapeQuotedDefine implements §4.6 pass 2: -DNAME="VALUE" (or the
// single-quoted spelling) is rewritten to the double-escaped form a
// shell needs to see a literal quoted string in the preprocessor
// define; any other -DNAME=VALUE whose VALUE contains shell
// metacharacters is wrapped whole in double quotes instead.
func escapeQuotedDefine(arg string) string {
	if m := quotedDefineRe.FindStringSubmatch(arg); m != nil {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		return `"` + m[1] + `=\"` + value + `\"` + `"`
	}
	if idx := strings.Index(arg, "="); idx > 2 && strings.HasPrefix(arg, "-D") {
		value := arg[idx+1:]
		if shellMetacharRe.MatchString(value) {
			return `"` + arg + `"`
		}
	}
	return arg
}

var windowsSelfCopyRe = regexp.MustCompile(`(?i)^copy\s*/y\s+"([^"]+)"\s+"([^"]+)"$`)

// isSuppressedSelfCopy implements §4.6 pass 4: a Windows COPY /y "X" "X"
// whose source equals target is a no-op best skipped rather than run.
func isSuppressedSelfCopy(commandLine string) bool {
	m := windowsSelfCopyRe.FindStringSubmatch(strings.TrimSpace(commandLine))
	return m != nil && m[1] == m[2]
}

// Run prepares and dispatches commandLine in dir, following the
// stream-mode idiom of utils.ExecCommand: stdout/stderr are sent to
// Runner.Stdout/Stderr, discarded, or captured into the returned
// buffers depending on mode.
func (r *Runner) Run(commandLine, dir string, stdoutMode, stderrMode StreamMode) ([]byte, []byte, error) {
	prepared, warnings := r.Prepare(commandLine)
	for _, w := range warnings {
		r.log().Println(logger.LevelWarn, "%s", w.Message)
	}

	if isSuppressedSelfCopy(prepared) {
		r.log().Println(logger.LevelWarn, "skipping no-op self-copy: %s", prepared)
		return nil, nil, nil
	}

	parts, err := properties.SplitQuotedString(prepared, `"'`, false)
	if err != nil || len(parts) == 0 {
		return nil, nil, errors.Wrapf(err, "hooks: parsing command %q", prepared)
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = dir

	if r.Verbose {
		r.log().UnformattedFprintln(r.out(), strings.Join(parts, " "))
	}

	var outBuf, errBuf bytes.Buffer
	switch stdoutMode {
	case Capture:
		cmd.Stdout = &outBuf
	case Show, ShowIfVerbose:
		if stdoutMode == Show || r.Verbose {
			cmd.Stdout = r.out()
		}
	}
	switch stderrMode {
	case Capture:
		cmd.Stderr = &errBuf
	case Show, ShowIfVerbose:
		if stderrMode == Show || r.Verbose {
			cmd.Stderr = r.err()
		}
	}

	runErr := cmd.Run()
	if runErr != nil && isNonFatalHookFailure(prepared) {
		r.log().Println(logger.LevelWarn, "ignoring non-fatal hook failure: %s: %v", prepared, runErr)
		runErr = nil
	}

	return outBuf.Bytes(), errBuf.Bytes(), errors.WithStack(runErr)
}

// isNonFatalHookFailure implements §4.6's closing carve-out: copies
// touching partitions.csv are known to fail harmlessly on platforms
// that don't ship one for every board variant.
func isNonFatalHookFailure(commandLine string) bool {
	return strings.Contains(commandLine, "partitions.csv")
}

func (r *Runner) out() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) err() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func (r *Runner) log() logger.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logger.Discard{}
}

// IsWindowsHost reports whether self-copy suppression is meaningful
// on this build host (the shell-dispatch path still runs the hook
// verbatim on other hosts; COPY simply never matches there).
func IsWindowsHost() bool { return runtime.GOOS == "windows" }
