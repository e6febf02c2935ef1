package deps

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
)

var compilableExtensions = map[string]bool{".cpp": true, ".c": true, ".S": true, ".s": true}

var excludedDirNames = map[string]bool{
	"examples": true, "extras": true, "test": true, "tests": true, "docs": true,
}

// knownArchitectures is the set spec.md §4.2.4 names for the
// architecture filter; a source file living under a directory with
// one of these names only compiles when it matches the configured
// architecture.
var knownArchitectures = map[string]bool{
	"avr": true, "megaavr": true, "samd": true, "stm32f4": true, "renesas": true,
	"sam": true, "nrf52": true, "mbed": true, "esp32": true, "esp8266": true,
}

// EnumerateSources walks path (the dependency's root, or any of its
// SourceDirs) and returns the candidate source files, applying the
// exclusion list, the architecture filter and the code-fragment filter
// when applyLibraryFilters is true (spec.md §4.2.4: the core
// dependency skips both filters).
func EnumerateSources(dirs []SourceDir, architecture string, applyLibraryFilters bool) ([]*paths.Path, error) {
	var candidates []*paths.Path
	for _, sd := range dirs {
		found, err := walkSourceFiles(sd.Dir, sd.Recurse)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	if !applyLibraryFilters {
		return candidates, nil
	}

	candidates = filterByArchitecture(candidates, architecture)
	roots := map[string]bool{}
	for _, sd := range dirs {
		if sd.Dir != nil {
			roots[filepath.Clean(sd.Dir.String())] = true
		}
	}
	candidates = filterCodeFragments(candidates, roots)
	return candidates, nil
}

func walkSourceFiles(root *paths.Path, recurse bool) ([]*paths.Path, error) {
	var out []*paths.Path
	if root == nil || !root.IsDir() {
		return out, nil
	}
	err := filepath.WalkDir(root.String(), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root.String() {
				if excludedDirNames[strings.ToLower(d.Name())] {
					return filepath.SkipDir
				}
				if !recurse {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if compilableExtensions[filepath.Ext(p)] {
			out = append(out, paths.New(p))
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// filterByArchitecture drops any candidate that lives under a
// directory named after a *different* known architecture than the one
// configured; files not under any architecture-named directory are
// always kept (they are the generic/common sources).
func filterByArchitecture(candidates []*paths.Path, architecture string) []*paths.Path {
	var out []*paths.Path
	for _, c := range candidates {
		archDir := architectureOf(c)
		if archDir == "" || strings.EqualFold(archDir, architecture) {
			out = append(out, c)
		}
	}
	return out
}

func architectureOf(p *paths.Path) string {
	for _, part := range strings.Split(filepath.ToSlash(p.String()), "/") {
		if knownArchitectures[strings.ToLower(part)] {
			return part
		}
	}
	return ""
}

// minFunctionDefs and minControlFlowKeywords are the code-fragment
// filter's calibration knobs (spec.md §9 Open Question: thresholds
// left as tunable constants rather than hardcoded inline).
const (
	minFunctionDefs        = 1
	minControlFlowKeywords = 1
)

var includeLineRe = regexp.MustCompile(`^\s*#\s*include\s*["<]([^">]+)[">]`)
var funcDefRe = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_:<>\*&\s]*\s+[A-Za-z_~][A-Za-z0-9_]*\s*\([^;]*\)\s*(\{|$)`)
var loopBranchKeywordRe = regexp.MustCompile(`\b(if|for|while|switch|return)\b`)

// filterCodeFragments implements spec.md §4.2.4 point 2-3: files in a
// library subdirectory (not the root, not src/) that are really
// textual fragments meant to be #included elsewhere, rather than
// standalone translation units, are dropped. A file that itself
// #includes a .c/.cpp sibling is always kept (it is the wrapper, not
// the fragment), and whatever it pulls in is dropped.
func filterCodeFragments(candidates []*paths.Path, roots map[string]bool) []*paths.Path {
	byPath := map[string]*paths.Path{}
	for _, c := range candidates {
		byPath[c.String()] = c
	}

	pulledIn := map[string]bool{}
	kept := map[string]bool{}

	for _, c := range candidates {
		if !isInSubdirectory(c, roots) {
			kept[c.String()] = true
			continue
		}
		info, err := analyzeFragment(c)
		if err != nil {
			kept[c.String()] = true
			continue
		}
		if info.includesSiblingSource {
			kept[c.String()] = true
			for _, sibling := range info.siblingSources {
				pulledIn[sibling] = true
			}
			continue
		}
		if info.isFragment {
			continue
		}
		kept[c.String()] = true
	}

	var out []*paths.Path
	for p, c := range byPath {
		if pulledIn[p] {
			continue
		}
		if kept[p] {
			out = append(out, c)
		}
	}
	return out
}

// isInSubdirectory reports whether p lives in some nested directory
// below the dependency's root (as opposed to directly in the root or
// in src/), which is the only place the code-fragment filter applies.
func isInSubdirectory(p *paths.Path, roots map[string]bool) bool {
	if roots[filepath.Clean(p.Parent().String())] {
		return false
	}
	parent := p.Parent().Base()
	return parent != "" && !strings.EqualFold(parent, "src")
}

type fragmentInfo struct {
	isFragment            bool
	includesSiblingSource bool
	siblingSources        []string
}

func analyzeFragment(p *paths.Path) (fragmentInfo, error) {
	f, err := os.Open(p.String())
	if err != nil {
		return fragmentInfo{}, errors.WithStack(err)
	}
	defer f.Close()

	var includeCount, funcDefCount, dataDeclCount int
	var siblingSources []string
	conditionalDepth := 0
	sawTopLevelConditionalWrap := false
	loopBranchKeywordCount := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#if") {
			if conditionalDepth == 0 && lineNo <= 3 {
				sawTopLevelConditionalWrap = true
			}
			conditionalDepth++
			continue
		}
		if strings.HasPrefix(trimmed, "#endif") {
			conditionalDepth--
			continue
		}

		if m := includeLineRe.FindStringSubmatch(line); m != nil {
			includeCount++
			inc := m[1]
			if ext := filepath.Ext(inc); ext == ".c" || ext == ".cpp" {
				siblingSources = append(siblingSources, p.Parent().Join(inc).String())
			}
			continue
		}
		if funcDefRe.MatchString(line) {
			funcDefCount++
		}
		loopBranchKeywordCount += len(loopBranchKeywordRe.FindAllString(line, -1))
		if strings.HasSuffix(trimmed, ";") && !strings.Contains(trimmed, "(") && trimmed != "" {
			dataDeclCount++
		}
	}
	if err := scanner.Err(); err != nil {
		return fragmentInfo{}, errors.WithStack(err)
	}

	includesSibling := len(siblingSources) > 0

	dataOnlyFragment := includeCount == 0 && funcDefCount < minFunctionDefs && dataDeclCount >= 1
	conditionalWrapFragment := sawTopLevelConditionalWrap && funcDefCount < minFunctionDefs && loopBranchKeywordCount < minControlFlowKeywords

	return fragmentInfo{
		isFragment:            dataOnlyFragment || conditionalWrapFragment,
		includesSiblingSource: includesSibling,
		siblingSources:        siblingSources,
	}, nil
}
