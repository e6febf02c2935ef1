package deps

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
)

var headerExtensions = map[string]bool{".h": true, ".hpp": true}
var sourceExtensionsForLibraryRoot = map[string]bool{
	".cpp": true, ".c": true, ".cc": true, ".cxx": true, ".S": true, ".s": true,
}

// LibraryMap is the pre-built headerName -> Dependency index of
// spec.md §4.2.3.
type LibraryMap struct {
	byHeader map[string]*Dependency
}

// Lookup returns the Dependency that provides header (or nil).
func (m *LibraryMap) Lookup(header string) *Dependency {
	if m == nil {
		return nil
	}
	return m.byHeader[header]
}

// BuildLibraryMap walks every root and indexes every library found
// under it. A directory is a library root the first time a walk
// encounters one or more source files directly inside it; the walk
// does not descend further (so a library's own examples/ subfolder is
// never itself mistaken for a nested library).
func BuildLibraryMap(roots []*paths.Path) (*LibraryMap, error) {
	m := &LibraryMap{byHeader: map[string]*Dependency{}}
	for _, root := range roots {
		if root == nil {
			continue
		}
		if err := walkForLibraries(root, m); err != nil {
			return nil, errors.Wrapf(err, "scanning library root %s", root)
		}
	}
	return m, nil
}

func walkForLibraries(root *paths.Path, m *LibraryMap) error {
	entries, err := os.ReadDir(root.String())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithStack(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		childPath := root.Join(e.Name())
		isLib, err := directoryHasSourceFiles(childPath)
		if err != nil {
			return err
		}
		if isLib {
			dep, err := buildLibraryDependency(childPath)
			if err != nil {
				return err
			}
			for header := range dep.Headers {
				if _, exists := m.byHeader[header]; !exists {
					m.byHeader[header] = dep
				}
			}
			continue
		}
		// not a library root itself; descend one level (covers the
		// conventional <librariesRoot>/<LibName>/ layout as well as a
		// "src" split where the actual sources live one level down)
		if err := walkForLibraries(childPath, m); err != nil {
			return err
		}
	}
	return nil
}

func directoryHasSourceFiles(dir *paths.Path) (bool, error) {
	entries, err := os.ReadDir(dir.String())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sourceExtensionsForLibraryRoot[filepath.Ext(e.Name())] {
			return true, nil
		}
	}
	// the conventional case: sources live in a "src" subdirectory
	srcDir := dir.Join("src")
	if srcDir.IsDir() {
		srcEntries, err := os.ReadDir(srcDir.String())
		if err != nil {
			return false, errors.WithStack(err)
		}
		for _, e := range srcEntries {
			if !e.IsDir() && sourceExtensionsForLibraryRoot[filepath.Ext(e.Name())] {
				return true, nil
			}
		}
	}
	return false, nil
}

// buildLibraryDependency constructs a Dependency for a directory that
// directoryHasSourceFiles already confirmed is a library root. Its
// name is the directory's own name, unless the directory is literally
// "src", in which case the parent directory's name is used (spec.md
// §4.2.3).
func buildLibraryDependency(dir *paths.Path) (*Dependency, error) {
	name := dir.Base()
	effectiveRoot := dir
	if strings.EqualFold(name, "src") {
		name = dir.Parent().Base()
	}

	dep := &Dependency{
		Name:    name,
		Kind:    KindLibrary,
		Path:    effectiveRoot,
		Headers: map[string]string{},
	}

	// index headers immediately inside the library root...
	if err := indexHeaders(effectiveRoot, dep); err != nil {
		return nil, err
	}
	dep.SourceDirs = append(dep.SourceDirs, SourceDir{Dir: effectiveRoot, Recurse: true})

	// ...and, if a src/ split is present, inside src/ as well, since
	// callers may #include "LibName/header.h"-style or plain
	// "header.h" depending on which convention the library follows.
	srcDir := effectiveRoot.Join("src")
	if srcDir.IsDir() {
		if err := indexHeaders(srcDir, dep); err != nil {
			return nil, err
		}
	}

	utility := effectiveRoot.Join("utility")
	if utility.IsDir() {
		dep.UtilityDir = utility
	}

	return dep, nil
}

func indexHeaders(dir *paths.Path, dep *Dependency) error {
	entries, err := os.ReadDir(dir.String())
	if err != nil {
		return errors.WithStack(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if headerExtensions[filepath.Ext(e.Name())] {
			dep.Headers[e.Name()] = dir.Join(e.Name()).String()
		}
	}
	return nil
}
