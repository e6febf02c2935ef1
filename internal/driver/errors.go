package driver

import "github.com/pkg/errors"

// Sentinel errors implementing spec.md §7's taxonomy, following the
// same errors.New + errors.Wrapf pattern internal/platform's
// ErrInvalidFQBN/ErrDescriptorMissing/ErrUnknownBoard already use.
var (
	// ErrSketchValidation covers a missing file, wrong extension or empty content.
	ErrSketchValidation = errors.New("sketch validation failed")
	// ErrHook is returned when a prebuild or postbuild hook exits non-zero (either failure aborts the compile).
	ErrHook = errors.New("hook failed")
	// ErrBuild is returned when the external build executor exits non-zero.
	ErrBuild = errors.New("build failed")
	// ErrSize is returned when firmware exceeds an absolute flash/RAM limit.
	ErrSize = errors.New("firmware exceeds available space")
)

// CacheIOError wraps a non-fatal cache operation failure: per spec.md
// §7, it is always logged, never returned as a hard Compile error.
type CacheIOError struct {
	Op  string
	Err error
}

func (e *CacheIOError) Error() string { return "objcache " + e.Op + ": " + e.Err.Error() }
func (e *CacheIOError) Unwrap() error { return e.Err }

// DependencyError describes a header with no resolvable library.
// internal/deps skips such headers without constructing one, so the
// compile never returns or logs it.
type DependencyError struct {
	Header string
	File   string
}

func (e *DependencyError) Error() string {
	return "unresolved #include \"" + e.Header + "\" referenced from " + e.File
}
