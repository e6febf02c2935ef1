package driver

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aily-project/aily-builder/internal/buildgraph"
	"github.com/aily-project/aily-builder/internal/deps"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/aily-project/aily-builder/internal/objcache"
	paths "github.com/arduino/go-paths-helper"
	pb "github.com/cmaglie/pb"
	"github.com/pkg/errors"
)

var progressLineRe = regexp.MustCompile(`^\[(\d+)/(\d+)\]`)
var objectOutputRe = regexp.MustCompile(`-o\s+(\S+\.o)\b`)
var failedLineRe = regexp.MustCompile(`^FAILED:`)

// runExecutor launches the external build executor (ninja) with
// cwd=buildDir and PATH extended by extraPath, per spec.md §4.5 step 7.
// It parses `[n/m]` progress lines, populating the object cache for
// every non-sketch compile unit it sees finish, and relays `FAILED:`
// lines until the following progress line resumes normal parsing.
func runExecutor(buildDir *paths.Path, extraPath []string, sourceByObject map[string]buildgraph.ObjectSource, cache *objcache.Cache, includes string, log logger.Logger, progress *pb.ProgressBar) error {
	cmd := exec.Command("ninja")
	cmd.Dir = buildDir.String()
	cmd.Env = append(os.Environ(), "PATH="+strings.Join(append(extraPath, os.Getenv("PATH")), string(os.PathListSeparator)))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.WithStack(err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errors.WithStack(err)
	}

	if err := parseExecutorOutput(stdout, sourceByObject, cache, includes, log, progress); err != nil {
		cmd.Wait()
		return err
	}

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(ErrBuild, "%v", err)
	}
	return nil
}

// parseExecutorOutput implements the progress-line state machine of
// spec.md §4.5 step 7: a `[n/m]` line may be followed by compiler
// output; when that output contains `-o <path>.o` and the path now
// exists, the corresponding source's key is stored in the cache
// (skipping sketch objects, which change too often to cache
// usefully). A `FAILED:` line suspends cache bookkeeping until the
// next progress line.
func parseExecutorOutput(r io.Reader, sourceByObject map[string]buildgraph.ObjectSource, cache *objcache.Cache, includes string, log logger.Logger, progress *pb.ProgressBar) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inFailure := false
	for scanner.Scan() {
		line := scanner.Text()

		if failedLineRe.MatchString(line) {
			inFailure = true
			log.Println(logger.LevelError, "%s", line)
			continue
		}
		if progressLineRe.MatchString(line) {
			inFailure = false
			if progress != nil {
				progress.Increment()
			}
		}
		if inFailure {
			log.Println(logger.LevelError, "%s", line)
			continue
		}

		m := objectOutputRe.FindStringSubmatch(line)
		if m == nil || cache == nil {
			continue
		}
		objPath := m[1]
		src, known := sourceByObject[objPath]
		if !known || src.DepKind == deps.KindSketch { // §4.5 step 7 skips sketch objects
			continue
		}
		if _, err := os.Stat(objPath); err != nil {
			continue
		}
		args, err := canonicalArgs(src, includes)
		if err != nil {
			log.Println(logger.LevelDebug, "cache key args failed for %s: %v", objPath, err)
			continue
		}
		key := objcache.Key(src.CompilerPath, args, paths.New(src.SourcePath))
		if err := cache.Store(key, paths.New(src.SourcePath), paths.New(objPath), args); err != nil {
			log.Println(logger.LevelDebug, "cache store failed for %s: %v", objPath, err)
		}
	}
	return errors.WithStack(scanner.Err())
}

// restorePhase implements spec.md §4.5 step 5: for every non-sketch
// compile unit, attempt to restore its cached object before the build
// graph runs, counting hits.
func restorePhase(sourceByObject map[string]buildgraph.ObjectSource, cache *objcache.Cache, includes string, log logger.Logger) (hits int) {
	if cache == nil {
		return 0
	}
	for objPath, src := range sourceByObject {
		if src.DepKind == deps.KindSketch {
			continue
		}
		args, err := canonicalArgs(src, includes)
		if err != nil {
			log.Println(logger.LevelDebug, "cache key args failed for %s: %v", src.SourcePath, err)
			continue
		}
		key := objcache.Key(src.CompilerPath, args, paths.New(src.SourcePath))
		ok, err := cache.Has(key, paths.New(src.SourcePath))
		if err != nil {
			log.Println(logger.LevelDebug, "cache has() failed for %s: %v", src.SourcePath, err)
			continue
		}
		if !ok {
			continue
		}
		restored, err := cache.Restore(key, paths.New(objPath))
		if err != nil {
			log.Println(logger.LevelDebug, "cache restore failed for %s: %v", objPath, err)
			continue
		}
		if restored {
			hits++
		}
	}
	return hits
}

func toolDirs(toolPaths map[string]string) []string {
	var out []string
	for _, p := range toolPaths {
		out = append(out, filepath.Dir(p))
	}
	return out
}
