// Package driver implements the Pipeline Driver (C5): it wires the
// Configuration Resolver, Dependency Analyzer, Build-Graph Emitter,
// external build executor, object cache and hook runner into the
// single compile flow of spec.md §4.5.
package driver

import (
	"sync"
	"time"

	"github.com/aily-project/aily-builder/internal/buildgraph"
	"github.com/aily-project/aily-builder/internal/deps"
	"github.com/aily-project/aily-builder/internal/hooks"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/aily-project/aily-builder/internal/macros"
	"github.com/aily-project/aily-builder/internal/objcache"
	"github.com/aily-project/aily-builder/internal/platform"
	paths "github.com/arduino/go-paths-helper"
	"github.com/cmaglie/pb"
	"github.com/pkg/errors"
)

// Request bundles a single compile's inputs.
type Request struct {
	SketchPath    string
	FQBN          string
	SDKPath       string
	LibraryPaths  []string
	BuildPath     string // empty means "<sketchDir>/build"
	Overrides     map[string]string
	Parallelism   int
	Verbose       bool
	Logger        logger.Logger
	CacheRoot     string // empty means objcache.New's own default
	DisableCache  bool
	ShowProgress  bool
}

// Result is the {success, outFilePath, preprocessTime, buildTime,
// totalTime, sections, warnings} value spec.md §4.5 step 11 names.
type Result struct {
	Success        bool
	OutFilePath    string
	PreprocessTime time.Duration
	BuildTime      time.Duration
	TotalTime      time.Duration
	Sections       map[string]int64
	Warnings       []string
}

// fanOutResult carries the concurrently produced step-4 values.
type fanOutResult struct {
	graph *deps.DependencyGraph
	err   error
}

// Compile runs the full pipeline of spec.md §4.5.
func Compile(req Request) (*Result, error) {
	start := time.Now()
	log := req.Logger
	if log == nil {
		log = logger.Discard{}
	}

	result := &Result{Sections: map[string]int64{}}

	// Step 1: validate the sketch.
	sketchPath := paths.New(req.SketchPath)
	if err := validateSketch(sketchPath); err != nil {
		return nil, err
	}

	// Step 2: resolve the board configuration (C1).
	resolved, err := platform.Resolve(platform.Request{
		FQBN:      req.FQBN,
		SDKPath:   req.SDKPath,
		Overrides: req.Overrides,
	})
	if err != nil {
		return nil, errors.Wrap(err, "driver: resolving configuration")
	}
	for _, w := range resolved.Warnings {
		result.Warnings = append(result.Warnings, w.Key+": "+w.Message)
	}

	buildDir := paths.New(req.BuildPath)
	if req.BuildPath == "" {
		buildDir = sketchPath.Parent().Join("build")
	}
	if err := buildDir.MkdirAll(); err != nil {
		return nil, errors.WithStack(err)
	}

	// Step 3: stage the sketch into its build-tree .cpp, with forward
	// declarations synthesized per §4.5.1.
	preprocessStart := time.Now()
	sketchCpp, err := stageSketch(sketchPath, buildDir.Join("sketch"))
	if err != nil {
		return nil, err
	}
	result.PreprocessTime = time.Since(preprocessStart)

	runner := &hooks.Runner{Logger: log, Verbose: req.Verbose}

	// Step 4: run the prebuild hooks and the dependency graph
	// resolution concurrently; neither depends on the other's output.
	// The arg templates are not a separate task: the emitter reads
	// them from the resolved config in step 6.
	fanOut := runFanOut(req, resolved, sketchPath, sketchCpp, runner)
	if fanOut.err != nil {
		return nil, fanOut.err
	}

	units, err := deps.BuildCompileUnits(fanOut.graph, archOf(req.FQBN))
	if err != nil {
		return nil, errors.Wrap(err, "driver: building compile units")
	}

	var cache *objcache.Cache
	if !req.DisableCache {
		cache, err = objcache.New(req.CacheRoot)
		if err != nil {
			log.Println(logger.LevelDebug, "cache unavailable, continuing without it: %v", err)
			cache = nil
		}
	}

	// Step 6: emit the build graph (C3).
	emitted, err := buildgraph.Emit(buildgraph.Request{
		Config:      resolved.Config,
		Graph:       fanOut.graph,
		Units:       units,
		BuildDir:    buildDir,
		Parallelism: req.Parallelism,
	})
	if err != nil {
		return nil, errors.Wrap(err, "driver: emitting build graph")
	}

	// includes is the build-wide -I flag string every compile unit
	// shares; canonicalArgs substitutes it (and each unit's own source
	// path) into that unit's own per-language recipe pattern to build
	// its share of the WorkItem identity of spec.md:38.
	includes := buildgraph.IncludePathsFlag(fanOut.graph)

	// Step 5: restore what the cache already has before the executor runs.
	if cache != nil {
		hits := restorePhase(emitted.SourceByObject, cache, includes, log)
		log.Println(logger.LevelDebug, "cache restored %d object(s)", hits)
	}

	// Step 7: launch the external executor and parse its progress lines.
	buildStart := time.Now()
	var progress *pb.ProgressBar
	if req.ShowProgress {
		progress = pb.New(len(emitted.ObjectFiles)).Start()
	}
	execErr := runExecutor(buildDir, toolDirs(resolved.Tools.ToolPaths), emitted.SourceByObject, cache, includes, log, progress)
	if progress != nil {
		progress.FinishPrint("")
	}
	result.BuildTime = time.Since(buildStart)

	// Step 8: a failed build short-circuits, but the partial outputs
	// already on disk are left in place.
	if execErr != nil {
		result.Success = false
		result.TotalTime = time.Since(start)
		return result, execErr
	}

	elfPath := buildDir.Join("firmware.elf").String()

	// Step 9: postbuild hooks (objcopy/UF2/ZIP generation), per §4.5
	// step 9; recipe.hooks.postbuild.*.pattern failures abort the build.
	for _, key := range resolved.Config.HookRecipes("postbuild") {
		cmd := resolved.Config.Get(key)
		if cmd == "" {
			continue
		}
		if _, _, err := runner.Run(cmd, buildDir.String(), hooks.ShowIfVerbose, hooks.ShowIfVerbose); err != nil {
			return nil, errors.Wrapf(ErrHook, "postbuild: %v", err)
		}
	}

	// Step 10: firmware-size diagnostics.
	sizeReport, err := computeSize(resolved.Config, elfPath)
	if err != nil {
		log.Println(logger.LevelWarn, "size diagnostics unavailable: %v", err)
	} else {
		result.Sections = sizeReport.Sections
		result.Warnings = append(result.Warnings, sizeReport.Warnings...)
		if sizeReport.Failed {
			return result, errors.Wrap(ErrSize, "firmware exceeds the board's memory limits")
		}
	}

	// Step 11: assemble the final result.
	result.Success = true
	result.OutFilePath = elfPath
	result.TotalTime = time.Since(start)
	return result, nil
}

// runFanOut implements the concurrent fan-out of spec.md §4.5 step 4
// as two goroutines: the prebuild hooks run and the dependency graph
// is resolved, neither gated on the other. It does not read the arg
// templates; that happens in buildgraph.Emit.
func runFanOut(req Request, resolved *platform.Result, sketchPath, sketchCpp *paths.Path, runner *hooks.Runner) fanOutResult {
	var wg sync.WaitGroup
	out := fanOutResult{}
	var mu sync.Mutex
	config := resolved.Config

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, key := range config.HookRecipes("prebuild") {
			cmd := config.Get(key)
			if cmd == "" {
				continue
			}
			if _, _, err := runner.Run(cmd, sketchCpp.Parent().String(), hooks.ShowIfVerbose, hooks.ShowIfVerbose); err != nil {
				mu.Lock()
				if out.err == nil {
					out.err = errors.Wrapf(ErrHook, "prebuild: %v", err)
				}
				mu.Unlock()
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		libMap, err := deps.BuildLibraryMap(pathsFromStrings(req.LibraryPaths))
		if err != nil {
			mu.Lock()
			if out.err == nil {
				out.err = errors.Wrap(err, "driver: building library map")
			}
			mu.Unlock()
			return
		}
		var variantPath *paths.Path
		if resolved.Paths.SDKVariantPath != "" {
			variantPath = paths.New(resolved.Paths.SDKVariantPath)
		}
		graph, err := deps.Resolve(deps.Request{
			SketchPath:   sketchPath.Parent(),
			SketchFiles:  []*paths.Path{sketchCpp},
			CorePath:     paths.New(resolved.Paths.SDKCorePath),
			VariantPath:  variantPath,
			LibraryMap:   libMap,
			// the seed holds ARDUINO=100 only; no -D flags from the
			// compile recipe or build.macros are added to it
			SeedEnv:      macros.New(nil),
			Architecture: archOf(req.FQBN),
		})
		if err != nil {
			mu.Lock()
			if out.err == nil {
				out.err = errors.Wrap(err, "driver: resolving dependencies")
			}
			mu.Unlock()
			return
		}
		mu.Lock()
		out.graph = graph
		mu.Unlock()
	}()

	wg.Wait()
	return out
}

func pathsFromStrings(in []string) []*paths.Path {
	out := make([]*paths.Path, 0, len(in))
	for _, s := range in {
		out = append(out, paths.New(s))
	}
	return out
}

// archOf extracts the architecture segment out of an FQBN
// (package:architecture:board[:options]).
func archOf(fqbn string) string {
	parts := splitN(fqbn, ':', 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func splitN(s string, sep byte, n int) []string {
	var out []string
	start := 0
	for i := 0; i < len(s) && len(out) < n-1; i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
