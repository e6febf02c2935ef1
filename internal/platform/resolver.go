package platform

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	paths "github.com/arduino/go-paths-helper"
	properties "github.com/arduino/go-properties-orderedmap"
	"github.com/pkg/errors"
	"github.com/schollz/closestmatch"
	semver "go.bug.st/relaxed-semver"
)

// Request bundles C1's documented inputs: the FQBN string, caller
// overrides, tool-version pins, and the "extras" property set the
// driver assembles (sketch/build paths, runtime tool paths,
// placeholders such as %INCLUDE_PATHS%), per spec.md §4.1.
type Request struct {
	FQBN string

	// SDKPath is the platform install root to search for platform.txt
	// / boards.txt. If empty, DefaultSDKPaths is consulted.
	SDKPath string

	// Overrides are caller-supplied key/value pairs (merged
	// build-properties and board-options, per §6's CLI surface).
	Overrides map[string]string

	// ToolVersionPins maps tool name to a pinned version string
	// (e.g. {"gcc": "9.2"}).
	ToolVersionPins map[string]string

	// Extras is overlaid onto the merged platform+board map; it wins
	// only where the platform/board map left a key unset (§4.1 step 7).
	Extras *properties.Map
}

// Result is everything Resolve publishes: the expanded config, the
// path/tool bags later stages consume, and any non-fatal warnings.
type Result struct {
	Config   *ResolvedConfig
	Paths    PathBag
	Tools    ToolBag
	Warnings []Warning
}

// DefaultSDKPaths are searched, in order, when Request.SDKPath is empty.
var DefaultSDKPaths = []string{
	"/usr/share/arduino",
	"/usr/local/share/arduino",
}

// Resolve implements the Configuration Resolver (C1) algorithm of
// spec.md §4.1.
func Resolve(req Request) (*Result, error) {
	_, _, fqbnBoard, err := splitFQBN(req.FQBN)
	if err != nil {
		return nil, err
	}

	root, err := locateSDKRoot(req.SDKPath)
	if err != nil {
		return nil, err
	}

	platformTxt, boardsTxt, err := locateDescriptors(root)
	if err != nil {
		return nil, err
	}

	platformProps, err := properties.LoadFromPath(platformTxt)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", platformTxt)
	}
	boardsAll, err := properties.LoadFromPath(boardsTxt)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", boardsTxt)
	}

	boardProps, err := loadBoardSlice(boardsAll, fqbnBoard)
	if err != nil {
		return nil, err
	}

	var warnings []Warning

	// Step 3: apply overrides, skipping pure "{x}" placeholders.
	for key, value := range req.Overrides {
		current := boardProps.Get(key)
		if isPureVariableRef(current) {
			warnings = append(warnings, Warning{Key: key, Message: "override skipped: current value is an unresolved placeholder " + current})
			continue
		}
		boardProps.Set(key, value)
	}

	// Step 4: partition-scheme secondary effects.
	if partitions, ok := req.Overrides["build.partitions"]; ok {
		applyPartitionSchemeSecondaryEffects(boardProps, partitions)
	}

	// Step 6: windows/host override promotion.
	promoteHostSuffixedKeys(platformProps)

	// Step 7: merge board + extras onto platform (board/extras win
	// only where platform left the key unset; where platform.txt
	// defines a key, its value is kept even if step 3 or step 4
	// changed the board's value for that key).
	merged := platformProps.Clone()
	for _, key := range boardProps.Keys() {
		if !merged.ContainsKey(key) {
			merged.Set(key, boardProps.Get(key))
		}
	}
	if req.Extras != nil {
		for _, key := range req.Extras.Keys() {
			if !merged.ContainsKey(key) {
				merged.Set(key, req.Extras.Get(key))
			}
		}
	}

	merged.Set("fqbn", req.FQBN)
	merged.Set("build.fqbn", req.FQBN)

	// Step 8: iterative {token} expansion.
	expandWarnings := expandAll(merged)
	warnings = append(warnings, expandWarnings...)

	result := &Result{
		Config:   &ResolvedConfig{props: merged},
		Warnings: warnings,
	}
	result.Paths = derivePathBag(merged)
	result.Tools = deriveToolBag(merged, req.ToolVersionPins)

	return result, nil
}

func splitFQBN(s string) (pkg, platform, board string, err error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return "", "", "", errors.Wrapf(ErrInvalidFQBN, "%q", s)
	}
	tok := regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	for _, p := range parts[:3] {
		if !tok.MatchString(p) {
			return "", "", "", errors.Wrapf(ErrInvalidFQBN, "%q", s)
		}
	}
	return parts[0], parts[1], parts[2], nil
}

func locateSDKRoot(explicit string) (*paths.Path, error) {
	if explicit != "" {
		p := paths.New(explicit)
		if p.IsDir() {
			return p, nil
		}
		return nil, errors.Wrapf(ErrDescriptorMissing, "sdk path %q does not exist", explicit)
	}
	for _, candidate := range DefaultSDKPaths {
		p := paths.New(candidate)
		if p.IsDir() {
			return p, nil
		}
	}
	return nil, errors.Wrap(ErrDescriptorMissing, "no --sdk-path given and no default SDK path found")
}

// locateDescriptors walks root looking for exactly one platform.txt
// and one boards.txt anywhere under the hardware tree (§4.1 step 1).
func locateDescriptors(root *paths.Path) (platformTxt, boardsTxt *paths.Path, err error) {
	walkErr := filepath.WalkDir(root.String(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "platform.txt":
			if platformTxt == nil {
				platformTxt = paths.New(path)
			}
		case "boards.txt":
			if boardsTxt == nil {
				boardsTxt = paths.New(path)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, errors.Wrapf(ErrDescriptorMissing, "walking %s: %v", root, walkErr)
	}
	if platformTxt == nil || boardsTxt == nil {
		return nil, nil, errors.Wrapf(ErrDescriptorMissing, "under %s", root)
	}
	return platformTxt, boardsTxt, nil
}

func findRecipes(props *properties.Map, prefix, suffix string) []string {
	var recipes []string
	for _, key := range props.Keys() {
		if strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix) && props.Get(key) != "" {
			recipes = append(recipes, key)
		}
	}
	sort.Strings(recipes)
	return recipes
}

func isPureVariableRef(value string) bool {
	v := strings.TrimSpace(value)
	return strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") && strings.Count(v, "{") == 1 && strings.Count(v, "}") == 1
}

func loadBoardSlice(boardsAll *properties.Map, boardID string) (*properties.Map, error) {
	prefix := boardID + "."
	slice := properties.NewMap()
	found := false
	for _, key := range boardsAll.Keys() {
		if strings.HasPrefix(key, prefix) {
			found = true
			slice.Set(strings.TrimPrefix(key, prefix), boardsAll.Get(key))
		}
	}
	if !found {
		if suggestion := suggestBoardID(boardsAll, boardID); suggestion != "" {
			return nil, errors.Wrapf(ErrUnknownBoard, "%q (did you mean %q?)", boardID, suggestion)
		}
		return nil, errors.Wrapf(ErrUnknownBoard, "%q", boardID)
	}
	return slice, nil
}

// suggestBoardID finds the known board id closest to the typo'd one the
// caller passed, so ErrUnknownBoard can point at a likely fix.
func suggestBoardID(boardsAll *properties.Map, boardID string) string {
	seen := map[string]bool{}
	var ids []string
	for _, key := range boardsAll.Keys() {
		id := key[:strings.IndexByte(key, '.')+1]
		id = strings.TrimSuffix(id, ".")
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	cm := closestmatch.New(ids, []int{2, 3, 4})
	return cm.Closest(boardID)
}

// applyPartitionSchemeSecondaryEffects implements §4.1 step 4: when
// build.partitions is overridden, the matching
// menu.PartitionScheme.<S>.build.partitions entry (if any) also
// contributes its upload.maximum_size / upload.extra_flags.
func applyPartitionSchemeSecondaryEffects(boardProps *properties.Map, partitionsValue string) {
	const menuPrefix = "menu.PartitionScheme."
	for _, key := range boardProps.Keys() {
		if !strings.HasPrefix(key, menuPrefix) || !strings.HasSuffix(key, ".build.partitions") {
			continue
		}
		if boardProps.Get(key) != partitionsValue {
			continue
		}
		scheme := strings.TrimSuffix(strings.TrimPrefix(key, menuPrefix), ".build.partitions")
		base := menuPrefix + scheme + "."
		if v := boardProps.Get(base + "upload.maximum_size"); v != "" {
			boardProps.Set("upload.maximum_size", v)
		}
		if v := boardProps.Get(base + "upload.extra_flags"); v != "" {
			boardProps.Set("upload.extra_flags", v)
		}
	}
}

// hostSuffix returns the suffix promoted on this build host, per the
// host-conditioned rule of §4.1 step 6 (decision recorded in DESIGN.md).
func hostSuffix() string {
	switch runtime.GOOS {
	case "windows":
		return ".windows"
	case "darwin":
		return ".macosx"
	default:
		return ".linux"
	}
}

func promoteHostSuffixedKeys(props *properties.Map) {
	suffix := hostSuffix()
	for _, key := range props.Keys() {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		base := strings.TrimSuffix(key, suffix)
		if props.ContainsKey(base) {
			props.Set(base, props.Get(key))
		}
	}
}

var tokenRef = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// expandAll performs the bounded iterative {token} rewrite of §4.1
// step 8, detecting direct self-reference and output-length explosion
// as circularity signals.
func expandAll(props *properties.Map) []Warning {
	var warnings []Warning
	const explosionThreshold = 8192

	for iter := 0; iter < maxExpansionIterations; iter++ {
		changed := false
		for _, key := range props.Keys() {
			value := props.Get(key)
			if !strings.Contains(value, "{") {
				continue
			}
			next := tokenRef.ReplaceAllStringFunc(value, func(m string) string {
				name := tokenRef.FindStringSubmatch(m)[1]
				if name == key {
					// direct self-reference: leave literal, never expand.
					return m
				}
				if runtimePlaceholders[strings.ToUpper(name)] {
					return m
				}
				if props.ContainsKey(name) {
					return props.Get(name)
				}
				return m
			})
			if len(next) > explosionThreshold {
				warnings = append(warnings, Warning{Key: key, Message: "expansion aborted: output length exceeded threshold (possible circular reference)"})
				continue
			}
			if next != value {
				props.Set(key, next)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, key := range props.Keys() {
		value := props.Get(key)
		for _, m := range tokenRef.FindAllStringSubmatch(value, -1) {
			name := m[1]
			if runtimePlaceholders[strings.ToUpper(name)] {
				continue
			}
			warnings = append(warnings, Warning{Key: key, Message: "unresolved variable reference {" + name + "}"})
		}
	}

	return warnings
}

func derivePathBag(props *properties.Map) PathBag {
	libPaths := []string{}
	if v := props.Get("runtime.platform.path"); v != "" {
		libPaths = append(libPaths, filepath.Join(v, "libraries"))
	}
	return PathBag{
		SketchName:       props.Get("runtime.ide.sketch_name"),
		SketchPath:       props.Get("sketch.path"),
		SketchDirPath:    props.Get("sketch.dir_path"),
		BuildPath:        props.Get("build.path"),
		SDKPath:          props.Get("runtime.platform.path"),
		SDKCorePath:      props.Get("build.core.path"),
		SDKVariantPath:   props.Get("build.variant.path"),
		SDKCoreLibraries: filepath.Join(props.Get("runtime.platform.path"), "libraries"),
		LibrariesPaths:   libPaths,
		CompilerPath:     props.Get("compiler.path"),
		CompilerGppPath:  props.Get("compiler.cpp.cmd"),
		BuildMCU:         props.Get("build.mcu"),
		Package:          props.Get("build.arch"),
		Platform:         props.Get("name"),
	}
}

func deriveToolBag(props *properties.Map, pins map[string]string) ToolBag {
	tb := ToolBag{ToolPaths: map[string]string{}, ToolVersion: map[string]string{}}
	tools := props.SubTree("tools")
	for name, sub := range tools.FirstLevelOf() {
		if p := sub.Get("path"); p != "" {
			tb.ToolPaths[name] = p
		}
	}
	for name, version := range pins {
		// Relaxed-parse the pin (e.g. "9.2" from "--tool-versions
		// gcc@9.2,ctags@5.8") so a ragged pin like "9.2-arduino1" still
		// normalizes to a comparable version string.
		tb.ToolVersion[name] = semver.ParseRelaxed(version).String()
	}
	return tb
}
