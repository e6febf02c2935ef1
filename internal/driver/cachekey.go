package driver

import (
	"sort"
	"strings"

	"github.com/aily-project/aily-builder/internal/buildgraph"
	properties "github.com/arduino/go-properties-orderedmap"
	"github.com/pkg/errors"
)

// canonicalOutputToken stands in for %OBJECT_FILE_PATH% while building
// a cache key: the object path itself must never participate in the
// key (two identical compiles into different build directories must
// hash the same), so it is substituted with a fixed token that the
// -o/output pair below can recognize and drop.
const canonicalOutputToken = "__aily_builder_canonical_output__"

// canonicalArgs builds the argument half of spec.md:38's WorkItem
// identity: src.ArgsPattern (the per-language recipe.*.o.pattern,
// already globally expanded save for its per-compile-unit
// placeholders) has its real -I set and source path substituted, its
// -o <output> pair dropped, and its remaining tokens sorted
// alphabetically, so the cache key is a deterministic function of
// (compilerPath, sortedArgs(s), s) per Invariant 2 regardless of the
// order ninja or the platform's recipe happen to list flags in.
func canonicalArgs(src buildgraph.ObjectSource, includes string) (string, error) {
	props := properties.NewMap()
	props.Set("source_file", src.SourcePath)
	props.Set("object_file", canonicalOutputToken)
	props.Set("includes", includes)
	command := props.ExpandPropsInString(src.ArgsPattern)

	tokens, err := properties.SplitQuotedString(command, `"'`, false)
	if err != nil {
		return "", errors.Wrap(err, "driver: tokenizing recipe for cache key")
	}

	kept := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if tokens[i] == "-o" && i+1 < len(tokens) && tokens[i+1] == canonicalOutputToken {
			i++
			continue
		}
		if tokens[i] == canonicalOutputToken {
			continue
		}
		kept = append(kept, tokens[i])
	}
	sort.Strings(kept)
	return strings.Join(kept, " "), nil
}
