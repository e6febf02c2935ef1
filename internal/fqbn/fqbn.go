// Package fqbn parses and validates Fully-Qualified Board Names.
package fqbn

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// tokenPattern matches a single FQBN component.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// FQBN is the (package, platform, boardId) triple identifying a board
// within a platform within a vendor package, plus any menu options
// appended after the third colon-separated token (e.g.
// "esp32:esp32:esp32dev:PartitionScheme=huge_app").
type FQBN struct {
	Package  string
	Platform string
	BoardID  string
	Options  map[string]string
}

// Parse validates and splits a "package:platform:boardId[:opt=val,...]"
// string.
func Parse(s string) (*FQBN, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return nil, errors.Errorf("invalid FQBN: %q", s)
	}

	fqbn := &FQBN{
		Package:  parts[0],
		Platform: parts[1],
		BoardID:  parts[2],
		Options:  map[string]string{},
	}

	for _, tok := range []string{fqbn.Package, fqbn.Platform, fqbn.BoardID} {
		if !tokenPattern.MatchString(tok) {
			return nil, errors.Errorf("invalid FQBN: %q (token %q is empty or contains invalid characters)", s, tok)
		}
	}

	if len(parts) == 4 {
		for _, pair := range strings.Split(parts[3], ",") {
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return nil, errors.Errorf("invalid FQBN: %q (malformed option %q)", s, pair)
			}
			fqbn.Options[kv[0]] = kv[1]
		}
	}

	return fqbn, nil
}

// String reconstitutes the canonical "package:platform:boardId" triple
// (options, if any, are appended deterministically).
func (f *FQBN) String() string {
	base := f.Package + ":" + f.Platform + ":" + f.BoardID
	if len(f.Options) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	first := true
	for _, k := range sortedKeys(f.Options) {
		if first {
			b.WriteByte(':')
			first = false
		} else {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f.Options[k])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// IsSTM32 reports whether this FQBN's package identifies the STM32
// vendor package (used by the platform-specific SrcWrapper addition,
// spec §4.2.5).
func (f *FQBN) IsSTM32() bool {
	p := strings.ToUpper(f.Package)
	return p == "STM32" || p == "STMICROELECTRONICS"
}
