package driver

import (
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/aily-project/aily-builder/internal/platform"
	properties "github.com/arduino/go-properties-orderedmap"
	"github.com/pkg/errors"
)

// SizeReport is the summary spec.md §4.5 step 10/11 publishes.
type SizeReport struct {
	Sections map[string]int64
	Warnings []string
	Failed   bool
}

// computeSize implements spec.md §4.5 step 10: it runs
// recipe.size.pattern, applies recipe.size.regex and
// recipe.size.regex.data (multiline), summing every numeric capture
// group across all matches per named section, and compares the totals
// against upload.maximum_size / upload.maximum_data_size.
func computeSize(config *platform.ResolvedConfig, elfPath string) (SizeReport, error) {
	recipe := config.SizeRecipe()
	if recipe.Pattern == "" {
		return SizeReport{Sections: map[string]int64{}}, nil
	}

	props := config.Raw().Clone()
	props.Set("build.path", filepath.Dir(elfPath))
	props.Set("build.project_name", strings.TrimSuffix(filepath.Base(elfPath), filepath.Ext(elfPath)))
	command := props.ExpandPropsInString(recipe.Pattern)
	parts, err := properties.SplitQuotedString(command, `"'`, false)
	if err != nil || len(parts) == 0 {
		return SizeReport{}, errors.Wrap(err, "driver: preparing size recipe")
	}

	out, err := exec.Command(parts[0], parts[1:]...).Output()
	if err != nil {
		return SizeReport{}, errors.Wrap(err, "driver: running size recipe")
	}

	flash := sumNamedCaptures(string(out), recipe.Regex)
	data := sumNamedCaptures(string(out), recipe.RegexData)

	limits := config.UploadLimits()
	report := SizeReport{Sections: map[string]int64{"text": flash, "data": data}}

	if limits.MaximumSize > 0 {
		if flash > limits.MaximumSize {
			report.Failed = true
			report.Warnings = append(report.Warnings, "sketch exceeds available program storage space")
		}
	}
	if limits.MaximumDataSize > 0 {
		ratio := float64(data) / float64(limits.MaximumDataSize)
		if data > limits.MaximumDataSize {
			report.Failed = true
			report.Warnings = append(report.Warnings, "not enough memory; see the compiler output for dynamic memory error")
		} else if ratio >= 0.75 {
			report.Warnings = append(report.Warnings, "low memory available, stability problems may occur")
		}
	}

	return report, nil
}

// sumNamedCaptures sums every capture group across all matches of
// pattern against text; a pattern with more than one group sums all
// of them, matching §4.5 step 10's "summing every numeric capture
// group across all matches" rule.
func sumNamedCaptures(text, pattern string) int64 {
	if pattern == "" {
		return 0
	}
	re, err := regexp.Compile(`(?m)` + pattern)
	if err != nil {
		return 0
	}
	var total int64
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		for _, group := range match[1:] {
			if n, err := strconv.ParseInt(group, 10, 64); err == nil {
				total += n
			}
		}
	}
	return total
}
