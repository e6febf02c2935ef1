package driver

import (
	"strings"

	paths "github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
)

// validateSketch implements spec.md §4.5 step 1.
func validateSketch(sketchPath *paths.Path) error {
	if !sketchPath.Exist() {
		return errors.Wrapf(ErrSketchValidation, "%s: not found", sketchPath)
	}
	if !strings.EqualFold(sketchPath.Ext(), ".ino") {
		return errors.Wrapf(ErrSketchValidation, "%s: not a .ino file", sketchPath)
	}
	content, err := sketchPath.ReadFile()
	if err != nil {
		return errors.Wrapf(ErrSketchValidation, "%s: %v", sketchPath, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return errors.Wrapf(ErrSketchValidation, "%s: empty sketch", sketchPath)
	}
	return nil
}

const arduinoHeaderInclude = "#include <Arduino.h>"

// stageSketch implements spec.md §4.5 step 3: copies the .ino to
// <sketchName>.ino.cpp in the build directory, prepending #include
// <Arduino.h> when the sketch doesn't already have one and inserting
// the forward declarations synthesized by §4.5.1, and returns the
// path of the generated .cpp.
func stageSketch(sketchPath, buildDir *paths.Path) (*paths.Path, error) {
	content, err := sketchPath.ReadFile()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	text := string(content)

	if !strings.Contains(text, arduinoHeaderInclude) {
		text = arduinoHeaderInclude + "\n" + text
	}

	decls := synthesizeForwardDeclarations(text)
	text = insertForwardDeclarations(text, decls)

	sketchName := strings.TrimSuffix(sketchPath.Base(), sketchPath.Ext())
	outPath := buildDir.Join(sketchName + ".ino.cpp")
	if err := buildDir.MkdirAll(); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := outPath.WriteFile([]byte(text)); err != nil {
		return nil, errors.WithStack(err)
	}
	return outPath, nil
}
