package driver

import (
	"path/filepath"
	"testing"

	paths "github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSketchRejectsMissingFile(t *testing.T) {
	err := validateSketch(paths.New(filepath.Join(t.TempDir(), "missing.ino")))
	assert.ErrorIs(t, err, ErrSketchValidation)
}

func TestValidateSketchRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sketch.cpp")
	require.NoError(t, paths.New(p).WriteFile([]byte("void setup(){}\n")))
	err := validateSketch(paths.New(p))
	assert.ErrorIs(t, err, ErrSketchValidation)
}

func TestValidateSketchRejectsEmptyContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sketch.ino")
	require.NoError(t, paths.New(p).WriteFile([]byte("   \n")))
	err := validateSketch(paths.New(p))
	assert.ErrorIs(t, err, ErrSketchValidation)
}

func TestValidateSketchAcceptsWellFormedSketch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sketch.ino")
	require.NoError(t, paths.New(p).WriteFile([]byte("void setup(){}\nvoid loop(){}\n")))
	assert.NoError(t, validateSketch(paths.New(p)))
}

func TestStageSketchPrependsArduinoHeaderAndWritesCpp(t *testing.T) {
	sketchDir := t.TempDir()
	sketchPath := paths.New(filepath.Join(sketchDir, "blink.ino"))
	require.NoError(t, sketchPath.WriteFile([]byte("void setup(){}\nvoid loop(){}\n")))

	buildDir := paths.New(filepath.Join(t.TempDir(), "sketch"))
	out, err := stageSketch(sketchPath, buildDir)
	require.NoError(t, err)
	assert.Equal(t, "blink.ino.cpp", out.Base())

	content, err := out.ReadFile()
	require.NoError(t, err)
	assert.Contains(t, string(content), arduinoHeaderInclude)
}

func TestStageSketchDoesNotDuplicateExistingArduinoHeader(t *testing.T) {
	sketchDir := t.TempDir()
	sketchPath := paths.New(filepath.Join(sketchDir, "blink.ino"))
	require.NoError(t, sketchPath.WriteFile([]byte("#include <Arduino.h>\nvoid setup(){}\nvoid loop(){}\n")))

	buildDir := paths.New(filepath.Join(t.TempDir(), "sketch"))
	out, err := stageSketch(sketchPath, buildDir)
	require.NoError(t, err)

	content, err := out.ReadFile()
	require.NoError(t, err)
	count := 0
	text := string(content)
	for i := 0; i+len(arduinoHeaderInclude) <= len(text); i++ {
		if text[i:i+len(arduinoHeaderInclude)] == arduinoHeaderInclude {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
