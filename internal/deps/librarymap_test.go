package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildLibraryMapFlatLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Servo", "Servo.h"), "")
	writeFile(t, filepath.Join(root, "Servo", "Servo.cpp"), "")

	m, err := BuildLibraryMap([]*paths.Path{paths.New(root)})
	require.NoError(t, err)

	dep := m.Lookup("Servo.h")
	require.NotNil(t, dep)
	assert.Equal(t, "Servo", dep.Name)
}

func TestBuildLibraryMapSrcLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "WiFi", "src", "WiFi.h"), "")
	writeFile(t, filepath.Join(root, "WiFi", "src", "WiFi.cpp"), "")

	m, err := BuildLibraryMap([]*paths.Path{paths.New(root)})
	require.NoError(t, err)

	dep := m.Lookup("WiFi.h")
	require.NotNil(t, dep)
	assert.Equal(t, "WiFi", dep.Name)
}

func TestBuildLibraryMapDoesNotDescendIntoLibraryExamples(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Servo", "Servo.h"), "")
	writeFile(t, filepath.Join(root, "Servo", "Servo.cpp"), "")
	writeFile(t, filepath.Join(root, "Servo", "examples", "Sweep", "Sweep.ino"), "")
	writeFile(t, filepath.Join(root, "Servo", "examples", "Sweep", "Helper.h"), "")

	m, err := BuildLibraryMap([]*paths.Path{paths.New(root)})
	require.NoError(t, err)

	assert.Nil(t, m.Lookup("Helper.h"))
}

func TestIsSystemHeader(t *testing.T) {
	assert.True(t, IsSystemHeader("Arduino.h"))
	assert.True(t, IsSystemHeader("stdio.h"))
	assert.True(t, IsSystemHeader("avr/io.h"))
	assert.True(t, IsSystemHeader("esp_system.h"))
	assert.False(t, IsSystemHeader("Servo.h"))
}
