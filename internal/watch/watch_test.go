package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aily-project/aily-builder/internal/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFiresOnceUpFrontAndOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	sketchPath := filepath.Join(dir, "sketch.ino")
	require.NoError(t, os.WriteFile(sketchPath, []byte("void setup(){}\nvoid loop(){}\n"), 0o644))

	req := driver.Request{SketchPath: sketchPath, FQBN: "bogus:bogus:bogus"}
	stop := make(chan struct{})
	defer close(stop)

	events, err := Run(req, []string{dir}, stop)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Error(t, ev.Err) // bogus FQBN never resolves
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial compile event")
	}

	require.NoError(t, os.WriteFile(sketchPath, []byte("void setup(){}\nvoid loop(){} // touched\n"), 0o644))

	select {
	case ev := <-events:
		assert.Error(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rebuild event after file write")
	}
}
