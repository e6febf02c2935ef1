package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestServeOnServesCompileRPC(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go ServeOn(lis, nil)
	defer lis.Close()

	conn, err := grpc.Dial(lis.Addr().String(), grpc.WithInsecure(), grpc.WithBlock(), grpc.WithTimeout(2*time.Second))
	require.NoError(t, err)
	defer conn.Close()

	client := NewCompilerClient(conn)

	dir := t.TempDir()
	sketchPath := filepath.Join(dir, "sketch.ino")
	require.NoError(t, os.WriteFile(sketchPath, []byte("void setup(){}\nvoid loop(){}\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Compile(ctx, &CompileRequest{
		SketchPath: sketchPath,
		Fqbn:       "bogus:bogus:bogus",
	})
	require.NoError(t, err) // the RPC itself succeeds; compile failure is reported in resp.Error
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
