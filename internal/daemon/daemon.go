// Package daemon exposes the Pipeline Driver (C5) as a gRPC service,
// adapted from the teacher's cli/daemon + commands/daemon subcommand
// (the retrieved slice kept only that package's go.mod, so the server
// wiring below follows grpc-go's own standard NewServer/Serve idiom
// instead of a teacher file).
package daemon

import (
	"context"
	"net"
	"time"

	"github.com/aily-project/aily-builder/internal/driver"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// Server implements CompilerServer on top of driver.Compile.
type Server struct {
	Logger logger.Logger
}

// Compile implements CompilerServer.
func (s *Server) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	res, err := driver.Compile(driver.Request{
		SketchPath:   req.SketchPath,
		FQBN:         req.Fqbn,
		SDKPath:      req.SdkPath,
		LibraryPaths: req.LibraryPaths,
		BuildPath:    req.BuildPath,
		Overrides:    req.Overrides,
		Verbose:      req.Verbose,
		DisableCache: req.DisableCache,
		Logger:       s.Logger,
	})

	resp := &CompileResponse{}
	if res != nil {
		resp.Success = res.Success
		resp.OutFilePath = res.OutFilePath
		resp.PreprocessTimeMs = res.PreprocessTime.Milliseconds()
		resp.BuildTimeMs = res.BuildTime.Milliseconds()
		resp.TotalTimeMs = res.TotalTime.Milliseconds()
		resp.Sections = res.Sections
		resp.Warnings = res.Warnings
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

// Serve starts a gRPC listener on addr (e.g. "127.0.0.1:50051") and
// blocks serving Compile RPCs until the listener errors or the
// process is killed.
func Serve(addr string, log logger.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "daemon: listening on %s", addr)
	}
	return ServeOn(lis, log)
}

// ServeOn runs the Compiler gRPC service on an already-open listener,
// letting callers (tests included) pick an ephemeral port up front.
func ServeOn(lis net.Listener, log logger.Logger) error {
	grpcServer := grpc.NewServer(grpc.ConnectionTimeout(30 * time.Second))
	RegisterCompilerServer(grpcServer, &Server{Logger: log})

	if log != nil {
		log.Println(logger.LevelInfo, "daemon listening on %s", lis.Addr())
	}
	return grpcServer.Serve(lis)
}
