// Code generated by protoc-gen-go from daemon.proto; hand-transcribed
// here in the same shape protoc-gen-go v1.3 produces, since this
// workspace never shells out to protoc. See daemon.proto for the
// source of truth.

package daemon

import (
	context "context"
	fmt "fmt"

	proto "github.com/golang/protobuf/proto"
	grpc "google.golang.org/grpc"
)

// Reference imports to suppress errors if they are not otherwise used.
var _ = proto.Marshal
var _ = fmt.Errorf

// CompileRequest is the wire form of driver.Request.
type CompileRequest struct {
	SketchPath   string            `protobuf:"bytes,1,opt,name=sketch_path,json=sketchPath,proto3" json:"sketch_path,omitempty"`
	Fqbn         string            `protobuf:"bytes,2,opt,name=fqbn,proto3" json:"fqbn,omitempty"`
	SdkPath      string            `protobuf:"bytes,3,opt,name=sdk_path,json=sdkPath,proto3" json:"sdk_path,omitempty"`
	LibraryPaths []string          `protobuf:"bytes,4,rep,name=library_paths,json=libraryPaths,proto3" json:"library_paths,omitempty"`
	BuildPath    string            `protobuf:"bytes,5,opt,name=build_path,json=buildPath,proto3" json:"build_path,omitempty"`
	Overrides    map[string]string `protobuf:"bytes,6,rep,name=overrides,proto3" json:"overrides,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	Verbose      bool              `protobuf:"varint,7,opt,name=verbose,proto3" json:"verbose,omitempty"`
	DisableCache bool              `protobuf:"varint,8,opt,name=disable_cache,json=disableCache,proto3" json:"disable_cache,omitempty"`
}

func (m *CompileRequest) Reset()         { *m = CompileRequest{} }
func (m *CompileRequest) String() string { return proto.CompactTextString(m) }
func (*CompileRequest) ProtoMessage()    {}

// CompileResponse is the wire form of driver.Result (plus a string Error).
type CompileResponse struct {
	Success          bool             `protobuf:"varint,1,opt,name=success,proto3" json:"success,omitempty"`
	OutFilePath      string           `protobuf:"bytes,2,opt,name=out_file_path,json=outFilePath,proto3" json:"out_file_path,omitempty"`
	PreprocessTimeMs int64            `protobuf:"varint,3,opt,name=preprocess_time_ms,json=preprocessTimeMs,proto3" json:"preprocess_time_ms,omitempty"`
	BuildTimeMs      int64            `protobuf:"varint,4,opt,name=build_time_ms,json=buildTimeMs,proto3" json:"build_time_ms,omitempty"`
	TotalTimeMs      int64            `protobuf:"varint,5,opt,name=total_time_ms,json=totalTimeMs,proto3" json:"total_time_ms,omitempty"`
	Sections         map[string]int64 `protobuf:"bytes,6,rep,name=sections,proto3" json:"sections,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"varint,2,opt,name=value,proto3"`
	Warnings         []string         `protobuf:"bytes,7,rep,name=warnings,proto3" json:"warnings,omitempty"`
	Error            string           `protobuf:"bytes,8,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *CompileResponse) Reset()         { *m = CompileResponse{} }
func (m *CompileResponse) String() string { return proto.CompactTextString(m) }
func (*CompileResponse) ProtoMessage()    {}

// CompilerClient is the client API for Compiler service.
type CompilerClient interface {
	Compile(ctx context.Context, in *CompileRequest, opts ...grpc.CallOption) (*CompileResponse, error)
}

type compilerClient struct {
	cc *grpc.ClientConn
}

// NewCompilerClient builds a CompilerClient over an established connection.
func NewCompilerClient(cc *grpc.ClientConn) CompilerClient {
	return &compilerClient{cc}
}

func (c *compilerClient) Compile(ctx context.Context, in *CompileRequest, opts ...grpc.CallOption) (*CompileResponse, error) {
	out := new(CompileResponse)
	if err := c.cc.Invoke(ctx, "/daemon.Compiler/Compile", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CompilerServer is the server API for Compiler service.
type CompilerServer interface {
	Compile(context.Context, *CompileRequest) (*CompileResponse, error)
}

// RegisterCompilerServer registers srv on s under the Compiler service name.
func RegisterCompilerServer(s *grpc.Server, srv CompilerServer) {
	s.RegisterService(&compilerServiceDesc, srv)
}

func compilerCompileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CompileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompilerServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/daemon.Compiler/Compile",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CompilerServer).Compile(ctx, req.(*CompileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var compilerServiceDesc = grpc.ServiceDesc{
	ServiceName: "daemon.Compiler",
	HandlerType: (*CompilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compile",
			Handler:    compilerCompileHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "daemon.proto",
}
