package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

// #region service
// GeneratorServer is the server side of goldengate.v1.Generator.
type GeneratorServer interface {
	Generate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

var generatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "goldengate.v1.Generator",
	HandlerType: (*GeneratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "goldengate/v1/generator.proto",
}

// RegisterGeneratorServer registers srv on a gRPC server.
func RegisterGeneratorServer(s grpc.ServiceRegistrar, srv GeneratorServer) {
	s.RegisterService(&generatorServiceDesc, srv)
}

func generateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeneratorServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GenerateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GeneratorServer).Generate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service

// #region generator-server
// generatorServer serves any runner.Generator, typically a recording.
type generatorServer struct {
	gen runner.Generator
}

// NewGeneratorServer adapts a runner.Generator to the gRPC service.
func NewGeneratorServer(gen runner.Generator) GeneratorServer {
	return &generatorServer{gen: gen}
}

func (s *generatorServer) Generate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	out, err := s.gen.Generate(ctx, in.GetValue())
	switch {
	case err == nil:
		return wrapperspb.String(out), nil
	case apperr.IsData(err):
		return nil, status.Error(codes.NotFound, err.Error())
	case apperr.IsTransient(err):
		return nil, status.Error(codes.Unavailable, err.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// #endregion generator-server
