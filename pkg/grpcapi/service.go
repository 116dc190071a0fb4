// Package grpcapi exposes a command tree over gRPC: remote completion and
// streamed execution. Messages are google.protobuf.Struct values, so the
// service needs no generated code.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName    = "vty.v1.Shell"
	completeMethod = "/" + serviceName + "/Complete"
	executeMethod  = "/" + serviceName + "/Execute"
)

// ShellServer is the server side of the vty.v1.Shell service.
//
//	rpc Complete(Struct{line}) returns (Struct{candidates: [...]})
//	rpc Execute(Struct{line, user}) returns (stream Struct{output | exit})
type ShellServer interface {
	Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Execute(req *structpb.Struct, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ShellServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Complete", Handler: completeHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Execute", Handler: executeHandler, ServerStreams: true},
	},
	Metadata: "vty/v1/shell.proto",
}

// RegisterShellServer registers srv on s.
func RegisterShellServer(s grpc.ServiceRegistrar, srv ShellServer) {
	s.RegisterService(&serviceDesc, srv)
}

func completeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShellServer).Complete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: completeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShellServer).Complete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func executeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ShellServer).Execute(in, stream)
}
