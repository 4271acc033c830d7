package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "jellysave.v1.StoreService"

// StoreServiceServer is the server API for the store service.
// Requests and responses are google.protobuf.Struct documents.
type StoreServiceServer interface {
	FetchAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*emptypb.Empty, error)

	FetchGoals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateGoal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateGoal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteGoal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteGoal(context.Context, *structpb.Struct) (*emptypb.Empty, error)

	FetchSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)

	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Import(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Clear(context.Context, *structpb.Struct) (*emptypb.Empty, error)

	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)

	WatchChanges(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// unaryCall adapts one typed server method to the generic handler shape
func unaryCall[Res proto.Message](method func(StoreServiceServer, context.Context, *structpb.Struct) (Res, error)) func(StoreServiceServer, context.Context, *structpb.Struct) (proto.Message, error) {
	return func(srv StoreServiceServer, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
		return method(srv, ctx, req)
	}
}

func unaryMethod(name string, call func(StoreServiceServer, context.Context, *structpb.Struct) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StoreServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(StoreServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchChangesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StoreServiceServer).WatchChanges(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// StoreServiceDesc describes the store service for grpc.Server.RegisterService
var StoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("FetchAccounts", unaryCall(StoreServiceServer.FetchAccounts)),
		unaryMethod("CreateAccount", unaryCall(StoreServiceServer.CreateAccount)),
		unaryMethod("UpdateAccount", unaryCall(StoreServiceServer.UpdateAccount)),
		unaryMethod("DeleteAccount", unaryCall(StoreServiceServer.DeleteAccount)),
		unaryMethod("FetchGoals", unaryCall(StoreServiceServer.FetchGoals)),
		unaryMethod("CreateGoal", unaryCall(StoreServiceServer.CreateGoal)),
		unaryMethod("UpdateGoal", unaryCall(StoreServiceServer.UpdateGoal)),
		unaryMethod("CompleteGoal", unaryCall(StoreServiceServer.CompleteGoal)),
		unaryMethod("DeleteGoal", unaryCall(StoreServiceServer.DeleteGoal)),
		unaryMethod("FetchSettings", unaryCall(StoreServiceServer.FetchSettings)),
		unaryMethod("UpdateSettings", unaryCall(StoreServiceServer.UpdateSettings)),
		unaryMethod("Export", unaryCall(StoreServiceServer.Export)),
		unaryMethod("Import", unaryCall(StoreServiceServer.Import)),
		unaryMethod("Clear", unaryCall(StoreServiceServer.Clear)),
		unaryMethod("Summary", unaryCall(StoreServiceServer.Summary)),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchChanges",
			Handler:       watchChangesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "jellysave/v1/store.proto",
}

// RegisterStoreServiceServer registers srv on s
func RegisterStoreServiceServer(s grpc.ServiceRegistrar, srv StoreServiceServer) {
	s.RegisterService(&StoreServiceDesc, srv)
}

// StoreServiceClient calls the store service over a client connection
type StoreServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewStoreServiceClient creates a client on cc
func NewStoreServiceClient(cc grpc.ClientConnInterface) *StoreServiceClient {
	return &StoreServiceClient{cc: cc}
}

// Call invokes the unary method name, decoding the reply into out
func (c *StoreServiceClient) Call(ctx context.Context, name string, in *structpb.Struct, out proto.Message, opts ...grpc.CallOption) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...)
}

// WatchChanges opens the change stream
func (c *StoreServiceClient) WatchChanges(ctx context.Context, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &StoreServiceDesc.Streams[0], "/"+ServiceName+"/WatchChanges", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
