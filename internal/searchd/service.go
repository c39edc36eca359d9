package searchd

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The search service exchanges google.protobuf.Struct messages so that it
// needs no generated code. Requests carry snake_case keys such as run_id and
// config_yaml; responses carry a "run" or "runs" field shaped like the HTTP API.
const (
	ServiceName = "search.v1.SearchService"

	CreateRunMethod = "/search.v1.SearchService/CreateRun"
	StartRunMethod  = "/search.v1.SearchService/StartRun"
	StopRunMethod   = "/search.v1.SearchService/StopRun"
	GetRunMethod    = "/search.v1.SearchService/GetRun"
	ListRunsMethod  = "/search.v1.SearchService/ListRuns"
	WatchRunMethod  = "/search.v1.SearchService/WatchRun"
)

// SearchServiceServer is the server API for the search service.
type SearchServiceServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchRun(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterSearchServiceServer registers srv with s.
func RegisterSearchServiceServer(s grpc.ServiceRegistrar, srv SearchServiceServer) {
	s.RegisterService(&SearchServiceDesc, srv)
}

type unaryCall func(SearchServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SearchServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SearchServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchRunHandler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SearchServiceServer).WatchRun(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// SearchServiceDesc is the grpc.ServiceDesc for the search service.
var SearchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SearchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateRun",
			Handler:    unaryHandler(CreateRunMethod, SearchServiceServer.CreateRun),
		},
		{
			MethodName: "StartRun",
			Handler:    unaryHandler(StartRunMethod, SearchServiceServer.StartRun),
		},
		{
			MethodName: "StopRun",
			Handler:    unaryHandler(StopRunMethod, SearchServiceServer.StopRun),
		},
		{
			MethodName: "GetRun",
			Handler:    unaryHandler(GetRunMethod, SearchServiceServer.GetRun),
		},
		{
			MethodName: "ListRuns",
			Handler:    unaryHandler(ListRunsMethod, SearchServiceServer.ListRuns),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchRun",
			Handler:       watchRunHandler,
			ServerStreams: true,
		},
	},
	Metadata: "search/v1/search.proto",
}

// SearchServiceClient is the client API for the search service.
type SearchServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSearchServiceClient(cc grpc.ClientConnInterface) *SearchServiceClient {
	return &SearchServiceClient{cc: cc}
}

func (c *SearchServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SearchServiceClient) CreateRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreateRunMethod, in, opts...)
}

func (c *SearchServiceClient) StartRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, StartRunMethod, in, opts...)
}

func (c *SearchServiceClient) StopRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, StopRunMethod, in, opts...)
}

func (c *SearchServiceClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetRunMethod, in, opts...)
}

func (c *SearchServiceClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListRunsMethod, in, opts...)
}

// WatchRun streams progress events of a run until it reaches a terminal status.
func (c *SearchServiceClient) WatchRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &SearchServiceDesc.Streams[0], WatchRunMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
