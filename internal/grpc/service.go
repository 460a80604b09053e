package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName          = "flood.v1.AlertService"
	streamAlertsMethod   = "/" + ServiceName + "/StreamAlerts"
	recentAlertsMethod   = "/" + ServiceName + "/RecentAlerts"
	alertServiceMetadata = "flood/v1/alerts.proto"
)

// AlertServiceServer streams and lists alerts. Requests and responses are
// google.protobuf.Struct so the service needs no generated code.
type AlertServiceServer interface {
	StreamAlerts(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error
	RecentAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&AlertServiceDesc, srv)
}

var AlertServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecentAlerts", Handler: recentAlertsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamAlerts", Handler: streamAlertsHandler, ServerStreams: true},
	},
	Metadata: alertServiceMetadata,
}

func streamAlertsHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(AlertServiceServer).StreamAlerts(req, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

func recentAlertsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(structpb.Struct)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AlertServiceServer).RecentAlerts(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recentAlertsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).RecentAlerts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, req, info, handler)
}

// AlertServiceClient is the client side of AlertServiceDesc.
type AlertServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAlertServiceClient(cc grpc.ClientConnInterface) *AlertServiceClient {
	return &AlertServiceClient{cc: cc}
}

func (c *AlertServiceClient) StreamAlerts(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &AlertServiceDesc.Streams[0], streamAlertsMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *AlertServiceClient) RecentAlerts(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, recentAlertsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
