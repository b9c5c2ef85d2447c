package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.v1.SecurityService"

// Method names.
const (
	MethodGetStatus        = "GetStatus"
	MethodSetArmingStatus  = "SetArmingStatus"
	MethodListSensors      = "ListSensors"
	MethodAddSensor        = "AddSensor"
	MethodRemoveSensor     = "RemoveSensor"
	MethodSetSensorActive  = "SetSensorActive"
	MethodDeactivateSensor = "DeactivateSensor"
	MethodProcessImage     = "ProcessImage"
	MethodWatchStatus      = "WatchStatus"
)

// FullMethod returns the path used on the wire, e.g. /catpoint.v1.SecurityService/GetStatus.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	ListSensors(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	AddSensor(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	RemoveSensor(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	SetSensorActive(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeactivateSensor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
	WatchStatus(in *emptypb.Empty, stream grpc.ServerStream) error
}

// ServiceDesc describes the security service for grpc.Server.RegisterService
// and for client streams.
//
//nolint:gochecknoglobals // Descriptors are package-level in generated code too.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, SecurityServiceServer.GetStatus),
		unary(MethodSetArmingStatus, SecurityServiceServer.SetArmingStatus),
		unary(MethodListSensors, SecurityServiceServer.ListSensors),
		unary(MethodAddSensor, SecurityServiceServer.AddSensor),
		unary(MethodRemoveSensor, SecurityServiceServer.RemoveSensor),
		unary(MethodSetSensorActive, SecurityServiceServer.SetSensorActive),
		unary(MethodDeactivateSensor, SecurityServiceServer.DeactivateSensor),
		unary(MethodProcessImage, SecurityServiceServer.ProcessImage),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchStatus,
			Handler:       watchStatusHandler,
			ServerStreams: true,
		},
	},
	Metadata: "catpoint/v1/security.proto",
}

// RegisterSecurityServiceServer registers srv on s.
func RegisterSecurityServiceServer(s grpc.ServiceRegistrar, srv SecurityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds a method descriptor that decodes the request into a fresh
// Req, runs interceptors and calls fn.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](
	method string,
	fn func(SecurityServiceServer, context.Context, PReq) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(SecurityServiceServer)
			if interceptor == nil {
				return fn(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}

			handler := func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(PReq)

				return fn(server, ctx, typed)
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(SecurityServiceServer)

	return server.WatchStatus(in, stream)
}
