package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "loopgovernor.v1.Governor"

// Full method names.
const (
	MethodComposeReport     = "/" + ServiceName + "/ComposeReport"
	MethodValidateStructure = "/" + ServiceName + "/ValidateStructure"
	MethodEvaluateRisk      = "/" + ServiceName + "/EvaluateRisk"
	MethodRecordSignal      = "/" + ServiceName + "/RecordSignal"
	MethodGenerateDrift     = "/" + ServiceName + "/GenerateDrift"
)

// #region service
// GovernorServer is the server side of the governance service. Every
// message is a google.protobuf.Struct holding the JSON form of the request
// or result.
type GovernorServer interface {
	ComposeReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateStructure(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateRisk(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordSignal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateDrift(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(GovernorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GovernorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(GovernorServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes the governance service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GovernorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComposeReport", Handler: handler(MethodComposeReport, GovernorServer.ComposeReport)},
		{MethodName: "ValidateStructure", Handler: handler(MethodValidateStructure, GovernorServer.ValidateStructure)},
		{MethodName: "EvaluateRisk", Handler: handler(MethodEvaluateRisk, GovernorServer.EvaluateRisk)},
		{MethodName: "RecordSignal", Handler: handler(MethodRecordSignal, GovernorServer.RecordSignal)},
		{MethodName: "GenerateDrift", Handler: handler(MethodGenerateDrift, GovernorServer.GenerateDrift)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loopgovernor/v1/governor.proto",
}

// RegisterGovernorServer attaches srv to s.
func RegisterGovernorServer(s grpc.ServiceRegistrar, srv GovernorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// #endregion service
