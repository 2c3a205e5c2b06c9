package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "condfield.v1.FieldService"

// Full method names, as seen by interceptors.
const (
	MethodGetOtherFields     = "/" + ServiceName + "/GetOtherFields"
	MethodGetConditions      = "/" + ServiceName + "/GetConditions"
	MethodSaveDefinition     = "/" + ServiceName + "/SaveDefinition"
	MethodValidateSubmission = "/" + ServiceName + "/ValidateSubmission"
)

// FieldServiceServer is the server API of condfield.v1.FieldService.
type FieldServiceServer interface {
	GetOtherFields(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConditions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveDefinition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateSubmission(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(FieldServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FieldServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FieldServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// FieldServiceDesc describes condfield.v1.FieldService for grpc.Server.
var FieldServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FieldServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOtherFields", Handler: handler(MethodGetOtherFields, FieldServiceServer.GetOtherFields)},
		{MethodName: "GetConditions", Handler: handler(MethodGetConditions, FieldServiceServer.GetConditions)},
		{MethodName: "SaveDefinition", Handler: handler(MethodSaveDefinition, FieldServiceServer.SaveDefinition)},
		{MethodName: "ValidateSubmission", Handler: handler(MethodValidateSubmission, FieldServiceServer.ValidateSubmission)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "condfield/v1/field_service.proto",
}

// RegisterFieldServiceServer registers srv with s.
func RegisterFieldServiceServer(s grpc.ServiceRegistrar, srv FieldServiceServer) {
	s.RegisterService(&FieldServiceDesc, srv)
}

// Client calls condfield.v1.FieldService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOtherFields lists the fields a condition may reference.
func (c *Client) GetOtherFields(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetOtherFields, in, opts...)
}

// GetConditions returns a conditional field's configuration.
func (c *Client) GetConditions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetConditions, in, opts...)
}

// SaveDefinition validates and stores a condition configuration.
func (c *Client) SaveDefinition(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSaveDefinition, in, opts...)
}

// ValidateSubmission checks submitted values against stored conditions.
func (c *Client) ValidateSubmission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodValidateSubmission, in, opts...)
}
