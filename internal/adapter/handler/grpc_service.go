package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const orderServiceName = "pos.v1.OrderService"

// OrderServiceServer is the gRPC surface of the order service. Messages are
// the same DTOs the HTTP API uses, carried by the JSON codec.
type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderEnvelope, error)
	CreateCustomerOrder(context.Context, *CreateOrderRequest) (*OrderEnvelope, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderEnvelope, error)
	UpdateOrderStatus(context.Context, *UpdateStatusRequest) (*OrderEnvelope, error)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrder",
			Handler:    unaryHandler("CreateOrder", OrderServiceServer.CreateOrder),
		},
		{
			MethodName: "CreateCustomerOrder",
			Handler:    unaryHandler("CreateCustomerOrder", OrderServiceServer.CreateCustomerOrder),
		},
		{
			MethodName: "GetOrder",
			Handler:    unaryHandler("GetOrder", OrderServiceServer.GetOrder),
		},
		{
			MethodName: "UpdateOrderStatus",
			Handler:    unaryHandler("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/v1/order_service",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(OrderServiceServer, context.Context, *Req) (*OrderEnvelope, error)) grpc.MethodHandler {
	fullMethod := "/" + orderServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid request: "+status.Convert(err).Message())
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderEnvelope, error) {
	return c.invoke(ctx, "CreateOrder", in, opts)
}

func (c *OrderServiceClient) CreateCustomerOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderEnvelope, error) {
	return c.invoke(ctx, "CreateCustomerOrder", in, opts)
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderEnvelope, error) {
	return c.invoke(ctx, "GetOrder", in, opts)
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateStatusRequest, opts ...grpc.CallOption) (*OrderEnvelope, error) {
	return c.invoke(ctx, "UpdateOrderStatus", in, opts)
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*OrderEnvelope, error) {
	out := new(OrderEnvelope)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
