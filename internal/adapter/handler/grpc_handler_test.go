package handler

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/food-truck-pos/internal/core/service"
)

func newGRPCClient(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(NewGRPCHandler(f.svc), zap.NewNop())
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *fixture) grpcOrder() *CreateOrderRequest {
	return &CreateOrderRequest{
		Order: OrderFields{
			Subtotal:      decimal.RequireFromString("11.50"),
			Tax:           decimal.RequireFromString("1.01"),
			Total:         decimal.RequireFromString("12.51"),
			PaymentMethod: "cash",
		},
		Items: []OrderItemRequest{
			{ProductRef: f.burger.ID, Quantity: 1, UnitPrice: f.burger.Price, TotalPrice: f.burger.Price},
			{ProductRef: f.fries.ID, Quantity: 1, UnitPrice: f.fries.Price, TotalPrice: f.fries.Price},
		},
	}
}

func TestGRPC_OrderFlow(t *testing.T) {
	f := newFixture(t)
	client := NewOrderServiceClient(newGRPCClient(t, f))
	ctx := context.Background()

	created, err := client.CreateOrder(ctx, f.grpcOrder())
	require.NoError(t, err)
	require.True(t, created.Success)
	assert.True(t, strings.HasPrefix(created.Order.OrderNumber, "POS-"), created.Order.OrderNumber)
	assert.Equal(t, "12.51", created.Order.Total)

	got, err := client.GetOrder(ctx, &GetOrderRequest{ID: created.Order.ID})
	require.NoError(t, err)
	assert.Equal(t, created.Order.OrderNumber, got.Order.OrderNumber)
	assert.Len(t, got.Order.Items, 2)

	updated, err := client.UpdateOrderStatus(ctx, &UpdateStatusRequest{ID: created.Order.ID, Status: "preparing"})
	require.NoError(t, err)
	assert.Equal(t, "preparing", updated.Order.Status)

	_, err = client.UpdateOrderStatus(ctx, &UpdateStatusRequest{ID: created.Order.ID, Status: "pending"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPC_CustomerOrder(t *testing.T) {
	f := newFixture(t)
	client := NewOrderServiceClient(newGRPCClient(t, f))

	req := f.grpcOrder()
	_, err := client.CreateCustomerOrder(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req.Order.CustomerName = "Grace"
	resp, err := client.CreateCustomerOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Order.OrderNumber, "WEB-"), resp.Order.OrderNumber)
}

func TestGRPC_Errors(t *testing.T) {
	f := newFixture(t)
	client := NewOrderServiceClient(newGRPCClient(t, f))
	ctx := context.Background()

	empty := f.grpcOrder()
	empty.Items = nil
	_, err := client.CreateOrder(ctx, empty)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	missing := f.grpcOrder()
	missing.Items[0].ProductRef = "gone"
	_, err = client.CreateOrder(ctx, missing)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetOrder(ctx, &GetOrderRequest{ID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetOrder(ctx, &GetOrderRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

type orderWithExtras struct {
	Order      map[string]any     `json:"order"`
	Items      []OrderItemRequest `json:"items"`
	BogusField string             `json:"bogusField,omitempty"`
}

func TestGRPC_RejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	conn := newGRPCClient(t, f)
	ctx := context.Background()
	valid := f.grpcOrder()

	fields := map[string]any{
		"subtotal":      valid.Order.Subtotal,
		"tax":           valid.Order.Tax,
		"total":         valid.Order.Total,
		"paymentMethod": valid.Order.PaymentMethod,
	}
	call := func(req orderWithExtras) error {
		out := new(OrderEnvelope)
		return conn.Invoke(ctx, "/"+orderServiceName+"/CreateOrder", req, out, grpc.CallContentSubtype(jsonCodecName))
	}

	err := call(orderWithExtras{Order: fields, Items: valid.Items, BogusField: "x"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	fields["discount"] = 5
	err = call(orderWithExtras{Order: fields, Items: valid.Items})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	delete(fields, "discount")
	require.NoError(t, call(orderWithExtras{Order: fields, Items: valid.Items}))

	orders, err := f.svc.ListOrders(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGRPC_RejectsFractionalCents(t *testing.T) {
	f := newFixture(t)
	client := NewOrderServiceClient(newGRPCClient(t, f))

	req := f.grpcOrder()
	req.Items[0].Quantity = 2
	req.Items[0].UnitPrice = decimal.RequireFromString("8.625")
	req.Items[0].TotalPrice = decimal.RequireFromString("17.25")
	_, err := client.CreateOrder(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestJSONCodec_Strict(t *testing.T) {
	var req GetOrderRequest
	require.NoError(t, jsonCodec{}.Unmarshal([]byte(`{"id":"a"}`), &req))
	assert.Equal(t, "a", req.ID)

	assert.Error(t, jsonCodec{}.Unmarshal([]byte(`{"id":"a","extra":1}`), &req))
	assert.Error(t, jsonCodec{}.Unmarshal([]byte(`{"id":"a"} {"id":"b"}`), &req))
	assert.Error(t, jsonCodec{}.Unmarshal([]byte(`{"id":`), &req))
}

func TestGRPC_Health(t *testing.T) {
	f := newFixture(t)
	conn := newGRPCClient(t, f)

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: orderServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{&service.ValidationError{Field: "items", Reason: "empty"}, codes.InvalidArgument},
		{service.ErrNotFound, codes.NotFound},
		{service.ErrIllegalTransition, codes.FailedPrecondition},
		{service.ErrDuplicateRequest, codes.AlreadyExists},
		{service.ErrConflict, codes.Aborted},
		{service.ErrTransientStorage, codes.Unavailable},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(grpcError(tt.err)), tt.err.Error())
	}
}
