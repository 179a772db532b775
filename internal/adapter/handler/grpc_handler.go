package handler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/service"
)

type GRPCHandler struct {
	orderService *service.OrderService
}

func NewGRPCHandler(orderService *service.OrderService) *GRPCHandler {
	return &GRPCHandler{orderService: orderService}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderEnvelope, error) {
	return h.createOrder(ctx, domain.SourceStaff, req)
}

func (h *GRPCHandler) CreateCustomerOrder(ctx context.Context, req *CreateOrderRequest) (*OrderEnvelope, error) {
	return h.createOrder(ctx, domain.SourcePublic, req)
}

func (h *GRPCHandler) createOrder(ctx context.Context, source domain.OrderSource, req *CreateOrderRequest) (*OrderEnvelope, error) {
	order, err := h.orderService.CreateOrder(ctx, source, req.toInput())
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderEnvelope{Success: true, Order: toOrderResponse(order)}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderEnvelope, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id: is required")
	}
	order, err := h.orderService.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderEnvelope{Success: true, Order: toOrderResponse(order)}, nil
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *UpdateStatusRequest) (*OrderEnvelope, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id: is required")
	}
	order, err := h.orderService.UpdateOrderStatus(ctx, req.ID, req.Status)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderEnvelope{Success: true, Order: toOrderResponse(order)}, nil
}

func grpcError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Field+": "+verr.Reason)
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, "referenced order or product does not exist")
	case errors.Is(err, service.ErrIllegalTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "request is already being processed")
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.Aborted, "order changed concurrently, please retry")
	case errors.Is(err, service.ErrTransientStorage):
		return status.Error(codes.Unavailable, "storage temporarily unavailable, please retry")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// NewGRPCServer builds a server with the order service and the standard
// health service registered.
func NewGRPCServer(h *GRPCHandler, logger *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger.Named("grpc"))),
	)
	RegisterOrderServiceServer(srv, h)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(orderServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return srv, healthServer
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unavailable {
			logger.Error("rpc failed", fields...)
		} else {
			logger.Info("rpc", fields...)
		}
		return resp, err
	}
}
