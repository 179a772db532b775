package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/food-truck-pos/internal/adapter/handler"
	"github.com/rl1809/food-truck-pos/internal/adapter/storage"
	"github.com/rl1809/food-truck-pos/internal/config"
	"github.com/rl1809/food-truck-pos/internal/core/pricing"
	"github.com/rl1809/food-truck-pos/internal/core/service"
	"github.com/rl1809/food-truck-pos/internal/logging"
	"github.com/rl1809/food-truck-pos/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dialect := storage.Dialect(cfg.Database.Driver)
	db, err := storage.OpenDatabase(ctx, dialect, cfg.Database.DSN, storage.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db, dialect); err != nil {
		return err
	}
	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	// Initialize Redis. Without it the service runs with no idempotency
	// claims and no list cache.
	var cache port.CacheRepository
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			cache = storage.NewRedisAdapter(rdb)
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	taxRate, err := pricing.ParseTaxRate(cfg.Orders.TaxRate)
	if err != nil {
		return err
	}
	svcCfg := service.DefaultConfig()
	svcCfg.TaxRate = taxRate
	svcCfg.WriteTimeout = cfg.Orders.WriteTimeout
	svcCfg.ListCacheTTL = cfg.Orders.ListCacheTTL

	orderService := service.NewOrderService(storage.NewSQLAdapter(db), cache, svcCfg, logger)

	errCh := make(chan error, 2)

	// gRPC server
	grpcServer, healthServer := handler.NewGRPCServer(handler.NewGRPCHandler(orderService), logger)
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, logger, cfg.HTTP.MaxBodyBytes)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.NewRouter(httpHandler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.HTTP.Addr != "" {
		go func() {
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error, shutting down", zap.Error(err))
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	return nil
}
