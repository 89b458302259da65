package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	c "github.com/rohitsengarppv-gif/multimallpro/internal/cache"
	"github.com/rohitsengarppv-gif/multimallpro/internal/config"
	h "github.com/rohitsengarppv-gif/multimallpro/internal/http"
	"github.com/rohitsengarppv-gif/multimallpro/internal/lock"
	"github.com/rohitsengarppv-gif/multimallpro/internal/pricing"
	"github.com/rohitsengarppv-gif/multimallpro/internal/publisher"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	s "github.com/rohitsengarppv-gif/multimallpro/internal/service"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx := context.Background()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zl.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		zl.Fatal("failed to create indexes", zap.Error(err))
	}
	zl.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zl.Fatal("redis connection failed", zap.Error(err))
	}

	// Kafka
	writer := publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrderEventsTopic)
	defer writer.Close()

	addressRepo := repository.NewAddressRepository(mongoDB)
	couponRepo := repository.NewCouponRepository(mongoDB)
	orderRepo := repository.NewOrderRepository(mongoDB)
	catalogRepo := repository.NewCatalogRepository(mongoDB)
	outboxRepo := repository.NewOutboxRepository(mongoDB)

	locker := lock.NewRedisLocker(redisClient, cfg.OwnerLockTTL)
	couponCache := c.NewRedisCache(redisClient, cfg.CouponCacheTTL)

	addressBook := s.NewAddressBook(addressRepo, locker)
	couponCatalog := s.NewCouponCatalog(couponRepo, couponCache)
	finalizer := s.NewOrderFinalizer(orderRepo, catalogRepo, addressRepo, couponCatalog,
		pricing.NewEngine(cfg.Pricing), locker,
		s.FinalizerConfig{Currency: cfg.Currency, MaxAttempts: cfg.FinalizeMaxAttempts})
	orderStatus := s.NewOrderStatusService(orderRepo)

	router := h.NewRouter(
		h.RouterConfig{JWTSecret: []byte(cfg.JWTSecret), RequestTimeout: cfg.RequestTimeout, Logger: zl},
		h.NewAddressHandler(addressBook, cfg.RequestTimeout),
		h.NewCouponHandler(couponCatalog, cfg.RequestTimeout),
		h.NewOrdersHandler(finalizer, orderStatus, cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "multimallpro"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health for the orchestrator probes
	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
	if err != nil {
		zl.Fatal("failed to listen", zap.String("port", cfg.GRPCHealthPort), zap.Error(err))
	}

	pollCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(outboxRepo, writer, zl)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(pollCtx)
	}()

	go func() {
		zl.Info("gRPC health server listening", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcServer.Serve(lis); err != nil {
			zl.Fatal("gRPC server error", zap.Error(err))
		}
	}()

	go func() {
		zl.Info("HTTP server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	stopPoller()
	<-pollerDone

	if err := tp.Shutdown(shutdownCtx); err != nil {
		zl.Warn("tracer provider shutdown failed", zap.Error(err))
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		zl.Warn("mongo disconnect failed", zap.Error(err))
	}
	zl.Info("server exited")
}
