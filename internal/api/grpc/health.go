package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"club-recruitment-service/internal/logger"
)

// IdentitySyncService is the health service name reporting whether the
// identity consumer holds a broker session.
const IdentitySyncService = "identity-sync"

// HealthServer exposes grpc.health.v1 for the process and the identity
// consumer.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	// Register reflection service for grpcurl
	reflection.Register(s)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(IdentitySyncService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: s, health: h}
}

// SetIdentitySync records the consumer's connection state.
func (h *HealthServer) SetIdentitySync(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(IdentitySyncService, status)
}

func (h *HealthServer) Serve(lis net.Listener) error {
	logger.Info("gRPC health server listening", "address", lis.Addr().String())
	return h.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight checks.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	return resp, err
}
