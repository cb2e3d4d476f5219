package grpcserver

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"webguard/auth"
	"webguard/interceptors"
)

// HealthMethods matches every method of the standard health service.
const HealthMethods = "/grpc.health.v1.Health/*"

// DefaultPolicy lets anyone query health and leaves every other method to
// admins.
func DefaultPolicy() *auth.Policy {
	return auth.MustPolicy(auth.HasAnyRole("ADMIN"), auth.Rule{
		Patterns:    []string{HealthMethods},
		Requirement: auth.PermitAll(),
	})
}

// Server bundles the gRPC server with its health service so callers can
// flip serving status on shutdown.
type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
	logger *zap.Logger
}

// New builds a gRPC server guarded by policy. Interceptors run logging
// first, then the access check.
func New(policy *auth.Policy, tokens *auth.TokenIssuer, logger *zap.Logger) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.ZapLoggingInterceptor(logger),
			interceptors.AuthInterceptor(policy, tokens),
		),
		grpc.ChainStreamInterceptor(
			interceptors.ZapStreamLoggingInterceptor(logger),
			interceptors.StreamAuthInterceptor(policy, tokens),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &Server{GRPC: s, Health: hs, logger: logger}
}

// Serve listens on port until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", port, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
		errCh <- s.GRPC.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down gRPC server...")
		s.Health.Shutdown()
		s.GRPC.GracefulStop()
		return nil
	}
}
