package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"webguard/auth"
)

func startServer(t *testing.T) (*grpc.ClientConn, *auth.TokenIssuer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour, "webguard")
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := New(DefaultPolicy(), tokens, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, tokens
}

func TestHealthIsPublic(t *testing.T) {
	conn, _ := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(t.Context(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestReflectionRequiresAdmin(t *testing.T) {
	conn, _ := startServer(t)

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(t.Context())
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestDefaultPolicy(t *testing.T) {
	pol := DefaultPolicy()
	assert.Equal(t, auth.Permit, pol.Decide("/grpc.health.v1.Health/Check", nil))
	assert.Equal(t, auth.Permit, pol.Decide("/grpc.health.v1.Health/Watch", nil))
	assert.Equal(t, auth.Unauthenticated, pol.Decide("/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", nil))
}
