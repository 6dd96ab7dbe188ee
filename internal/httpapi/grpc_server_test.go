package httpapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

func startBufGRPC(t *testing.T, srv *HealthServer) (*grpc.ClientConn, func()) {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	srv.Register(server)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			t.Logf("grpc serve error: %v", err)
		}
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}
	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	cleanup := func() {
		server.GracefulStop()
		_ = conn.Close()
		_ = listener.Close()
	}
	return conn, cleanup
}

type failingReadiness struct{}

func (f failingReadiness) Check(context.Context) error { return errors.New("boom") }

func checkStatus(t *testing.T, conn *grpc.ClientConn, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) error: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthServerServingWhenReady(t *testing.T) {
	srv := NewHealthServer(ReadyCheck{})
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	if got := checkStatus(t, conn, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before first check, got %v", got)
	}

	srv.Refresh(context.Background())
	for _, service := range []string{"", serviceName} {
		if got := checkStatus(t, conn, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q: expected SERVING, got %v", service, got)
		}
	}
}

func TestHealthServerNotServingOnCheckFailure(t *testing.T) {
	srv := NewHealthServer(failingReadiness{})
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	srv.Refresh(context.Background())
	if got := checkStatus(t, conn, serviceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", got)
	}
}

func TestHealthServerShutdown(t *testing.T) {
	srv := NewHealthServer(ReadyCheck{})
	conn, cleanup := startBufGRPC(t, srv)
	defer cleanup()

	srv.Refresh(context.Background())
	srv.Shutdown()
	if got := checkStatus(t, conn, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after shutdown, got %v", got)
	}
}
