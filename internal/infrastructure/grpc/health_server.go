package grpc

import (
	"context"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/narwhalmedia/availability/internal/infrastructure/grpc/interceptors"
	"github.com/narwhalmedia/availability/pkg/interfaces"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthServer serves grpc.health.v1 for the notifier. The overall service
// status is SERVING only while every registered check passes; each check is
// also exposed under its own name.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	service string
	checks  map[string]Check
	logger  interfaces.Logger
}

// NewHealthServer creates a health server for service.
func NewHealthServer(service string, checks map[string]Check, log interfaces.Logger) *HealthServer {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryRecoveryInterceptor(log),
			logger.UnaryServerInterceptor(log),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(log),
		),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, hs)
	hs.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server:  server,
		health:  hs,
		service: service,
		checks:  checks,
		logger:  log,
	}
}

// Serve accepts connections on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("starting gRPC health server", interfaces.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Probe runs every check once and publishes the resulting statuses.
func (s *HealthServer) Probe(ctx context.Context) bool {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("health check failed", interfaces.String("check", name), interfaces.Error(err))
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		s.health.SetServingStatus(name, status)
	}

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(s.service, overall)
	return healthy
}

// Run probes on every interval tick until ctx is done.
func (s *HealthServer) Run(ctx context.Context, interval time.Duration) {
	s.Probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Stop marks the service as not serving and drains in-flight calls. If ctx
// expires first the server is stopped forcibly.
func (s *HealthServer) Stop(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout exceeded, forcing stop")
		s.server.Stop()
	case <-stopped:
		s.logger.Info("gRPC server stopped gracefully")
	}
}
