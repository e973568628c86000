// Package grpcx exposes the standard gRPC health service for the relay.
package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry that tracks the relay's dependencies.
const ServiceName = "chat.relay"

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewServer(log *slog.Logger) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: gs, health: hs, log: log}
}

// Serve blocks until Stop is called or lis fails.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc listen", slog.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// Watch runs probes every interval and flips ServiceName accordingly. It
// returns when ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration, probes ...Probe) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		for _, p := range probes {
			if err := p(pctx); err != nil {
				s.log.WarnContext(ctx, "health probe failed", slog.Any("err", err))
				s.SetServing(false)
				return
			}
		}
		s.SetServing(true)
	}

	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

// Stop marks everything NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
