// Package grpc serves the standard gRPC health service. Driver agents probe
// it to decide whether the hub is reachable.
package grpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

// ServiceName is the health service name the agents ask for.
const ServiceName = "rpeer.hub"

type Server struct {
	options *options.GrpcOptions
	server  *grpc.Server
	health  *health.Server
}

func NewServer(opts *options.GrpcOptions) *Server {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	return &Server{options: opts, server: s, health: h}
}

// SetServing flips the status reported for ServiceName and the empty
// service name.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc addr %s: %w", s.options.Addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve runs on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	log.Info("Starting gRPC Server", "addr", lis.Addr().String())
	s.SetServing(true)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// Agents see NOT_SERVING while in-flight calls drain.
		s.health.Shutdown()
		s.server.GracefulStop()
		return nil
	}
}
