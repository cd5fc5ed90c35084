package connectivity

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"k8s.io/utils/clock"

	grpcmiddleware "github.com/routepeer-io/routepeer/internal/pkg/middleware/grpc"
	"github.com/routepeer-io/routepeer/pkg/log"
)

var _ Source = (*HealthProbe)(nil)

// HealthProbe polls the hub's gRPC health service. The hub counts as
// reachable while Check answers SERVING.
type HealthProbe struct {
	conn     *grpc.ClientConn
	client   healthpb.HealthClient
	service  string
	interval time.Duration
	clock    clock.WithTicker
}

type ProbeOption func(*HealthProbe)

// WithProbeClock replaces the ticker clock, for tests.
func WithProbeClock(c clock.WithTicker) ProbeOption {
	return func(p *HealthProbe) { p.clock = c }
}

// WithService checks a named service instead of the server as a whole.
func WithService(name string) ProbeOption {
	return func(p *HealthProbe) { p.service = name }
}

// NewHealthProbe prepares a probe against addr. No connection is made
// until the first check.
func NewHealthProbe(addr string, interval, timeout time.Duration, opts ...ProbeOption) (*HealthProbe, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("probe interval must be positive, got %s", interval)
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmiddleware.UnaryTimeoutInterceptor(timeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("create health client for %q: %w", addr, err)
	}

	p := &HealthProbe{
		conn:     conn,
		client:   healthpb.NewHealthClient(conn),
		interval: interval,
		clock:    clock.RealClock{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Run checks once at start and then on every interval, reporting edges
// only. The connection is closed when ctx is done.
func (p *HealthProbe) Run(ctx context.Context, notify Notify) error {
	logger := log.WithName("health-probe")
	defer p.conn.Close()

	e := &edge{notify: func(online bool) {
		logger.Info("Hub reachability changed", "online", online)
		notify(online)
	}}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	e.set(p.check(ctx))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			e.set(p.check(ctx))
		}
	}
}

func (p *HealthProbe) check(ctx context.Context) bool {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		log.Debug("Health check failed", "err", err)
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}
