package service

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/pkg/log"
)

// Service implements the hub use cases. It owns the status machines and
// orchestrates the Repository, the StatusNotifier and the PhotoStorage.
type Service struct {
	repo     core.Repository
	notifier core.StatusNotifier
	storage  core.PhotoStorage

	limiter *locationLimiter
	clock   clock.PassiveClock
	log     log.Logger
}

type Option func(*Service)

func WithClock(c clock.PassiveClock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocationLimit accepts one location per interval and driver, with a
// burst for pings queued while the driver was offline.
func WithLocationLimit(interval time.Duration, burst int) Option {
	return func(s *Service) { s.limiter = newLocationLimiter(interval, burst) }
}

// New creates a new instance of the hub core service.
// Dependency Injection happens here.
func New(repo core.Repository, notifier core.StatusNotifier, storage core.PhotoStorage, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		storage:  storage,
		clock:    clock.RealClock{},
		log:      log.WithName("service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
