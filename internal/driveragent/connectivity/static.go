package connectivity

import (
	"context"
	"sync"
)

var _ Source = (*Static)(nil)

// Static reports a state set by hand. It backs the manual connectivity mode
// and tests.
type Static struct {
	mu      sync.Mutex
	online  bool
	changed chan struct{}
}

func NewStatic(online bool) *Static {
	return &Static{online: online, changed: make(chan struct{}, 1)}
}

// Set changes the reported state.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Static) Run(ctx context.Context, notify Notify) error {
	e := &edge{notify: notify}
	e.set(s.Online())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			e.set(s.Online())
		}
	}
}
