package orchestrator

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/syncer"
)

// Snapshot is what the driver UI polls.
type Snapshot struct {
	State      string             `json:"state"`
	Online     bool               `json:"online"`
	Syncing    bool               `json:"syncing"`
	Pending    queue.Counts       `json:"pending"`
	Rejected   int                `json:"rejected"`
	LastResult *syncer.SyncResult `json:"lastResult,omitempty"`
	LastError  string             `json:"lastError,omitempty"`
	// Notice is set for a short while after a pass that synced items without error.
	Notice string `json:"notice,omitempty"`
}

func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	s := Snapshot{
		State: o.machine.Current(),
	}
	s.Online = s.State != StateOffline
	s.Syncing = s.State == StateOnlineSyncing
	if o.last != nil {
		last := *o.last
		s.LastResult = &last
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	if o.notice != "" && o.clock.Now().Before(o.noticeUntil) {
		s.Notice = o.notice
	}
	o.mu.Unlock()

	counts, err := o.counter.Count(ctx)
	if err != nil {
		return s, fmt.Errorf("count pending items: %w", err)
	}
	s.Pending = counts

	rejected, err := o.counter.CountRejected(ctx)
	if err != nil {
		return s, fmt.Errorf("count rejected items: %w", err)
	}
	s.Rejected = rejected
	return s, nil
}

// State returns the current machine state.
func (o *Orchestrator) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.Current()
}
