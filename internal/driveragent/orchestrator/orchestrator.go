// Package orchestrator runs sync passes when the driver agent is online:
// on reconnect, on a timer and on demand.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/routepeer-io/routepeer/internal/driveragent/connectivity"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/syncer"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	fsmutil "github.com/routepeer-io/routepeer/internal/pkg/util/fsm"
	"github.com/routepeer-io/routepeer/pkg/log"
)

// ErrOffline is returned by TriggerSync while the hub is unreachable.
var ErrOffline = errors.New("agent is offline")

// Syncer runs one sync pass.
type Syncer interface {
	SyncNow(ctx context.Context) (syncer.SyncResult, error)
}

// Counter reports the queue depth shown in snapshots.
type Counter interface {
	Count(ctx context.Context) (queue.Counts, error)
	CountRejected(ctx context.Context) (int, error)
}

type Config struct {
	// SyncInterval starts a pass periodically while online and idle. Zero disables it.
	SyncInterval time.Duration
	// NoticeTTL is how long a success notice stays in snapshots.
	NoticeTTL time.Duration
}

// Orchestrator connects a connectivity source to a sync engine.
type Orchestrator struct {
	config  Config
	syncer  Syncer
	counter Counter
	source  connectivity.Source
	clock   clock.WithTicker
	log     log.Logger

	onConnect func(ctx context.Context)

	mu      sync.Mutex
	machine *fsm.FSM
	passCtx context.Context
	passes  sync.WaitGroup
	// running is set while a pass goroutine is alive. rerun asks it to go
	// again when it ends; stopping refuses new passes during shutdown.
	running  bool
	rerun    bool
	stopping bool

	last        *syncer.SyncResult
	lastErr     error
	notice      string
	noticeUntil time.Time
}

type Option func(*Orchestrator)

func WithClock(c clock.WithTicker) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithOnConnect runs fn in its own goroutine each time the hub becomes
// reachable, alongside the reconnect pass.
func WithOnConnect(fn func(ctx context.Context)) Option {
	return func(o *Orchestrator) { o.onConnect = fn }
}

func New(config Config, s Syncer, counter Counter, source connectivity.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		config:  config,
		syncer:  s,
		counter: counter,
		source:  source,
		clock:   clock.RealClock{},
		log:     log.WithName("orchestrator"),
		passCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.machine = newMachine(fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(o.onEnterState),
	})
	return o
}

func (o *Orchestrator) onEnterState(_ context.Context, e *fsm.Event) error {
	o.log.Debug("Orchestrator state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
	switch e.Dst {
	case StateOffline:
		metrics.AgentOnline.Set(0)
	default:
		metrics.AgentOnline.Set(1)
	}
	return nil
}

// Run follows the connectivity source and the periodic timer until ctx is
// done, then waits for a pass still in flight.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.passCtx = ctx
	o.mu.Unlock()

	o.log.Info("Starting sync orchestrator", "interval", o.config.SyncInterval)

	srcErr := make(chan error, 1)
	go func() {
		srcErr <- o.source.Run(ctx, o.SetOnline)
	}()

	var tick <-chan time.Time
	if o.config.SyncInterval > 0 {
		ticker := o.clock.NewTicker(o.config.SyncInterval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-srcErr:
			if err != nil {
				err = fmt.Errorf("connectivity source: %w", err)
			}
			break loop
		case <-tick:
			o.mu.Lock()
			if o.machine.Current() == StateOnlineIdle {
				o.startPassLocked(ctx, "periodic")
			}
			o.mu.Unlock()
		}
	}

	o.mu.Lock()
	o.stopping = true
	o.mu.Unlock()

	o.passes.Wait()
	o.log.Info("Sync orchestrator stopped")
	return err
}

// SetOnline feeds a connectivity signal into the machine. Coming online
// starts a pass right away; going offline leaves a running pass alone.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx := o.passCtx
	cur := o.machine.Current()
	switch {
	case online && cur == StateOffline:
		o.fire(ctx, EventConnect)
		o.log.Info("Hub reachable, syncing pending items")
		if o.onConnect != nil {
			go o.onConnect(ctx)
		}
		o.startPassLocked(ctx, "reconnect")
	case !online && cur != StateOffline:
		o.fire(ctx, EventDisconnect)
		o.log.Info("Hub unreachable, queueing driver actions")
	}
}

// TriggerSync starts a pass now and waits for it. A pass already running is
// not joined: the result then has Skipped set.
func (o *Orchestrator) TriggerSync(ctx context.Context) (syncer.SyncResult, error) {
	o.mu.Lock()
	switch o.machine.Current() {
	case StateOffline:
		o.mu.Unlock()
		return syncer.SyncResult{}, ErrOffline
	case StateOnlineSyncing:
		o.mu.Unlock()
		return syncer.SyncResult{Skipped: true}, nil
	}
	done := o.startPassLocked(o.passCtx, "manual")
	o.mu.Unlock()

	select {
	case r, ok := <-done:
		if !ok {
			return syncer.SyncResult{Skipped: true}, nil
		}
		return r.res, r.err
	case <-ctx.Done():
		return syncer.SyncResult{}, ctx.Err()
	}
}

// Nudge starts a pass if the agent is online and idle. It is what driver
// actions call after queueing something.
func (o *Orchestrator) Nudge() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine.Current() == StateOnlineIdle {
		o.startPassLocked(o.passCtx, "action")
	}
}

type passResult struct {
	res syncer.SyncResult
	err error
}

// startPassLocked must be called with o.mu held and the machine online and idle.
// The returned channel is closed without a result when no new pass starts.
func (o *Orchestrator) startPassLocked(ctx context.Context, trigger string) <-chan passResult {
	done := make(chan passResult, 1)
	if o.stopping || !o.fire(ctx, EventBeginSync) {
		close(done)
		return done
	}
	if o.running {
		// A pass from before the last disconnect is still going. It runs
		// once more when it ends, so the machine stays online_syncing.
		o.rerun = true
		o.log.Debug("Sync pass still running, queued another", "trigger", trigger)
		close(done)
		return done
	}

	o.running = true
	o.passes.Add(1)
	go o.runPasses(ctx, trigger, done)
	return done
}

func (o *Orchestrator) runPasses(ctx context.Context, trigger string, done chan<- passResult) {
	defer o.passes.Done()

	for {
		o.log.Debug("Sync pass started", "trigger", trigger)
		// A pass is never cut short by a disconnect, only by shutdown.
		res, err := o.syncer.SyncNow(ctx)
		again := o.finishPass(ctx, res, err)
		if done != nil {
			done <- passResult{res: res, err: err}
			done = nil
		}
		if !again {
			return
		}
		trigger = "reconnect"
	}
}

// finishPass records a pass result and reports whether another pass must run.
func (o *Orchestrator) finishPass(ctx context.Context, res syncer.SyncResult, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.log.Error(err, "Sync pass failed")
		o.lastErr = err
	} else if !res.Skipped {
		o.last = &res
		o.lastErr = nil
		if res.Clean() {
			o.notice = fmt.Sprintf("Synced %d item(s)", res.Synced())
			o.noticeUntil = o.clock.Now().Add(o.config.NoticeTTL)
		}
	}

	o.refreshPendingGauge(ctx)

	rerun := o.rerun
	o.rerun = false
	if rerun && !o.stopping && ctx.Err() == nil && o.machine.Current() == StateOnlineSyncing {
		return true
	}

	o.running = false
	// A pass that outlived the connection leaves the machine offline.
	if o.machine.Current() == StateOnlineSyncing {
		o.fire(ctx, EventEndSync)
	}
	return false
}

// fire must be called with o.mu held.
func (o *Orchestrator) fire(ctx context.Context, event string) bool {
	if err := o.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			o.log.Error(err, "Unexpected orchestrator event", "event", event, "state", o.machine.Current())
			return false
		}
	}
	return true
}

func (o *Orchestrator) refreshPendingGauge(ctx context.Context) {
	c, err := o.counter.Count(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	for _, k := range queue.Kinds {
		metrics.PendingItems.WithLabelValues(string(k)).Set(float64(c.Of(k)))
	}
}
