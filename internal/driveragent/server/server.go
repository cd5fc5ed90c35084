// Package server is the driver agent's local HTTP API, used by the driver
// app on the same device.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/routepeer-io/routepeer/internal/driveragent/orchestrator"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/syncer"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	httpmiddleware "github.com/routepeer-io/routepeer/internal/pkg/middleware/http"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// Actions records driver actions.
type Actions interface {
	MarkStop(ctx context.Context, routeID, stopID string, next status.StopStatus, notes string) error
	AttachPhoto(ctx context.Context, routeID, stopID, contentType string, data []byte) error
	RecordLocation(ctx context.Context, routeID string, ping queue.LocationPing) error
}

// Sync drives and reports synchronization.
type Sync interface {
	TriggerSync(ctx context.Context) (syncer.SyncResult, error)
	Snapshot(ctx context.Context) (orchestrator.Snapshot, error)
}

// Inbox lists what is waiting for, or was refused by, the hub.
type Inbox interface {
	GetAll(ctx context.Context, kinds ...queue.Kind) ([]*queue.PendingItem, error)
	Rejected(ctx context.Context) ([]*queue.RejectedItem, error)
}

type Server struct {
	server  *http.Server
	actions Actions
	sync    Sync
	inbox   Inbox
	maxBody int64
}

func NewServer(opts *options.HttpOptions, actions Actions, sync Sync, inbox Inbox) *Server {
	s := &Server{
		actions: actions,
		sync:    sync,
		inbox:   inbox,
		maxBody: opts.MaxBodyBytes,
	}
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(httpmiddleware.RequestLogger("agent-api"))
	api.HandleFunc("/routes/{route}/stops/{stop}/status", s.handleMarkStop).Methods(http.MethodPost)
	api.HandleFunc("/routes/{route}/stops/{stop}/photo", s.handleAttachPhoto).Methods(http.MethodPut)
	api.HandleFunc("/locations", s.handleRecordLocation).Methods(http.MethodPost)
	api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/pending", s.handlePending).Methods(http.MethodGet)
	api.HandleFunc("/rejected", s.handleRejected).Methods(http.MethodGet)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting agent API", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
