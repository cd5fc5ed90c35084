// Package http is the hub's REST API for driver agents and operators.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/routepeer-io/routepeer/internal/hub/core/service"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	httpmiddleware "github.com/routepeer-io/routepeer/internal/pkg/middleware/http"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

// PhotoURLExpiry is the lifetime of the links behind GET .../photo.
const PhotoURLExpiry = 15 * time.Minute

// Pinger reports whether a dependency is usable. Nil pingers are skipped.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	server  *http.Server
	svc     *service.Service
	secret  string
	maxBody int64
	ready   []Pinger
}

func NewServer(opts *options.HttpOptions, jwt *options.JWTOptions, svc *service.Service, ready ...Pinger) *Server {
	s := &Server{
		svc:     svc,
		secret:  jwt.Secret,
		maxBody: opts.MaxBodyBytes,
		ready:   ready,
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

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.HandleFunc("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(httpmiddleware.RequestLogger("hub-api"), auth.Middleware(s.secret))
	api.HandleFunc("/routes/{route}/stops", s.handleListStops).Methods(http.MethodGet)
	api.HandleFunc("/routes/{route}/stops/{stop}/status", s.handleUpdateStopStatus).Methods(http.MethodPost)
	api.HandleFunc("/routes/{route}/stops/{stop}/photo", s.handleUploadPhoto).Methods(http.MethodPut)
	api.HandleFunc("/routes/{route}/stops/{stop}/photo", s.handlePhotoURL).Methods(http.MethodGet)
	api.HandleFunc("/locations", s.handleRecordLocation).Methods(http.MethodPost)
	api.HandleFunc("/orders/{order}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{order}/status", s.handleUpdateOrderStatus).Methods(http.MethodPost)

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range s.ready {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).Info("Not ready", "err", err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

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
