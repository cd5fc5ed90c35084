package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/routepeer-io/routepeer/internal/driveragent/actions"
	"github.com/routepeer-io/routepeer/internal/driveragent/orchestrator"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/pkg/httputil"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// queuedResponse acknowledges an action. The hub sees it on the next sync.
type queuedResponse struct {
	Queued bool `json:"queued"`
}

func (s *Server) handleMarkStop(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req v1.UpdateStopStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	err := s.actions.MarkStop(r.Context(), vars["route"], vars["stop"], req.Status, req.DeliveryNotes)
	if err != nil {
		writeActionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, queuedResponse{Queued: true})
}

func (s *Server) handleAttachPhoto(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("photo exceeds %d bytes", tooLarge.Limit))
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.actions.AttachPhoto(r.Context(), vars["route"], vars["stop"], r.Header.Get("Content-Type"), data); err != nil {
		writeActionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, queuedResponse{Queued: true})
}

func (s *Server) handleRecordLocation(w http.ResponseWriter, r *http.Request) {
	var req v1.LocationPing
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	ping := queue.LocationPing{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Heading:   req.Heading,
		Speed:     req.Speed,
	}
	if err := s.actions.RecordLocation(r.Context(), req.RouteID, ping); err != nil {
		writeActionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, queuedResponse{Queued: true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.sync.TriggerSync(r.Context())
	switch {
	case errors.Is(err, orchestrator.ErrOffline):
		httputil.WriteError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		log.FromContext(r.Context()).Error(err, "Manual sync failed")
		httputil.WriteError(w, http.StatusInternalServerError, err)
	default:
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sync.Snapshot(r.Context())
	if err != nil {
		// The state is still useful without the counts.
		log.FromContext(r.Context()).Error(err, "Incomplete status snapshot")
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	items, err := s.inbox.GetAll(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []*queue.PendingItem{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleRejected(w http.ResponseWriter, r *http.Request) {
	items, err := s.inbox.Rejected(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []*queue.RejectedItem{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, status.ErrInvalidTransition):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, actions.ErrInvalidInput):
		httputil.WriteError(w, http.StatusBadRequest, err)
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err)
	}
}
