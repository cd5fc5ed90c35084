package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/internal/pkg/httputil"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
)

func (s *Server) handleListStops(w http.ResponseWriter, r *http.Request) {
	route, stops, err := s.svc.ListStops(r.Context(), mux.Vars(r)["route"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := v1.StopList{RouteID: route.ID, CompletedStops: route.CompletedStops, Stops: make([]v1.Stop, 0, len(stops))}
	for _, st := range stops {
		resp.Stops = append(resp.Stops, toStop(st))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateStopStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req v1.UpdateStopStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.svc.UpdateStopStatus(r.Context(), vars["route"], vars["stop"], req.Status, req.DeliveryNotes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v1.UpdateStopStatusResponse{Stop: toStop(out.Stop), Unchanged: out.Unchanged})
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
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

	key, err := s.svc.UploadPhoto(r.Context(), vars["route"], vars["stop"], r.Header.Get("Content-Type"), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v1.PhotoResponse{Key: key})
}

func (s *Server) handlePhotoURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	u, err := s.svc.PhotoURL(r.Context(), vars["route"], vars["stop"], PhotoURLExpiry)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusTemporaryRedirect)
}

func (s *Server) handleRecordLocation(w http.ResponseWriter, r *http.Request) {
	var req v1.LocationPing
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.svc.RecordLocation(r.Context(), &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.GetOrder(r.Context(), mux.Vars(r)["order"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrder(o))
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req v1.UpdateOrderStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.svc.UpdateOrderStatus(r.Context(), mux.Vars(r)["order"], req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v1.UpdateOrderStatusResponse{Order: toOrder(out.Order), Unchanged: out.Unchanged})
}

func toStop(st *model.Stop) v1.Stop {
	return v1.Stop{
		ID:          st.ID,
		RouteID:     st.RouteID,
		OrderID:     st.OrderID,
		Sequence:    st.Sequence,
		Address:     st.Address,
		Status:      st.Status,
		PhotoKey:    st.PhotoKey,
		Notes:       st.Notes,
		ArrivedAt:   st.ArrivedAt,
		CompletedAt: st.CompletedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func toOrder(o *model.Order) v1.Order {
	return v1.Order{
		ID:          o.ID,
		Status:      o.Status,
		ConfirmedAt: o.ConfirmedAt,
		DeliveredAt: o.DeliveredAt,
		CancelledAt: o.CancelledAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
