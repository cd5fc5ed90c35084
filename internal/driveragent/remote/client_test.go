package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/status"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "tok", 5*time.Second)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{400, Rejected},
		{404, Rejected},
		{422, Rejected},
		{401, Transient},
		{403, Transient},
		{408, Transient},
		{409, Transient},
		{429, RateLimited},
		{500, Transient},
		{503, Transient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.code), "status %d", tt.code)
	}
}

func TestClient_UpdateStopStatus(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/v1/routes/{route}/stops/{stop}/status", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		var body v1.UpdateStopStatusRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, status.StopDelivered, body.Status)
		assert.Equal(t, "left at door", body.DeliveryNotes)

		vars := mux.Vars(req)
		writeJSON(w, http.StatusOK, v1.UpdateStopStatusResponse{
			Stop: v1.Stop{ID: vars["stop"], RouteID: vars["route"], Status: body.Status},
		})
	}).Methods(http.MethodPost)

	c := newTestClient(t, r)
	resp, err := c.UpdateStopStatus(context.Background(), "r1", "s1", status.StopDelivered, "left at door")
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.Stop.ID)
	assert.Equal(t, status.StopDelivered, resp.Stop.Status)
}

func TestClient_TransitionRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, v1.ErrorResponse{
			Error:    `invalid stop transition from "delivered" to "enroute" (allowed: none)`,
			Current:  "delivered",
			Proposed: "enroute",
		})
	}))

	_, err := c.UpdateStopStatus(context.Background(), "r1", "s1", status.StopEnroute, "")
	require.Error(t, err)
	assert.True(t, IsRejected(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 422, re.StatusCode)
	assert.Equal(t, "delivered", re.Current)
	assert.Equal(t, "enroute", re.Proposed)
}

func TestClient_RateLimited(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, v1.ErrorResponse{Error: "location ping too soon"})
	}))

	err := c.SendLocation(context.Background(), v1.LocationPing{Latitude: 1, Longitude: 2})
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsRejected(err))
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusServiceUnavailable)
	}))

	err := c.SendLocation(context.Background(), v1.LocationPing{})
	require.Error(t, err)
	assert.Equal(t, Transient, KindOf(err))
	assert.Contains(t, err.Error(), "database down")
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, "tok", time.Second)
	require.NoError(t, err)

	_, err = c.ListStops(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, Transient, KindOf(err))
	assert.Contains(t, err.Error(), "hub unreachable")
}

func TestClient_UploadPhoto(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/routes/r%201/stops/s1/photo", r.URL.EscapedPath())
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("jpeg-bytes"), data)
		writeJSON(w, http.StatusOK, v1.PhotoResponse{Key: "r 1/o-9.jpg"})
	}))

	key, err := c.UploadPhoto(context.Background(), "r 1", "s1", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "r 1/o-9.jpg", key)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("hub.local", "tok", time.Second)
	assert.Error(t, err)
}
