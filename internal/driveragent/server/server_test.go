package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routepeer-io/routepeer/internal/driveragent/actions"
	"github.com/routepeer-io/routepeer/internal/driveragent/orchestrator"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/syncer"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

type fakeSync struct {
	offline bool
	result  syncer.SyncResult
}

func (f *fakeSync) TriggerSync(context.Context) (syncer.SyncResult, error) {
	if f.offline {
		return syncer.SyncResult{}, orchestrator.ErrOffline
	}
	return f.result, nil
}

func (f *fakeSync) Snapshot(context.Context) (orchestrator.Snapshot, error) {
	return orchestrator.Snapshot{State: orchestrator.StateOnlineIdle, Online: true, Pending: queue.Counts{Status: 1}}, nil
}

func newTestServer(t *testing.T, fs *fakeSync) (*httptest.Server, *queue.Queue) {
	t.Helper()
	q := queue.New(queue.NewMemoryBackend())
	t.Cleanup(func() { _ = q.Close() })

	rec := actions.NewRecorder(q, actions.WithLogger(log.NewNopLogger()))
	opts := options.NewHttpOptions()
	opts.MaxBodyBytes = 1024

	ts := httptest.NewServer(NewServer(opts, rec, fs, q).Handler())
	t.Cleanup(ts.Close)
	return ts, q
}

func do(t *testing.T, method, url, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_MarkStop(t *testing.T) {
	ts, q := newTestServer(t, &fakeSync{})
	url := ts.URL + "/v1/routes/r1/stops/s1/status"

	resp := do(t, http.MethodPost, url, "application/json", `{"status":"skipped","deliveryNotes":"gate closed"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = do(t, http.MethodPost, url, "application/json", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var er v1.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Equal(t, "skipped", er.Current)
	assert.Equal(t, "delivered", er.Proposed)

	resp = do(t, http.MethodPost, url, "application/json", `{"status":"teleported"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, url, "application/json", `{"state":"delivered"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	c, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Status)
}

func TestServer_AttachPhoto(t *testing.T) {
	ts, q := newTestServer(t, &fakeSync{})
	url := ts.URL + "/v1/routes/r1/stops/s1/photo"

	resp := do(t, http.MethodPut, url, "image/jpeg", "\xff\xd8\xff\xe0")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = do(t, http.MethodPut, url, "image/jpeg", string(bytes.Repeat([]byte{1}, 2048)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = do(t, http.MethodPut, url, "application/pdf", "%PDF")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	items, err := q.GetAll(context.Background(), queue.KindPhoto)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "image/jpeg", items[0].Photo.ContentType)
}

func TestServer_RecordLocation(t *testing.T) {
	ts, q := newTestServer(t, &fakeSync{})

	resp := do(t, http.MethodPost, ts.URL+"/v1/locations", "application/json",
		`{"latitude":52.37,"longitude":4.89,"accuracy":6.5,"heading":90,"routeId":"r1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	items, err := q.GetAll(context.Background(), queue.KindLocation)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].RouteID)
	require.NotNil(t, items[0].Location.Heading)
	assert.Equal(t, 90.0, *items[0].Location.Heading)
}

func TestServer_Sync(t *testing.T) {
	fs := &fakeSync{offline: true}
	ts, _ := newTestServer(t, fs)

	resp := do(t, http.MethodPost, ts.URL+"/v1/sync", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	fs.offline = false
	fs.result = syncer.SyncResult{StatusSynced: 2, Errors: []string{"rejected: status r1/s9 -> delivered: hub returned 422"}}
	resp = do(t, http.MethodPost, ts.URL+"/v1/sync", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res syncer.SyncResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.StatusSynced)
	assert.Len(t, res.Errors, 1)
}

func TestServer_StatusPendingRejected(t *testing.T) {
	ts, q := newTestServer(t, &fakeSync{})
	ctx := context.Background()

	it, err := q.AddStatus(ctx, "r1", "s1", queue.StatusUpdate{Status: "arrived"})
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/v1/status", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap orchestrator.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, orchestrator.StateOnlineIdle, snap.State)

	resp = do(t, http.MethodGet, ts.URL+"/v1/pending", "", "")
	var pending []*queue.PendingItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, it.ID, pending[0].ID)

	resp = do(t, http.MethodGet, ts.URL+"/v1/rejected", "", "")
	var rejected []*queue.RejectedItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
	assert.Empty(t, rejected)

	require.NoError(t, q.Reject(ctx, it, "hub returned 422"))
	resp = do(t, http.MethodGet, ts.URL+"/v1/rejected", "", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
	require.Len(t, rejected, 1)
	assert.Equal(t, "hub returned 422", rejected[0].Reason)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSync{})

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/healthz", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/metrics", "", "").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodGet, ts.URL+"/v1/sync", "", "").StatusCode)
}
