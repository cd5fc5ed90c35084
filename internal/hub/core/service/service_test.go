package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/internal/hub/store/memory"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/status"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.StatusEvent
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev *model.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return f.err
}

func (f *fakeNotifier) sent() []model.StatusEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.StatusEvent(nil), f.events...)
}

type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeStorage) Put(_ context.Context, key, contentType string, data []byte) error {
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return "https://photos.example/" + key + "?expires=" + expiry.String(), nil
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *fakeNotifier
	storage  *fakeStorage
	clock    *clocktesting.FakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		notifier: &fakeNotifier{},
		storage:  &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}},
		clock:    clocktesting.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.store.PutRoute(model.Route{ID: "r1", DriverID: "d1"})
	f.store.PutStop(model.Stop{ID: "s1", RouteID: "r1", OrderID: "o1", Sequence: 1, Status: status.StopArrived})
	f.store.PutStop(model.Stop{ID: "s2", RouteID: "r1", Sequence: 2, Status: status.StopPending})
	f.store.PutOrder(model.Order{ID: "o1", Status: status.OrderOutForDelivery})

	f.svc = New(f.store, f.notifier, f.storage, append([]Option{WithClock(f.clock)}, opts...)...)
	return f
}

func driverCtx(name string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{Name: name, Kind: auth.KindDriver})
}

func adminCtx() context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{Name: "ops", Kind: auth.KindAdmin})
}

func TestUpdateStopStatus_DeliveredCompletesStopAndOrder(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s1", status.StopDelivered, "left at door")
	require.NoError(t, err)
	assert.False(t, out.Unchanged)
	assert.Equal(t, status.StopDelivered, out.Stop.Status)
	assert.Equal(t, "left at door", out.Stop.Notes)
	require.NotNil(t, out.Stop.CompletedAt)

	route, err := f.store.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, route.CompletedStops)

	order, err := f.store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, status.OrderDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, status.EntityStop, sent[0].Entity)
	assert.Equal(t, "arrived", sent[0].From)
	assert.Equal(t, "delivered", sent[0].To)
	assert.Equal(t, "d1", sent[0].Actor)
	assert.Equal(t, status.EntityOrder, sent[1].Entity)
	assert.Equal(t, "out_for_delivery", sent[1].From)

	assert.Len(t, f.store.StatusLog(), 2)
}

func TestUpdateStopStatus_SameStatusIsUnchanged(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s1", status.StopArrived, "")
	require.NoError(t, err)
	assert.True(t, out.Unchanged)
	assert.Empty(t, f.notifier.sent())
	assert.Empty(t, f.store.StatusLog())
}

func TestUpdateStopStatus_InvalidTransition(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s2", status.StopDelivered, "")
	require.Error(t, err)
	var te *status.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pending", te.Current)
	assert.Equal(t, "delivered", te.Proposed)
	assert.ElementsMatch(t, []string{"enroute", "skipped"}, te.Allowed)

	stop, err := f.store.GetStop(context.Background(), "r1", "s2")
	require.NoError(t, err)
	assert.Equal(t, status.StopPending, stop.Status)
	assert.Empty(t, f.notifier.sent())
}

func TestUpdateStopStatus_SkipDoesNotTouchOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s1", status.StopSkipped, "nobody home")
	require.NoError(t, err)

	order, err := f.store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, status.OrderOutForDelivery, order.Status)

	route, _ := f.store.GetRoute(context.Background(), "r1")
	assert.Equal(t, 1, route.CompletedStops)
}

func TestUpdateStopStatus_OrderNotOutForDeliveryIsLeftAlone(t *testing.T) {
	f := newFixture(t)
	f.store.PutOrder(model.Order{ID: "o1", Status: status.OrderPreparing})

	_, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s1", status.StopDelivered, "")
	require.NoError(t, err)

	order, _ := f.store.GetOrder(context.Background(), "o1")
	assert.Equal(t, status.OrderPreparing, order.Status)
	assert.Len(t, f.notifier.sent(), 1)
}

func TestUpdateStopStatus_OtherDriverIsForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStopStatus(driverCtx("d2"), "r1", "s2", status.StopEnroute, "")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.UpdateStopStatus(adminCtx(), "r1", "s2", status.StopEnroute, "")
	assert.NoError(t, err)
}

func TestUpdateStopStatus_UnknownStatusAndMissingRows(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s2", status.StopStatus("lost"), "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = f.svc.UpdateStopStatus(driverCtx("d1"), "r9", "s2", status.StopEnroute, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s9", status.StopEnroute, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.UpdateStopStatus(context.Background(), "r1", "s2", status.StopEnroute, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestUpdateStopStatus_NotifyFailureStillCommits(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")

	_, err := f.svc.UpdateStopStatus(driverCtx("d1"), "r1", "s2", status.StopEnroute, "")
	require.NoError(t, err)

	stop, _ := f.store.GetStop(context.Background(), "r1", "s2")
	assert.Equal(t, status.StopEnroute, stop.Status)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	f.store.PutOrder(model.Order{ID: "o2", Status: status.OrderPending})

	_, err := f.svc.UpdateOrderStatus(driverCtx("d1"), "o2", status.OrderConfirmed)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	out, err := f.svc.UpdateOrderStatus(adminCtx(), "o2", status.OrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, status.OrderConfirmed, out.Order.Status)
	require.NotNil(t, out.Order.ConfirmedAt)
	assert.Equal(t, f.clock.Now(), *out.Order.ConfirmedAt)

	out, err = f.svc.UpdateOrderStatus(adminCtx(), "o2", status.OrderConfirmed)
	require.NoError(t, err)
	assert.True(t, out.Unchanged)

	_, err = f.svc.UpdateOrderStatus(adminCtx(), "o2", status.OrderDelivered)
	assert.ErrorIs(t, err, status.ErrInvalidTransition)

	require.Len(t, f.notifier.sent(), 1)
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t)

	key, err := f.svc.UploadPhoto(driverCtx("d1"), "r1", "s1", "image/jpeg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, "r1/o1.jpg", key)
	assert.Equal(t, "image/jpeg", f.storage.types[key])

	stop, _ := f.store.GetStop(context.Background(), "r1", "s1")
	assert.Equal(t, key, stop.PhotoKey)

	// Retries overwrite the same object.
	again, err := f.svc.UploadPhoto(driverCtx("d1"), "r1", "s1", "image/jpeg", []byte{0xff, 0xd8, 0x01})
	require.NoError(t, err)
	assert.Equal(t, key, again)
	assert.Len(t, f.storage.objects, 1)

	key, err = f.svc.UploadPhoto(driverCtx("d1"), "r1", "s2", "image/png", []byte{0x89})
	require.NoError(t, err)
	assert.Equal(t, "r1/s2.png", key)

	_, err = f.svc.UploadPhoto(driverCtx("d1"), "r1", "s2", "application/pdf", []byte{0x25})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = f.svc.UploadPhoto(driverCtx("d1"), "r1", "s2", "image/png", nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestPhotoURL(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PhotoURL(adminCtx(), "r1", "s1", time.Minute)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.UploadPhoto(driverCtx("d1"), "r1", "s1", "image/webp", []byte{1})
	require.NoError(t, err)

	url, err := f.svc.PhotoURL(adminCtx(), "r1", "s1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://photos.example/r1/o1.webp?expires=1m0s", url)
}

func TestPhotoKey(t *testing.T) {
	tests := []struct {
		name, contentType, want string
		orderID                 string
		wantErr                 bool
	}{
		{name: "order", contentType: "image/jpeg", orderID: "o1", want: "r1/o1.jpg"},
		{name: "stop fallback", contentType: "image/heic", want: "r1/s1.heic"},
		{name: "parameters", contentType: "Image/PNG; q=1", orderID: "o1", want: "r1/o1.png"},
		{name: "unsupported", contentType: "image/gif", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PhotoKey("r1", tt.orderID, "s1", tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordLocation_RateLimitPerDriver(t *testing.T) {
	f := newFixture(t, WithLocationLimit(10*time.Second, 2))
	ping := &v1.LocationPing{Latitude: 52.52, Longitude: 13.40, Accuracy: 5, RouteID: "r1"}

	for i := 0; i < 2; i++ {
		_, err := f.svc.RecordLocation(driverCtx("d1"), ping)
		require.NoError(t, err, "ping %d", i)
	}
	_, err := f.svc.RecordLocation(driverCtx("d1"), ping)
	assert.ErrorIs(t, err, core.ErrRateLimited)

	// Other drivers have their own bucket.
	f.store.PutRoute(model.Route{ID: "r2", DriverID: "d2"})
	_, err = f.svc.RecordLocation(driverCtx("d2"), &v1.LocationPing{Latitude: 1, Longitude: 1, RouteID: "r2"})
	assert.NoError(t, err)

	f.clock.Step(10 * time.Second)
	loc, err := f.svc.RecordLocation(driverCtx("d1"), ping)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), loc.ReceivedAt)
	assert.Equal(t, f.clock.Now(), loc.RecordedAt)

	latest, ok := f.store.LatestLocation("d1")
	require.True(t, ok)
	assert.Equal(t, 52.52, latest.Latitude)
	assert.Len(t, f.store.History(), 4)
}

func TestRecordLocation_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordLocation(driverCtx("d1"), &v1.LocationPing{Latitude: 91})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = f.svc.RecordLocation(driverCtx("d1"), &v1.LocationPing{Accuracy: -1})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = f.svc.RecordLocation(adminCtx(), &v1.LocationPing{})
	assert.ErrorIs(t, err, auth.ErrForbidden)
	_, err = f.svc.RecordLocation(driverCtx("d2"), &v1.LocationPing{RouteID: "r1"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	recordedAt := f.clock.Now().Add(-time.Hour)
	loc, err := f.svc.RecordLocation(driverCtx("d1"), &v1.LocationPing{Latitude: 1, Longitude: 2, RecordedAt: recordedAt})
	require.NoError(t, err)
	assert.Equal(t, recordedAt, loc.RecordedAt)
}

func TestListStops(t *testing.T) {
	f := newFixture(t)

	route, stops, err := f.svc.ListStops(driverCtx("d1"), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", route.ID)
	require.Len(t, stops, 2)
	assert.Equal(t, "s1", stops[0].ID)
	assert.Equal(t, "s2", stops[1].ID)

	_, _, err = f.svc.ListStops(driverCtx("d2"), "r1")
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.GetOrder(driverCtx("d1"), "o1")
	require.NoError(t, err)
	assert.Equal(t, status.OrderOutForDelivery, o.Status)

	_, err = f.svc.GetOrder(driverCtx("d1"), "o9")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
