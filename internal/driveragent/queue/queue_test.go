package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/status"
)

var t0 = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

type backendFactory struct {
	name string
	open func(t *testing.T) Backend
}

var backends = []backendFactory{
	{"memory", func(t *testing.T) Backend { return NewMemoryBackend() }},
	{"sqlite", func(t *testing.T) Backend {
		b, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "queue.db"), time.Second)
		require.NoError(t, err)
		return b
	}},
}

func newTestQueue(t *testing.T, b Backend) (*Queue, *clocktesting.FakePassiveClock) {
	t.Helper()
	clk := clocktesting.NewFakePassiveClock(t0)
	q := New(b, WithClock(clk), WithLogger(log.NewNopLogger()))
	t.Cleanup(func() { _ = q.Close() })
	return q, clk
}

func TestQueue_AddAndGetAllInOrder(t *testing.T) {
	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			q, clk := newTestQueue(t, bf.open(t))

			var ids []string
			for i, st := range []status.StopStatus{status.StopEnroute, status.StopArrived, status.StopDelivered} {
				clk.SetTime(t0.Add(time.Duration(i) * time.Second))
				it, err := q.AddStatus(ctx, "r1", "s1", StatusUpdate{Status: st})
				require.NoError(t, err)
				ids = append(ids, it.ID)
			}

			items, err := q.GetAll(ctx, KindStatus)
			require.NoError(t, err)
			require.Len(t, items, 3)
			for i, it := range items {
				assert.Equal(t, ids[i], it.ID)
				assert.Equal(t, KindStatus, it.Kind)
			}
			assert.Equal(t, status.StopDelivered, items[2].Status.Status)
		})
	}
}

func TestQueue_SameTimestampKeepsInsertionOrder(t *testing.T) {
	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			q, _ := newTestQueue(t, bf.open(t))

			var ids []string
			for i := 0; i < 5; i++ {
				it, err := q.AddLocation(ctx, "r1", LocationPing{Latitude: float64(i), Longitude: 1})
				require.NoError(t, err)
				ids = append(ids, it.ID)
			}

			items, err := q.GetAll(ctx, KindLocation)
			require.NoError(t, err)
			got := make([]string, 0, len(items))
			for _, it := range items {
				got = append(got, it.ID)
			}
			assert.Equal(t, ids, got)
		})
	}
}

func TestQueue_GetAllMergesKindsByCreatedAt(t *testing.T) {
	ctx := context.Background()
	q, clk := newTestQueue(t, NewMemoryBackend())

	clk.SetTime(t0.Add(2 * time.Second))
	_, err := q.AddLocation(ctx, "", LocationPing{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	clk.SetTime(t0)
	_, err = q.AddPhoto(ctx, "r1", "s1", Photo{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	clk.SetTime(t0.Add(time.Second))
	_, err = q.AddStatus(ctx, "r1", "s1", StatusUpdate{Status: status.StopArrived})
	require.NoError(t, err)

	items, err := q.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []Kind{KindPhoto, KindStatus, KindLocation}, []Kind{items[0].Kind, items[1].Kind, items[2].Kind})
}

func TestQueue_DurableAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	b, err := OpenSQLite(ctx, path, time.Second)
	require.NoError(t, err)
	clk := clocktesting.NewFakePassiveClock(t0)
	q := New(b, WithClock(clk), WithLogger(log.NewNopLogger()))

	heading := 90.0
	photo, err := q.AddPhoto(ctx, "r1", "s2", Photo{ContentType: "image/png", Data: []byte("png-bytes")})
	require.NoError(t, err)
	ping, err := q.AddLocation(ctx, "r1", LocationPing{Latitude: 52.52, Longitude: 13.40, Accuracy: 5, Heading: &heading})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	b, err = OpenSQLite(ctx, path, time.Second)
	require.NoError(t, err)
	q = New(b, WithLogger(log.NewNopLogger()))
	defer q.Close()

	photos, err := q.GetAll(ctx, KindPhoto)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, photo, photos[0])

	pings, err := q.GetAll(ctx, KindLocation)
	require.NoError(t, err)
	require.Len(t, pings, 1)
	assert.Equal(t, ping, pings[0])
	assert.Nil(t, pings[0].Location.Speed)
}

func TestQueue_RemoveIsIdempotent(t *testing.T) {
	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			q, _ := newTestQueue(t, bf.open(t))

			keep, err := q.AddStatus(ctx, "r1", "s1", StatusUpdate{Status: status.StopEnroute})
			require.NoError(t, err)
			gone, err := q.AddStatus(ctx, "r1", "s2", StatusUpdate{Status: status.StopEnroute})
			require.NoError(t, err)

			require.NoError(t, q.Remove(ctx, KindStatus, gone.ID))
			require.NoError(t, q.Remove(ctx, KindStatus, gone.ID))
			require.NoError(t, q.Remove(ctx, KindStatus, "never-added"))

			items, err := q.GetAll(ctx, KindStatus)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, keep.ID, items[0].ID)
		})
	}
}

func TestQueue_Count(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, NewMemoryBackend())

	_, err := q.AddStatus(ctx, "r1", "s1", StatusUpdate{Status: status.StopEnroute})
	require.NoError(t, err)
	_, err = q.AddLocation(ctx, "r1", LocationPing{Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	_, err = q.AddLocation(ctx, "r1", LocationPing{Latitude: 1, Longitude: 1})
	require.NoError(t, err)

	c, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Status: 1, Location: 2}, c)
	assert.Equal(t, 3, c.Total())
	assert.Equal(t, 2, c.Of(KindLocation))
}

func TestQueue_RejectMovesToDeadLetters(t *testing.T) {
	for _, bf := range backends {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			q, clk := newTestQueue(t, bf.open(t))

			it, err := q.AddPhoto(ctx, "r1", "s1", Photo{ContentType: "image/jpeg", Data: []byte("jpeg")})
			require.NoError(t, err)

			clk.SetTime(t0.Add(time.Minute))
			require.NoError(t, q.Reject(ctx, it, "stop s1 does not belong to route r1"))

			c, err := q.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, c.Total())

			dead, err := q.Rejected(ctx)
			require.NoError(t, err)
			require.Len(t, dead, 1)
			assert.Equal(t, it, dead[0].Item)
			assert.Equal(t, []byte("jpeg"), dead[0].Item.Photo.Data)
			assert.Equal(t, t0.Add(time.Minute), dead[0].RejectedAt)

			n, err := q.CountRejected(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestQueue_AddValidates(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, NewMemoryBackend())

	tests := []struct {
		name string
		item *PendingItem
	}{
		{"nil", nil},
		{"unknown kind", &PendingItem{Kind: "video"}},
		{"status without payload", &PendingItem{Kind: KindStatus, RouteID: "r", StopID: "s"}},
		{"status with unknown value", &PendingItem{Kind: KindStatus, RouteID: "r", StopID: "s", Status: &StatusUpdate{Status: "lost"}}},
		{"status without stop", &PendingItem{Kind: KindStatus, RouteID: "r", Status: &StatusUpdate{Status: status.StopEnroute}}},
		{"empty photo", &PendingItem{Kind: KindPhoto, RouteID: "r", StopID: "s", Photo: &Photo{}}},
		{"mixed payloads", &PendingItem{Kind: KindLocation, Location: &LocationPing{}, Photo: &Photo{Data: []byte{1}}}},
		{"latitude out of range", &PendingItem{Kind: KindLocation, Location: &LocationPing{Latitude: 91}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, q.Add(ctx, tt.item))
		})
	}
}

func TestQueue_AddFailsWhenBackendClosed(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	q := New(b, WithLogger(log.NewNopLogger()))
	require.NoError(t, b.Close())

	_, err := q.AddStatus(ctx, "r1", "s1", StatusUpdate{Status: status.StopEnroute})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenSQLite_SecondOwnerFails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	first, err := OpenSQLite(ctx, path, 50*time.Millisecond)
	require.NoError(t, err)
	defer first.Close()

	_, err = OpenSQLite(ctx, path, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestNewID_IsTimeOrdered(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}
