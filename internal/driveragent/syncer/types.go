package syncer

import (
	"context"
	"time"

	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// Remote is the part of the hub API the engine drains into.
type Remote interface {
	UpdateStopStatus(ctx context.Context, routeID, stopID string, st status.StopStatus, notes string) (*v1.UpdateStopStatusResponse, error)
	UploadPhoto(ctx context.Context, routeID, stopID, contentType string, data []byte) (string, error)
	SendLocation(ctx context.Context, ping v1.LocationPing) error
}

// Store is the part of the pending queue the engine needs.
type Store interface {
	GetAll(ctx context.Context, kinds ...queue.Kind) ([]*queue.PendingItem, error)
	Remove(ctx context.Context, kind queue.Kind, id string) error
	Reject(ctx context.Context, item *queue.PendingItem, reason string) error
}

// SyncResult summarizes one pass. It is for display only and never stored.
type SyncResult struct {
	StatusSynced     int           `json:"statusSynced"`
	PhotosSynced     int           `json:"photosSynced"`
	LocationsSynced  int           `json:"locationsSynced"`
	LocationsDropped int           `json:"locationsDropped"`
	Rejected         int           `json:"rejected"`
	Errors           []string      `json:"errors"`
	Skipped          bool          `json:"skipped"`
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"duration"`
}

// Synced is the number of items the hub accepted.
func (r SyncResult) Synced() int {
	return r.StatusSynced + r.PhotosSynced + r.LocationsSynced
}

// Clean reports a pass that synced something and hit no error.
func (r SyncResult) Clean() bool {
	return !r.Skipped && r.Synced() > 0 && len(r.Errors) == 0
}
