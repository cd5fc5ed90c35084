package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/routepeer-io/routepeer/pkg/status"
)

// Kind discriminates the payload of a PendingItem.
type Kind string

const (
	KindStatus   Kind = "status"
	KindPhoto    Kind = "photo"
	KindLocation Kind = "location"
)

// Kinds lists every kind in sync order: status updates first, locations last.
var Kinds = []Kind{KindStatus, KindPhoto, KindLocation}

// Logical tables of the local store.
const (
	TablePendingStatus    = "pendingStatus"
	TablePendingPhotos    = "pendingPhotos"
	TablePendingLocations = "pendingLocations"
	TableRejected         = "rejectedItems"
)

// Table returns the pending table of k.
func (k Kind) Table() string {
	switch k {
	case KindStatus:
		return TablePendingStatus
	case KindPhoto:
		return TablePendingPhotos
	case KindLocation:
		return TablePendingLocations
	}
	return ""
}

func (k Kind) Valid() bool { return k.Table() != "" }

// StatusUpdate is a stop status change recorded by the driver.
type StatusUpdate struct {
	Status        status.StopStatus `json:"status"`
	DeliveryNotes string            `json:"deliveryNotes,omitempty"`
}

// Photo is a proof of delivery image. Data is stored apart from the metadata.
type Photo struct {
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// LocationPing is one GPS fix.
type LocationPing struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// PendingItem is a driver action waiting to reach the hub.
// Exactly one payload pointer, matching Kind, is set. Items are never modified
// once queued.
type PendingItem struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	RouteID   string    `json:"routeId,omitempty"`
	StopID    string    `json:"stopId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Status   *StatusUpdate `json:"status,omitempty"`
	Photo    *Photo        `json:"photo,omitempty"`
	Location *LocationPing `json:"location,omitempty"`
}

// RejectedItem is a dead letter: an item the hub refused permanently.
type RejectedItem struct {
	Item       *PendingItem `json:"item"`
	Reason     string       `json:"reason"`
	RejectedAt time.Time    `json:"rejectedAt"`
}

// Counts is the number of pending items per kind.
type Counts struct {
	Status   int `json:"status"`
	Photo    int `json:"photo"`
	Location int `json:"location"`
}

func (c Counts) Total() int { return c.Status + c.Photo + c.Location }

// Of returns the count of k.
func (c Counts) Of(k Kind) int {
	switch k {
	case KindStatus:
		return c.Status
	case KindPhoto:
		return c.Photo
	case KindLocation:
		return c.Location
	}
	return 0
}

// NewID returns a time ordered UUIDv7 string.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// validate checks that the payload matches the kind.
func (it *PendingItem) validate() error {
	if it == nil {
		return errors.New("pending item is nil")
	}
	if !it.Kind.Valid() {
		return fmt.Errorf("unknown pending item kind %q", it.Kind)
	}

	switch it.Kind {
	case KindStatus:
		if it.Status == nil || it.Photo != nil || it.Location != nil {
			return errors.New("status item must carry only a status payload")
		}
		if !it.Status.Status.Valid() {
			return fmt.Errorf("unknown stop status %q", it.Status.Status)
		}
		if it.RouteID == "" || it.StopID == "" {
			return errors.New("status item needs route and stop ids")
		}
	case KindPhoto:
		if it.Photo == nil || it.Status != nil || it.Location != nil {
			return errors.New("photo item must carry only a photo payload")
		}
		if len(it.Photo.Data) == 0 {
			return errors.New("photo item has no data")
		}
		if it.RouteID == "" || it.StopID == "" {
			return errors.New("photo item needs route and stop ids")
		}
	case KindLocation:
		if it.Location == nil || it.Status != nil || it.Photo != nil {
			return errors.New("location item must carry only a location payload")
		}
		if it.Location.Latitude < -90 || it.Location.Latitude > 90 ||
			it.Location.Longitude < -180 || it.Location.Longitude > 180 {
			return fmt.Errorf("location %f,%f out of range", it.Location.Latitude, it.Location.Longitude)
		}
	}
	return nil
}
