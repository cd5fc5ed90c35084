package queue

import (
	"context"
	"time"
)

// Record is the storage form of an item: JSON metadata plus an optional blob.
type Record struct {
	ID        string
	CreatedAt time.Time
	Meta      []byte
	Blob      []byte
}

// Backend is durable local key/value storage grouped into tables.
type Backend interface {
	// Put inserts or replaces the record with the same ID.
	Put(ctx context.Context, table string, rec Record) error

	// GetAll returns the records of table by ascending CreatedAt,
	// insertion order breaking ties.
	GetAll(ctx context.Context, table string) ([]Record, error)

	// Delete removes id from table. Missing ids are not an error.
	Delete(ctx context.Context, table string, id string) error

	Count(ctx context.Context, table string) (int, error)

	Close() error
}

var tables = map[string]bool{
	TablePendingStatus:    true,
	TablePendingPhotos:    true,
	TablePendingLocations: true,
	TableRejected:         true,
}
