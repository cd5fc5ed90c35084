package core

import (
	"context"
	"time"
)

// PhotoStorage keeps proof of delivery photos. Put overwrites an existing key.
type PhotoStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
