package service

import (
	"context"
	"fmt"
	"time"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
)

// PhotoKey names the object of a stop's proof of delivery photo. The name
// only depends on the stop, so a retried upload overwrites the first one.
func PhotoKey(routeID, orderID, stopID, contentType string) (string, error) {
	ext, ok := v1.PhotoExtension(contentType)
	if !ok {
		return "", fmt.Errorf("%w: unsupported photo content type %q", core.ErrInvalidArgument, contentType)
	}
	name := orderID
	if name == "" {
		name = stopID
	}
	return fmt.Sprintf("%s/%s.%s", routeID, name, ext), nil
}

// UploadPhoto stores a proof of delivery photo and records its key on the stop.
func (s *Service) UploadPhoto(ctx context.Context, routeID, stopID, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty photo", core.ErrInvalidArgument)
	}
	if _, _, err := s.routeFor(ctx, routeID); err != nil {
		return "", err
	}
	stop, err := s.repo.GetStop(ctx, routeID, stopID)
	if err != nil {
		return "", fmt.Errorf("stop %s/%s: %w", routeID, stopID, err)
	}
	key, err := PhotoKey(routeID, stop.OrderID, stop.ID, contentType)
	if err != nil {
		return "", err
	}

	if err := s.storage.Put(ctx, key, contentType, data); err != nil {
		return "", fmt.Errorf("store photo %s: %w", key, err)
	}
	if err := s.repo.SetStopPhoto(ctx, routeID, stopID, key); err != nil {
		return "", fmt.Errorf("record photo of stop %s/%s: %w", routeID, stopID, err)
	}
	metrics.PhotoUploadsTotal.Inc()
	s.log.Info("Stored delivery photo", "route", routeID, "stop", stopID, "key", key, "bytes", len(data))
	return key, nil
}

// PhotoURL returns a time limited download link for the stop's photo.
func (s *Service) PhotoURL(ctx context.Context, routeID, stopID string, expiry time.Duration) (string, error) {
	if _, _, err := s.routeFor(ctx, routeID); err != nil {
		return "", err
	}
	stop, err := s.repo.GetStop(ctx, routeID, stopID)
	if err != nil {
		return "", fmt.Errorf("stop %s/%s: %w", routeID, stopID, err)
	}
	if stop.PhotoKey == "" {
		return "", fmt.Errorf("%w: stop %s/%s has no photo", core.ErrNotFound, routeID, stopID)
	}
	return s.storage.PresignedURL(ctx, stop.PhotoKey, expiry)
}
