package service

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
)

// RecordLocation stores a driver's position. Only drivers send pings.
func (s *Service) RecordLocation(ctx context.Context, ping *v1.LocationPing) (*model.Location, error) {
	p, err := auth.RequireKind(ctx, auth.KindDriver)
	if err != nil {
		return nil, err
	}
	if ping.Latitude < -90 || ping.Latitude > 90 || ping.Longitude < -180 || ping.Longitude > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range (%f, %f)", core.ErrInvalidArgument, ping.Latitude, ping.Longitude)
	}
	if ping.Accuracy < 0 {
		return nil, fmt.Errorf("%w: negative accuracy", core.ErrInvalidArgument)
	}

	now := s.clock.Now()
	if !s.limiter.allow(p.Name, now) {
		metrics.RateLimitedPingsTotal.Inc()
		return nil, fmt.Errorf("%w: location of driver %s", core.ErrRateLimited, p.Name)
	}

	if ping.RouteID != "" {
		if _, _, err := s.routeFor(ctx, ping.RouteID); err != nil {
			return nil, err
		}
	}

	loc := &model.Location{
		DriverID:   p.Name,
		RouteID:    ping.RouteID,
		Latitude:   ping.Latitude,
		Longitude:  ping.Longitude,
		Accuracy:   ping.Accuracy,
		Heading:    ping.Heading,
		Speed:      ping.Speed,
		RecordedAt: ping.RecordedAt,
		ReceivedAt: now,
	}
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = now
	}
	if err := s.repo.SaveLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("save location of driver %s: %w", p.Name, err)
	}
	return loc, nil
}
