package service

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
)

// routeFor loads a route the caller may act on: admins any, drivers only
// their own.
func (s *Service) routeFor(ctx context.Context, routeID string) (*model.Route, *auth.Principal, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil, auth.ErrUnauthenticated
	}
	route, err := s.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("route %s: %w", routeID, err)
	}
	if !p.IsAdmin() && route.DriverID != p.Name {
		return nil, nil, fmt.Errorf("%w: route %s is not assigned to %s", auth.ErrForbidden, routeID, p.Name)
	}
	return route, p, nil
}
