// Package postgres is the PostgreSQL core.Repository of the hub.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
	"github.com/routepeer-io/routepeer/pkg/status"
)

//go:embed schema.sql
var schema string

const (
	connectTimeout = 10 * time.Second
	queryTimeout   = 3 * time.Second
)

var _ core.Repository = (*Store)(nil)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	pool *pgxpool.Pool
	log  log.Logger
}

// Open connects the pool, checks it with a ping and applies the schema when
// opts.ApplySchema is set.
func Open(ctx context.Context, opts *options.PostgresOptions) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(cctx, opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres at %s:%d: %w", opts.Host, opts.Port, err)
	}

	s := &Store{pool: pool, log: log.WithName("postgres")}
	if opts.ApplySchema {
		if _, err := pool.Exec(cctx, schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		s.log.Info("Schema applied", "database", opts.Database)
	}
	return s, nil
}

// Ping reports whether the database answers. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetRoute(ctx context.Context, routeID string) (*model.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	r := &model.Route{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, driver_id, completed_stops FROM routes WHERE id = $1`, routeID,
	).Scan(&r.ID, &r.DriverID, &r.CompletedStops)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) ListStops(ctx context.Context, routeID string) ([]*model.Stop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectStop+` WHERE route_id = $1 ORDER BY sequence`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []*model.Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

func (s *Store) GetStop(ctx context.Context, routeID, stopID string) (*model.Stop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return getStop(ctx, s.pool, routeID, stopID, false)
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return getOrder(ctx, s.pool, orderID, false)
}

func (s *Store) SetStopPhoto(ctx context.Context, routeID, stopID, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE stops SET photo_key = $3, updated_at = now() WHERE route_id = $1 AND id = $2`,
		routeID, stopID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) SaveLocation(ctx context.Context, loc *model.Location) error {
	return s.Atomic(ctx, func(tx core.Tx) error {
		q := tx.(*pgTx).q
		args := []any{loc.DriverID, loc.RouteID, loc.Latitude, loc.Longitude, loc.Accuracy,
			loc.Heading, loc.Speed, loc.RecordedAt, loc.ReceivedAt}

		// A late ping from the backlog must not replace a newer position.
		if _, err := q.Exec(ctx, `
			INSERT INTO driver_locations
				(driver_id, route_id, latitude, longitude, accuracy, heading, speed, recorded_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (driver_id) DO UPDATE SET
				route_id = EXCLUDED.route_id, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
				accuracy = EXCLUDED.accuracy, heading = EXCLUDED.heading, speed = EXCLUDED.speed,
				recorded_at = EXCLUDED.recorded_at, received_at = EXCLUDED.received_at
			WHERE driver_locations.recorded_at <= EXCLUDED.recorded_at
		`, args...); err != nil {
			return fmt.Errorf("upsert latest location: %w", err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO location_history
				(driver_id, route_id, latitude, longitude, accuracy, heading, speed, recorded_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, args...); err != nil {
			return fmt.Errorf("append location history: %w", err)
		}
		return nil
	})
}

func (s *Store) Atomic(ctx context.Context, fn func(tx core.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const selectStop = `SELECT route_id, id, COALESCE(order_id, ''), sequence, address, status,
	photo_key, delivery_notes, arrived_at, completed_at, updated_at FROM stops`

func scanStop(row pgx.Row) (*model.Stop, error) {
	st := &model.Stop{}
	var s string
	if err := row.Scan(&st.RouteID, &st.ID, &st.OrderID, &st.Sequence, &st.Address, &s,
		&st.PhotoKey, &st.Notes, &st.ArrivedAt, &st.CompletedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.Status = status.StopStatus(s)
	return st, nil
}

func getStop(ctx context.Context, q querier, routeID, stopID string, lock bool) (*model.Stop, error) {
	sql := selectStop + ` WHERE route_id = $1 AND id = $2`
	if lock {
		sql += ` FOR UPDATE`
	}
	st, err := scanStop(q.QueryRow(ctx, sql, routeID, stopID))
	if err != nil {
		return nil, notFound(err)
	}
	return st, nil
}

func getOrder(ctx context.Context, q querier, orderID string, lock bool) (*model.Order, error) {
	sql := `SELECT id, status, confirmed_at, delivered_at, cancelled_at, updated_at FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o := &model.Order{}
	var s string
	if err := q.QueryRow(ctx, sql, orderID).Scan(&o.ID, &s, &o.ConfirmedAt, &o.DeliveredAt, &o.CancelledAt, &o.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	o.Status = status.OrderStatus(s)
	return o, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
