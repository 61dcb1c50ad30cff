package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPriceSampleSQL = `INSERT INTO price_samples (
        sample_ts,
        price,
        source
    ) VALUES ($1,$2,$3)
    ON CONFLICT (sample_ts, source) DO UPDATE
    SET price = EXCLUDED.price;`

	listSamplesBetweenSQL = `SELECT
        sample_ts, price, source, created_at
    FROM price_samples
    WHERE sample_ts >= $1
      AND sample_ts < $2
    ORDER BY sample_ts;`

	listRecentSamplesSQL = `SELECT
        sample_ts, price, source, created_at
    FROM price_samples
    ORDER BY sample_ts DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM price_samples;`

	insertAlertEventSQL = `INSERT INTO alert_events (
        fired_at, kind, price, threshold
    ) VALUES ($1,$2,$3,$4)
    RETURNING id, fired_at, kind, price, threshold, created_at;`

	listRecentAlertsSQL = `SELECT
        id, fired_at, kind, price, threshold, created_at
    FROM alert_events
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alert_events WHERE created_at < $1;`
)

// SampleStore defines operations for price sample persistence.
type SampleStore interface {
	InsertPriceSample(ctx context.Context, sample PriceSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlertEvent(ctx context.Context, event AlertEvent) (AlertEvent, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertEvent, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to price samples and alert events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertPriceSample persists or updates one observation.
func (s *Store) InsertPriceSample(ctx context.Context, sample PriceSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, insertPriceSampleSQL, sample.At, sample.Price, sample.Source); err != nil {
		return fmt.Errorf("insert price sample: %w", err)
	}
	return nil
}

// ListSamplesBetween returns samples within [from, to) in ascending order.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// ListRecentSamples returns the newest samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := pool.Query(ctx, listRecentSamplesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// CountSamples reports the total number of persisted samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

// InsertAlertEvent records an emitted alert.
func (s *Store) InsertAlertEvent(ctx context.Context, event AlertEvent) (AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertEvent{}, err
	}

	row := pool.QueryRow(ctx, insertAlertEventSQL, event.FiredAt, event.Kind, event.Price, event.Threshold)
	var saved AlertEvent
	if err := row.Scan(&saved.ID, &saved.FiredAt, &saved.Kind, &saved.Price, &saved.Threshold, &saved.CreatedAt); err != nil {
		return AlertEvent{}, fmt.Errorf("insert alert event: %w", err)
	}
	return saved, nil
}

// ListRecentAlerts returns the newest alert events, newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := pool.Query(ctx, listRecentAlertsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var ev AlertEvent
		if err := rows.Scan(&ev.ID, &ev.FiredAt, &ev.Kind, &ev.Price, &ev.Threshold, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteAlertsBefore prunes old alert events.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); err != nil {
		return fmt.Errorf("delete alerts: %w", err)
	}
	return nil
}

func scanSamples(rows pgx.Rows) ([]PriceSample, error) {
	var samples []PriceSample
	for rows.Next() {
		var s PriceSample
		if err := rows.Scan(&s.At, &s.Price, &s.Source, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan price sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

var _ SampleStore = (*Store)(nil)
var _ AlertStore = (*Store)(nil)
