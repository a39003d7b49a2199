package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertEventSQL = `INSERT INTO arbitrage_events (
        detected_at,
        cycle,
        profit,
        currency,
        session_profit
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, detected_at, cycle, profit, currency, session_profit, created_at;`

	listEventsBetweenSQL = `SELECT
        id,
        detected_at,
        cycle,
        profit,
        currency,
        session_profit,
        created_at
    FROM arbitrage_events
    WHERE detected_at >= $1
      AND detected_at < $2
    ORDER BY detected_at;`

	listRecentEventsSQL = `SELECT
        id,
        detected_at,
        cycle,
        profit,
        currency,
        session_profit,
        created_at
    FROM arbitrage_events
    ORDER BY detected_at DESC
    LIMIT $1;`

	countEventsSQL = `SELECT COUNT(*) FROM arbitrage_events;`

	deleteEventsBeforeSQL = `DELETE FROM arbitrage_events WHERE created_at < $1;`
)

// EventStore defines operations for arbitrage event persistence.
type EventStore interface {
	InsertEvent(ctx context.Context, event ArbitrageEvent) (ArbitrageEvent, error)
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]ArbitrageEvent, error)
	ListRecentEvents(ctx context.Context, limit int) ([]ArbitrageEvent, error)
	CountEvents(ctx context.Context) (int64, error)
	DeleteEventsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to arbitrage events.
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

// InsertEvent persists a detected opportunity.
func (s *Store) InsertEvent(ctx context.Context, event ArbitrageEvent) (ArbitrageEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return ArbitrageEvent{}, err
	}

	row := pool.QueryRow(ctx, insertEventSQL,
		event.DetectedAt,
		strings.Join(event.Cycle, ","),
		event.Profit.String(),
		event.Currency,
		event.SessionProfit.String(),
	)

	rec, scanErr := scanEventRow(row)
	if scanErr != nil {
		return ArbitrageEvent{}, fmt.Errorf("insert arbitrage event: %w", scanErr)
	}
	return rec, nil
}

// ListEventsBetween lists events within a time window ordered by detection time.
func (s *Store) ListEventsBetween(ctx context.Context, from, to time.Time) ([]ArbitrageEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listEventsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list events between: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, 0)
}

// ListRecentEvents lists the most recent events ordered by descending detection time.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]ArbitrageEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	return collectEvents(rows, limit)
}

// CountEvents counts stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

// DeleteEventsBefore deletes historical events.
func (s *Store) DeleteEventsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteEventsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete events before: %w", execErr)
	}
	return nil
}

func collectEvents(rows pgx.Rows, sizeHint int) ([]ArbitrageEvent, error) {
	events := make([]ArbitrageEvent, 0, sizeHint)
	for rows.Next() {
		event, scanErr := scanEventRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func scanEventRow(row pgx.Row) (ArbitrageEvent, error) {
	var (
		event         ArbitrageEvent
		cycleStr      string
		profitStr     string
		sessionProfit string
	)

	if err := row.Scan(
		&event.ID,
		&event.DetectedAt,
		&cycleStr,
		&profitStr,
		&event.Currency,
		&sessionProfit,
		&event.CreatedAt,
	); err != nil {
		return ArbitrageEvent{}, err
	}

	if cycleStr != "" {
		event.Cycle = strings.Split(cycleStr, ",")
	}

	var convErr error
	event.Profit, convErr = decimal.NewFromString(profitStr)
	if convErr != nil {
		return ArbitrageEvent{}, fmt.Errorf("parse profit: %w", convErr)
	}
	event.SessionProfit, convErr = decimal.NewFromString(sessionProfit)
	if convErr != nil {
		return ArbitrageEvent{}, fmt.Errorf("parse session profit: %w", convErr)
	}

	return event, nil
}
