package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bonecondor/space-weather/internal/models"
)

// Archive is the optional Postgres sink for dispatched alerts and observed
// significant events. It keeps a history deeper than the state file's
// alertsSent cap and gives the base-rate tool a local sample source.
type Archive struct {
	Pool *pgxpool.Pool
}

// New connects to Postgres and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	a := &Archive{Pool: pool}
	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the connection pool.
func (a *Archive) Close() {
	a.Pool.Close()
}

func (a *Archive) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS alert_log (
        id          TEXT PRIMARY KEY,
        type        TEXT NOT NULL,
        urgency     TEXT NOT NULL,
        title       TEXT NOT NULL,
        emitted_at  TIMESTAMPTZ NOT NULL,
        source_event_id TEXT
    )`,
		`CREATE TABLE IF NOT EXISTS event_log (
        type        TEXT NOT NULL,
        description TEXT NOT NULL,
        observed_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (type, observed_at)
    )`,
		`CREATE INDEX IF NOT EXISTS event_log_observed_at_idx ON event_log (observed_at)`,
	}
	for _, ddl := range statements {
		if _, err := a.Pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to ensure archive schema: %w", err)
		}
	}
	return nil
}

// InsertAlerts records dispatched alerts; replays of the same id are ignored.
func (a *Archive) InsertAlerts(ctx context.Context, alerts []models.Alert) error {
	query := `
    INSERT INTO alert_log (id, type, urgency, title, emitted_at, source_event_id)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (id) DO NOTHING`
	for _, alert := range alerts {
		_, err := a.Pool.Exec(ctx, query,
			alert.ID,
			alert.Type,
			string(alert.Urgency),
			alert.Title,
			alert.Timestamp,
			alert.SourceEventID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
		}
	}
	return nil
}

// InsertEvents records observed significant events, keyed by
// (type, observed_at) so re-observations collapse.
func (a *Archive) InsertEvents(ctx context.Context, events []models.MatchedEvent) error {
	query := `
    INSERT INTO event_log (type, description, observed_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (type, observed_at) DO NOTHING`
	for _, event := range events {
		_, err := a.Pool.Exec(ctx, query, event.Type, event.Description, event.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert event %s@%s: %w", event.Type, event.Timestamp, err)
		}
	}
	return nil
}

// EventsInRange returns archived events inside [from, to], oldest first.
// Satisfies prediction.EventSource.
func (a *Archive) EventsInRange(ctx context.Context, from, to time.Time) ([]models.MatchedEvent, error) {
	query := `
    SELECT type, description, observed_at
    FROM event_log
    WHERE observed_at >= $1 AND observed_at <= $2
    ORDER BY observed_at`
	rows, err := a.Pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.MatchedEvent
	for rows.Next() {
		var e models.MatchedEvent
		if err := rows.Scan(&e.Type, &e.Description, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
