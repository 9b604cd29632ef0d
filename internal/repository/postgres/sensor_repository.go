package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatelog/internal/domain"
	"gatelog/internal/repository"
)

const createSensorEventsTable = `
CREATE TABLE IF NOT EXISTS sensor_events (
	id BIGSERIAL PRIMARY KEY,
	status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
	created_at TIMESTAMPTZ NOT NULL,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sensor_events_created_at ON sensor_events(created_at);
CREATE INDEX IF NOT EXISTS idx_sensor_events_user_id ON sensor_events(user_id);
`

const selectSensorEvents = `
SELECT e.id, e.status, e.created_at, e.user_id, u.id, u.fullname, u.rfid
FROM sensor_events e
JOIN users u ON u.id = e.user_id`

// toggleLockKey names the advisory lock that serializes gate toggles across connections.
const toggleLockKey int64 = 0x6761746521

type SensorRepository struct {
	db *pgxpool.Pool
}

func NewSensorRepository(db *pgxpool.Pool) repository.SensorRepository {
	return &SensorRepository{db: db}
}

func (r *SensorRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createSensorEventsTable); err != nil {
		return fmt.Errorf("create sensor_events table: %w", err)
	}
	return nil
}

func (r *SensorRepository) AppendToggle(ctx context.Context, userID int64, at time.Time) (*domain.SensorEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, toggleLockKey); err != nil {
		return nil, fmt.Errorf("acquire toggle lock: %w", err)
	}

	var prev string
	err = tx.QueryRow(ctx, `SELECT status FROM sensor_events ORDER BY id DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read latest status: %w", err)
	}

	event := &domain.SensorEvent{
		Status:    domain.Status(prev).Next(),
		CreatedAt: at.UTC().Truncate(time.Microsecond),
		UserID:    userID,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO sensor_events (status, created_at, user_id)
VALUES ($1, $2, $3)
RETURNING id`,
		string(event.Status),
		event.CreatedAt,
		userID,
	).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("insert sensor event: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT id, fullname, rfid FROM users WHERE id = $1`, userID).
		Scan(&event.Owner.ID, &event.Owner.Fullname, &event.Owner.RFID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sensor event owner %d: %w", userID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("load sensor event owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sensor event: %w", err)
	}
	return event, nil
}

func (r *SensorRepository) Latest(ctx context.Context, limit int) ([]domain.SensorEvent, error) {
	rows, err := r.db.Query(ctx, selectSensorEvents+`
ORDER BY e.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest sensor events: %w", err)
	}
	defer rows.Close()
	return scanSensorEvents(rows)
}

func (r *SensorRepository) ListBetween(ctx context.Context, from, to time.Time, statuses ...domain.Status) ([]domain.SensorEvent, error) {
	if len(statuses) == 0 {
		return []domain.SensorEvent{}, nil
	}

	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	rows, err := r.db.Query(ctx, selectSensorEvents+`
WHERE e.created_at BETWEEN $1 AND $2
AND e.status = ANY($3)
ORDER BY e.created_at ASC, e.id ASC`, from.UTC(), to.UTC(), values)
	if err != nil {
		return nil, fmt.Errorf("query sensor events between: %w", err)
	}
	defer rows.Close()
	return scanSensorEvents(rows)
}

func (r *SensorRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sensor_events WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sensor events: %w", err)
	}
	return n, nil
}

func scanSensorEvents(rows pgx.Rows) ([]domain.SensorEvent, error) {
	events := []domain.SensorEvent{}
	for rows.Next() {
		var (
			event  domain.SensorEvent
			status string
		)
		if err := rows.Scan(
			&event.ID,
			&status,
			&event.CreatedAt,
			&event.UserID,
			&event.Owner.ID,
			&event.Owner.Fullname,
			&event.Owner.RFID,
		); err != nil {
			return nil, fmt.Errorf("scan sensor event: %w", err)
		}
		event.Status = domain.Status(status)
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}
