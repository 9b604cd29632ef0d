package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatelog/internal/domain"
	"gatelog/internal/repository"
)

const createSensorEventsTable = `
CREATE TABLE IF NOT EXISTS sensor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
	created_at_ms INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sensor_events_created_at ON sensor_events(created_at_ms);
CREATE INDEX IF NOT EXISTS idx_sensor_events_user_id ON sensor_events(user_id);
`

const selectSensorEvents = `
SELECT e.id, e.status, e.created_at_ms, e.user_id, u.id, u.fullname, u.rfid
FROM sensor_events e
JOIN users u ON u.id = e.user_id`

type SensorRepository struct {
	db *sql.DB
}

func NewSensorRepository(db *sql.DB) repository.SensorRepository {
	return &SensorRepository{db: db}
}

func (r *SensorRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSensorEventsTable); err != nil {
		return fmt.Errorf("create sensor_events table: %w", err)
	}
	return nil
}

func (r *SensorRepository) AppendToggle(ctx context.Context, userID int64, at time.Time) (*domain.SensorEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Creation order, not created_at, decides which event is the latest.
	var prev string
	err = tx.QueryRowContext(ctx, `SELECT status FROM sensor_events ORDER BY id DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read latest status: %w", err)
	}

	event := &domain.SensorEvent{
		Status:    domain.Status(prev).Next(),
		CreatedAt: at.UTC().Truncate(time.Millisecond),
		UserID:    userID,
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO sensor_events (status, created_at_ms, user_id)
VALUES (?, ?, ?)`,
		string(event.Status),
		event.CreatedAt.UnixMilli(),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sensor event: %w", err)
	}
	if event.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("sensor event last insert id: %w", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT id, fullname, rfid FROM users WHERE id=?`, userID).
		Scan(&event.Owner.ID, &event.Owner.Fullname, &event.Owner.RFID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sensor event owner %d: %w", userID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("load sensor event owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sensor event: %w", err)
	}
	return event, nil
}

func (r *SensorRepository) Latest(ctx context.Context, limit int) ([]domain.SensorEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectSensorEvents+`
ORDER BY e.id DESC
LIMIT ?`, limit)
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

	placeholders := make([]string, len(statuses))
	args := []any{from.UnixMilli(), to.UnixMilli()}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}

	query := fmt.Sprintf(selectSensorEvents+`
WHERE e.created_at_ms BETWEEN ? AND ?
AND e.status IN (%s)
ORDER BY e.created_at_ms ASC, e.id ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sensor events between: %w", err)
	}
	defer rows.Close()
	return scanSensorEvents(rows)
}

func (r *SensorRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_events WHERE user_id=?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sensor events: %w", err)
	}
	return n, nil
}

func scanSensorEvents(rows *sql.Rows) ([]domain.SensorEvent, error) {
	events := []domain.SensorEvent{}
	for rows.Next() {
		var (
			event     domain.SensorEvent
			status    string
			createdMs int64
		)
		if err := rows.Scan(
			&event.ID,
			&status,
			&createdMs,
			&event.UserID,
			&event.Owner.ID,
			&event.Owner.Fullname,
			&event.Owner.RFID,
		); err != nil {
			return nil, fmt.Errorf("scan sensor event: %w", err)
		}
		event.Status = domain.Status(status)
		event.CreatedAt = time.UnixMilli(createdMs).UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}
