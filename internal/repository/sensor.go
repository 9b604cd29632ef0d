package repository

import (
	"context"
	"time"

	"gatelog/internal/domain"
)

// SensorRepository persists gate transitions.
type SensorRepository interface {
	Init(ctx context.Context) error
	// AppendToggle reads the latest status and inserts its negation for userID at the
	// given time. Both steps run in one serialized store transaction.
	AppendToggle(ctx context.Context, userID int64, at time.Time) (*domain.SensorEvent, error)
	// Latest returns up to limit events in creation order, newest first. The head is
	// always the event that decides the current gate state, even if the clock stepped back.
	Latest(ctx context.Context, limit int) ([]domain.SensorEvent, error)
	// ListBetween returns events created within [from, to] whose status is in statuses,
	// oldest first.
	ListBetween(ctx context.Context, from, to time.Time, statuses ...domain.Status) ([]domain.SensorEvent, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}
