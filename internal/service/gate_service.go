package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gatelog/internal/domain"
	"gatelog/internal/repository"
)

const (
	minRFIDLength       = 8
	defaultSnapshotSize = 50
)

// SnapshotNotifier receives the refreshed snapshot after each toggle. It must not block.
type SnapshotNotifier interface {
	NotifySnapshot(events []domain.SensorEvent)
}

// AdmissionWindow is the local time-of-day range in which the gate may be toggled.
type AdmissionWindow struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int
}

// Allows reports whether now falls in [OpenHour, CloseHour) local time.
func (w AdmissionWindow) Allows(now time.Time) bool {
	hour := now.In(w.Location).Hour()
	return hour >= w.OpenHour && hour < w.CloseHour
}

type GateConfig struct {
	SnapshotSize int
	Window       AdmissionWindow
	Logger       *logrus.Logger
}

// ToggleResult is the event a toggle created and the snapshot that followed it.
type ToggleResult struct {
	Event    domain.SensorEvent
	Snapshot []domain.SensorEvent
}

// GateService owns the open/closed state machine of the gate.
type GateService interface {
	Toggle(ctx context.Context, rfid string, now time.Time) (*ToggleResult, error)
	Snapshot(ctx context.Context) ([]domain.SensorEvent, error)
	// Broadcast reads the snapshot and pushes it to the notifier as a toggle would.
	Broadcast(ctx context.Context) ([]domain.SensorEvent, error)
}

type gateService struct {
	cfg      GateConfig
	users    repository.UserRepository
	sensors  repository.SensorRepository
	notifier SnapshotNotifier

	// mu keeps append, snapshot read and notify in one order across toggles.
	mu sync.Mutex
}

func NewGateService(cfg GateConfig, users repository.UserRepository, sensors repository.SensorRepository, notifier SnapshotNotifier) GateService {
	if cfg.SnapshotSize <= 0 {
		cfg.SnapshotSize = defaultSnapshotSize
	}
	if cfg.Window.Location == nil {
		cfg.Window.Location = domain.LocalZone(7)
	}
	if cfg.Window.OpenHour == 0 && cfg.Window.CloseHour == 0 {
		cfg.Window.OpenHour, cfg.Window.CloseHour = 6, 18
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &gateService{
		cfg:      cfg,
		users:    users,
		sensors:  sensors,
		notifier: notifier,
	}
}

func (s *gateService) Toggle(ctx context.Context, rfid string, now time.Time) (*ToggleResult, error) {
	rfid = strings.TrimSpace(rfid)
	if len(rfid) < minRFIDLength {
		return nil, ErrInvalidCredential
	}

	user, err := s.users.GetByRFID(ctx, rfid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	logger := s.cfg.Logger.WithField("user_id", user.ID)
	if !s.cfg.Window.Allows(now) {
		logger.Infof("toggle rejected outside admission window at %s", now.In(s.cfg.Window.Location).Format(time.Kitchen))
		return nil, ErrOutOfWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.sensors.AppendToggle(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	logger.WithField("event_id", event.ID).Infof("gate %s", event.Status)

	snapshot, err := s.sensors.Latest(ctx, s.cfg.SnapshotSize)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifySnapshot(snapshot)
	}

	return &ToggleResult{Event: *event, Snapshot: snapshot}, nil
}

func (s *gateService) Snapshot(ctx context.Context) ([]domain.SensorEvent, error) {
	return s.sensors.Latest(ctx, s.cfg.SnapshotSize)
}

func (s *gateService) Broadcast(ctx context.Context) ([]domain.SensorEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.sensors.Latest(ctx, s.cfg.SnapshotSize)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifySnapshot(snapshot)
	}
	return snapshot, nil
}
