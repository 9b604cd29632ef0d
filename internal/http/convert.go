package http

import (
	"time"

	"github.com/sirupsen/logrus"

	"gatelog/internal/broadcast"
	"gatelog/internal/domain"
)

type EventUserResponse struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
	RFID     string `json:"rfid"`
}

type SensorResponse struct {
	ID        int64             `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Status    string            `json:"status"`
	User      EventUserResponse `json:"user"`
}

type ToggleResponse struct {
	ID      int64             `json:"id"`
	Status  string            `json:"status"`
	Time    time.Time         `json:"time"`
	User    EventUserResponse `json:"user"`
	Sensors []SensorResponse  `json:"sensors"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	RFID     string `json:"rfid"`
}

type MeResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UsersResponse struct {
	Users []UserResponse `json:"users"`
}

type DeletedResponse struct {
	ID int64 `json:"id"`
}

type PDFResponse struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Base64   string `json:"base64"`
}

func sensorToResponse(e domain.SensorEvent) SensorResponse {
	return SensorResponse{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Status:    e.Status.Label(),
		User: EventUserResponse{
			ID:       e.Owner.ID,
			Fullname: e.Owner.Fullname,
			RFID:     e.Owner.RFID,
		},
	}
}

func sensorsToResponse(events []domain.SensorEvent) []SensorResponse {
	resp := make([]SensorResponse, len(events))
	for i := range events {
		resp[i] = sensorToResponse(events[i])
	}
	return resp
}

func userToResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Fullname: u.Fullname,
		RFID:     u.RFID,
	}
}

// Publisher is the broadcast side of the realtime hub.
type Publisher interface {
	Publish(topic string, payload any) error
}

// SnapshotPublisher pushes gate snapshots to realtime subscribers in the same
// shape GET /sensor returns.
type SnapshotPublisher struct {
	hub    Publisher
	logger *logrus.Logger
}

func NewSnapshotPublisher(hub Publisher, logger *logrus.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{hub: hub, logger: logger}
}

func (p *SnapshotPublisher) NotifySnapshot(events []domain.SensorEvent) {
	if err := p.hub.Publish(broadcast.TopicSensor, sensorsToResponse(events)); err != nil {
		p.logger.Warnf("publish sensor snapshot: %v", err)
	}
}
