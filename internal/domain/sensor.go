package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the physical state of the gate recorded by a SensorEvent.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Next returns the status a new event must carry after prev. An empty prev means
// the gate has no history yet, which always starts Open.
func (s Status) Next() Status {
	if s == StatusOpen {
		return StatusClosed
	}
	return StatusOpen
}

// Label is the display form used on the wire and in reports.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Terbuka"
	case StatusClosed:
		return "Tertutup"
	default:
		return string(s)
	}
}

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// SensorEvent is an immutable gate transition. Owner holds the display fields of the
// triggering user as joined at read time.
type SensorEvent struct {
	ID        int64
	Status    Status
	CreatedAt time.Time
	UserID    int64
	Owner     EventOwner
}

type EventOwner struct {
	ID       int64
	Fullname string
	RFID     string
}

// StatusFilter restricts a report to one status or leaves it open to both.
type StatusFilter string

const (
	FilterAny    StatusFilter = "semua"
	FilterOpen   StatusFilter = "terbuka"
	FilterClosed StatusFilter = "tertutup"
)

func ParseStatusFilter(v string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(v))) {
	case "", FilterAny:
		return FilterAny, nil
	case FilterOpen:
		return FilterOpen, nil
	case FilterClosed:
		return FilterClosed, nil
	}
	return "", fmt.Errorf("unknown status filter %q", v)
}

// Statuses lists the statuses a filter admits.
func (f StatusFilter) Statuses() []Status {
	switch f {
	case FilterOpen:
		return []Status{StatusOpen}
	case FilterClosed:
		return []Status{StatusClosed}
	default:
		return []Status{StatusOpen, StatusClosed}
	}
}

// ReportRow is one line of the monthly history report.
type ReportRow struct {
	Event   SensorEvent
	Tanggal string
}
