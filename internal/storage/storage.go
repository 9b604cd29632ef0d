package storage

import (
	"context"
)

// Service archives generated report files and returns their location.
type Service interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
