package alarmstore

import (
	"context"
	"errors"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// ErrNotFound is returned when no alarm exists for the requested id.
var ErrNotFound = errors.New("alarm not found")

// Store defines persistence operations for alarm definitions.
// The scheduling core is never the only writer: an editing surface may
// mutate alarms concurrently, so callers re-read rather than cache.
type Store interface {
	GetAll(ctx context.Context) ([]*domain.Alarm, error)
	GetByID(ctx context.Context, id string) (*domain.Alarm, error)
	Create(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error)
	Update(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error)
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
