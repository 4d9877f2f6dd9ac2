package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/config"
)

// SchemaVersion is the current snapshot schema. Recovery refuses to
// interpret records written by an incompatible prior schema.
const SchemaVersion = 1

var (
	// ErrNotFound is returned when no snapshot file exists yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrIncompatible is returned when the stored schema version differs
	// from SchemaVersion.
	ErrIncompatible = errors.New("snapshot schema is incompatible")
)

// ActiveSession is the durable record of the alarm currently ringing.
// It is written when a trigger session starts and cleared on teardown, so
// startup recovery can tell whether the process died mid-ring.
type ActiveSession struct {
	// SchemaVersion guards against reading records from an older build.
	SchemaVersion int `json:"schema_version"`
	// AlarmID identifies the ringing alarm.
	AlarmID string `json:"alarm_id"`
	// StartedAt is when the session entered the ringing state.
	StartedAt time.Time `json:"started_at"`
	// EndAt is the computed auto-expiry instant.
	EndAt time.Time `json:"end_at"`
}

// Repository defines persistence operations for the active-session snapshot.
type Repository interface {
	Load(ctx context.Context) (*ActiveSession, error)
	Save(ctx context.Context, s *ActiveSession) error
	Clear(ctx context.Context) error
}

// FileRepository persists the snapshot as JSON on disk.
type FileRepository struct {
	// path is the filesystem location of the snapshot file.
	path string
	// mu protects concurrent access to the snapshot file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var s ActiveSession
	if err = json.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}

	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", ErrIncompatible, s.SchemaVersion, SchemaVersion)
	}

	return &s, nil
}

// Save writes the snapshot to disk, stamping the current schema version.
func (r *FileRepository) Save(_ context.Context, s *ActiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *s
	stored.SchemaVersion = SchemaVersion

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}

	return nil
}

// Clear removes the snapshot file. Clearing an absent snapshot is a no-op.
func (r *FileRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot file: %w", err)
	}

	return nil
}
