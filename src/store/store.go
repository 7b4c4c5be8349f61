// Package store defines the interface for persisting build history.
package store

import (
	"context"
	"fmt"

	"relay-agent/src/contracts"
)

// Store defines the interface for persisting build records.
type Store interface {
	// CreateBuild records a build that has started (state pending).
	CreateBuild(ctx context.Context, rec *contracts.BuildRecord) error

	// FinishBuild records the terminal state of a build.
	FinishBuild(ctx context.Context, id string, state contracts.BuildState, exitCode int, description string) error

	// GetBuild returns a single build record by ID.
	GetBuild(ctx context.Context, id string) (*contracts.BuildRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]contracts.BuildRecord, error)

	// Close closes the store connection.
	Close() error
}

// ErrNotFound is returned when no build record matches the given ID.
type ErrNotFound struct {
	BuildID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("build not found: %s", e.BuildID)
}
