package storage

import (
	"errors"

	"github.com/cuemby/contained/pkg/types"
)

// ErrNotFound is returned when no record exists for a container id
var ErrNotFound = errors.New("leftover not found")

// Store records containers that were created but not removed.
// This is implemented by the BoltDB-backed BoltStore.
type Store interface {
	// Leftovers
	RecordLeftover(l *types.Leftover) error
	GetLeftover(containerID string) (*types.Leftover, error)
	ListLeftovers() ([]*types.Leftover, error)
	UpdateStage(containerID string, stage types.Stage) error
	DeleteLeftover(containerID string) error
}
