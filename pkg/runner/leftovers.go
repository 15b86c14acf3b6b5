package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/contained/pkg/engine"
	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/storage"
	"github.com/cuemby/contained/pkg/types"
)

// Remover deletes containers from the engine
type Remover interface {
	Remove(ctx context.Context, id string, force bool) error
}

// PruneResult reports what a prune did with one ledger record
type PruneResult struct {
	Leftover *types.Leftover
	Gone     bool // the engine no longer knew the container
	Err      error
}

// Prune force-removes every container in the ledger. Records are dropped
// when removal succeeds or the engine reports the container as unknown;
// any other failure keeps the record for a later prune.
func Prune(ctx context.Context, eng Remover, store storage.Store) ([]PruneResult, error) {
	leftovers, err := store.ListLeftovers()
	if err != nil {
		return nil, fmt.Errorf("failed to list leftovers: %w", err)
	}

	logger := log.WithComponent("prune")
	results := make([]PruneResult, 0, len(leftovers))
	var errs []error

	for _, l := range leftovers {
		res := PruneResult{Leftover: l}
		err := eng.Remove(ctx, l.ContainerID, true)
		switch {
		case err == nil:
		case engine.IsNotFound(err):
			res.Gone = true
		default:
			res.Err = err
			errs = append(errs, fmt.Errorf("container %s: %w", l.ContainerID, err))
			results = append(results, res)
			logger.Warn().Err(err).Str("container_id", l.ContainerID).Msg("removal failed")
			continue
		}

		if err := store.DeleteLeftover(l.ContainerID); err != nil {
			res.Err = err
			errs = append(errs, err)
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}
