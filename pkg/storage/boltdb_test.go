package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/contained/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	return s
}

// TestLeftoverLifecycle tests record, stage update and delete of a leftover
func TestLeftoverLifecycle(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	l := &types.Leftover{
		ContainerID: "3f2a9c",
		RunID:       "run-1",
		Image:       "empty",
		Entrypoint:  []string{"/usr/bin/ls", "-l"},
		CreatedAt:   created,
		Stage:       types.StageCreate,
	}
	require.NoError(t, s.RecordLeftover(l))

	got, err := s.GetLeftover("3f2a9c")
	require.NoError(t, err)
	assert.Equal(t, l.Entrypoint, got.Entrypoint)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, types.StageCreate, got.Stage)

	require.NoError(t, s.UpdateStage("3f2a9c", types.StageWait))
	got, err = s.GetLeftover("3f2a9c")
	require.NoError(t, err)
	assert.Equal(t, types.StageWait, got.Stage)

	require.NoError(t, s.DeleteLeftover("3f2a9c"))
	_, err = s.GetLeftover("3f2a9c")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine
	assert.NoError(t, s.DeleteLeftover("3f2a9c"))
}

// TestListLeftoversOldestFirst tests leftover ordering by creation time
func TestListLeftoversOldestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"ccc", "aaa", "bbb"} {
		require.NoError(t, s.RecordLeftover(&types.Leftover{
			ContainerID: id,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	leftovers, err := s.ListLeftovers()
	require.NoError(t, err)
	require.Len(t, leftovers, 3)
	assert.Equal(t, "ccc", leftovers[0].ContainerID)
	assert.Equal(t, "aaa", leftovers[1].ContainerID)
	assert.Equal(t, "bbb", leftovers[2].ContainerID)
}

// TestUpdateStageMissing tests a stage update for an unknown container
func TestUpdateStageMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateStage("nope", types.StageStart)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStoreReopen tests that records survive a new store on the same directory
func TestStoreReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s1, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.RecordLeftover(&types.Leftover{ContainerID: "keep"}))

	s2, err := NewBoltStore(dir)
	require.NoError(t, err)
	leftovers, err := s2.ListLeftovers()
	require.NoError(t, err)
	require.Len(t, leftovers, 1)
	assert.Equal(t, "keep", leftovers[0].ContainerID)
}

// TestDefaultDir tests the ledger location under the XDG state dir
func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	assert.Equal(t, "/xdg/state/contained", DefaultDir())
}
