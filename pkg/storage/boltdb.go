package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/contained/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketLeftovers = []byte("leftovers")
)

const (
	dbFile = "contained.db"

	// lockTimeout bounds the wait for another contained process holding the
	// database file lock
	lockTimeout = 5 * time.Second
)

// BoltStore implements Store using BoltDB. The database is opened for each
// operation and closed right after, so concurrent runs only contend for the
// file lock during a single transaction.
type BoltStore struct {
	path string
}

// NewBoltStore creates a BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &BoltStore{path: filepath.Join(dataDir, dbFile)}

	// Create buckets
	err := s.update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLeftovers); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketLeftovers, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) open() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

// RecordLeftover stores or replaces the record for l.ContainerID
func (s *BoltStore) RecordLeftover(l *types.Leftover) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLeftovers).Put([]byte(l.ContainerID), data)
	})
}

func (s *BoltStore) GetLeftover(containerID string) (*types.Leftover, error) {
	var l types.Leftover
	err := s.view(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLeftovers).Get([]byte(containerID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return json.Unmarshal(data, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeftovers returns every record, oldest first
func (s *BoltStore) ListLeftovers() ([]*types.Leftover, error) {
	var leftovers []*types.Leftover
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLeftovers).ForEach(func(k, v []byte) error {
			var l types.Leftover
			if err := json.Unmarshal(v, &l); err != nil {
				return fmt.Errorf("failed to decode leftover %s: %w", k, err)
			}
			leftovers = append(leftovers, &l)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(leftovers, func(i, j int) bool {
		return leftovers[i].CreatedAt.Before(leftovers[j].CreatedAt)
	})
	return leftovers, nil
}

// UpdateStage records the lifecycle step a run has reached
func (s *BoltStore) UpdateStage(containerID string, stage types.Stage) error {
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLeftovers)
		data := b.Get([]byte(containerID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		var l types.Leftover
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		l.Stage = stage
		updated, err := json.Marshal(&l)
		if err != nil {
			return err
		}
		return b.Put([]byte(containerID), updated)
	})
}

// DeleteLeftover drops the record; deleting a missing record is not an error
func (s *BoltStore) DeleteLeftover(containerID string) error {
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLeftovers).Delete([]byte(containerID))
	})
}

// DefaultDir returns $XDG_STATE_HOME/contained, falling back to
// ~/.local/state/contained
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "contained")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "contained")
	}
	return filepath.Join(home, ".local", "state", "contained")
}
