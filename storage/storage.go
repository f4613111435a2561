// Package storage persists ballot records in a prefixed key-value store.
// There is exactly one record per voter, keyed by the lowercase voter
// address. The draft to published transition is a check-and-set guarded by
// the storage lock, so at most one publish can ever succeed per voter.
package storage

import (
	"errors"
	"strings"
	"sync"

	"go.vocdoni.io/dvote/db"
)

// Prefixes for the keys in the database.
var ballotPrefix = []byte("b/")

var (
	// ErrNotFound is returned when no ballot exists for the voter.
	ErrNotFound = errors.New("ballot not found")
	// ErrAlreadyPublished is returned when a write touches a published
	// ballot. Published records are immutable.
	ErrAlreadyPublished = errors.New("ballot already published")
)

// Storage wraps the key-value database with ballot record operations.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		panic(err)
	}
}

// ballotKey normalizes the voter id into a storage key. Voter ids are
// Ethereum addresses; case differences must map to the same record.
func ballotKey(voterID string) []byte {
	return []byte(strings.ToLower(voterID))
}
