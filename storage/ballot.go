package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/retrozk/ballotd/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Ballot retrieves the ballot record for a voter. It returns ErrNotFound if
// the voter has no ballot yet. Read-only, takes no lock.
func (s *Storage) Ballot(voterID string) (*types.Ballot, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, ballotPrefix)
	data, err := rd.Get(ballotKey(voterID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ballot: %w", err)
	}
	b := &types.Ballot{}
	if err := decodeRecord(data, b); err != nil {
		return nil, fmt.Errorf("decode ballot: %w", err)
	}
	return b, nil
}

// SetDraft upserts the draft votes and commitment for a voter in a single
// write. Votes and commitment always land together; a published ballot is
// never overwritten.
func (s *Storage) SetDraft(voterID string, votes []types.Vote, kzgCommitment string, now time.Time) (*types.Ballot, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	b, err := s.Ballot(voterID)
	switch {
	case errors.Is(err, ErrNotFound):
		b = &types.Ballot{VoterID: voterID, CreatedAt: now}
	case err != nil:
		return nil, err
	case b.Published():
		return nil, ErrAlreadyPublished
	}
	b.Votes = votes
	b.KzgCommitment = kzgCommitment
	b.UpdatedAt = now

	if err := s.writeBallot(voterID, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Publish performs the one-shot draft to published transition: it re-reads
// the record and checks it is still unpublished while holding the storage
// lock, then commits publishedAt and the signature in one transaction. Two
// concurrent calls for the same voter cannot both succeed.
func (s *Storage) Publish(voterID string, signature types.HexBytes, now time.Time) (*types.Ballot, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	b, err := s.Ballot(voterID)
	if err != nil {
		return nil, err
	}
	if b.Published() {
		return nil, ErrAlreadyPublished
	}
	b.PublishedAt = &now
	b.Signature = signature
	b.UpdatedAt = now

	if err := s.writeBallot(voterID, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Storage) writeBallot(voterID string, b *types.Ballot) error {
	val, err := encodeRecord(b)
	if err != nil {
		return fmt.Errorf("encode ballot: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), ballotPrefix)
	if err := wTx.Set(ballotKey(voterID), val); err != nil {
		wTx.Discard()
		return fmt.Errorf("set ballot: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit ballot: %w", err)
	}
	return nil
}
