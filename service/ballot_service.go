// Package service implements the ballot lifecycle: draft saves with
// commitment acquisition, and the signed one-shot publish transition with its
// ordered preconditions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/retrozk/ballotd/ballot"
	"github.com/retrozk/ballotd/crypto/ethereum"
	"github.com/retrozk/ballotd/storage"
	"github.com/retrozk/ballotd/types"
	"go.vocdoni.io/dvote/log"
)

// CommitmentClient turns a canonical vote vector into a KZG commitment via
// the external proving service.
type CommitmentClient interface {
	Commit(ctx context.Context, vector []int64) (string, error)
}

// BallotConfig holds the voting-round parameters of a BallotService.
type BallotConfig struct {
	ChainID      int64
	VotingEndsAt time.Time
	Policy       ballot.Policy
	CircuitWidth int
}

// BallotService coordinates storage, the proving service and attestations to
// run the draft to published state machine.
type BallotService struct {
	stg          *storage.Storage
	commitments  CommitmentClient
	attestations AttestationService
	encoder      *ballot.Encoder
	cfg          BallotConfig
	now          func() time.Time
}

// NewBallotService creates a BallotService with the given collaborators.
func NewBallotService(stg *storage.Storage, commitments CommitmentClient,
	attestations AttestationService, cfg BallotConfig,
) *BallotService {
	width := cfg.CircuitWidth
	if width <= 0 {
		width = types.DefaultCircuitWidth
	}
	return &BallotService{
		stg:          stg,
		commitments:  commitments,
		attestations: attestations,
		encoder:      ballot.NewEncoder(width),
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *BallotService) SetNow(now func() time.Time) {
	s.now = now
}

// Ballot returns the stored ballot record for a voter. A voter without a
// record gets an empty draft rather than an error.
func (s *BallotService) Ballot(_ context.Context, voterID string) (*types.Ballot, error) {
	b, err := s.stg.Ballot(voterID)
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Ballot{VoterID: voterID, Votes: []types.Vote{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Save merges the given votes into the voter's draft, acquires a fresh
// commitment for the canonical vector and persists votes and commitment
// together. Nothing is persisted if commitment acquisition fails, so the
// stored pair is always consistent. The storage lock is not held during the
// proving-service wait.
func (s *BallotService) Save(ctx context.Context, voterID string, votes []types.Vote) (*types.Ballot, error) {
	if !ballot.WindowOpen(s.now(), s.cfg.VotingEndsAt) {
		return nil, ErrVotingClosed
	}
	if err := ballot.ValidateVotes(votes); err != nil {
		return nil, err
	}
	existing, err := s.stg.Ballot(voterID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		existing = &types.Ballot{}
	case err != nil:
		return nil, err
	case existing.Published():
		return nil, storage.ErrAlreadyPublished
	}
	merged := ballot.MergeVotes(existing.Votes, votes)

	projectIDs, err := s.attestations.ApprovedProjectIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch approved projects: %w", err)
	}
	vector, err := s.encoder.Encode(merged, projectIDs)
	if err != nil {
		return nil, err
	}
	kzgCommitment, err := s.commitments.Commit(ctx, vector)
	if err != nil {
		return nil, err
	}
	log.Debugw("draft commitment acquired", "voter", voterID, "commitment", kzgCommitment)
	return s.stg.SetDraft(voterID, merged, kzgCommitment, s.now())
}

// Publish runs the ordered publish preconditions and, if they all hold,
// performs the atomic draft to published transition. Each precondition fails
// with its own error so the caller can tell policy breaches, authorization
// failures and signature failures apart.
func (s *BallotService) Publish(ctx context.Context, voterID string, req *types.PublishRequest) (*types.Ballot, error) {
	if !ballot.WindowOpen(s.now(), s.cfg.VotingEndsAt) {
		return nil, ErrVotingClosed
	}
	b, err := s.stg.Ballot(voterID)
	if err != nil {
		return nil, err
	}
	if b.Published() {
		return nil, storage.ErrAlreadyPublished
	}
	if err := s.cfg.Policy.Validate(b.Votes); err != nil {
		return nil, err
	}
	approved, err := s.attestations.ApprovedVoter(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("check voter approval: %w", err)
	}
	if !approved {
		return nil, ErrUnauthorizedVoter
	}
	// The signed digest must match the digest recomputed from the stored
	// votes; the request hash is never trusted on its own.
	digest, err := ballot.HashVotes(b.Votes)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(digest.String(), req.Message.HashedVotes) {
		return nil, ErrHashMismatch
	}
	addr := common.HexToAddress(voterID)
	ok, err := ethereum.VerifyTypedData(ethereum.BallotTypedData(req.ChainID, req.Message), req.Signature, addr)
	if err != nil || !ok {
		return nil, ErrBallotSignature
	}
	ok, err = ethereum.VerifyTypedData(ethereum.KzgTypedData(req.ChainID, req.KzgMessage), req.KzgSignature, addr)
	if err != nil || !ok {
		return nil, ErrCommitmentSignature
	}
	published, err := s.stg.Publish(voterID, req.Signature, s.now())
	if err != nil {
		return nil, err
	}
	log.Infow("ballot published", "voter", voterID, "publishedAt", published.PublishedAt)
	return published, nil
}
