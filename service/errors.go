package service

import "errors"

var (
	// ErrVotingClosed is returned when the voting window deadline has passed.
	ErrVotingClosed = errors.New("voting window closed")
	// ErrUnauthorizedVoter is returned when the voter is not in the approved set.
	ErrUnauthorizedVoter = errors.New("voter not approved")
	// ErrHashMismatch is returned when the hash in the publish request does not
	// match the digest recomputed from the stored votes.
	ErrHashMismatch = errors.New("hashed votes do not match stored votes")
	// ErrBallotSignature is returned when the ballot typed-data signature does
	// not recover to the voter address.
	ErrBallotSignature = errors.New("invalid ballot signature")
	// ErrCommitmentSignature is returned when the commitment typed-data
	// signature does not recover to the voter address.
	ErrCommitmentSignature = errors.New("invalid commitment signature")
)
