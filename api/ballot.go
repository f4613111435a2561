package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/retrozk/ballotd/ballot"
	"github.com/retrozk/ballotd/commitment"
	"github.com/retrozk/ballotd/service"
	"github.com/retrozk/ballotd/storage"
	"github.com/retrozk/ballotd/types"
	"go.vocdoni.io/dvote/log"
)

// ballot retrieves the ballot record of a voter
// GET /ballots/{address}
func (a *API) ballot(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, BallotAddressParam)
	if !common.IsHexAddress(address) {
		ErrMalformedAddress.With(address).Write(w)
		return
	}
	b, err := a.ballots.Ballot(r.Context(), address)
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	httpWriteJSON(w, b)
}

// saveBallot merges the posted votes into the voter's draft
// POST /ballots/{address}
func (a *API) saveBallot(w http.ResponseWriter, r *http.Request) {
	if !a.publishReady {
		ErrArtifactsUnavailable.Write(w)
		return
	}
	address := chi.URLParam(r, BallotAddressParam)
	if !common.IsHexAddress(address) {
		ErrMalformedAddress.With(address).Write(w)
		return
	}
	req := &SaveBallotRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	b, err := a.ballots.Save(r.Context(), address, req.Votes)
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	log.Infow("ballot draft saved", "address", address, "votes", len(b.Votes))
	httpWriteJSON(w, b)
}

// publishBallot performs the one-shot publish transition
// POST /ballots/{address}/publish
func (a *API) publishBallot(w http.ResponseWriter, r *http.Request) {
	if !a.publishReady {
		ErrArtifactsUnavailable.Write(w)
		return
	}
	address := chi.URLParam(r, BallotAddressParam)
	if !common.IsHexAddress(address) {
		ErrMalformedAddress.With(address).Write(w)
		return
	}
	req := &types.PublishRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	b, err := a.ballots.Publish(r.Context(), address, req)
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	httpWriteJSON(w, b)
}

// serviceError maps a ballot service error onto its API error code.
func serviceError(err error) Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrBallotNotFound
	case errors.Is(err, storage.ErrAlreadyPublished):
		return ErrAlreadyPublished
	case errors.Is(err, service.ErrVotingClosed):
		return ErrVotingClosed
	case errors.Is(err, service.ErrUnauthorizedVoter):
		return ErrUnauthorizedVoter
	case errors.Is(err, service.ErrHashMismatch):
		return ErrHashMismatch
	case errors.Is(err, service.ErrBallotSignature):
		return ErrInvalidBallotSignature
	case errors.Is(err, service.ErrCommitmentSignature):
		return ErrInvalidCommitmentSignature
	case errors.Is(err, ballot.ErrPolicyViolation):
		return ErrPolicyViolation.WithErr(err)
	case errors.Is(err, ballot.ErrInvalidVote):
		return ErrInvalidVote.WithErr(err)
	case errors.Is(err, ballot.ErrUnknownProject):
		return ErrUnknownProject.WithErr(err)
	case errors.Is(err, commitment.ErrTimeout):
		return ErrCommitmentTimeout
	case errors.Is(err, commitment.ErrMalformedProof):
		return ErrMalformedProof
	case errors.Is(err, commitment.ErrService):
		return ErrCommitmentService
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
