package api

import "github.com/retrozk/ballotd/types"

// SaveBallotRequest is the body of a draft save: the votes to merge into the
// current draft.
type SaveBallotRequest struct {
	Votes []types.Vote `json:"votes"`
}
