package ballot

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/retrozk/ballotd/types"
)

func TestValidateVotes(t *testing.T) {
	c := qt.New(t)

	c.Assert(ValidateVotes(nil), qt.IsNil)
	c.Assert(ValidateVotes([]types.Vote{
		{ProjectID: "P1", Amount: 0},
		{ProjectID: "P2", Amount: 5},
	}), qt.IsNil)

	// a negative amount is rejected even when it matches the sentinel
	err := ValidateVotes([]types.Vote{{ProjectID: "P1", Amount: -1}})
	c.Assert(err, qt.ErrorIs, ErrInvalidVote)

	err = ValidateVotes([]types.Vote{{ProjectID: "", Amount: 3}})
	c.Assert(err, qt.ErrorIs, ErrInvalidVote)
}

func TestWindowOpen(t *testing.T) {
	c := qt.New(t)

	endsAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Assert(WindowOpen(endsAt.Add(-time.Hour), endsAt), qt.IsTrue)
	// equality with the deadline is still open
	c.Assert(WindowOpen(endsAt, endsAt), qt.IsTrue)
	c.Assert(WindowOpen(endsAt.Add(time.Nanosecond), endsAt), qt.IsFalse)
}
