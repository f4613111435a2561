package ballot

import (
	"errors"
	"fmt"
	"time"

	"github.com/retrozk/ballotd/types"
)

var (
	// ErrPolicyViolation is wrapped by every cap violation returned from
	// Policy.Validate.
	ErrPolicyViolation = errors.New("vote policy violation")
	// ErrInvalidVote is returned when a vote breaks the shape invariants:
	// non-empty project id, amount >= 0.
	ErrInvalidVote = errors.New("invalid vote")
)

// ValidateVotes checks the shape invariants of every vote. A negative amount
// is never a valid allocation: it would collide with the no-vote sentinel in
// the canonical vector and deflate the budget sum.
func ValidateVotes(votes []types.Vote) error {
	for i, v := range votes {
		if v.ProjectID == "" {
			return fmt.Errorf("%w: empty project id at index %d", ErrInvalidVote, i)
		}
		if v.Amount < 0 {
			return fmt.Errorf("%w: negative amount %d for project %q", ErrInvalidVote, v.Amount, v.ProjectID)
		}
	}
	return nil
}

// Policy holds the vote caps of a voting round.
type Policy struct {
	MaxTotal   int64
	MaxProject int64
}

// Validate checks the global budget cap and the per-project cap. Both are
// evaluated and a single error names every cap breached.
func (p Policy) Validate(votes []types.Vote) error {
	var breaches []string
	if sum := SumVotes(votes); sum > p.MaxTotal {
		breaches = append(breaches, fmt.Sprintf("total %d exceeds max total %d", sum, p.MaxTotal))
	}
	for _, v := range votes {
		if v.Amount > p.MaxProject {
			breaches = append(breaches, fmt.Sprintf("project %q amount %d exceeds max per project %d",
				v.ProjectID, v.Amount, p.MaxProject))
			break
		}
	}
	if len(breaches) > 0 {
		return fmt.Errorf("%w: %v", ErrPolicyViolation, breaches)
	}
	return nil
}

// WindowOpen reports whether the voting window is still open at now.
// Equality with the deadline is allowed; anything after is rejected.
func WindowOpen(now, endsAt time.Time) bool {
	return !now.After(endsAt)
}
