package ballot

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/retrozk/ballotd/types"
)

func TestEncode(t *testing.T) {
	c := qt.New(t)

	enc := NewEncoder(8)
	projects := []string{"P3", "P1", "P2"}
	votes := []types.Vote{
		{ProjectID: "P2", Amount: 7},
		{ProjectID: "P1", Amount: 5},
	}

	vector, err := enc.Encode(votes, projects)
	c.Assert(err, qt.IsNil)
	// slots assigned in sorted id order: P1, P2, P3, then sentinel padding
	c.Assert(vector, qt.DeepEquals, []int64{5, 7, -1, -1, -1, -1, -1, -1})
}

func TestEncodeUnknownProject(t *testing.T) {
	c := qt.New(t)

	enc := NewEncoder(4)
	_, err := enc.Encode([]types.Vote{{ProjectID: "nope", Amount: 1}}, []string{"P1"})
	c.Assert(err, qt.ErrorIs, ErrUnknownProject)
}

func TestEncodeWidthExceeded(t *testing.T) {
	c := qt.New(t)

	enc := NewEncoder(2)
	_, err := enc.Encode(nil, []string{"P1", "P2", "P3"})
	c.Assert(err, qt.ErrorIs, ErrVectorWidthExceeded)
}

func TestHashVotesDeterministic(t *testing.T) {
	c := qt.New(t)

	votes := []types.Vote{
		{ProjectID: "P2", Amount: 3},
		{ProjectID: "P1", Amount: 5},
	}
	h1, err := HashVotes(votes)
	c.Assert(err, qt.IsNil)
	h2, err := HashVotes(votes)
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.DeepEquals, h2)

	// insertion order matters: the digest is over the list as stored,
	// not a sorted normalization
	reversed := []types.Vote{votes[1], votes[0]}
	h3, err := HashVotes(reversed)
	c.Assert(err, qt.IsNil)
	c.Assert(h3, qt.Not(qt.DeepEquals), h1)
}

func TestHashVotesNoHTMLEscaping(t *testing.T) {
	c := qt.New(t)

	// project ids containing <, > or & must hash over the literal
	// characters, the way JSON.stringify serializes them
	h, err := HashVotes([]types.Vote{{ProjectID: "a<b&c>d", Amount: 1}})
	c.Assert(err, qt.IsNil)
	want := ethcrypto.Keccak256([]byte(`[{"projectId":"a<b&c>d","amount":1}]`))
	c.Assert([]byte(h), qt.DeepEquals, want)
}

func TestMergeVotes(t *testing.T) {
	c := qt.New(t)

	existing := []types.Vote{
		{ProjectID: "P1", Amount: 5},
		{ProjectID: "P2", Amount: 3},
	}
	added := []types.Vote{
		{ProjectID: "P2", Amount: 8},
		{ProjectID: "P3", Amount: 1},
	}
	merged := MergeVotes(existing, added)
	c.Assert(merged, qt.DeepEquals, []types.Vote{
		{ProjectID: "P1", Amount: 5},
		{ProjectID: "P2", Amount: 8},
		{ProjectID: "P3", Amount: 1},
	})

	// merging twice is idempotent
	c.Assert(MergeVotes(merged, added), qt.DeepEquals, merged)
}

func TestPolicyValidate(t *testing.T) {
	c := qt.New(t)

	p := Policy{MaxTotal: 10, MaxProject: 8}

	c.Assert(p.Validate([]types.Vote{{ProjectID: "P1", Amount: 5}}), qt.IsNil)
	c.Assert(p.Validate(nil), qt.IsNil)

	// total cap
	err := p.Validate([]types.Vote{
		{ProjectID: "P1", Amount: 6},
		{ProjectID: "P2", Amount: 6},
	})
	c.Assert(err, qt.ErrorIs, ErrPolicyViolation)

	// per-project cap
	err = p.Validate([]types.Vote{{ProjectID: "P1", Amount: 9}})
	c.Assert(err, qt.ErrorIs, ErrPolicyViolation)
}
