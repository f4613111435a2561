// Package ballot implements the canonical encoding of a vote set: the
// fixed-width numeric vector submitted to the proving service and the
// deterministic digest that both client and server recompute independently.
package ballot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/retrozk/ballotd/types"
)

var (
	// ErrUnknownProject is returned when a vote references a project id that
	// is not in the approved-project set.
	ErrUnknownProject = errors.New("unknown project")
	// ErrVectorWidthExceeded is returned when the approved-project set does
	// not fit in the circuit width. Silently dropping slots is not allowed.
	ErrVectorWidthExceeded = errors.New("project set exceeds circuit width")
)

// Encoder builds canonical vote vectors for a fixed circuit width. Width and
// Sentinel are deployment parameters coupled to the external circuit.
type Encoder struct {
	Width    int
	Sentinel int64
}

// NewEncoder returns an Encoder with the given circuit width and the default
// no-vote sentinel.
func NewEncoder(width int) *Encoder {
	return &Encoder{Width: width, Sentinel: types.DefaultNoVoteSentinel}
}

// Encode maps the vote list onto the canonical fixed-width vector. Slot
// indices are assigned by lexicographic project-id order; slots without a
// vote hold the sentinel, as do trailing slots beyond the project count.
func (e *Encoder) Encode(votes []types.Vote, projectIDs []string) ([]int64, error) {
	if len(projectIDs) > e.Width {
		return nil, fmt.Errorf("%w: %d projects, width %d", ErrVectorWidthExceeded, len(projectIDs), e.Width)
	}
	sorted := make([]string, len(projectIDs))
	copy(sorted, projectIDs)
	sort.Strings(sorted)

	slots := make(map[string]int, len(sorted))
	for i, id := range sorted {
		slots[id] = i
	}

	vector := make([]int64, e.Width)
	for i := range vector {
		vector[i] = e.Sentinel
	}
	for _, v := range votes {
		idx, ok := slots[v.ProjectID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProject, v.ProjectID)
		}
		vector[idx] = v.Amount
	}
	return vector, nil
}

// HashVotes returns the keccak256 digest of the vote list serialized as JSON
// in insertion order. The serialization matches JSON.stringify on the client,
// so both sides derive the same digest from the same draft: no HTML escaping
// of <, > and &, which json.Marshal would apply. Deterministic for identical
// input; load-bearing for hash binding and replay detection.
func HashVotes(votes []types.Vote) (types.HexBytes, error) {
	if votes == nil {
		votes = []types.Vote{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(votes); err != nil {
		return nil, fmt.Errorf("serialize votes: %w", err)
	}
	// Encode appends a trailing newline that JSON.stringify does not produce
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return ethcrypto.Keccak256(data), nil
}

// MergeVotes merges added votes into existing ones with object semantics: one
// entry per project id, positioned at its first occurrence, holding the most
// recent amount.
func MergeVotes(existing, added []types.Vote) []types.Vote {
	index := make(map[string]int, len(existing)+len(added))
	var merged []types.Vote
	for _, v := range append(append([]types.Vote{}, existing...), added...) {
		if i, ok := index[v.ProjectID]; ok {
			merged[i].Amount = v.Amount
			continue
		}
		index[v.ProjectID] = len(merged)
		merged = append(merged, v)
	}
	return merged
}

// SumVotes returns the total amount allocated across all votes.
func SumVotes(votes []types.Vote) int64 {
	var sum int64
	for _, v := range votes {
		sum += v.Amount
	}
	return sum
}
