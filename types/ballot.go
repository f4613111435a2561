package types

import (
	"encoding/json"
	"time"
)

// Vote is a single allocation of voting credits to a project. A ballot holds
// at most one vote per project; later entries for the same project overwrite
// earlier ones. The JSON field order is part of the wire contract: the vote
// digest is computed over this exact serialization.
type Vote struct {
	ProjectID string `json:"projectId" cbor:"0,keyasint"`
	Amount    int64  `json:"amount"    cbor:"1,keyasint"`
}

// Ballot is the persisted record of a voter's draft or published vote set.
// PublishedAt is set at most once; after that the record is immutable.
type Ballot struct {
	VoterID       string     `json:"voterId"                 cbor:"0,keyasint"`
	Votes         []Vote     `json:"votes"                   cbor:"1,keyasint"`
	CreatedAt     time.Time  `json:"createdAt"               cbor:"2,keyasint"`
	UpdatedAt     time.Time  `json:"updatedAt"               cbor:"3,keyasint"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"   cbor:"4,keyasint,omitempty"`
	Signature     HexBytes   `json:"signature,omitempty"     cbor:"5,keyasint,omitempty"`
	KzgCommitment string     `json:"kzgCommitment,omitempty" cbor:"6,keyasint,omitempty"`
}

// Published reports whether the ballot has gone through the one-shot
// draft to published transition.
func (b *Ballot) Published() bool {
	return b != nil && b.PublishedAt != nil
}

func (b *Ballot) String() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	return string(data)
}

// BallotMessage is the EIP-712 "Ballot" message. The field order matches the
// typed-data descriptor; signature verification is order-sensitive.
type BallotMessage struct {
	TotalVotes   *BigInt `json:"total_votes"`
	ProjectCount *BigInt `json:"project_count"`
	HashedVotes  string  `json:"hashed_votes"`
}

// KzgMessage is the EIP-712 "KzgCommitment" message.
type KzgMessage struct {
	KzgCommitment string `json:"kzg_commitment"`
}

// PublishRequest carries both typed-data signatures produced by the wallet:
// one over the vote digest, one over the KZG commitment. It is constructed
// client-side and consumed exactly once by the publish operation.
type PublishRequest struct {
	ChainID      int64         `json:"chainId"`
	Signature    HexBytes      `json:"signature"`
	Message      BallotMessage `json:"message"`
	KzgSignature HexBytes      `json:"kzgSignature"`
	KzgMessage   KzgMessage    `json:"kzgMessage"`
}
