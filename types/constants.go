package types

const (
	// DefaultCircuitWidth is the fixed input width of the commitment circuit.
	// The canonical vote vector always has exactly this many slots; it is a
	// deployment parameter, overridable through the configuration.
	DefaultCircuitWidth = 64
	// DefaultNoVoteSentinel marks a slot with no vote in the canonical vector.
	// The value is coupled to the external circuit and must match it.
	DefaultNoVoteSentinel = -1
	// DefaultCommitmentBytes is the number of leading proof bytes that form
	// the KZG commitment.
	DefaultCommitmentBytes = 64
)
