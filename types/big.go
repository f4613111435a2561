package types

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt wraps big.Int with decimal-string JSON and CBOR encodings, so that
// uint256-sized values survive clients that cannot represent them as numbers.
type BigInt big.Int

func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

func (i *BigInt) String() string {
	return i.MathBigInt().String()
}

// SetUint64 sets the value to x and returns i for chaining.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	i.MathBigInt().SetUint64(x)
	return i
}

// Equal reports whether i and j represent the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}

func (i *BigInt) MarshalText() ([]byte, error) {
	return i.MathBigInt().MarshalText()
}

func (i *BigInt) UnmarshalText(data []byte) error {
	return i.MathBigInt().UnmarshalText(data)
}

func (i *BigInt) MarshalCBOR() ([]byte, error) {
	text, err := i.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(text))
}

func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var text string
	if err := cbor.Unmarshal(data, &text); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(text))
}
