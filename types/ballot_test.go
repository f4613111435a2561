package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)

	b := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"0xdeadbeef"`)

	var out HexBytes
	c.Assert(json.Unmarshal(data, &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, b)

	// unprefixed input is accepted too
	c.Assert(json.Unmarshal([]byte(`"deadbeef"`), &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, b)
}

func TestBigIntMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	jsonBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := json.Marshal(jsonBigInt)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(json.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigIntMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	cborBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := cbor.Marshal(cborBigInt)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(cbor.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigIntEqual(t *testing.T) {
	c := qt.New(t)

	a := (*BigInt)(big.NewInt(42))
	b := (*BigInt)(big.NewInt(42))
	d := (*BigInt)(big.NewInt(43))

	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(a.Equal(d), qt.IsFalse)
	c.Assert(a.Equal(nil), qt.IsFalse)
	c.Assert((*BigInt)(nil).Equal(nil), qt.IsTrue)
}

func TestVoteWireFieldOrder(t *testing.T) {
	c := qt.New(t)

	// The digest contract depends on projectId coming before amount.
	data, err := json.Marshal(Vote{ProjectID: "P1", Amount: 5})
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"projectId":"P1","amount":5}`)
}
