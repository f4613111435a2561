package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Record encoding/decoding. Core deterministic options so that identical
// records always encode to identical bytes. Timestamps are stored as
// RFC3339Nano strings: the default time encoding drops sub-second precision,
// which would make a re-read record differ from the one just written.
func encodeRecord(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return em.Marshal(a)
}

func decodeRecord(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}
