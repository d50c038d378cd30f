package stream

import (
	"encoding/binary"
	"math"
)

// Entry value encoding: for each field in order, a uvarint length prefix
// followed by the raw bytes. No header, version byte or element count; the
// end of the buffer delimits the payload. This layout is the durable format
// of every stored entry and is frozen for backward compatibility.

// EncodeEntryValue serializes an ordered field/value list into a single byte
// string. The codec is agnostic to field/value pairing; it preserves order
// and exact content, including zero-length elements.
func EncodeEntryValue(fields [][]byte) []byte {
	size := 0
	for _, f := range fields {
		size += binary.MaxVarintLen32 + len(f)
	}
	out := make([]byte, 0, size)
	var tmp [binary.MaxVarintLen32]byte
	for _, f := range fields {
		n := binary.PutUvarint(tmp[:], uint64(len(f)))
		out = append(out, tmp[:n]...)
		out = append(out, f...)
	}
	return out
}

// DecodeEntryValue parses an encoded entry value back into its field list.
// A length prefix that cannot be read, exceeds 32 bits, or claims more bytes
// than remain fails with ErrDecodeEntryValue; a short element is never
// returned truncated.
func DecodeEntryValue(value []byte) ([][]byte, error) {
	fields := [][]byte{}
	for len(value) > 0 {
		l, n := binary.Uvarint(value)
		if n <= 0 || l > math.MaxUint32 {
			return nil, ErrDecodeEntryValue
		}
		value = value[n:]
		if uint64(len(value)) < l {
			return nil, ErrDecodeEntryValue
		}
		fields = append(fields, append([]byte(nil), value[:l]...))
		value = value[l:]
	}
	return fields, nil
}
