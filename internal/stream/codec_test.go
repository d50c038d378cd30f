package stream

import (
	"bytes"
	"errors"
	"testing"
)

func TestCodecRoundtrip(t *testing.T) {
	cases := [][][]byte{
		{},
		{[]byte("f1"), []byte("v1"), []byte("f2"), []byte("v2")},
		{[]byte("")},
		{[]byte(""), []byte("x"), []byte("")},
		{[]byte("a single long value with spaces and \x00 bytes")},
		{bytes.Repeat([]byte{0xAB}, 1<<16)},
	}
	for _, fields := range cases {
		enc := EncodeEntryValue(fields)
		dec, err := DecodeEntryValue(enc)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(dec) != len(fields) {
			t.Fatalf("got %d fields, want %d", len(dec), len(fields))
		}
		for i := range fields {
			if !bytes.Equal(dec[i], fields[i]) {
				t.Fatalf("field %d mismatch: %q vs %q", i, dec[i], fields[i])
			}
		}
	}
}

func TestDecodeEmptyValue(t *testing.T) {
	fields, err := DecodeEntryValue(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("expected no fields, got %d", len(fields))
	}
}

func TestDecodeTruncatedElement(t *testing.T) {
	enc := EncodeEntryValue([][]byte{[]byte("hello")})
	if _, err := DecodeEntryValue(enc[:len(enc)-1]); !errors.Is(err, ErrDecodeEntryValue) {
		t.Fatalf("expected ErrDecodeEntryValue, got %v", err)
	}
}

func TestDecodeOverclaimingPrefix(t *testing.T) {
	// Length prefix claims 100 bytes, only 3 remain.
	buf := append([]byte{100}, 'a', 'b', 'c')
	if _, err := DecodeEntryValue(buf); !errors.Is(err, ErrDecodeEntryValue) {
		t.Fatalf("expected ErrDecodeEntryValue, got %v", err)
	}
}

func TestDecodeDanglingPrefix(t *testing.T) {
	// A continuation bit with no following byte is an unreadable prefix.
	if _, err := DecodeEntryValue([]byte{0x80}); !errors.Is(err, ErrDecodeEntryValue) {
		t.Fatalf("expected ErrDecodeEntryValue, got %v", err)
	}
}

func TestEncodeAppendsInOrder(t *testing.T) {
	enc := EncodeEntryValue([][]byte{[]byte("ab"), []byte("c")})
	want := []byte{2, 'a', 'b', 1, 'c'}
	if !bytes.Equal(enc, want) {
		t.Fatalf("got % x, want % x", enc, want)
	}
}
