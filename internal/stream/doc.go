// Package stream implements the entry identifier model and the on-disk
// value encoding for basin streams.
//
// # Identifiers
//
// Every entry is keyed by an EntryID, an ordered (ms, seq) pair compared
// lexicographically with ms most significant. IDs are either supplied by the
// client as text ("<ms>", "<ms>-<seq>" or "<ms>-*") or auto-assigned from the
// wall clock via NextID, which stays strictly increasing even when the clock
// does not (regressions and same-millisecond bursts fall back to a sequence
// bump on the last issued id).
//
// # Value encoding
//
// An entry's field/value list is stored as a single opaque byte string: each
// element is written as a uvarint length prefix followed by the raw bytes, in
// order, with no overall header. The encoding is frozen; it is the durable
// representation of every stored entry, so DecodeEntryValue must round-trip
// every legal payload byte-exactly, including empty lists and empty elements.
//
// All functions here are pure and safe for concurrent use; callers that need
// ordered id assignment (one writer per stream) must serialize themselves.
package stream
