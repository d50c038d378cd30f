// Package streamdb persists basin streams in Pebble.
//
// # Keyspace
//
// Keys are laid out so that bytewise iteration order equals entry-id order:
//   - ns/{ns}/stream/{name}/m                     (stream metadata)
//   - ns/{ns}/stream/{name}/e/{ms_be8}{seq_be8}   (entries)
//
// Metadata is a fixed 32-byte big-endian record: last-generated id (16),
// entries-added counter (8), live length (8).
//
// # Writes
//
// A Stream serializes id assignment under one mutex: auto ids come from
// stream.NextID against the last generated id, explicit ids must be strictly
// greater than it. Entry value and metadata update commit in one batch, so a
// stored entry and its advancing last-id are never observed apart.
//
// # Reads
//
// Range scans iterate Pebble between encoded boundary ids (inclusive, with
// optional exclusive adjustment) forward or reverse and decode each stored
// value with the stream codec. An optional CEL filter can further narrow
// results for the HTTP search surface.
package streamdb
