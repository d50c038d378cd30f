// Package runtime wires storage, config, and stream handles into a
// single-node basin instance. It owns the Pebble database and hands out one
// shared Stream handle per namespace/stream pair so that id assignment stays
// serialized per stream.
package runtime
