package streamdb

import (
	"encoding/binary"

	"github.com/redbasin/basin/internal/stream"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ns/{ns}/stream/{name}/m
// - ns/{ns}/stream/{name}/e/{ms_be8}{seq_be8}

var (
	nsPrefix   = []byte("ns/")
	streamSeg  = []byte("/stream/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

// entryIDLen is the encoded width of an id inside an entry key.
const entryIDLen = 16

func appendEntryID(dst []byte, id stream.EntryID) []byte {
	var b [entryIDLen]byte
	binary.BigEndian.PutUint64(b[:8], id.MS)
	binary.BigEndian.PutUint64(b[8:], id.Seq)
	return append(dst, b[:]...)
}

// entryIDFromKey reads the id back out of an entry key.
func entryIDFromKey(key []byte) stream.EntryID {
	tail := key[len(key)-entryIDLen:]
	return stream.EntryID{
		MS:  binary.BigEndian.Uint64(tail[:8]),
		Seq: binary.BigEndian.Uint64(tail[8:]),
	}
}

// KeyStreamMeta builds the stream metadata key.
func KeyStreamMeta(namespace, name string) []byte {
	k := make([]byte, 0, len(namespace)+len(name)+16)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, streamSeg...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyStreamEntry builds the entry key with a big-endian id for proper ordering.
func KeyStreamEntry(namespace, name string, id stream.EntryID) []byte {
	k := make([]byte, 0, len(namespace)+len(name)+32)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, streamSeg...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	k = appendEntryID(k, id)
	return k
}
