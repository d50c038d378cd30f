// Package pebblestore wraps Pebble with basin's fsync policy, batches,
// snapshots, and a minimal metrics hook.
//
// Stream entries are stored one key per entry; correctness of range reads
// depends on Pebble's bytewise key order matching the entry-id order encoded
// by the streamdb key layout.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
package pebblestore
