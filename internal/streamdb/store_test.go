package streamdb

import (
	"context"
	"errors"
	"testing"
	"time"

	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	"github.com/redbasin/basin/internal/stream"
)

func newTestStream(t *testing.T) *Stream {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := Open(db, "test", "s")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	return s
}

func pinClock(t *testing.T, ms uint64) {
	t.Helper()
	prev := nowMS
	nowMS = func() uint64 { return ms }
	t.Cleanup(func() { nowMS = prev })
}

func fieldsKV(kv ...string) [][]byte {
	out := make([][]byte, len(kv))
	for i, s := range kv {
		out[i] = []byte(s)
	}
	return out
}

func TestAddAutoIDAdvancesWithClock(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	pinClock(t, 1000)
	id1, err := s.Add(ctx, AddRequest{Fields: fieldsKV("f1", "v1")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id1 != (stream.EntryID{MS: 1000, Seq: 0}) {
		t.Fatalf("got %v want 1000-0", id1)
	}

	// same millisecond -> sequence bump
	id2, err := s.Add(ctx, AddRequest{Fields: fieldsKV("f2", "v2")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id2 != (stream.EntryID{MS: 1000, Seq: 1}) {
		t.Fatalf("got %v want 1000-1", id2)
	}

	// clock regression is absorbed
	pinClock(t, 900)
	id3, err := s.Add(ctx, AddRequest{Fields: fieldsKV("f3", "v3")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !id2.Less(id3) {
		t.Fatalf("id %v did not advance past %v", id3, id2)
	}
}

func TestAddExplicitIDMustAdvance(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	req := &stream.NewEntryID{MS: 5, Seq: 5}
	if _, err := s.Add(ctx, AddRequest{ID: req, Fields: fieldsKV("a", "1")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	for _, bad := range []stream.NewEntryID{{MS: 5, Seq: 5}, {MS: 5, Seq: 4}, {MS: 4, Seq: 9}} {
		bad := bad
		if _, err := s.Add(ctx, AddRequest{ID: &bad, Fields: fieldsKV("a", "1")}); !errors.Is(err, ErrEntryIDTooSmall) {
			t.Fatalf("id %v-%v: expected ErrEntryIDTooSmall, got %v", bad.MS, bad.Seq, err)
		}
	}

	if _, err := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 5, Seq: 6}, Fields: fieldsKV("a", "1")}); err != nil {
		t.Fatalf("add 5-6: %v", err)
	}
}

func TestAddAnySeqResolvesAtMillisecond(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	id, err := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 100, AnySeq: true}, Fields: fieldsKV("a", "1")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != (stream.EntryID{MS: 100, Seq: 0}) {
		t.Fatalf("got %v want 100-0", id)
	}

	id, err = s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 100, AnySeq: true}, Fields: fieldsKV("a", "2")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != (stream.EntryID{MS: 100, Seq: 1}) {
		t.Fatalf("got %v want 100-1", id)
	}

	if _, err := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 99, AnySeq: true}, Fields: fieldsKV("a", "3")}); !errors.Is(err, ErrEntryIDTooSmall) {
		t.Fatalf("expected ErrEntryIDTooSmall, got %v", err)
	}
}

func TestAddReloadsMetaAcrossReopen(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	s, err := Open(db, "test", "s")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	want, err := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 10, Seq: 3}, Fields: fieldsKV("a", "1")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	s2, err := Open(db, "test", "s")
	if err != nil {
		t.Fatalf("reopen stream: %v", err)
	}
	if s2.LastID() != want {
		t.Fatalf("reloaded last id %v want %v", s2.LastID(), want)
	}
	if s2.Len() != 1 {
		t.Fatalf("reloaded length %d want 1", s2.Len())
	}
}

func TestDeleteUpdatesLength(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	id1, _ := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 1, Seq: 1}, Fields: fieldsKV("a", "1")})
	id2, _ := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 2, Seq: 2}, Fields: fieldsKV("b", "2")})

	removed, err := s.Delete(ctx, []stream.EntryID{id1, {MS: 9, Seq: 9}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d want 1", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("length %d want 1", s.Len())
	}
	// last generated id survives deletion
	if s.LastID() != id2 {
		t.Fatalf("last id %v want %v", s.LastID(), id2)
	}
}

func TestInfoFirstLastEntries(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	first, _ := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 1, Seq: 0}, Fields: fieldsKV("k", "first")})
	_, _ = s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 2, Seq: 0}, Fields: fieldsKV("k", "mid")})
	last, _ := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 3, Seq: 0}, Fields: fieldsKV("k", "last")})

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Length != 3 || info.EntriesAdded != 3 {
		t.Fatalf("unexpected counters: %+v", info)
	}
	if info.FirstEntry == nil || info.FirstEntry.ID != first {
		t.Fatalf("first entry = %+v want id %v", info.FirstEntry, first)
	}
	if info.LastEntry == nil || info.LastEntry.ID != last {
		t.Fatalf("last entry = %+v want id %v", info.LastEntry, last)
	}
	if info.LastID != last {
		t.Fatalf("last id %v want %v", info.LastID, last)
	}
}

func TestWaitForAppendWakesOnAdd(t *testing.T) {
	s := newTestStream(t)

	done := make(chan bool, 1)
	go func() { done <- s.WaitForAppend(context.Background(), 0) }()

	if _, err := s.Add(context.Background(), AddRequest{ID: &stream.NewEntryID{MS: 1, Seq: 1}, Fields: fieldsKV("a", "1")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if woke := <-done; !woke {
		t.Fatalf("expected wake on append")
	}
}

func TestWaitForAppendReturnsOnContextCancel(t *testing.T) {
	s := newTestStream(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- s.WaitForAppend(ctx, 0) }()

	cancel()
	select {
	case woke := <-done:
		if woke {
			t.Fatalf("canceled wait reported an append")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not return after cancel")
	}
}

func TestDeleteCountsDuplicateIDsOnce(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()

	id := stream.EntryID{MS: 1, Seq: 1}
	if _, err := s.Add(ctx, AddRequest{ID: &stream.NewEntryID{MS: 1, Seq: 1}, Fields: fieldsKV("k", "v")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := s.Delete(ctx, []stream.EntryID{id, id})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d want 1", removed)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("length %d want 0", got)
	}
}
