package streamdb

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/redbasin/basin/internal/stream"
)

func seedEntries(t *testing.T, s *Stream, ids ...stream.EntryID) {
	t.Helper()
	for _, id := range ids {
		req := stream.NewEntryID{MS: id.MS, Seq: id.Seq}
		if _, err := s.Add(context.Background(), AddRequest{ID: &req, Fields: fieldsKV("k", id.String())}); err != nil {
			t.Fatalf("seed %v: %v", id, err)
		}
	}
}

func rangeIDs(t *testing.T, s *Stream, opts RangeOptions) []stream.EntryID {
	t.Helper()
	entries, err := s.Range(context.Background(), opts)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	ids := make([]stream.EntryID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestRangeInclusiveBounds(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s,
		stream.EntryID{MS: 1, Seq: 0},
		stream.EntryID{MS: 2, Seq: 0},
		stream.EntryID{MS: 2, Seq: 1},
		stream.EntryID{MS: 3, Seq: 0},
	)

	ids := rangeIDs(t, s, RangeOptions{Start: stream.EntryID{MS: 2}, End: stream.EntryID{MS: 2, Seq: math.MaxUint64}})
	if len(ids) != 2 || ids[0] != (stream.EntryID{MS: 2, Seq: 0}) || ids[1] != (stream.EntryID{MS: 2, Seq: 1}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestRangeBareMillisecondBoundsCaptureWholeMS(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s,
		stream.EntryID{MS: 5, Seq: 0},
		stream.EntryID{MS: 5, Seq: 7},
		stream.EntryID{MS: 6, Seq: 0},
	)

	start, err := stream.ParseRangeStart("5")
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	end, err := stream.ParseRangeEnd("5")
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	ids := rangeIDs(t, s, RangeOptions{Start: start, End: end})
	if len(ids) != 2 {
		t.Fatalf("want both ms=5 entries, got %v", ids)
	}
}

func TestRangeExclusiveBounds(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s,
		stream.EntryID{MS: 1, Seq: 1},
		stream.EntryID{MS: 2, Seq: 2},
		stream.EntryID{MS: 3, Seq: 3},
	)

	ids := rangeIDs(t, s, RangeOptions{
		Start:        stream.EntryID{MS: 1, Seq: 1},
		End:          stream.EntryID{MS: 3, Seq: 3},
		ExcludeStart: true,
		ExcludeEnd:   true,
	})
	if len(ids) != 1 || ids[0] != (stream.EntryID{MS: 2, Seq: 2}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestRangeReverseAndCount(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s,
		stream.EntryID{MS: 1, Seq: 0},
		stream.EntryID{MS: 2, Seq: 0},
		stream.EntryID{MS: 3, Seq: 0},
	)

	ids := rangeIDs(t, s, RangeOptions{Start: stream.Minimum(), End: stream.Maximum(), Reverse: true, Count: 2})
	if len(ids) != 2 || ids[0] != (stream.EntryID{MS: 3}) || ids[1] != (stream.EntryID{MS: 2}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestRangeEmptyWhenBoundsCross(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s, stream.EntryID{MS: 1, Seq: 0})

	ids := rangeIDs(t, s, RangeOptions{Start: stream.EntryID{MS: 9}, End: stream.EntryID{MS: 3}})
	if len(ids) != 0 {
		t.Fatalf("expected empty result, got %v", ids)
	}
}

func TestRangeSurfacesDecodeCorruption(t *testing.T) {
	s := newTestStream(t)
	seedEntries(t, s, stream.EntryID{MS: 1, Seq: 0})

	// Overwrite the stored value with a dangling length prefix.
	key := KeyStreamEntry("test", "s", stream.EntryID{MS: 1, Seq: 0})
	if err := s.db.Set(key, []byte{0xFF}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_, err := s.Range(context.Background(), RangeOptions{Start: stream.Minimum(), End: stream.Maximum()})
	if !errors.Is(err, stream.ErrDecodeEntryValue) {
		t.Fatalf("expected ErrDecodeEntryValue, got %v", err)
	}
}

func TestRangeDecodesFields(t *testing.T) {
	s := newTestStream(t)
	ctx := context.Background()
	req := stream.NewEntryID{MS: 1, Seq: 1}
	if _, err := s.Add(ctx, AddRequest{ID: &req, Fields: fieldsKV("f1", "v1", "f2", "v2")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	entries, err := s.Range(ctx, RangeOptions{Start: stream.Minimum(), End: stream.Maximum()})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want one entry, got %d", len(entries))
	}
	got := entries[0].Fields
	want := []string{"f1", "v1", "f2", "v2"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Fatalf("field %d = %q want %q", i, got[i], want[i])
		}
	}
}
