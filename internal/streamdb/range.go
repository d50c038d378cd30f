package streamdb

import (
	"context"

	"github.com/cockroachdb/pebble"

	"github.com/redbasin/basin/internal/stream"
)

// RangeOptions selects entries between two inclusive boundary ids. Exclusive
// flags implement the Redis "(" bound syntax. Count of 0 means unlimited.
type RangeOptions struct {
	Start        stream.EntryID
	End          stream.EntryID
	ExcludeStart bool
	ExcludeEnd   bool
	Count        uint64
	Reverse      bool
}

// effectiveBounds narrows inclusive bounds for exclusive flags. The second
// return is false when the adjusted range is provably empty.
func effectiveBounds(opts RangeOptions) (stream.EntryID, stream.EntryID, bool) {
	start, end := opts.Start, opts.End
	if opts.ExcludeStart {
		next, err := stream.Increment(start)
		if err != nil {
			return start, end, false
		}
		start = next
	}
	if opts.ExcludeEnd {
		if end.IsMinimum() {
			return start, end, false
		}
		if end.Seq > 0 {
			end.Seq--
		} else {
			end.MS--
			end.Seq = ^uint64(0)
		}
	}
	if end.Less(start) {
		return start, end, false
	}
	return start, end, true
}

// Range scans stored entries between the boundary ids. Storage iteration
// order matches entry-id order, so results come back sorted (descending when
// Reverse is set). Stored values that fail to decode abort the scan with
// stream.ErrDecodeEntryValue.
func (s *Stream) Range(ctx context.Context, opts RangeOptions) ([]Entry, error) {
	start, end, ok := effectiveBounds(opts)
	if !ok {
		return nil, nil
	}

	low := KeyStreamEntry(s.namespace, s.name, start)
	// UpperBound is exclusive; one zero byte past the inclusive end key.
	hi := append(KeyStreamEntry(s.namespace, s.name, end), 0x00)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	advance := iter.Next
	valid := iter.First()
	if opts.Reverse {
		advance = iter.Prev
		valid = iter.Last()
	}
	for ; valid; valid = advance() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := stream.DecodeEntryValue(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{ID: entryIDFromKey(iter.Key()), Fields: fields})
		if opts.Count > 0 && uint64(len(out)) >= opts.Count {
			break
		}
	}
	return out, nil
}
