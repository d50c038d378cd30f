package stream

import (
	"fmt"
	"math"
)

// EntryID identifies one stream entry. IDs are totally ordered by (MS, Seq)
// with MS most significant; (0,0) is the minimum and (MaxUint64, MaxUint64)
// the maximum representable id.
type EntryID struct {
	MS  uint64
	Seq uint64
}

// Minimum returns the smallest representable id, (0,0).
func Minimum() EntryID { return EntryID{} }

// Maximum returns the last possible entry id, (MaxUint64, MaxUint64).
func Maximum() EntryID { return EntryID{MS: math.MaxUint64, Seq: math.MaxUint64} }

// IsMinimum reports whether id is (0,0).
func (id EntryID) IsMinimum() bool { return id.MS == 0 && id.Seq == 0 }

// IsMaximum reports whether id is the last possible entry id.
func (id EntryID) IsMaximum() bool { return id.MS == math.MaxUint64 && id.Seq == math.MaxUint64 }

// Compare returns -1, 0 or 1 as id orders before, equal to, or after other.
func (id EntryID) Compare(other EntryID) int {
	switch {
	case id.MS < other.MS:
		return -1
	case id.MS > other.MS:
		return 1
	case id.Seq < other.Seq:
		return -1
	case id.Seq > other.Seq:
		return 1
	}
	return 0
}

// Less reports whether id orders strictly before other.
func (id EntryID) Less(other EntryID) bool { return id.Compare(other) < 0 }

// String renders the client-visible "<ms>-<seq>" form.
func (id EntryID) String() string { return fmt.Sprintf("%d-%d", id.MS, id.Seq) }

// Increment returns the immediate successor of id in total order.
// At (MaxUint64, MaxUint64) there is no successor; the returned id is the
// zero value and must not be used.
func Increment(id EntryID) (EntryID, error) {
	if id.Seq < math.MaxUint64 {
		return EntryID{MS: id.MS, Seq: id.Seq + 1}, nil
	}
	if id.MS < math.MaxUint64 {
		return EntryID{MS: id.MS + 1, Seq: 0}, nil
	}
	return EntryID{}, ErrLastEntryIDReached
}

// NextID returns the id to assign to an entry appended after last, given the
// current wall clock in milliseconds. When the clock has advanced past
// last.MS the id is (nowMS, 0); otherwise (clock regression, or several
// entries within one millisecond) it is the successor of last. Results are
// strictly increasing for any clock behavior as long as callers feed each
// call the previously issued id and serialize calls per stream.
func NextID(last EntryID, nowMS uint64) (EntryID, error) {
	if nowMS > last.MS {
		return EntryID{MS: nowMS, Seq: 0}, nil
	}
	return Increment(last)
}
