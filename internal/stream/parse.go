package stream

import (
	"math"
	"strconv"
	"strings"
)

// NewEntryID is the request form of an id for adding an entry. AnySeq marks
// the "<ms>-*" syntax: the millisecond part is explicit but the sequence must
// be computed at insertion time.
type NewEntryID struct {
	MS     uint64
	Seq    uint64
	AnySeq bool
}

// parseU64 parses a strict base-10 unsigned component: no sign, no spaces,
// no separators.
func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidEntryID
	}
	return v, nil
}

// ParseEntryID parses "<ms>" or "<ms>-<seq>" into an exact id. A bare
// millisecond value defaults the sequence to 0.
func ParseEntryID(input string) (EntryID, error) {
	msPart, seqPart, found := strings.Cut(input, "-")
	ms, err := parseU64(msPart)
	if err != nil {
		return EntryID{}, err
	}
	if !found {
		return EntryID{MS: ms}, nil
	}
	seq, err := parseU64(seqPart)
	if err != nil {
		return EntryID{}, err
	}
	return EntryID{MS: ms, Seq: seq}, nil
}

// ParseNewEntryID parses an add-entry id: like ParseEntryID, but the sequence
// part may be "*" to request auto-assignment at the given millisecond.
func ParseNewEntryID(input string) (NewEntryID, error) {
	msPart, seqPart, found := strings.Cut(input, "-")
	ms, err := parseU64(msPart)
	if err != nil {
		return NewEntryID{}, err
	}
	if !found {
		return NewEntryID{MS: ms}, nil
	}
	if seqPart == "*" {
		return NewEntryID{MS: ms, AnySeq: true}, nil
	}
	seq, err := parseU64(seqPart)
	if err != nil {
		return NewEntryID{}, err
	}
	return NewEntryID{MS: ms, Seq: seq}, nil
}

// ParseRangeStart parses an inclusive lower range bound. A bare millisecond
// defaults to seq=0, the first possible id at that millisecond.
func ParseRangeStart(input string) (EntryID, error) {
	return ParseEntryID(input)
}

// ParseRangeEnd parses an inclusive upper range bound. A bare millisecond
// defaults to seq=MaxUint64 so the bound covers every entry timestamped at
// that millisecond.
func ParseRangeEnd(input string) (EntryID, error) {
	msPart, seqPart, found := strings.Cut(input, "-")
	ms, err := parseU64(msPart)
	if err != nil {
		return EntryID{}, err
	}
	if !found {
		return EntryID{MS: ms, Seq: math.MaxUint64}, nil
	}
	seq, err := parseU64(seqPart)
	if err != nil {
		return EntryID{}, err
	}
	return EntryID{MS: ms, Seq: seq}, nil
}
