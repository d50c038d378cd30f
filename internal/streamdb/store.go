package streamdb

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	"github.com/redbasin/basin/internal/stream"
)

// ErrEntryIDTooSmall is surfaced verbatim to clients adding an explicit id
// that does not advance the stream.
var ErrEntryIDTooSmall = errors.New("The ID specified in XADD is equal or smaller than the target stream top item")

// nowMS is swapped out in tests to pin the clock.
var nowMS = func() uint64 { return uint64(time.Now().UnixMilli()) }

// Meta is the durable per-stream metadata record.
type Meta struct {
	LastID       stream.EntryID
	EntriesAdded uint64
	Length       uint64
}

const metaLen = 32

func encodeMeta(m Meta) []byte {
	b := make([]byte, metaLen)
	binary.BigEndian.PutUint64(b[0:8], m.LastID.MS)
	binary.BigEndian.PutUint64(b[8:16], m.LastID.Seq)
	binary.BigEndian.PutUint64(b[16:24], m.EntriesAdded)
	binary.BigEndian.PutUint64(b[24:32], m.Length)
	return b
}

func decodeMeta(b []byte) (Meta, bool) {
	if len(b) < metaLen {
		return Meta{}, false
	}
	return Meta{
		LastID:       stream.EntryID{MS: binary.BigEndian.Uint64(b[0:8]), Seq: binary.BigEndian.Uint64(b[8:16])},
		EntriesAdded: binary.BigEndian.Uint64(b[16:24]),
		Length:       binary.BigEndian.Uint64(b[24:32]),
	}, true
}

// AddRequest carries the id form of one XADD. A nil ID means full
// auto-assignment ("*"); ID with AnySeq set means "<ms>-*".
type AddRequest struct {
	ID     *stream.NewEntryID
	Fields [][]byte
}

// Entry is one decoded stream entry.
type Entry struct {
	ID     stream.EntryID
	Fields [][]byte
}

// Stream provides ordered append and range operations for one
// namespace/stream pair. All id assignment is serialized under mu; the
// stream core itself is pure and relies on this serialization for its
// strict-increase guarantee.
type Stream struct {
	db        *pebblestore.DB
	namespace string
	name      string

	mu       sync.Mutex
	meta     Meta
	notifyCh chan struct{}
}

// Open initializes a Stream and loads its metadata record, if present.
func Open(db *pebblestore.DB, namespace, name string) (*Stream, error) {
	s := &Stream{db: db, namespace: namespace, name: name, notifyCh: make(chan struct{})}
	raw, err := db.Get(KeyStreamMeta(namespace, name))
	if err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return nil, err
	}
	if m, ok := decodeMeta(raw); ok {
		s.meta = m
	}
	return s, nil
}

// Name returns the stream name.
func (s *Stream) Name() string { return s.name }

// resolveID turns the request id form into the concrete id to insert,
// enforcing strict advancement over the last generated id.
func (s *Stream) resolveID(req *stream.NewEntryID) (stream.EntryID, error) {
	last := s.meta.LastID
	if req == nil {
		return stream.NextID(last, nowMS())
	}
	if req.AnySeq {
		if req.MS < last.MS {
			return stream.EntryID{}, ErrEntryIDTooSmall
		}
		if req.MS == last.MS {
			next, err := stream.Increment(last)
			if err != nil {
				return stream.EntryID{}, err
			}
			if next.MS != req.MS {
				// seq space at this millisecond is exhausted
				return stream.EntryID{}, stream.ErrLastEntryIDReached
			}
			return next, nil
		}
		return stream.EntryID{MS: req.MS}, nil
	}
	id := stream.EntryID{MS: req.MS, Seq: req.Seq}
	if !last.Less(id) {
		return stream.EntryID{}, ErrEntryIDTooSmall
	}
	return id, nil
}

// Add appends one entry and returns its assigned id. The entry value and the
// metadata update commit in a single batch.
func (s *Stream) Add(ctx context.Context, req AddRequest) (stream.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.resolveID(req.ID)
	if err != nil {
		return stream.EntryID{}, err
	}

	meta := s.meta
	meta.LastID = id
	meta.EntriesAdded++
	meta.Length++

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyStreamEntry(s.namespace, s.name, id), stream.EncodeEntryValue(req.Fields), nil); err != nil {
		return stream.EntryID{}, err
	}
	if err := b.Set(KeyStreamMeta(s.namespace, s.name), encodeMeta(meta), nil); err != nil {
		return stream.EntryID{}, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return stream.EntryID{}, err
	}
	s.meta = meta

	// notify waiters
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
	return id, nil
}

// Delete removes the given entries (XDEL) and returns how many existed.
// Duplicate ids in one call count once.
func (s *Stream) Delete(ctx context.Context, ids []stream.EntryID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	seen := make(map[stream.EntryID]struct{}, len(ids))
	var removed uint64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		key := KeyStreamEntry(s.namespace, s.name, id)
		if _, err := s.db.Get(key); err != nil {
			if errors.Is(err, pebblestore.ErrNotFound) {
				continue
			}
			return 0, err
		}
		if err := b.Delete(key, nil); err != nil {
			return 0, err
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}

	meta := s.meta
	meta.Length -= removed
	if err := b.Set(KeyStreamMeta(s.namespace, s.name), encodeMeta(meta), nil); err != nil {
		return 0, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	s.meta = meta
	return removed, nil
}

// Len returns the number of live entries.
func (s *Stream) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Length
}

// LastID returns the last generated entry id.
func (s *Stream) LastID() stream.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.LastID
}

// Info describes the stream for introspection surfaces.
type Info struct {
	Length       uint64
	EntriesAdded uint64
	LastID       stream.EntryID
	FirstEntry   *Entry
	LastEntry    *Entry
}

// Info returns stream metadata together with the first and last live entries.
func (s *Stream) Info(ctx context.Context) (Info, error) {
	s.mu.Lock()
	meta := s.meta
	s.mu.Unlock()

	info := Info{Length: meta.Length, EntriesAdded: meta.EntriesAdded, LastID: meta.LastID}
	if meta.Length == 0 {
		return info, nil
	}

	first, err := s.Range(ctx, RangeOptions{Start: stream.Minimum(), End: stream.Maximum(), Count: 1})
	if err != nil {
		return Info{}, err
	}
	if len(first) > 0 {
		info.FirstEntry = &first[0]
	}
	last, err := s.Range(ctx, RangeOptions{Start: stream.Minimum(), End: stream.Maximum(), Count: 1, Reverse: true})
	if err != nil {
		return Info{}, err
	}
	if len(last) > 0 {
		info.LastEntry = &last[0]
	}
	return info, nil
}

// WaitForAppend blocks until a new entry is added, timeout elapses, or ctx
// is done. A timeout of zero or less means no timeout. Returns true only when
// woken by an append.
func (s *Stream) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	ch := s.notifyCh
	s.mu.Unlock()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-ch:
		return true
	case <-timer:
		return false
	case <-ctx.Done():
		return false
	}
}
