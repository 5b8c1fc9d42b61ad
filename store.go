// Package tstore stores arbitrary values indexed by timestamp.
//
// Three backends implement Store with different cost profiles:
//
//	Dict  - hash map plus a sorted timestamp slice. O(1) lookup, O(n) insert.
//	Heap  - binary min-heap plus a position index. O(log n) insert, O(1) earliest.
//	Tree  - B-tree ordered by timestamp. O(log n) insert and lookup, O(log n + k) ranges.
//
// None of the backends is safe for concurrent use. Wrap one in a Concurrent
// to share it between goroutines and to block until new data arrives.
//
// Two time.Time values that denote the same instant are the same key, even if
// their locations differ. Timestamps returned by a store are in UTC with the
// monotonic clock reading stripped. Ranges are inclusive on both ends and the
// store never reads the wall clock: rolling windows take "now" from the caller.
package tstore

import (
	"time"
)

// UniqueStep is the distance between timestamps probed by AddUnique.
const UniqueStep = time.Microsecond

// Entry is a value together with the timestamp it is stored at.
type Entry[V any] struct {
	Timestamp time.Time
	Value     V
}

// Store is the capability set shared by every backend and by Concurrent.
type Store[V any] interface {
	// Add stores value at timestamp. It fails with ErrCollision if the
	// instant is already occupied and leaves the stored value untouched.
	Add(timestamp time.Time, value V) error
	// AddUnique stores value at timestamp, or at the first free
	// timestamp+n*UniqueStep with n*UniqueStep <= maxOffset. It returns the
	// timestamp used or ErrOffsetExhausted.
	AddUnique(timestamp time.Time, value V, maxOffset time.Duration) (time.Time, error)

	GetValueAt(timestamp time.Time) (V, bool)
	GetRange(start, end time.Time) []V
	GetDuration(now time.Time, window time.Duration) []V
	GetEntries(start, end time.Time) []Entry[V]
	GetEarliest() (Entry[V], bool)
	GetLatest() (Entry[V], bool)
	// GetByWeekday returns, ascending, the values whose timestamp falls on
	// day in loc. A nil loc means UTC.
	GetByWeekday(day time.Weekday, loc *time.Location) []V

	// Remove reports whether an entry was stored at timestamp.
	Remove(timestamp time.Time) bool
	Clear()

	Size() int
	IsEmpty() bool
	// GetAll and GetTimestamps return ascending snapshots that later
	// mutations do not affect.
	GetAll() []V
	GetTimestamps() []time.Time

	// Validate checks that the lookup and ordering structures agree.
	Validate() error
}

// key normalises a timestamp so that equal instants compare with == and hash
// to the same map bucket.
func key(ts time.Time) time.Time {
	return ts.Round(0).UTC()
}

// probe returns the first timestamp in ts, ts+UniqueStep, ... (offset at most
// maxOffset) for which taken is false.
func probe(ts time.Time, maxOffset time.Duration, taken func(time.Time) bool) (time.Time, bool) {
	for offset := time.Duration(0); ; offset += UniqueStep {
		candidate := ts.Add(offset)
		if !taken(candidate) {
			return candidate, true
		}
		if maxOffset-offset < UniqueStep {
			return time.Time{}, false
		}
	}
}

func onWeekday(ts time.Time, day time.Weekday, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Weekday() == day
}

func values[V any](entries []Entry[V]) []V {
	out := make([]V, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

func timestamps[V any](entries []Entry[V]) []time.Time {
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.Timestamp
	}
	return out
}
