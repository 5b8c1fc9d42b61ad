package tstore

import (
	"container/heap"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
)

const sortedKey = "sorted"

// entryHeap is a min-heap of entries. index maps every stored timestamp to
// its slot in items and is kept current by Swap, Push and Pop.
type entryHeap[V any] struct {
	items []Entry[V]
	index map[time.Time]int
}

func (h *entryHeap[V]) Len() int { return len(h.items) }
func (h *entryHeap[V]) Less(i, j int) bool {
	return h.items[i].Timestamp.Before(h.items[j].Timestamp)
}
func (h *entryHeap[V]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i].Timestamp] = i
	h.index[h.items[j].Timestamp] = j
}

func (h *entryHeap[V]) Push(x interface{}) {
	e := x.(Entry[V])
	h.index[e.Timestamp] = len(h.items)
	h.items = append(h.items, e)
}

func (h *entryHeap[V]) Pop() interface{} {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = Entry[V]{}
	h.items = old[0 : n-1]
	delete(h.index, e.Timestamp)
	return e
}

// Heap keeps entries in a binary min-heap. Inserts are O(log n) and the
// earliest entry is always at the root. Heap order is only partial, so
// ordered reads sort: the full ascending snapshot is cached until the next
// mutation, and range queries either cut that snapshot or filter the heap and
// sort the matches. GetLatest scans the heap unless the snapshot is cached.
type Heap[V any] struct {
	h      *entryHeap[V]
	sorted *cache.Cache
}

// NewHeap creates an empty Heap.
func NewHeap[V any]() *Heap[V] {
	return &Heap[V]{
		h:      &entryHeap[V]{items: []Entry[V]{}, index: map[time.Time]int{}},
		sorted: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Heap[V]) has(ts time.Time) bool {
	_, ok := s.h.index[ts]
	return ok
}

func (s *Heap[V]) push(ts time.Time, value V) {
	heap.Push(s.h, Entry[V]{Timestamp: ts, Value: value})
	s.sorted.Delete(sortedKey)
}

// cached returns the ascending snapshot if one is current. Callers must not
// modify it.
func (s *Heap[V]) cached() ([]Entry[V], bool) {
	if v, ok := s.sorted.Get(sortedKey); ok {
		return v.([]Entry[V]), true
	}
	return nil, false
}

func (s *Heap[V]) ordered() []Entry[V] {
	if entries, ok := s.cached(); ok {
		return entries
	}
	entries := sortEntries(slices.Clone(s.h.items))
	s.sorted.Set(sortedKey, entries, cache.NoExpiration)
	return entries
}

func sortEntries[V any](entries []Entry[V]) []Entry[V] {
	slices.SortFunc(entries, func(a, b Entry[V]) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return entries
}

func (s *Heap[V]) Add(timestamp time.Time, value V) error {
	k := key(timestamp)
	if s.has(k) {
		return collisionAt(k)
	}
	s.push(k, value)
	return nil
}

func (s *Heap[V]) AddUnique(timestamp time.Time, value V, maxOffset time.Duration) (time.Time, error) {
	k := key(timestamp)
	slot, ok := probe(k, maxOffset, s.has)
	if !ok {
		return time.Time{}, exhaustedAt(k, maxOffset)
	}
	s.push(slot, value)
	return slot, nil
}

func (s *Heap[V]) GetValueAt(timestamp time.Time) (V, bool) {
	i, ok := s.h.index[key(timestamp)]
	if !ok {
		var zero V
		return zero, false
	}
	return s.h.items[i].Value, true
}

func (s *Heap[V]) GetEntries(start, end time.Time) []Entry[V] {
	r := TimeRange{Min: start, Max: end}
	if r.Empty() {
		return []Entry[V]{}
	}

	if entries, ok := s.cached(); ok {
		lo, _ := slices.BinarySearchFunc(entries, start, func(e Entry[V], t time.Time) int {
			return e.Timestamp.Compare(t)
		})
		hi := lo
		for hi < len(entries) && !entries[hi].Timestamp.After(end) {
			hi++
		}
		return slices.Clone(entries[lo:hi])
	}

	matches := []Entry[V]{}
	for _, e := range s.h.items {
		if r.Contains(e.Timestamp) {
			matches = append(matches, e)
		}
	}
	return sortEntries(matches)
}

func (s *Heap[V]) GetRange(start, end time.Time) []V {
	return values(s.GetEntries(start, end))
}

func (s *Heap[V]) GetDuration(now time.Time, window time.Duration) []V {
	w := Window(now, window)
	return s.GetRange(w.Min, w.Max)
}

func (s *Heap[V]) GetEarliest() (Entry[V], bool) {
	if len(s.h.items) == 0 {
		return Entry[V]{}, false
	}
	return s.h.items[0], true
}

func (s *Heap[V]) GetLatest() (Entry[V], bool) {
	if len(s.h.items) == 0 {
		return Entry[V]{}, false
	}
	if entries, ok := s.cached(); ok {
		return entries[len(entries)-1], true
	}

	latest := s.h.items[0]
	for _, e := range s.h.items[1:] {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	return latest, true
}

func (s *Heap[V]) GetByWeekday(day time.Weekday, loc *time.Location) []V {
	out := []V{}
	for _, e := range s.ordered() {
		if onWeekday(e.Timestamp, day, loc) {
			out = append(out, e.Value)
		}
	}
	return out
}

func (s *Heap[V]) Remove(timestamp time.Time) bool {
	k := key(timestamp)
	i, ok := s.h.index[k]
	if !ok {
		return false
	}
	if i >= len(s.h.items) || !s.h.items[i].Timestamp.Equal(k) {
		panic(corrupted("heap: index points %s at slot %d holding another entry", k, i))
	}

	heap.Remove(s.h, i)
	s.sorted.Delete(sortedKey)
	return true
}

func (s *Heap[V]) Clear() {
	s.h.items = []Entry[V]{}
	s.h.index = map[time.Time]int{}
	s.sorted.Delete(sortedKey)
}

func (s *Heap[V]) Size() int {
	return len(s.h.items)
}

func (s *Heap[V]) IsEmpty() bool {
	return len(s.h.items) == 0
}

func (s *Heap[V]) GetAll() []V {
	return values(s.ordered())
}

func (s *Heap[V]) GetTimestamps() []time.Time {
	return timestamps(s.ordered())
}

func (s *Heap[V]) Validate() error {
	items := s.h.items
	if len(items) != len(s.h.index) {
		return corrupted("heap: %d slots but %d indexed timestamps", len(items), len(s.h.index))
	}
	for i, e := range items {
		slot, ok := s.h.index[e.Timestamp]
		if !ok {
			return corrupted("heap: slot %d (%s) missing from index", i, e.Timestamp)
		}
		if slot != i {
			return corrupted("heap: slot %d (%s) indexed at %d", i, e.Timestamp, slot)
		}
		if i > 0 {
			parent := items[(i-1)/2]
			if !parent.Timestamp.Before(e.Timestamp) {
				return corrupted("heap: parent %s not before child %s", parent.Timestamp, e.Timestamp)
			}
		}
	}
	if entries, ok := s.cached(); ok {
		if len(entries) != len(items) {
			return corrupted("heap: stale sorted snapshot (%d of %d entries)", len(entries), len(items))
		}
		for i := 1; i < len(entries); i++ {
			if !entries[i-1].Timestamp.Before(entries[i].Timestamp) {
				return corrupted("heap: sorted snapshot out of order at %d", i)
			}
		}
	}
	return nil
}
