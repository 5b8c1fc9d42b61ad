package tstore

import (
	"sort"
	"time"
)

// Dict keeps values in a hash map and the occupied timestamps in a sorted
// slice. Exact lookups are O(1); inserts and removals shift the slice, O(n).
type Dict[V any] struct {
	values map[time.Time]V
	order  []time.Time
}

// NewDict creates an empty Dict.
func NewDict[V any]() *Dict[V] {
	return &Dict[V]{
		values: map[time.Time]V{},
		order:  []time.Time{},
	}
}

// index of the first timestamp not before ts.
func (d *Dict[V]) search(ts time.Time) int {
	return sort.Search(len(d.order), func(j int) bool {
		return !d.order[j].Before(ts)
	})
}

func (d *Dict[V]) has(ts time.Time) bool {
	_, ok := d.values[ts]
	return ok
}

func (d *Dict[V]) insert(ts time.Time, value V) {
	index := d.search(ts)

	d.order = append(d.order, time.Time{})
	copy(d.order[index+1:], d.order[index:])
	d.order[index] = ts
	d.values[ts] = value
}

func (d *Dict[V]) Add(timestamp time.Time, value V) error {
	k := key(timestamp)
	if d.has(k) {
		return collisionAt(k)
	}
	d.insert(k, value)
	return nil
}

func (d *Dict[V]) AddUnique(timestamp time.Time, value V, maxOffset time.Duration) (time.Time, error) {
	k := key(timestamp)
	slot, ok := probe(k, maxOffset, d.has)
	if !ok {
		return time.Time{}, exhaustedAt(k, maxOffset)
	}
	d.insert(slot, value)
	return slot, nil
}

func (d *Dict[V]) GetValueAt(timestamp time.Time) (V, bool) {
	v, ok := d.values[key(timestamp)]
	return v, ok
}

// bounds returns the half-open slice window [lo, hi) of d.order covering the
// inclusive range [start, end].
func (d *Dict[V]) bounds(start, end time.Time) (int, int) {
	if start.After(end) {
		return 0, 0
	}
	lo := d.search(start)
	hi := sort.Search(len(d.order), func(j int) bool {
		return d.order[j].After(end)
	})
	return lo, hi
}

func (d *Dict[V]) GetEntries(start, end time.Time) []Entry[V] {
	lo, hi := d.bounds(start, end)
	entries := make([]Entry[V], 0, hi-lo)
	for _, ts := range d.order[lo:hi] {
		entries = append(entries, Entry[V]{Timestamp: ts, Value: d.values[ts]})
	}
	return entries
}

func (d *Dict[V]) GetRange(start, end time.Time) []V {
	lo, hi := d.bounds(start, end)
	out := make([]V, 0, hi-lo)
	for _, ts := range d.order[lo:hi] {
		out = append(out, d.values[ts])
	}
	return out
}

func (d *Dict[V]) GetDuration(now time.Time, window time.Duration) []V {
	w := Window(now, window)
	return d.GetRange(w.Min, w.Max)
}

func (d *Dict[V]) GetEarliest() (Entry[V], bool) {
	if len(d.order) == 0 {
		return Entry[V]{}, false
	}
	ts := d.order[0]
	return Entry[V]{Timestamp: ts, Value: d.values[ts]}, true
}

func (d *Dict[V]) GetLatest() (Entry[V], bool) {
	if len(d.order) == 0 {
		return Entry[V]{}, false
	}
	ts := d.order[len(d.order)-1]
	return Entry[V]{Timestamp: ts, Value: d.values[ts]}, true
}

func (d *Dict[V]) GetByWeekday(day time.Weekday, loc *time.Location) []V {
	out := []V{}
	for _, ts := range d.order {
		if onWeekday(ts, day, loc) {
			out = append(out, d.values[ts])
		}
	}
	return out
}

func (d *Dict[V]) Remove(timestamp time.Time) bool {
	k := key(timestamp)
	if !d.has(k) {
		return false
	}

	index := d.search(k)
	if index == len(d.order) || !d.order[index].Equal(k) {
		panic(corrupted("dict: %s is mapped but not in the sorted index", k))
	}

	delete(d.values, k)
	d.order = append(d.order[:index], d.order[index+1:]...)
	return true
}

func (d *Dict[V]) Clear() {
	d.values = map[time.Time]V{}
	d.order = []time.Time{}
}

func (d *Dict[V]) Size() int {
	return len(d.order)
}

func (d *Dict[V]) IsEmpty() bool {
	return len(d.order) == 0
}

func (d *Dict[V]) GetAll() []V {
	out := make([]V, len(d.order))
	for i, ts := range d.order {
		out[i] = d.values[ts]
	}
	return out
}

func (d *Dict[V]) GetTimestamps() []time.Time {
	out := make([]time.Time, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dict[V]) Validate() error {
	if len(d.values) != len(d.order) {
		return corrupted("dict: %d mapped values but %d ordered timestamps", len(d.values), len(d.order))
	}
	for i, ts := range d.order {
		if i > 0 && !d.order[i-1].Before(ts) {
			return corrupted("dict: order broken at %d (%s after %s)", i, d.order[i-1], ts)
		}
		if !d.has(ts) {
			return corrupted("dict: ordered timestamp %s has no value", ts)
		}
	}
	return nil
}
