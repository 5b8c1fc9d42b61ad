package tstore

import (
	"time"

	"github.com/tidwall/btree"
)

// Tree keeps entries in a B-tree ordered by timestamp. Inserts, lookups and
// removals are O(log n); ranges seek to the start and visit only the k
// matching entries.
type Tree[V any] struct {
	tree *btree.BTreeG[Entry[V]]
}

// NewTree creates an empty Tree.
func NewTree[V any]() *Tree[V] {
	return &Tree[V]{tree: newEntryTree[V]()}
}

func newEntryTree[V any]() *btree.BTreeG[Entry[V]] {
	// Locking belongs to Concurrent; the tree itself stays lock free.
	return btree.NewBTreeGOptions(func(a, b Entry[V]) bool {
		return a.Timestamp.Before(b.Timestamp)
	}, btree.Options{NoLocks: true})
}

func pivot[V any](ts time.Time) Entry[V] {
	return Entry[V]{Timestamp: ts}
}

func (t *Tree[V]) has(ts time.Time) bool {
	_, ok := t.tree.Get(pivot[V](ts))
	return ok
}

func (t *Tree[V]) Add(timestamp time.Time, value V) error {
	k := key(timestamp)
	if t.has(k) {
		return collisionAt(k)
	}
	t.tree.Set(Entry[V]{Timestamp: k, Value: value})
	return nil
}

func (t *Tree[V]) AddUnique(timestamp time.Time, value V, maxOffset time.Duration) (time.Time, error) {
	k := key(timestamp)
	slot, ok := probe(k, maxOffset, t.has)
	if !ok {
		return time.Time{}, exhaustedAt(k, maxOffset)
	}
	t.tree.Set(Entry[V]{Timestamp: slot, Value: value})
	return slot, nil
}

func (t *Tree[V]) GetValueAt(timestamp time.Time) (V, bool) {
	e, ok := t.tree.Get(pivot[V](key(timestamp)))
	return e.Value, ok
}

// ascend calls fn for every entry in [start, end] in ascending order.
func (t *Tree[V]) ascend(start, end time.Time, fn func(Entry[V])) {
	if start.After(end) {
		return
	}
	t.tree.Ascend(pivot[V](start), func(e Entry[V]) bool {
		if e.Timestamp.After(end) {
			return false
		}
		fn(e)
		return true
	})
}

func (t *Tree[V]) GetEntries(start, end time.Time) []Entry[V] {
	entries := []Entry[V]{}
	t.ascend(start, end, func(e Entry[V]) {
		entries = append(entries, e)
	})
	return entries
}

func (t *Tree[V]) GetRange(start, end time.Time) []V {
	out := []V{}
	t.ascend(start, end, func(e Entry[V]) {
		out = append(out, e.Value)
	})
	return out
}

func (t *Tree[V]) GetDuration(now time.Time, window time.Duration) []V {
	w := Window(now, window)
	return t.GetRange(w.Min, w.Max)
}

func (t *Tree[V]) GetEarliest() (Entry[V], bool) {
	return t.tree.Min()
}

func (t *Tree[V]) GetLatest() (Entry[V], bool) {
	return t.tree.Max()
}

func (t *Tree[V]) GetByWeekday(day time.Weekday, loc *time.Location) []V {
	out := []V{}
	t.tree.Scan(func(e Entry[V]) bool {
		if onWeekday(e.Timestamp, day, loc) {
			out = append(out, e.Value)
		}
		return true
	})
	return out
}

func (t *Tree[V]) Remove(timestamp time.Time) bool {
	_, ok := t.tree.Delete(pivot[V](key(timestamp)))
	return ok
}

func (t *Tree[V]) Clear() {
	t.tree = newEntryTree[V]()
}

func (t *Tree[V]) Size() int {
	return t.tree.Len()
}

func (t *Tree[V]) IsEmpty() bool {
	return t.tree.Len() == 0
}

func (t *Tree[V]) GetAll() []V {
	out := make([]V, 0, t.tree.Len())
	t.tree.Scan(func(e Entry[V]) bool {
		out = append(out, e.Value)
		return true
	})
	return out
}

func (t *Tree[V]) GetTimestamps() []time.Time {
	out := make([]time.Time, 0, t.tree.Len())
	t.tree.Scan(func(e Entry[V]) bool {
		out = append(out, e.Timestamp)
		return true
	})
	return out
}

// Validate walks the tree once; the B-tree keeps its own ordering, so this
// only catches timestamps that were stored without normalisation.
func (t *Tree[V]) Validate() error {
	var err error
	var prev time.Time
	n := 0
	t.tree.Scan(func(e Entry[V]) bool {
		if n > 0 && !prev.Before(e.Timestamp) {
			err = corrupted("tree: %s not after %s", e.Timestamp, prev)
			return false
		}
		if e.Timestamp != key(e.Timestamp) {
			err = corrupted("tree: timestamp %s is not normalised", e.Timestamp)
			return false
		}
		prev = e.Timestamp
		n++
		return true
	})
	if err != nil {
		return err
	}
	if n != t.tree.Len() {
		return corrupted("tree: scanned %d entries but Len is %d", n, t.tree.Len())
	}
	return nil
}
