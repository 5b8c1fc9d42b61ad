package tstore

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fill(t *testing.T, s Store[int], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		// insert out of order so the heap has to sift
		require.NoError(t, s.Add(t0.Add(time.Duration((i*7)%n)*time.Minute), i))
	}
	require.NoError(t, s.Validate())
}

func requireAssertion(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.IsAssertionFailure(err), "not an assertion failure: %v", err)
}

func TestDictValidateDetectsCorruption(t *testing.T) {
	d := NewDict[int]()
	fill(t, d, 10)

	d.order[2], d.order[3] = d.order[3], d.order[2]
	requireAssertion(t, d.Validate())
	d.order[2], d.order[3] = d.order[3], d.order[2]

	delete(d.values, d.order[4])
	requireAssertion(t, d.Validate())
	require.Panics(t, func() {
		// mapped but never ordered
		d.values[t0.Add(-time.Hour)] = 1
		d.Remove(t0.Add(-time.Hour))
	})
}

func TestHeapValidateDetectsCorruption(t *testing.T) {
	h := NewHeap[int]()
	fill(t, h, 20)

	h.h.items[0], h.h.items[5] = h.h.items[5], h.h.items[0]
	requireAssertion(t, h.Validate())
	h.h.items[0], h.h.items[5] = h.h.items[5], h.h.items[0]
	require.NoError(t, h.Validate())

	victim := h.h.items[3].Timestamp
	h.h.index[victim] = 4
	requireAssertion(t, h.Validate())
	require.Panics(t, func() { h.Remove(victim) })
}

func TestHeapValidateMissingIndex(t *testing.T) {
	h := NewHeap[int]()
	fill(t, h, 10)

	// same number of index entries, but one slot is unreachable
	victim := h.h.items[3].Timestamp
	delete(h.h.index, victim)
	h.h.index[t0.Add(-time.Hour)] = 3

	err := h.Validate()
	requireAssertion(t, err)
	require.Contains(t, err.Error(), "slot 3")
	require.Contains(t, err.Error(), "missing from index")
}

func TestHeapSortedSnapshot(t *testing.T) {
	h := NewHeap[int]()
	fill(t, h, 50)

	_, ok := h.cached()
	require.False(t, ok)

	all := h.GetAll()
	_, ok = h.cached()
	require.True(t, ok)

	// cut from the snapshot and filtered from the heap must agree
	fromSnapshot := h.GetEntries(t0.Add(10*time.Minute), t0.Add(20*time.Minute))
	h.sorted.Flush()
	fromHeap := h.GetEntries(t0.Add(10*time.Minute), t0.Add(20*time.Minute))
	require.Equal(t, fromHeap, fromSnapshot)
	require.Len(t, fromHeap, 11)

	h.GetTimestamps()
	require.NoError(t, h.Add(t0.Add(-time.Minute), -1))
	_, ok = h.cached()
	require.False(t, ok, "insert must drop the snapshot")
	require.Equal(t, -1, h.GetAll()[0])
	require.Len(t, all, 50)

	h.GetAll()
	require.True(t, h.Remove(t0))
	_, ok = h.cached()
	require.False(t, ok, "remove must drop the snapshot")

	latest, ok := h.GetLatest()
	require.True(t, ok)
	require.True(t, latest.Timestamp.Equal(t0.Add(49*time.Minute)))
	require.NoError(t, h.Validate())
}

func TestTreeValidate(t *testing.T) {
	tr := NewTree[int]()
	fill(t, tr, 10)

	zone := time.FixedZone("X", 3600)
	tr.tree.Set(Entry[int]{Timestamp: t0.Add(time.Hour).In(zone), Value: 1})
	requireAssertion(t, tr.Validate())
}

func TestProbe(t *testing.T) {
	taken := map[time.Time]bool{t0: true, t0.Add(UniqueStep): true}
	isTaken := func(ts time.Time) bool { return taken[ts] }

	ts, ok := probe(t0, 10*UniqueStep, isTaken)
	require.True(t, ok)
	require.Equal(t, t0.Add(2*UniqueStep), ts)

	_, ok = probe(t0, UniqueStep, isTaken)
	require.False(t, ok)

	ts, ok = probe(t0.Add(time.Hour), 0, isTaken)
	require.True(t, ok)
	require.Equal(t, t0.Add(time.Hour), ts)
}

func TestTimeRange(t *testing.T) {
	r := Window(t0, time.Hour)
	require.True(t, r.Contains(t0))
	require.True(t, r.Contains(t0.Add(-time.Hour)))
	require.False(t, r.Contains(t0.Add(time.Nanosecond)))
	require.False(t, r.Empty())
	require.True(t, Window(t0, -time.Second).Empty())

	var adj TimeRange
	adj.Adjust(t0)
	adj.Adjust(t0.Add(-time.Minute))
	adj.Adjust(t0.Add(time.Minute))
	require.Equal(t, TimeRange{Min: t0.Add(-time.Minute), Max: t0.Add(time.Minute)}, adj)
}
