// Package storetest holds the behaviour every tstore.Store must share. Each
// backend test calls Run with its own constructor.
package storetest

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hoyle1974/tstore"
	"github.com/hoyle1974/tstore/misc"
	"github.com/stretchr/testify/require"
)

type Factory func() tstore.Store[string]

// Base is the reference instant used by the fixed scenarios.
var Base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("HourlyScenario", func(t *testing.T) { testHourlyScenario(t, newStore()) })
	t.Run("Collision", func(t *testing.T) { testCollision(t, newStore()) })
	t.Run("UniqueExhausted", func(t *testing.T) { testUniqueExhausted(t, newStore()) })
	t.Run("UniqueDeterministic", func(t *testing.T) { testUniqueDeterministic(t, newStore) })
	t.Run("Ordering", func(t *testing.T) { testOrdering(t, newStore()) })
	t.Run("Consistency", func(t *testing.T) { testConsistency(t, newStore()) })
	t.Run("Ranges", func(t *testing.T) { testRanges(t, newStore()) })
	t.Run("EarliestLatest", func(t *testing.T) { testEarliestLatest(t, newStore()) })
	t.Run("Duration", func(t *testing.T) { testDuration(t, newStore()) })
	t.Run("Weekday", func(t *testing.T) { testWeekday(t, newStore()) })
	t.Run("Snapshots", func(t *testing.T) { testSnapshots(t, newStore()) })
	t.Run("EqualInstants", func(t *testing.T) { testEqualInstants(t, newStore()) })
	t.Run("Clear", func(t *testing.T) { testClear(t, newStore()) })
}

func hourly(t *testing.T, s tstore.Store[string]) {
	t.Helper()
	require.NoError(t, s.Add(Base, "A"))
	require.NoError(t, s.Add(Base.Add(time.Hour), "B"))
	require.NoError(t, s.Add(Base.Add(2*time.Hour), "C"))
}

func testHourlyScenario(t *testing.T, s tstore.Store[string]) {
	hourly(t, s)

	require.Equal(t, []string{"B"}, s.GetRange(Base.Add(30*time.Minute), Base.Add(90*time.Minute)))
	require.True(t, s.Remove(Base.Add(time.Hour)))
	require.False(t, s.Remove(Base.Add(time.Hour)))
	require.Equal(t, []string{"A", "C"}, s.GetAll())
	require.Equal(t, 2, s.Size())
	require.NoError(t, s.Validate())
}

func testCollision(t *testing.T, s tstore.Store[string]) {
	require.NoError(t, s.Add(Base, "x"))

	err := s.Add(Base, "y")
	require.Error(t, err)
	require.True(t, errors.Is(err, tstore.ErrCollision))

	v, ok := s.GetValueAt(Base)
	require.True(t, ok)
	require.Equal(t, "x", v)

	ts, err := s.AddUnique(Base, "y", 5*tstore.UniqueStep)
	require.NoError(t, err)
	require.True(t, ts.Equal(Base.Add(tstore.UniqueStep)), "got %v", ts)

	v, ok = s.GetValueAt(ts)
	require.True(t, ok)
	require.Equal(t, "y", v)
	require.Equal(t, 2, s.Size())

	// A free timestamp is used as is, whatever the bound.
	free := Base.Add(time.Minute)
	ts, err = s.AddUnique(free, "z", 0)
	require.NoError(t, err)
	require.True(t, ts.Equal(free))
	require.NoError(t, s.Validate())
}

func testUniqueExhausted(t *testing.T, s tstore.Store[string]) {
	for i := 0; i <= 5; i++ {
		require.NoError(t, s.Add(Base.Add(time.Duration(i)*tstore.UniqueStep), "taken"))
	}

	_, err := s.AddUnique(Base, "z", 5*tstore.UniqueStep)
	require.True(t, errors.Is(err, tstore.ErrOffsetExhausted), "got %v", err)
	require.Equal(t, 6, s.Size())

	_, err = s.AddUnique(Base, "z", -time.Second)
	require.True(t, errors.Is(err, tstore.ErrOffsetExhausted), "got %v", err)

	// A bound that is not a whole number of steps rounds down.
	_, err = s.AddUnique(Base, "z", 6*tstore.UniqueStep-time.Nanosecond)
	require.True(t, errors.Is(err, tstore.ErrOffsetExhausted), "got %v", err)

	ts, err := s.AddUnique(Base, "z", 6*tstore.UniqueStep)
	require.NoError(t, err)
	require.True(t, ts.Equal(Base.Add(6*tstore.UniqueStep)))
	require.NoError(t, s.Validate())
}

func testUniqueDeterministic(t *testing.T, newStore Factory) {
	fill := func() tstore.Store[string] {
		s := newStore()
		for _, n := range []int{0, 1, 3, 4} {
			require.NoError(t, s.Add(Base.Add(time.Duration(n)*tstore.UniqueStep), "taken"))
		}
		return s
	}

	a, b := fill(), fill()
	tsA, err := a.AddUnique(Base, "new", time.Second)
	require.NoError(t, err)
	tsB, err := b.AddUnique(Base, "new", time.Second)
	require.NoError(t, err)

	require.True(t, tsA.Equal(tsB))
	require.True(t, tsA.Equal(Base.Add(2*tstore.UniqueStep)), "got %v", tsA)

	// The next call on the same store moves on to the next gap.
	next, err := a.AddUnique(Base, "newer", time.Second)
	require.NoError(t, err)
	require.True(t, next.Equal(Base.Add(5*tstore.UniqueStep)), "got %v", next)
}

// populate adds n random entries and returns the model of what was stored.
func populate(t *testing.T, s tstore.Store[string], rng *rand.Rand, n int) map[time.Time]string {
	t.Helper()
	model := map[time.Time]string{}
	for i := 0; i < n; i++ {
		ts, err := misc.RandomTimeBetweenWith(rng.Int63n, Base, Base.Add(24*time.Hour))
		require.NoError(t, err)
		ts = ts.Truncate(time.Second) // force some collisions
		v := uuid.NewString()

		err = s.Add(ts, v)
		if _, exists := model[ts]; exists {
			require.True(t, errors.Is(err, tstore.ErrCollision))
			continue
		}
		require.NoError(t, err)
		model[ts] = v
	}
	return model
}

func sortedKeys(model map[time.Time]string) []time.Time {
	keys := make([]time.Time, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b time.Time) int { return a.Compare(b) })
	return keys
}

func requireMatches(t *testing.T, s tstore.Store[string], model map[time.Time]string) {
	t.Helper()
	require.NoError(t, s.Validate())

	keys := sortedKeys(model)
	got := s.GetTimestamps()
	require.Len(t, got, len(keys))
	for i := range keys {
		require.True(t, keys[i].Equal(got[i]), "timestamp %d: want %v got %v", i, keys[i], got[i])
	}

	all := s.GetAll()
	require.Len(t, all, len(keys))
	for i, k := range keys {
		require.Equal(t, model[k], all[i])
		v, ok := s.GetValueAt(k)
		require.True(t, ok)
		require.Equal(t, model[k], v)
	}
	require.Equal(t, len(model), s.Size())
	require.Equal(t, len(model) == 0, s.IsEmpty())
}

func testOrdering(t *testing.T, s tstore.Store[string]) {
	model := populate(t, s, rand.New(rand.NewSource(1)), 2000)

	ts := s.GetTimestamps()
	for i := 1; i < len(ts); i++ {
		require.True(t, ts[i-1].Before(ts[i]), "not ascending at %d", i)
	}
	requireMatches(t, s, model)
}

func testConsistency(t *testing.T, s tstore.Store[string]) {
	rng := rand.New(rand.NewSource(2))
	model := populate(t, s, rng, 500)

	keys := sortedKeys(model)
	for i, k := range keys {
		if i%3 != 0 {
			continue
		}
		require.True(t, s.Remove(k))
		delete(model, k)

		// removing again, or something never stored, finds nothing
		require.False(t, s.Remove(k))
		_, ok := s.GetValueAt(k)
		require.False(t, ok)
	}
	require.False(t, s.Remove(Base.Add(-time.Hour)))
	requireMatches(t, s, model)

	for k, v := range populate(t, s, rng, 200) {
		if _, exists := model[k]; !exists {
			model[k] = v
		}
	}
	requireMatches(t, s, model)
}

func testRanges(t *testing.T, s tstore.Store[string]) {
	rng := rand.New(rand.NewSource(3))
	model := populate(t, s, rng, 1000)
	keys := sortedKeys(model)

	check := func(start, end time.Time) {
		want := []string{}
		wantTs := []time.Time{}
		for _, k := range keys {
			if !k.Before(start) && !k.After(end) {
				want = append(want, model[k])
				wantTs = append(wantTs, k)
			}
		}
		require.Equal(t, want, s.GetRange(start, end), "range [%v, %v]", start, end)

		entries := s.GetEntries(start, end)
		require.Len(t, entries, len(wantTs))
		for i, e := range entries {
			require.True(t, wantTs[i].Equal(e.Timestamp))
			require.Equal(t, want[i], e.Value)
		}
	}

	for i := 0; i < 200; i++ {
		a, _ := misc.RandomTimeBetweenWith(rng.Int63n, Base.Add(-time.Hour), Base.Add(25*time.Hour))
		b, _ := misc.RandomTimeBetweenWith(rng.Int63n, a, Base.Add(25*time.Hour))
		check(a, b)
	}

	// bounds are inclusive on both ends
	check(keys[10], keys[20])
	require.Len(t, s.GetRange(keys[10], keys[20]), 11)
	require.Equal(t, []string{model[keys[5]]}, s.GetRange(keys[5], keys[5]))

	// an inverted range is empty rather than an error
	require.Empty(t, s.GetRange(keys[20], keys[10]))
	require.Empty(t, s.GetEntries(keys[20], keys[10]))
}

func testEarliestLatest(t *testing.T, s tstore.Store[string]) {
	_, ok := s.GetEarliest()
	require.False(t, ok)
	_, ok = s.GetLatest()
	require.False(t, ok)

	model := populate(t, s, rand.New(rand.NewSource(4)), 300)
	keys := sortedKeys(model)

	check := func() {
		first, ok := s.GetEarliest()
		require.True(t, ok)
		require.True(t, keys[0].Equal(first.Timestamp))
		require.Equal(t, model[keys[0]], first.Value)

		last, ok := s.GetLatest()
		require.True(t, ok)
		require.True(t, keys[len(keys)-1].Equal(last.Timestamp))
		require.Equal(t, model[keys[len(keys)-1]], last.Value)
	}
	check()

	// drop both ends and make sure neither is reported again
	require.True(t, s.Remove(keys[0]))
	require.True(t, s.Remove(keys[len(keys)-1]))
	delete(model, keys[0])
	delete(model, keys[len(keys)-1])
	keys = keys[1 : len(keys)-1]
	check()

	require.NoError(t, s.Add(Base.Add(-time.Hour), "earliest"))
	model[Base.Add(-time.Hour)] = "earliest"
	keys = sortedKeys(model)
	check()
}

func testDuration(t *testing.T, s tstore.Store[string]) {
	hourly(t, s)
	now := Base.Add(2 * time.Hour)

	require.Equal(t, []string{"B", "C"}, s.GetDuration(now, time.Hour))
	require.Equal(t, []string{"A", "B", "C"}, s.GetDuration(now, 2*time.Hour))
	require.Equal(t, []string{"C"}, s.GetDuration(now, 0))
	require.Empty(t, s.GetDuration(now, -time.Minute))
	require.Empty(t, s.GetDuration(Base.Add(-time.Minute), 30*time.Minute))
}

func testWeekday(t *testing.T, s tstore.Store[string]) {
	// Base is a Friday noon in UTC
	require.NoError(t, s.Add(Base.Add(7*24*time.Hour), "next-fri"))
	require.NoError(t, s.Add(Base.Add(36*time.Hour), "sun"))
	require.NoError(t, s.Add(Base, "fri"))
	require.NoError(t, s.Add(Base.Add(24*time.Hour), "sat"))
	require.NoError(t, s.Add(Base.Add(12*time.Hour), "fri-late"))

	est := time.FixedZone("EST", -5*60*60)

	require.Equal(t, []string{"fri", "next-fri"}, s.GetByWeekday(time.Friday, time.UTC))
	require.Equal(t, []string{"fri", "fri-late", "next-fri"}, s.GetByWeekday(time.Friday, est))
	require.Equal(t, []string{"fri-late", "sat"}, s.GetByWeekday(time.Saturday, time.UTC))
	require.Equal(t, []string{"sat", "sun"}, s.GetByWeekday(time.Saturday, est))
	require.Equal(t, []string{"sun"}, s.GetByWeekday(time.Sunday, nil))
	require.Empty(t, s.GetByWeekday(time.Monday, time.UTC))

	require.True(t, s.Remove(Base))
	require.Equal(t, []string{"next-fri"}, s.GetByWeekday(time.Friday, nil))
	require.NoError(t, s.Validate())
}

func testSnapshots(t *testing.T, s tstore.Store[string]) {
	hourly(t, s)

	all := s.GetAll()
	ts := s.GetTimestamps()
	entries := s.GetEntries(Base, Base.Add(2*time.Hour))
	rng := s.GetRange(Base, Base.Add(2*time.Hour))

	all[0] = "mutated"
	ts[0] = time.Time{}
	entries[0].Value = "mutated"
	rng[0] = "mutated"

	require.True(t, s.Remove(Base.Add(time.Hour)))
	require.NoError(t, s.Add(Base.Add(3*time.Hour), "D"))

	require.Equal(t, []string{"A", "C", "D"}, s.GetAll())
	require.True(t, s.GetTimestamps()[0].Equal(Base))
	require.Equal(t, "A", s.GetEntries(Base, Base)[0].Value)

	// earlier snapshots did not see the later mutations
	require.Len(t, all, 3)
	require.Equal(t, "B", all[1])
	require.Equal(t, "B", rng[1])
}

func testEqualInstants(t *testing.T, s tstore.Store[string]) {
	zone := time.FixedZone("UTC+5", 5*60*60)
	require.NoError(t, s.Add(Base, "utc"))

	err := s.Add(Base.In(zone), "zoned")
	require.True(t, errors.Is(err, tstore.ErrCollision))

	v, ok := s.GetValueAt(Base.In(zone))
	require.True(t, ok)
	require.Equal(t, "utc", v)
	require.True(t, s.GetTimestamps()[0].Equal(Base))

	// a wall clock reading with monotonic data is found again after stripping it
	now := time.Now()
	require.NoError(t, s.Add(now, "now"))
	v, ok = s.GetValueAt(now.Round(0))
	require.True(t, ok)
	require.Equal(t, "now", v)
	require.True(t, s.Remove(now.In(zone)))
	require.NoError(t, s.Validate())
}

func testClear(t *testing.T, s tstore.Store[string]) {
	hourly(t, s)
	s.Clear()

	require.Equal(t, 0, s.Size())
	require.True(t, s.IsEmpty())
	require.Empty(t, s.GetAll())
	require.Empty(t, s.GetTimestamps())
	_, ok := s.GetEarliest()
	require.False(t, ok)
	_, ok = s.GetValueAt(Base)
	require.False(t, ok)
	require.NoError(t, s.Validate())

	require.NoError(t, s.Add(Base, "again"))
	require.Equal(t, []string{"again"}, s.GetAll())
}
