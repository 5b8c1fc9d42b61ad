package tstore_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/hoyle1974/tstore"
	"github.com/hoyle1974/tstore/misc"
	"github.com/hoyle1974/tstore/storetest"
	"github.com/stretchr/testify/require"
)

var backends = []struct {
	name string
	new  func() tstore.Store[string]
}{
	{"dict", func() tstore.Store[string] { return tstore.NewDict[string]() }},
	{"heap", func() tstore.Store[string] { return tstore.NewHeap[string]() }},
	{"tree", func() tstore.Store[string] { return tstore.NewTree[string]() }},
}

func TestBackends(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			storetest.Run(t, b.new)
		})
	}
}

func TestConcurrentBackends(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			storetest.Run(t, func() tstore.Store[string] {
				return tstore.NewConcurrent(b.new())
			})
		})
	}
}

func TestCrossBackendEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := storetest.Base
	end := start.Add(6 * time.Hour)

	stores := make([]tstore.Store[string], len(backends))
	for i, b := range backends {
		stores[i] = b.new()
	}

	for i := 0; i < 3000; i++ {
		ts, err := misc.RandomTimeBetweenWith(rng.Int63n, start, end)
		require.NoError(t, err)
		ts = ts.Truncate(time.Millisecond)
		v := fmt.Sprintf("v%d", i)

		// every backend must agree on whether this is a collision
		var want error
		for j, s := range stores {
			err := s.Add(ts, v)
			if j == 0 {
				want = err
				continue
			}
			require.Equal(t, want == nil, err == nil, "backend %s disagrees on %v", backends[j].name, ts)
		}

		if i%7 == 0 {
			removed := stores[0].Remove(ts.Add(-time.Millisecond))
			for j, s := range stores[1:] {
				require.Equal(t, removed, s.Remove(ts.Add(-time.Millisecond)), "backend %s", backends[j+1].name)
			}
		}
	}

	for i := 0; i < 300; i++ {
		a, _ := misc.RandomTimeBetweenWith(rng.Int63n, start.Add(-time.Minute), end)
		b, _ := misc.RandomTimeBetweenWith(rng.Int63n, a, end.Add(time.Minute))

		want := stores[0].GetRange(a, b)
		wantEntries := stores[0].GetEntries(a, b)
		for j, s := range stores[1:] {
			require.Equal(t, want, s.GetRange(a, b), "backend %s range [%v, %v]", backends[j+1].name, a, b)
			require.Equal(t, wantEntries, s.GetEntries(a, b), "backend %s entries", backends[j+1].name)
		}
	}

	for j, s := range stores[1:] {
		require.Equal(t, stores[0].GetAll(), s.GetAll(), "backend %s", backends[j+1].name)
		require.Equal(t, stores[0].GetTimestamps(), s.GetTimestamps(), "backend %s", backends[j+1].name)
		for day := time.Sunday; day <= time.Saturday; day++ {
			require.Equal(t, stores[0].GetByWeekday(day, time.UTC), s.GetByWeekday(day, time.UTC), "backend %s %s", backends[j+1].name, day)
		}
		e0, _ := stores[0].GetEarliest()
		e1, _ := s.GetEarliest()
		require.Equal(t, e0, e1)
		l0, _ := stores[0].GetLatest()
		l1, _ := s.GetLatest()
		require.Equal(t, l0, l1)
	}
}

func TestGenericValues(t *testing.T) {
	type reading struct {
		Sensor  string
		Celsius float64
	}

	s := tstore.NewTree[reading]()
	require.NoError(t, s.Add(storetest.Base, reading{"kitchen", 21.5}))
	require.NoError(t, s.Add(storetest.Base.Add(time.Minute), reading{"kitchen", 21.7}))

	v, ok := s.GetValueAt(storetest.Base.Add(time.Minute))
	require.True(t, ok)
	require.Equal(t, 21.7, v.Celsius)

	_, ok = s.GetValueAt(storetest.Base.Add(time.Second))
	require.False(t, ok)

	p := tstore.NewHeap[*reading]()
	_, ok = p.GetValueAt(storetest.Base)
	require.False(t, ok)
}

func benchmarkAdd(b *testing.B, s tstore.Store[int]) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < b.N; i++ {
		ts := storetest.Base.Add(time.Duration(rng.Int63n(int64(24 * time.Hour))))
		_, _ = s.AddUnique(ts, i, time.Millisecond)
	}
}

func benchmarkRange(b *testing.B, s tstore.Store[int]) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		ts := storetest.Base.Add(time.Duration(rng.Int63n(int64(24 * time.Hour))))
		_, _ = s.AddUnique(ts, i, time.Millisecond)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := storetest.Base.Add(time.Duration(rng.Int63n(int64(23 * time.Hour))))
		s.GetRange(start, start.Add(time.Hour))
		if i%10 == 0 {
			// keep the heap's sorted snapshot from being reused forever
			_, _ = s.AddUnique(start, i, time.Millisecond)
		}
	}
}

func BenchmarkDictAdd(b *testing.B)   { benchmarkAdd(b, tstore.NewDict[int]()) }
func BenchmarkHeapAdd(b *testing.B)   { benchmarkAdd(b, tstore.NewHeap[int]()) }
func BenchmarkTreeAdd(b *testing.B)   { benchmarkAdd(b, tstore.NewTree[int]()) }
func BenchmarkDictRange(b *testing.B) { benchmarkRange(b, tstore.NewDict[int]()) }
func BenchmarkHeapRange(b *testing.B) { benchmarkRange(b, tstore.NewHeap[int]()) }
func BenchmarkTreeRange(b *testing.B) { benchmarkRange(b, tstore.NewTree[int]()) }
