package main

import (
	"math/rand"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/google/uuid"
	"github.com/hoyle1974/tstore"
	"github.com/hoyle1974/tstore/misc"
)

type event struct {
	timestamp time.Time
	value     string
}

// generate spreads n events over the 24 hours before now, with microsecond
// precision so collisions happen now and then.
func generate(rng *rand.Rand, now time.Time, n int) []event {
	events := make([]event, n)
	for i := range events {
		ts, _ := misc.RandomTimeBetweenWith(rng.Int63n, now.Add(-24*time.Hour), now)
		events[i] = event{timestamp: ts.Truncate(time.Microsecond), value: uuid.NewString()}
	}
	return events
}

type sequentialResult struct {
	insert   time.Duration
	rangeAvg time.Duration
	duration time.Duration
	earliest time.Duration
	latest   time.Duration
	remove   time.Duration
}

func runSequential(s tstore.Store[string], events []event, rng *rand.Rand, now time.Time, queries int, window time.Duration) sequentialResult {
	var r sequentialResult

	start := time.Now()
	for _, e := range events {
		_, _ = s.AddUnique(e.timestamp, e.value, time.Second)
	}
	r.insert = time.Since(start)

	avg := movingaverage.New(max(queries, 1))
	for i := 0; i < queries; i++ {
		from, _ := misc.RandomTimeBetweenWith(rng.Int63n, now.Add(-24*time.Hour), now)
		to := from.Add(time.Duration(rng.Int63n(int64(12 * time.Hour))))

		qs := time.Now()
		s.GetRange(from, to)
		avg.Add(float64(time.Since(qs)))

		// interleave writes so cached orderings are rebuilt now and then
		if i%50 == 0 {
			_, _ = s.AddUnique(to, "probe", time.Second)
		}
	}
	r.rangeAvg = time.Duration(avg.Avg())

	start = time.Now()
	s.GetDuration(now, window)
	r.duration = time.Since(start)

	start = time.Now()
	s.GetEarliest()
	r.earliest = time.Since(start)

	start = time.Now()
	s.GetLatest()
	r.latest = time.Since(start)

	start = time.Now()
	for i, e := range events {
		if i%10 == 0 {
			s.Remove(e.timestamp)
		}
	}
	r.remove = time.Since(start)

	return r
}
