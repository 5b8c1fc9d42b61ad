package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/tstore"
	"github.com/hoyle1974/tstore/telemetry"
	"github.com/panjf2000/ants/v2"
)

type concurrentResult struct {
	elapsed time.Duration
	stored  int
	wakeups int
	retries int64
}

// runConcurrent feeds events into a wrapped store from a pool of producers
// while a consumer blocks on WaitForData and reads the newest hour after
// every wake-up.
func runConcurrent(s tstore.Store[string], events []event, workers int, logger telemetry.Logger) (concurrentResult, error) {
	var r concurrentResult
	store := tstore.NewConcurrentWithConfig(s, tstore.Config{Logger: logger})

	pool, err := ants.NewPool(max(workers, 1), ants.WithPreAlloc(true))
	if err != nil {
		return r, errors.Wrap(err, "can not create producer pool")
	}
	defer pool.Release()

	done := make(chan struct{})
	wakeups := make(chan int)
	go func() {
		n := 0
		for {
			select {
			case <-done:
				wakeups <- n
				return
			default:
			}
			if store.WaitForData(10 * time.Millisecond) {
				n++
				if latest, ok := store.GetLatest(); ok {
					store.GetDuration(latest.Timestamp, time.Hour)
				}
			}
		}
	}()

	var retries atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	for _, e := range events {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := store.Add(e.timestamp, e.value); errors.Is(err, tstore.ErrCollision) {
				retries.Add(1)
				_, _ = store.AddUnique(e.timestamp, e.value, time.Second)
			}
		})
		if err != nil {
			wg.Done()
			close(done)
			<-wakeups
			return r, errors.Wrap(err, "can not submit producer task")
		}
	}
	wg.Wait()
	r.elapsed = time.Since(start)

	close(done)
	r.wakeups = <-wakeups
	r.stored = store.Size()
	r.retries = retries.Load()

	if err := store.Validate(); err != nil {
		return r, err
	}
	return r, nil
}
