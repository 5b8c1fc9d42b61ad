package tstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hoyle1974/tstore/misc"
	"github.com/hoyle1974/tstore/telemetry"
)

// Config carries the optional collaborators of a Concurrent store. Nil fields
// fall back to no-op implementations.
type Config struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

type counters struct {
	adds         int64
	collisions   int64
	removes      int64
	waits        int64
	waitTimeouts int64
}

// Concurrent makes any Store safe for concurrent use. Every call holds one
// mutex for its whole duration and delegates to the wrapped store. Successful
// inserts wake goroutines blocked in Wait or WaitForData.
//
// The wrapped store belongs to the Concurrent; nothing else may use it once
// it has been wrapped.
type Concurrent[V any] struct {
	_       misc.NoCopy
	lock    sync.Mutex
	store   Store[V]
	ready   chan struct{} // closed and replaced on every successful insert
	logger  telemetry.Logger
	metrics telemetry.Metrics
	stats   counters
}

var _ Store[int] = (*Concurrent[int])(nil)

// NewConcurrent wraps store.
func NewConcurrent[V any](store Store[V]) *Concurrent[V] {
	return NewConcurrentWithConfig(store, Config{})
}

func NewConcurrentWithConfig[V any](store Store[V], cfg Config) *Concurrent[V] {
	if store == nil {
		panic("tstore: NewConcurrent called with a nil store")
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NOPLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NOPMetrics{}
	}
	return &Concurrent[V]{
		store:   store,
		ready:   make(chan struct{}),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// The helpers below expect c.lock to be held.

func (c *Concurrent[V]) inserted() {
	c.stats.adds++
	c.metrics.SetCount("adds", c.stats.adds)
	c.metrics.SetGauge("entries", float64(c.store.Size()))
	c.broadcast()
}

func (c *Concurrent[V]) broadcast() {
	close(c.ready)
	c.ready = make(chan struct{})
}

func (c *Concurrent[V]) rejected(err error) {
	c.stats.collisions++
	c.metrics.SetCount("collisions", c.stats.collisions)
	c.logger.Debug(err.Error())
}

func (c *Concurrent[V]) Add(timestamp time.Time, value V) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.store.Add(timestamp, value); err != nil {
		c.rejected(err)
		return err
	}
	c.inserted()
	return nil
}

func (c *Concurrent[V]) AddUnique(timestamp time.Time, value V, maxOffset time.Duration) (time.Time, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	ts, err := c.store.AddUnique(timestamp, value, maxOffset)
	if err != nil {
		c.rejected(err)
		return ts, err
	}
	c.inserted()
	return ts, nil
}

func (c *Concurrent[V]) GetValueAt(timestamp time.Time) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetValueAt(timestamp)
}

func (c *Concurrent[V]) GetRange(start, end time.Time) []V {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetRange(start, end)
}

func (c *Concurrent[V]) GetDuration(now time.Time, window time.Duration) []V {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetDuration(now, window)
}

func (c *Concurrent[V]) GetEntries(start, end time.Time) []Entry[V] {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetEntries(start, end)
}

func (c *Concurrent[V]) GetEarliest() (Entry[V], bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetEarliest()
}

func (c *Concurrent[V]) GetLatest() (Entry[V], bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetLatest()
}

func (c *Concurrent[V]) GetByWeekday(day time.Weekday, loc *time.Location) []V {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetByWeekday(day, loc)
}

func (c *Concurrent[V]) Remove(timestamp time.Time) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.store.Remove(timestamp) {
		return false
	}
	c.stats.removes++
	c.metrics.SetCount("removes", c.stats.removes)
	c.metrics.SetGauge("entries", float64(c.store.Size()))
	return true
}

func (c *Concurrent[V]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	n := c.store.Size()
	c.store.Clear()
	c.metrics.SetGauge("entries", 0)
	c.logger.Info(fmt.Sprintf("cleared %d entries", n))
}

func (c *Concurrent[V]) Size() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.Size()
}

func (c *Concurrent[V]) IsEmpty() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.IsEmpty()
}

func (c *Concurrent[V]) GetAll() []V {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetAll()
}

func (c *Concurrent[V]) GetTimestamps() []time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.GetTimestamps()
}

func (c *Concurrent[V]) Validate() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.Validate()
}

// Notify wakes every waiter without inserting anything. Waiters that find the
// store empty go back to waiting.
func (c *Concurrent[V]) Notify() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.broadcast()
}

// Wait blocks until an insert or Notify happens and the store is non-empty,
// or until ctx is done, in which case it returns ctx.Err(). Existing data
// alone does not end a wait. The lock is not held while blocked; a wake-up
// that finds the store empty again (a Clear won the race) keeps waiting.
func (c *Concurrent[V]) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.lock.Lock()
	c.stats.waits++
	c.metrics.SetCount("waits", c.stats.waits)
	for {
		ready := c.ready
		c.lock.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			c.lock.Lock()
			c.stats.waitTimeouts++
			c.metrics.SetCount("wait_timeouts", c.stats.waitTimeouts)
			c.lock.Unlock()
			return ctx.Err()
		}

		c.lock.Lock()
		if !c.store.IsEmpty() {
			c.lock.Unlock()
			return nil
		}
	}
}

// WaitForData is Wait bounded by timeout. It reports whether data arrived;
// a timeout of zero or less returns false without blocking.
func (c *Concurrent[V]) WaitForData(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Wait(ctx) == nil
}
