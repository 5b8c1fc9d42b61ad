package tstore

import (
	"time"
)

// TimeRange is an inclusive [Min, Max] interval.
type TimeRange struct {
	Min time.Time
	Max time.Time
}

// Window returns the range covering the window that ends at now.
func Window(now time.Time, window time.Duration) TimeRange {
	return TimeRange{Min: now.Add(-window), Max: now}
}

func (t *TimeRange) Adjust(timestamp time.Time) {
	if t.Min.IsZero() || timestamp.Before(t.Min) {
		t.Min = timestamp
	}
	if t.Max.IsZero() || timestamp.After(t.Max) {
		t.Max = timestamp
	}
}

func (t TimeRange) Contains(timestamp time.Time) bool {
	return !timestamp.Before(t.Min) && !timestamp.After(t.Max)
}

// Empty is true when Min lies after Max, so nothing can be contained.
func (t TimeRange) Empty() bool {
	return t.Min.After(t.Max)
}
