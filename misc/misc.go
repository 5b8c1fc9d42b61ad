package misc

import (
	"fmt"
	"math/rand"
	"time"
)

// NoCopy may be embedded in structs that must not be copied after first use.
// go vet's copylocks check flags copies of anything with Lock/Unlock methods.
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

func RandomTimeBetween(start, end time.Time) (time.Time, error) {
	return RandomTimeBetweenWith(rand.Int63n, start, end)
}

// RandomTimeBetweenWith is RandomTimeBetween drawing from int63n, so seeded
// sources give repeatable datasets.
func RandomTimeBetweenWith(int63n func(int64) int64, start, end time.Time) (time.Time, error) {
	if end.Before(start) {
		return time.Time{}, fmt.Errorf("end time must be after start time")
	}

	// Calculate the duration between the two times.
	duration := end.Sub(start)
	if duration == 0 {
		return start, nil
	}

	// Generate a random duration within the total duration.
	randomDuration := time.Duration(int63n(duration.Nanoseconds()))

	return start.Add(randomDuration), nil
}
