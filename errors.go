package tstore

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrCollision is returned by Add when a value is already stored at the
// requested instant.
var ErrCollision = errors.New("timestamp already occupied")

// ErrOffsetExhausted is returned by AddUnique when every probed timestamp up
// to the allowed offset is already occupied.
var ErrOffsetExhausted = errors.New("no free timestamp within offset")

func collisionAt(ts time.Time) error {
	return errors.Wrapf(ErrCollision, "add %s", ts.Format(time.RFC3339Nano))
}

func exhaustedAt(ts time.Time, maxOffset time.Duration) error {
	return errors.Wrapf(ErrOffsetExhausted, "add unique %s (max offset %s)", ts.Format(time.RFC3339Nano), maxOffset)
}

// corrupted reports a broken internal invariant. Mutation paths panic with it,
// Validate returns it.
func corrupted(format string, args ...interface{}) error {
	return errors.AssertionFailedf("tstore: "+format, args...)
}
