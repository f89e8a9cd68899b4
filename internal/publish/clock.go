package publish

import (
	"context"
	"time"
)

// Clock supplies the waits between polling rounds.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock waits on wall-clock time.
var RealClock Clock = realClock{}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
