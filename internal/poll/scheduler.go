package poll

import (
	"context"
	"fmt"
	"time"
)

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run invokes cycle once per interval until ctx is done. The first cycle
// starts one interval after Run is called. The interval is measured from the
// previous cycle start; a cycle that overruns it is followed immediately by
// the next one. Run returns ctx.Err() on cancellation.
func Run(ctx context.Context, clock Clock, interval time.Duration, cycle func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	last := clock.Now()
	for {
		if wait := interval - clock.Now().Sub(last); wait > 0 {
			if err := clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		last = clock.Now()
		cycle(ctx)
	}
}
