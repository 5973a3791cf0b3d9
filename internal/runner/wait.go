package runner

import (
	"context"
	"time"
)

// WaitUntil holds the calling goroutine until deadline with tiered polling:
// 100ms sleeps while more than a second remains, 5ms under a second, 1ms
// under 100ms. The tiers trade CPU burn for wake precision in the low tens
// of milliseconds, which bounds the latency budget of the opening-instant
// request. Returns ctx.Err() immediately on cancellation, nil at deadline.
//
// countdown, when non-nil, is invoked at most once per remaining integer
// second inside the final 30 seconds.
func WaitUntil(ctx context.Context, deadline time.Time, countdown func(secondsLeft int)) error {
	lastAnnounced := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= time.Millisecond {
			return nil
		}
		if countdown != nil && remaining <= 30*time.Second {
			if sec := int(remaining / time.Second); sec > 0 && sec != lastAnnounced {
				countdown(sec)
				lastAnnounced = sec
			}
		}
		switch {
		case remaining < 100*time.Millisecond:
			sleepCtx(ctx, time.Millisecond)
		case remaining < time.Second:
			sleepCtx(ctx, 5*time.Millisecond)
		default:
			sleepCtx(ctx, 100*time.Millisecond)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
