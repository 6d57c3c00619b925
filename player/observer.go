package player

import (
	"context"
	"time"
)

// timeObserver publishes the elapsed time at a fixed interval.
// The channel holds only the latest value so a slow consumer never blocks playback.
type timeObserver struct {
	interval time.Duration
	ch       chan float64
}

func newTimeObserver(interval time.Duration) *timeObserver {
	if interval <= 0 {
		interval = time.Second
	}
	return &timeObserver{
		interval: interval,
		ch:       make(chan float64, 1),
	}
}

// publish replaces any unread value with t
func (o *timeObserver) publish(t float64) {
	for {
		select {
		case o.ch <- t:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

// run samples until ctx is done; sample reports false when nothing should be published
func (o *timeObserver) run(ctx context.Context, sample func() (float64, bool)) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if t, ok := sample(); ok {
				o.publish(t)
			}
		case <-ctx.Done():
			return
		}
	}
}
