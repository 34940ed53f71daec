package replay

import (
	"context"
	"sync"
	"time"
)

// Animation is a handle on one running chain of draw ticks. A cancelled
// animation never draws again.
type Animation struct {
	drawMu  sync.Mutex
	stopped bool
	ticker  Ticker
	cancel  context.CancelFunc
	done    chan struct{}
}

func startAnimation(ticker Ticker, draw func(now time.Time)) *Animation {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Animation{
		ticker: ticker,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run(ctx, draw)
	return a
}

func (a *Animation) run(ctx context.Context, draw func(now time.Time)) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case now, ok := <-a.ticker.C():
			if !ok {
				return
			}
			a.drawMu.Lock()
			if !a.stopped {
				draw(now)
			}
			a.drawMu.Unlock()
		}
	}
}

// Cancel stops the animation and returns once its goroutine has exited. A
// draw in progress completes first. It reports whether this call stopped it.
func (a *Animation) Cancel() bool {
	a.drawMu.Lock()
	if a.stopped {
		a.drawMu.Unlock()
		<-a.done
		return false
	}
	a.stopped = true
	a.drawMu.Unlock()

	a.cancel()
	<-a.done
	a.ticker.Stop()
	return true
}

// Done is closed when the tick goroutine has exited.
func (a *Animation) Done() <-chan struct{} {
	return a.done
}
