package export

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// backstop is the slack past the export length before capture is forced
// to stop.
const backstop = 500 * time.Millisecond

// pacer gates the frame loop.
type pacer interface {
	// wait blocks until frame i may be produced. It returns false when the
	// loop must stop.
	wait(ctx context.Context, i int) bool
	stop()
}

// virtualPacer renders as fast as the sink accepts frames, up to a fixed
// frame budget.
type virtualPacer struct {
	maxFrames int
}

func newVirtualPacer(total float64, fps int) *virtualPacer {
	return &virtualPacer{maxFrames: int(math.Ceil((total + backstop.Seconds()) * float64(fps)))}
}

func (p *virtualPacer) wait(ctx context.Context, i int) bool {
	return i < p.maxFrames && ctx.Err() == nil
}

func (p *virtualPacer) stop() {}

// realtimePacer paces frames against the wall clock and clears capturing
// once the export length plus the backstop has elapsed.
type realtimePacer struct {
	ticker *time.Ticker
	timer  *time.Timer
}

func newRealtimePacer(total float64, fps int, capturing *atomic.Bool) *realtimePacer {
	limit := time.Duration(total*float64(time.Second)) + backstop
	return &realtimePacer{
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
		timer:  time.AfterFunc(limit, func() { capturing.Store(false) }),
	}
}

func (p *realtimePacer) wait(ctx context.Context, i int) bool {
	if i == 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.ticker.C:
		return true
	}
}

func (p *realtimePacer) stop() {
	p.ticker.Stop()
	p.timer.Stop()
}
