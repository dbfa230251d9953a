// internal/poller/runner.go
package poller

import "context"

// Run starts the ticker loop and emits a PollResult per tick on out.
// Cycles run on this goroutine, so ticks never overlap; a slow cycle
// just drops the ticks it missed. A started cycle is not cancelled by ctx;
// shutdown waits for it.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	ticker := p.d.Clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if p.cfg.RunOnStart {
		if !p.emit(ctx, out, p.PollOnce(context.WithoutCancel(ctx))) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.emit(ctx, out, p.PollOnce(context.WithoutCancel(ctx))) {
				return
			}
		}
	}
}

func (p *Poller) emit(ctx context.Context, out chan<- PollResult, res PollResult) bool {
	select {
	case out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
