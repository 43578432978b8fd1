// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

// Run starts the ticker loop and emits PollResult on the provided channel.
// One goroutine per device. No overlap.
// While suspended and disconnected, ticks are skipped.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Suspended() && p.client.Status() != keyence.StatusConnected {
				continue
			}
			res := p.PollOnce(ctx)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}
