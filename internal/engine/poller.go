package engine

import (
	"context"
	"time"
)

// poller repeats one fetch on a fixed cadence. Fetch failures are reported
// and otherwise ignored; whatever the previous fetch stored stays current
// until a later one succeeds.
type poller struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fetch    func(ctx context.Context) error
	onFail   func(name string, err error)
}

func (p *poller) run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *poller) poll(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.fetch(fetchCtx); err != nil && ctx.Err() == nil {
		if p.onFail != nil {
			p.onFail(p.name, err)
		}
	}
}
