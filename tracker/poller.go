package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// FetchFunc issues one cache-busting fetch of current order snapshots.
type FetchFunc func(ctx context.Context) ([]OrderSnapshot, error)

// Poller drives the polling refresh strategy: fetch on an interval, merge
// through the reconciler. The interval shortens while active (non-terminal)
// orders are held and the poller idles entirely while hidden (tab in
// background).
type Poller struct {
	reconciler *Reconciler
	fetch      FetchFunc
	terminal   func(status string) bool
	log        *logrus.Logger

	// BaseInterval applies when nothing is in flight, ActiveInterval while
	// at least one order is non-terminal.
	BaseInterval   time.Duration
	ActiveInterval time.Duration

	hidden atomic.Bool
}

func NewPoller(rec *Reconciler, fetch FetchFunc, terminal func(string) bool, log *logrus.Logger) *Poller {
	return &Poller{
		reconciler:     rec,
		fetch:          fetch,
		terminal:       terminal,
		log:            log,
		BaseInterval:   15 * time.Second,
		ActiveInterval: 3 * time.Second,
	}
}

// SetHidden pauses (true) or resumes (false) polling, mirroring tab
// visibility.
func (p *Poller) SetHidden(hidden bool) {
	p.hidden.Store(hidden)
}

// Run polls until ctx is cancelled. Fetch errors are logged and the previous
// local state is kept; the next tick retries.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !p.hidden.Load() {
				p.PollOnce(ctx)
			}
			timer.Reset(p.interval())
		}
	}
}

// PollOnce performs a single fetch-and-merge cycle and returns how many
// orders changed.
func (p *Poller) PollOnce(ctx context.Context) int {
	snaps, err := p.fetch(ctx)
	if err != nil {
		p.log.Errorf("tracker: poll fetch: %v", err)
		return 0
	}
	return p.reconciler.ApplyAll(snaps)
}

func (p *Poller) interval() time.Duration {
	if p.reconciler.HasActive(p.terminal) {
		return p.ActiveInterval
	}
	return p.BaseInterval
}
