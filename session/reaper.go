package session

import (
	"context"
	"sync"
	"time"
)

// Reaper periodically removes sessions nobody has touched for a while.
type Reaper struct {
	manager *Manager
	ttl     time.Duration
	every   time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReaper removes sessions idle for longer than ttl, checking every
// ttl/4 but at least once a minute.
func NewReaper(manager *Manager, ttl time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	every := ttl / 4
	if every > time.Minute || every <= 0 {
		every = time.Minute
	}
	return &Reaper{
		manager: manager,
		ttl:     ttl,
		every:   every,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the sweep loop in its own goroutine
func (r *Reaper) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runLoop()
	}()
}

// Stop ends the loop and waits for it
func (r *Reaper) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reaper) runLoop() {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep removes idle sessions once and returns their IDs.
func (r *Reaper) Sweep() []string {
	removed := r.manager.RemoveIdle(r.manager.now().Add(-r.ttl))
	if len(removed) > 0 {
		r.manager.log.Infow("removed idle games", "count", len(removed), "gameIDs", removed)
	}
	return removed
}
