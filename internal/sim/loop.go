package sim

import (
	"time"

	"github.com/san-kum/ballsim/internal/ball"
)

// loop runs ticks until stop is closed. prev is the done channel of an
// earlier loop that may still be finishing its last tick.
func (e *Engine) loop(stop <-chan struct{}, done chan<- struct{}, prev <-chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}

	var pace <-chan time.Time
	if e.interval > 0 {
		t := time.NewTicker(e.interval)
		defer t.Stop()
		pace = t.C
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		e.tick()

		if pace != nil {
			select {
			case <-stop:
				return
			case <-pace:
			}
		}
	}
}

// tick advances the world by one time step.
//
// The lock is taken per ball, so callers stay responsive, and a ball may be
// moved by a caller between its kick and its drift. Queued creations and
// deletions are merged after each pass to halve their latency.
func (e *Engine) tick() {
	dt := e.TimeStep()

	for _, id := range e.IDs() {
		e.kick(id, dt)
	}
	e.drain()

	for _, id := range e.IDs() {
		e.drift(id, dt)
	}
	e.drain()

	e.ticks.Add(1)
}

func (e *Engine) kick(id ball.ID, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.balls[id]
	if !ok || b.Pinned {
		return
	}
	f := e.law.Force(*b, e.liveLocked())
	e.stepper.Kick(b, f, dt)
}

func (e *Engine) drift(id ball.ID, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.balls[id]
	if !ok {
		return
	}
	e.stepper.Drift(b, dt)
}

func (e *Engine) drain() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyPendingLocked()
}
