package sim

import (
	"iter"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/ballsim/internal/ball"
	"github.com/san-kum/ballsim/internal/integrators"
	"github.com/san-kum/ballsim/internal/physics"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

// Engine owns the live balls and the loop that advances them. Every exported
// method is safe to call from any goroutine while the loop is running.
//
// While running, creations and deletions are queued and merged by the loop
// between its force and move passes; while stopped they apply immediately.
type Engine struct {
	mu       sync.Mutex
	balls    map[ball.ID]*ball.Ball
	toCreate []*ball.Ball
	toDelete []ball.ID
	running  bool
	dt       float64
	stop     chan struct{}
	done     chan struct{}
	// halted is closed once Stop has drained the queues and zeroed velocities.
	halted chan struct{}

	law      ForceLaw
	stepper  Stepper
	interval time.Duration
	initial  []r2.Vec
	log      *zap.Logger
	ticks    atomic.Uint64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		balls:   make(map[ball.ID]*ball.Ball),
		dt:      DefaultTimeStep,
		law:     physics.DefaultLaw(),
		stepper: integrators.NewEuler(),
		initial: DefaultPositions,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range e.initial {
		b := ball.New(p)
		e.balls[b.ID] = b
	}
	return e
}

// AddBall returns the new id immediately, even when the ball is only queued.
func (e *Engine) AddBall(position r2.Vec) ball.ID {
	b := ball.New(position)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.toCreate = append(e.toCreate, b)
	} else {
		e.balls[b.ID] = b
	}
	return b.ID
}

// RemoveBall is a no-op for the nil id and for ids that are not live.
func (e *Engine) RemoveBall(id ball.ID) {
	if id.IsNull() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(id)
}

// RemoveBallAt removes the ball under position, if any, and returns its id.
func (e *Engine) RemoveBallAt(position r2.Vec) ball.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nearestLocked(position)
	if !id.IsNull() {
		e.removeLocked(id)
	}
	return id
}

func (e *Engine) removeLocked(id ball.ID) {
	if e.running {
		e.toDelete = append(e.toDelete, id)
		return
	}
	e.deleteLocked(id)
}

// deleteLocked also cancels a creation that is still queued.
func (e *Engine) deleteLocked(id ball.ID) {
	delete(e.balls, id)
	e.toCreate = slices.DeleteFunc(e.toCreate, func(b *ball.Ball) bool { return b.ID == id })
}

func (e *Engine) MoveBall(id ball.ID, position r2.Vec) error {
	if id.IsNull() {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.lookupLocked(id)
	if b == nil {
		return &EntityError{Op: "move", ID: id}
	}
	b.SetPosition(position)
	return nil
}

// SetPinned zeroes the velocity when pinning. Unpinning keeps it.
func (e *Engine) SetPinned(id ball.ID, pinned bool) error {
	if id.IsNull() {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.lookupLocked(id)
	if b == nil {
		return &EntityError{Op: "pin", ID: id}
	}
	b.SetPinned(pinned)
	return nil
}

// FindNearest returns the first ball closer than ball.Radius to position, or
// ball.Nil. Among several candidates the winner is unspecified.
func (e *Engine) FindNearest(position r2.Vec) ball.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nearestLocked(position)
}

func (e *Engine) nearestLocked(position r2.Vec) ball.ID {
	for id, b := range e.balls {
		if b.Near(position) {
			return id
		}
	}
	return ball.Nil
}

// lookupLocked also sees balls still waiting in the creation queue so an id
// returned by AddBall is addressable before the next drain.
func (e *Engine) lookupLocked(id ball.ID) *ball.Ball {
	if b, ok := e.balls[id]; ok {
		return b
	}
	for _, b := range e.toCreate {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (e *Engine) Position(id ball.ID) (r2.Vec, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.lookupLocked(id)
	if b == nil {
		return r2.Vec{}, &EntityError{Op: "position", ID: id}
	}
	return b.Position, nil
}

func (e *Engine) Positions() []r2.Vec {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]r2.Vec, 0, len(e.balls))
	for _, b := range e.balls {
		result = append(result, b.Position)
	}
	return result
}

func (e *Engine) IDs() []ball.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]ball.ID, 0, len(e.balls))
	for id := range e.balls {
		result = append(result, id)
	}
	return result
}

// Balls returns copies of every live ball.
func (e *Engine) Balls() []ball.Ball {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]ball.Ball, 0, len(e.balls))
	for _, b := range e.balls {
		result = append(result, *b)
	}
	return result
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.balls)
}

func (e *Engine) TimeStep() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dt
}

// SetTimeStep takes effect from the next tick.
func (e *Engine) SetTimeStep(dt float64) error {
	if !ValidTimeStep(dt) {
		return ErrInvalidTimeStep
	}
	e.mu.Lock()
	e.dt = dt
	e.mu.Unlock()
	e.log.Debug("time step changed", zap.Float64("dt", dt))
	return nil
}

// ValidTimeStep reports whether dt is usable as a time step.
func ValidTimeStep(dt float64) bool {
	return dt > 0 && !math.IsInf(dt, 0)
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Ticks is the number of ticks completed since the engine was created.
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Start launches the loop and returns without waiting. It is a no-op when
// already running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	prev := e.done
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.halted = make(chan struct{})
	go e.loop(e.stop, e.done, prev)

	e.log.Info("simulation started",
		zap.Float64("dt", e.dt),
		zap.Int("balls", len(e.balls)),
		zap.Duration("interval", e.interval))
}

// Stop blocks until the loop has exited, applies any requests it left queued
// and brings every ball to rest. Stopping a stopped engine is a no-op, but a
// call racing another Stop still returns only after that cleanup is done.
func (e *Engine) Stop() {
	e.mu.Lock()
	halted := e.halted
	if !e.running {
		e.mu.Unlock()
		if halted != nil {
			<-halted
		}
		return
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	<-done

	e.mu.Lock()
	e.applyPendingLocked()
	for _, b := range e.balls {
		b.SetVelocity(r2.Vec{})
	}
	close(halted)
	e.mu.Unlock()

	e.log.Info("simulation stopped",
		zap.Uint64("ticks", e.ticks.Load()),
		zap.Int("balls", e.Len()))
}

func (e *Engine) Toggle() {
	if e.Running() {
		e.Stop()
		return
	}
	e.Start()
}

// Close stops the loop. It exists so owners can defer teardown.
func (e *Engine) Close() error {
	e.Stop()
	return nil
}

// liveLocked yields copies of the live balls. The caller must hold mu for as
// long as the sequence is being consumed.
func (e *Engine) liveLocked() iter.Seq[ball.Ball] {
	return func(yield func(ball.Ball) bool) {
		for _, b := range e.balls {
			if !yield(*b) {
				return
			}
		}
	}
}

func (e *Engine) applyPendingLocked() {
	for _, id := range e.toDelete {
		e.deleteLocked(id)
	}
	clear(e.toDelete)
	e.toDelete = e.toDelete[:0]

	for _, b := range e.toCreate {
		e.balls[b.ID] = b
	}
	clear(e.toCreate)
	e.toCreate = e.toCreate[:0]
}
