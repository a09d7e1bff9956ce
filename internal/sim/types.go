package sim

import (
	"iter"
	"time"

	"github.com/san-kum/ballsim/internal/ball"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultTimeStep = 0.001
)

// DefaultPositions are where the two initial balls are placed.
var DefaultPositions = []r2.Vec{
	{X: 300, Y: 300},
	{X: 500, Y: 300},
}

// ForceLaw computes the net force on target from every ball yielded by all.
// The sequence is only valid for the duration of the call.
type ForceLaw interface {
	Force(target ball.Ball, all iter.Seq[ball.Ball]) r2.Vec
}

// Stepper advances a single ball. Kick runs in the force pass, Drift in the
// move pass.
type Stepper interface {
	Kick(b *ball.Ball, force r2.Vec, dt float64)
	Drift(b *ball.Ball, dt float64)
}

type Option func(*Engine)

func WithLaw(law ForceLaw) Option {
	return func(e *Engine) { e.law = law }
}

func WithStepper(s Stepper) Option {
	return func(e *Engine) { e.stepper = s }
}

// WithTimeStep ignores non-positive values.
func WithTimeStep(dt float64) Option {
	return func(e *Engine) {
		if ValidTimeStep(dt) {
			e.dt = dt
		}
	}
}

// WithTickInterval paces the loop to at most one tick per interval. Zero runs
// ticks back to back.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithInitialPositions replaces DefaultPositions.
func WithInitialPositions(ps []r2.Vec) Option {
	return func(e *Engine) { e.initial = ps }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}
