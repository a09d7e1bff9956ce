package integrators

import (
	"github.com/san-kum/ballsim/internal/ball"
	"gonum.org/v1/gonum/spatial/r2"
)

// Euler is the forward Euler scheme split into a velocity kick and a position
// drift so the engine can interleave queue drains between the two.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Kick(b *ball.Ball, force r2.Vec, dt float64) {
	b.ApplyForce(force, dt)
}

func (e *Euler) Drift(b *ball.Ball, dt float64) {
	b.MakeStep(dt)
}
