package integrators

import (
	"fmt"

	"github.com/san-kum/ballsim/internal/ball"
	"gonum.org/v1/gonum/spatial/r2"
)

// Damped scales the velocity by Factor after every kick. A factor of 1 is
// plain Euler.
type Damped struct {
	Euler
	Factor float64
}

func NewDamped(factor float64) (*Damped, error) {
	if !(factor > 0 && factor <= 1) {
		return nil, fmt.Errorf("damping factor must be in (0, 1], got %f", factor)
	}
	return &Damped{Factor: factor}, nil
}

func (d *Damped) Kick(b *ball.Ball, force r2.Vec, dt float64) {
	if b.Pinned {
		return
	}
	b.ApplyForce(force, dt)
	b.Velocity = r2.Scale(d.Factor, b.Velocity)
}
