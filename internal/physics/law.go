package physics

import (
	"errors"
	"iter"
	"math"
	"slices"

	"github.com/san-kum/ballsim/internal/ball"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidLaw is returned by Validate for unusable parameters.
var ErrInvalidLaw = errors.New("physics: law parameters must be positive and finite")

// Law is the pairwise inverse-square attraction between balls. The magnitude at
// separation r is Strength/r². Pairs at or inside Contact contribute nothing.
type Law struct {
	Strength float64
	Contact  float64
}

// DefaultStrength puts the force between (0,0) and (3,4) at (0.096, 0.128).
const DefaultStrength = 4.0

// DefaultLaw cuts the force off at one ball radius.
func DefaultLaw() Law {
	return Law{Strength: DefaultStrength, Contact: ball.Radius}
}

func (l Law) Validate() error {
	if !(l.Strength > 0) || !(l.Contact > 0) || math.IsInf(l.Strength, 0) || math.IsInf(l.Contact, 0) {
		return ErrInvalidLaw
	}
	return nil
}

// Pair returns the force exerted on a body at from by a body at to.
func (l Law) Pair(from, to r2.Vec) r2.Vec {
	d := r2.Sub(to, from)
	rr := r2.Norm2(d)
	if rr <= l.Contact*l.Contact {
		return r2.Vec{}
	}
	r := math.Sqrt(rr)
	return r2.Scale(l.Strength/(rr*r), d)
}

// Force sums Pair over every ball in all except target itself. It only reads
// its arguments, so it may run concurrently for different targets.
func (l Law) Force(target ball.Ball, all iter.Seq[ball.Ball]) r2.Vec {
	var f r2.Vec
	for other := range all {
		if other.ID == target.ID {
			continue
		}
		f = r2.Add(f, l.Pair(target.Position, other.Position))
	}
	return f
}

func (l Law) ForceOn(target ball.Ball, all []ball.Ball) r2.Vec {
	return l.Force(target, slices.Values(all))
}

// PotentialEnergy of a pair, zero at infinite separation. Pairs inside Contact
// are clamped to the contact value since the force there is suppressed.
func (l Law) PotentialEnergy(a, b r2.Vec) float64 {
	r := math.Max(r2.Norm(r2.Sub(b, a)), l.Contact)
	return -l.Strength / r
}
