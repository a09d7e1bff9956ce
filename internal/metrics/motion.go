package metrics

import (
	"math"

	"github.com/san-kum/ballsim/internal/ball"
	"gonum.org/v1/gonum/spatial/r2"
)

type MaxSpeed struct {
	max float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{} }

func (m *MaxSpeed) Name() string { return "max_speed" }

func (m *MaxSpeed) Observe(balls []ball.Ball, t float64) {
	for _, b := range balls {
		m.max = math.Max(m.max, math.Sqrt(b.Speed2()))
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }

// Momentum is the magnitude of the summed velocity at the latest sample.
// Pins and drags inject momentum; free balls alone conserve it.
type Momentum struct {
	last float64
}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(balls []ball.Ball, t float64) {
	var p r2.Vec
	for _, b := range balls {
		p = r2.Add(p, b.Velocity)
	}
	m.last = r2.Norm(p)
}

func (m *Momentum) Value() float64 { return m.last }
func (m *Momentum) Reset()         { m.last = 0 }

// Spread is the mean RMS distance of the balls from their centroid.
type Spread struct {
	samples int
	total   float64
}

func NewSpread() *Spread { return &Spread{} }

func (s *Spread) Name() string { return "spread" }

func (s *Spread) Observe(balls []ball.Ball, t float64) {
	s.samples++
	if len(balls) == 0 {
		return
	}
	var c r2.Vec
	for _, b := range balls {
		c = r2.Add(c, b.Position)
	}
	c = r2.Scale(1/float64(len(balls)), c)

	sum := 0.0
	for _, b := range balls {
		sum += b.DistanceSquare(c)
	}
	s.total += math.Sqrt(sum / float64(len(balls)))
}

func (s *Spread) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.total / float64(s.samples)
}

func (s *Spread) Reset() {
	s.samples = 0
	s.total = 0
}

// Count is the mean number of live balls per sample.
type Count struct {
	samples int
	total   int
}

func NewCount() *Count { return &Count{} }

func (c *Count) Name() string { return "ball_count" }

func (c *Count) Observe(balls []ball.Ball, t float64) {
	c.samples++
	c.total += len(balls)
}

func (c *Count) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.total) / float64(c.samples)
}

func (c *Count) Reset() {
	c.samples = 0
	c.total = 0
}
