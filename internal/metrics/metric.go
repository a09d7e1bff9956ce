package metrics

import "github.com/san-kum/ballsim/internal/ball"

// Metric accumulates a scalar over a series of snapshots taken at time t
// (seconds since the run started).
type Metric interface {
	Name() string
	Observe(balls []ball.Ball, t float64)
	Value() float64
	Reset()
}
