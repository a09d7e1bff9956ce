package metrics

import (
	"math"

	"github.com/san-kum/ballsim/internal/ball"
	"github.com/san-kum/ballsim/internal/physics"
)

// KineticEnergy of a snapshot with unit masses.
func KineticEnergyOf(balls []ball.Ball) float64 {
	ke := 0.0
	for _, b := range balls {
		ke += 0.5 * b.Speed2()
	}
	return ke
}

// PotentialEnergyOf sums the pair potential of law over every pair.
func PotentialEnergyOf(law physics.Law, balls []ball.Ball) float64 {
	pe := 0.0
	for i := range balls {
		for j := i + 1; j < len(balls); j++ {
			pe += law.PotentialEnergy(balls[i].Position, balls[j].Position)
		}
	}
	return pe
}

// KineticEnergy is the mean total kinetic energy over all samples.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
	last    float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(balls []ball.Ball, t float64) {
	e.last = KineticEnergyOf(balls)
	e.total += e.last
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Last() float64 { return e.last }

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.last = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative change of kinetic plus potential
// energy from the first sample. Only meaningful while the ball set is fixed.
type EnergyDrift struct {
	name          string
	law           physics.Law
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(law physics.Law) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		law:  law,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(balls []ball.Ball, t float64) {
	energy := KineticEnergyOf(balls) + PotentialEnergyOf(e.law, balls)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
