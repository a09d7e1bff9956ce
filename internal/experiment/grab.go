package experiment

import (
	"errors"

	"github.com/san-kum/ballsim/internal/ball"
	"github.com/san-kum/ballsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// MinDragTravel is the squared distance below which a press and release at
// nearly the same spot count as a click, which deletes the ball.
const MinDragTravel = 5.0

// Grab is a press, drag, release gesture. A pressed ball is pinned so the
// loop leaves it alone while it follows the pointer.
type Grab struct {
	engine *sim.Engine
	held   ball.ID
	from   r2.Vec
}

func NewGrab(engine *sim.Engine) *Grab {
	return &Grab{engine: engine}
}

func (g *Grab) Held() ball.ID { return g.held }

// Press picks the ball under p. It reports false when there is none.
func (g *Grab) Press(p r2.Vec) (bool, error) {
	id := g.engine.FindNearest(p)
	if id.IsNull() {
		return false, nil
	}
	if err := g.engine.SetPinned(id, true); err != nil {
		return false, err
	}
	g.held, g.from = id, p
	return true, nil
}

// Move drags the held ball. If the ball vanished meanwhile the grab is
// dropped and the unknown-entity error returned.
func (g *Grab) Move(p r2.Vec) error {
	if g.held.IsNull() {
		return nil
	}
	err := g.engine.MoveBall(g.held, p)
	if errors.Is(err, sim.ErrUnknownEntity) {
		g.held = ball.Nil
	}
	return err
}

// Release unpins the held ball, or deletes it when the pointer barely moved.
func (g *Grab) Release(p r2.Vec) error {
	id := g.held
	g.held = ball.Nil
	if id.IsNull() {
		return nil
	}
	if r2.Norm2(r2.Sub(p, g.from)) < MinDragTravel {
		g.engine.RemoveBall(id)
		return nil
	}
	return g.engine.SetPinned(id, false)
}
