package ball

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// Radius is shared by every ball. It is the drawn size, the pick distance
// used by position lookups and the contact distance of the default force law.
const (
	Radius       = 4.0
	RadiusSquare = Radius * Radius
)

// ID identifies a ball for its whole lifetime. The zero value is Nil.
type ID uuid.UUID

// Nil is the reserved "no ball" identifier.
var Nil ID

func NewID() ID { return ID(uuid.New()) }

func (id ID) IsNull() bool { return id == Nil }

func (id ID) String() string {
	if id.IsNull() {
		return "nil"
	}
	return uuid.UUID(id).String()
}

// ParseID is the inverse of String for non-nil ids.
func ParseID(s string) (ID, error) {
	if s == "nil" {
		return Nil, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

type Ball struct {
	ID       ID
	Position r2.Vec
	Velocity r2.Vec
	Pinned   bool
}

// New returns an unpinned ball at rest with a fresh id.
func New(position r2.Vec) *Ball {
	return &Ball{ID: NewID(), Position: position}
}

func (b *Ball) SetPosition(p r2.Vec) { b.Position = p }
func (b *Ball) SetVelocity(v r2.Vec) { b.Velocity = v }

// SetPinned zeroes the velocity when pinning so a released ball starts at rest.
func (b *Ball) SetPinned(pinned bool) {
	if pinned {
		b.Velocity = r2.Vec{}
	}
	b.Pinned = pinned
}

// DistanceSquare avoids the square root for proximity checks.
func (b *Ball) DistanceSquare(p r2.Vec) float64 {
	return r2.Norm2(r2.Sub(b.Position, p))
}

func (b *Ball) Near(p r2.Vec) bool {
	return b.DistanceSquare(p) < RadiusSquare
}

func (b *Ball) ApplyForce(force r2.Vec, dt float64) {
	if b.Pinned {
		return
	}
	b.Velocity = r2.Add(b.Velocity, r2.Scale(dt, force))
}

func (b *Ball) MakeStep(dt float64) {
	if b.Pinned {
		return
	}
	b.Position = r2.Add(b.Position, r2.Scale(dt, b.Velocity))
}

// Speed2 is the squared magnitude of the velocity.
func (b Ball) Speed2() float64 {
	return r2.Norm2(b.Velocity)
}
