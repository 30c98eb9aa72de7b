// Package physics is the narrow rigid-body boundary the ship engine talks
// to. World is the in-memory implementation used by the builder and tests;
// a real simulation backend only has to satisfy Engine.
package physics

import (
	"errors"

	"hullcraft.io/internal/sim/geom"
)

type BodyID uint64

type ConstraintID uint64

type ShapeKind uint8

const (
	ShapeRect ShapeKind = iota + 1
	ShapeCircle
	ShapePolygon
)

var (
	ErrUnknownBody       = errors.New("physics: unknown body")
	ErrUnknownConstraint = errors.New("physics: unknown constraint")
	ErrBodyInUse         = errors.New("physics: body still referenced by a constraint")
	ErrInvalidBody       = errors.New("physics: invalid body description")
)

type ShapeDesc struct {
	Kind     ShapeKind
	Width    float64
	Height   float64
	Radius   float64
	Vertices []geom.Vec2
}

type BodyDesc struct {
	Label    string
	Shape    ShapeDesc
	Mass     float64
	Position geom.Vec2
	Angle    float64
}

// ConstraintDesc links two bodies at body-local anchor offsets, so the link
// follows the bodies as they move.
type ConstraintDesc struct {
	A, B           BodyID
	LocalA, LocalB geom.Vec2
	Stiffness      float64
	Damping        float64
	Length         float64
}

type Pose struct {
	Position geom.Vec2
	Angle    float64
}

type Engine interface {
	CreateBody(desc BodyDesc) (BodyID, error)
	// DestroyBody fails with ErrBodyInUse while a constraint still names the body.
	DestroyBody(id BodyID) error
	SetPose(id BodyID, p Pose) error
	Pose(id BodyID) (Pose, error)
	AddConstraint(desc ConstraintDesc) (ConstraintID, error)
	RemoveConstraint(id ConstraintID) error
	// Compose merges parts into one rigid body and destroys the parts.
	Compose(label string, parts []BodyID) (BodyID, error)
	ApplyForce(id BodyID, worldPoint, force geom.Vec2) error
}
