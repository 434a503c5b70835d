// Package physics defines the rigid-body backend used by the chunk and an
// in-process implementation of it.
package physics

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

// Tag identifies a body. Tags are chosen by the caller.
type Tag uint32

// ConstraintID identifies a spring constraint. IDs are issued by the engine.
type ConstraintID uint32

var (
	ErrUnknownBody       = errors.New("physics: unknown body")
	ErrUnknownConstraint = errors.New("physics: unknown constraint")
	ErrDuplicateTag      = errors.New("physics: tag already in use")
)

// BodyDesc describes a box-shaped rigid body.
type BodyDesc struct {
	Tag         Tag
	HalfExtents r3.Vec
	Mass        float64 // Ignored for static bodies
	Pose        geom.Transform
	Static      bool
}

// SpringDesc describes a 6-DOF spring linking a frame on body A to a frame
// on body B. Frames are in each body's local space.
type SpringDesc struct {
	A, B           Tag
	FrameA, FrameB geom.Transform

	Stiffness        float64
	AngularStiffness float64
	Damping          float64 // Fraction of critical damping
	Limit            float64 // Free play per axis before the spring engages
	BreakingImpulse  float64 // 0 = unbreakable
}

// Engine is the narrow interface the simulation drives physics through.
// Implementations are not required to be safe for concurrent use.
type Engine interface {
	AddBody(desc BodyDesc) error
	// ResizeBody changes extents and mass in place, recomputing inertia.
	ResizeBody(tag Tag, halfExtents r3.Vec, mass float64) error
	RemoveBody(tag Tag) error
	BodyPose(tag Tag) (geom.Transform, error)

	AddSpring(desc SpringDesc) (ConstraintID, error)
	UpdateSpring(id ConstraintID, desc SpringDesc) error
	RemoveConstraint(id ConstraintID) error

	// Step advances the world by dt seconds.
	Step(dt float64)
	// Contacts calls fn for every body pair touching during the last Step.
	Contacts(fn func(a, b Tag))
	// RayTest returns the closest body hit on the segment from -> to.
	RayTest(from, to r3.Vec) (Tag, bool)
}
