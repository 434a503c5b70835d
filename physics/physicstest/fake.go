// Package physicstest provides a scripted physics.Engine for tests.
package physicstest

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
	"github.com/pthm-cable/bonsai/physics"
)

// Body is the fake's record of a body.
type Body struct {
	Desc physics.BodyDesc
	Pose geom.Transform
}

// Engine records every call and answers contact and ray queries from
// scripted values. Bodies never move unless SetBodyPose is called.
type Engine struct {
	Bodies  map[physics.Tag]*Body
	Springs map[physics.ConstraintID]physics.SpringDesc
	nextID  physics.ConstraintID

	// Scripted answers. ContactPairs is reported after every Step; RayHit,
	// when set, decides each RayTest.
	ContactPairs [][2]physics.Tag
	RayHit       func(from, to r3.Vec) (physics.Tag, bool)
	// OnStep, when set, runs inside every Step.
	OnStep func(dt float64)

	Steps   int
	Calls   []string
	Removed []physics.Tag
}

var _ physics.Engine = (*Engine)(nil)

// New returns an empty fake.
func New() *Engine {
	return &Engine{
		Bodies:  make(map[physics.Tag]*Body),
		Springs: make(map[physics.ConstraintID]physics.SpringDesc),
	}
}

func (e *Engine) record(format string, args ...any) {
	e.Calls = append(e.Calls, fmt.Sprintf(format, args...))
}

func (e *Engine) AddBody(desc physics.BodyDesc) error {
	if _, ok := e.Bodies[desc.Tag]; ok {
		return fmt.Errorf("%w: %d", physics.ErrDuplicateTag, desc.Tag)
	}
	e.record("add_body %d", desc.Tag)
	e.Bodies[desc.Tag] = &Body{Desc: desc, Pose: desc.Pose}
	return nil
}

func (e *Engine) ResizeBody(tag physics.Tag, half r3.Vec, mass float64) error {
	b, ok := e.Bodies[tag]
	if !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownBody, tag)
	}
	b.Desc.HalfExtents = half
	b.Desc.Mass = mass
	return nil
}

func (e *Engine) RemoveBody(tag physics.Tag) error {
	if _, ok := e.Bodies[tag]; !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownBody, tag)
	}
	for id, s := range e.Springs {
		if s.A == tag || s.B == tag {
			return fmt.Errorf("physics: body %d still referenced by constraint %d", tag, id)
		}
	}
	e.record("remove_body %d", tag)
	delete(e.Bodies, tag)
	e.Removed = append(e.Removed, tag)
	return nil
}

func (e *Engine) BodyPose(tag physics.Tag) (geom.Transform, error) {
	b, ok := e.Bodies[tag]
	if !ok {
		return geom.Transform{}, fmt.Errorf("%w: %d", physics.ErrUnknownBody, tag)
	}
	return b.Pose, nil
}

func (e *Engine) SetBodyPose(tag physics.Tag, pose geom.Transform) error {
	b, ok := e.Bodies[tag]
	if !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownBody, tag)
	}
	b.Pose = pose
	return nil
}

func (e *Engine) AddSpring(desc physics.SpringDesc) (physics.ConstraintID, error) {
	if _, ok := e.Bodies[desc.A]; !ok {
		return 0, fmt.Errorf("%w: %d", physics.ErrUnknownBody, desc.A)
	}
	if _, ok := e.Bodies[desc.B]; !ok {
		return 0, fmt.Errorf("%w: %d", physics.ErrUnknownBody, desc.B)
	}
	e.nextID++
	e.record("add_spring %d %d-%d", e.nextID, desc.A, desc.B)
	e.Springs[e.nextID] = desc
	return e.nextID, nil
}

func (e *Engine) UpdateSpring(id physics.ConstraintID, desc physics.SpringDesc) error {
	if _, ok := e.Springs[id]; !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownConstraint, id)
	}
	e.Springs[id] = desc
	return nil
}

func (e *Engine) RemoveConstraint(id physics.ConstraintID) error {
	if _, ok := e.Springs[id]; !ok {
		return fmt.Errorf("%w: %d", physics.ErrUnknownConstraint, id)
	}
	e.record("remove_spring %d", id)
	delete(e.Springs, id)
	return nil
}

func (e *Engine) Step(dt float64) {
	e.Steps++
	if e.OnStep != nil {
		e.OnStep(dt)
	}
}

func (e *Engine) Contacts(fn func(a, b physics.Tag)) {
	for _, p := range e.ContactPairs {
		fn(p[0], p[1])
	}
}

func (e *Engine) RayTest(from, to r3.Vec) (physics.Tag, bool) {
	if e.RayHit == nil {
		return 0, false
	}
	return e.RayHit(from, to)
}

// DynamicTags returns the tags of all non-static bodies.
func (e *Engine) DynamicTags() []physics.Tag {
	var out []physics.Tag
	for tag, b := range e.Bodies {
		if !b.Desc.Static {
			out = append(out, tag)
		}
	}
	return out
}
