package physics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/geom"
)

// ErrBodyInUse is returned when removing a body a constraint still references.
var ErrBodyInUse = errors.New("physics: body still referenced by a constraint")

// contactIterations is the number of impulse passes per substep.
const contactIterations = 4

// World is an in-process rigid-body engine for oriented boxes. Dynamic
// bodies collide with static bodies only; dynamic bodies interact with each
// other through springs.
type World struct {
	cfg config.PhysicsConfig

	bodies  []*body
	byTag   map[Tag]int // index into bodies
	springs []*spring
	byID    map[ConstraintID]int
	nextID  ConstraintID

	contacts    []contactPair
	contactSeen map[contactPair]struct{}
}

type contactPair struct {
	a, b Tag
}

var _ Engine = (*World)(nil)

// NewWorld creates an empty world.
func NewWorld(cfg config.PhysicsConfig) *World {
	if cfg.Substeps < 1 {
		cfg.Substeps = 1
	}
	return &World{
		cfg:         cfg,
		byTag:       make(map[Tag]int),
		byID:        make(map[ConstraintID]int),
		contactSeen: make(map[contactPair]struct{}),
	}
}

// BodyCount returns the number of bodies, static ones included.
func (w *World) BodyCount() int {
	return len(w.bodies)
}

// ConstraintCount returns the number of live springs, broken ones included.
func (w *World) ConstraintCount() int {
	return len(w.springs)
}

func (w *World) body(tag Tag) (*body, error) {
	i, ok := w.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, tag)
	}
	return w.bodies[i], nil
}

func (w *World) AddBody(desc BodyDesc) error {
	if _, ok := w.byTag[desc.Tag]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateTag, desc.Tag)
	}
	w.byTag[desc.Tag] = len(w.bodies)
	w.bodies = append(w.bodies, newBody(desc))
	return nil
}

func (w *World) ResizeBody(tag Tag, halfExtents r3.Vec, mass float64) error {
	b, err := w.body(tag)
	if err != nil {
		return err
	}
	b.setShape(halfExtents, mass)
	return nil
}

func (w *World) RemoveBody(tag Tag) error {
	i, ok := w.byTag[tag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, tag)
	}
	if w.bodies[i].springs > 0 {
		return fmt.Errorf("%w: %d", ErrBodyInUse, tag)
	}
	last := len(w.bodies) - 1
	w.bodies[i] = w.bodies[last]
	w.byTag[w.bodies[i].tag] = i
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]
	delete(w.byTag, tag)
	return nil
}

func (w *World) BodyPose(tag Tag) (geom.Transform, error) {
	b, err := w.body(tag)
	if err != nil {
		return geom.Transform{}, err
	}
	return b.pose(), nil
}

func (w *World) AddSpring(desc SpringDesc) (ConstraintID, error) {
	a, err := w.body(desc.A)
	if err != nil {
		return 0, err
	}
	b, err := w.body(desc.B)
	if err != nil {
		return 0, err
	}
	w.nextID++
	s := &spring{id: w.nextID, desc: desc, a: a, b: b}
	a.springs++
	b.springs++
	w.byID[s.id] = len(w.springs)
	w.springs = append(w.springs, s)
	return s.id, nil
}

// UpdateSpring replaces the frames and parameters of a spring. The bodies
// it links are fixed at creation.
func (w *World) UpdateSpring(id ConstraintID, desc SpringDesc) error {
	i, ok := w.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConstraint, id)
	}
	s := w.springs[i]
	if desc.A != s.desc.A || desc.B != s.desc.B {
		return fmt.Errorf("physics: spring %d cannot be re-linked from %d-%d to %d-%d",
			id, s.desc.A, s.desc.B, desc.A, desc.B)
	}
	s.desc = desc
	return nil
}

func (w *World) RemoveConstraint(id ConstraintID) error {
	i, ok := w.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConstraint, id)
	}
	s := w.springs[i]
	s.a.springs--
	s.b.springs--
	last := len(w.springs) - 1
	w.springs[i] = w.springs[last]
	w.byID[w.springs[i].id] = i
	w.springs[last] = nil
	w.springs = w.springs[:last]
	delete(w.byID, id)
	return nil
}

// broken reports whether a spring has sheared.
func (w *World) broken(id ConstraintID) bool {
	i, ok := w.byID[id]
	return ok && w.springs[i].broken
}

// Step advances the world by dt in cfg.Substeps equal substeps.
func (w *World) Step(dt float64) {
	w.contacts = w.contacts[:0]
	clear(w.contactSeen)

	n := w.cfg.Substeps
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		w.substep(h)
	}
}

func (w *World) substep(h float64) {
	gravity := r3.Vec{Z: -w.cfg.Gravity * h}
	for _, b := range w.bodies {
		if !b.static {
			b.vel = r3.Add(b.vel, gravity)
		}
	}

	for _, s := range w.springs {
		s.apply(h)
	}

	var manifolds []*manifold
	for _, d := range w.bodies {
		if d.static {
			continue
		}
		for _, s := range w.bodies {
			if !s.static {
				continue
			}
			m := getManifold(d, s)
			if !collide(m) {
				putManifold(m)
				continue
			}
			manifolds = append(manifolds, m)
			w.recordContact(d.tag, s.tag)
		}
	}

	for it := 0; it < contactIterations; it++ {
		for _, m := range manifolds {
			resolve(m, w.cfg.Friction)
		}
	}

	for _, b := range w.bodies {
		b.integrate(h, w.cfg.LinearDamp, w.cfg.AngularDamp)
	}

	for _, m := range manifolds {
		correct(m)
		putManifold(m)
	}
}

func (w *World) recordContact(a, b Tag) {
	p := contactPair{a: a, b: b}
	if _, ok := w.contactSeen[p]; ok {
		return
	}
	w.contactSeen[p] = struct{}{}
	w.contacts = append(w.contacts, p)
}

// Contacts reports each dynamic-static pair that touched during the last Step,
// dynamic body first.
func (w *World) Contacts(fn func(a, b Tag)) {
	for _, p := range w.contacts {
		fn(p.a, p.b)
	}
}

func (w *World) RayTest(from, to r3.Vec) (Tag, bool) {
	dir := r3.Sub(to, from)
	best := math.Inf(1)
	var hit Tag
	found := false
	for _, b := range w.bodies {
		if !segmentNearSphere(from, dir, b.pos, b.radius) {
			continue
		}
		if t, ok := rayBox(b, from, dir); ok && t < best {
			best, hit, found = t, b.tag, true
		}
	}
	return hit, found
}
