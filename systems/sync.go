package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/geom"
	"github.com/pthm-cable/bonsai/physics"
)

// ErrResourceConsistency means a body or constraint mapping the sync layer
// relies on is missing. It is raised by panic and indicates a bug.
var ErrResourceConsistency = errors.New("sync: resource mapping inconsistent")

// SyncSystem owns the identity tables between cells and physics resources.
// It is the only code that creates or removes bodies and constraints.
type SyncSystem struct {
	cells  *Cells
	engine physics.Engine
	cfg    *config.Config

	tagOf    map[ecs.Entity]physics.Tag
	cellOf   map[physics.Tag]ecs.Entity
	sizeOf   map[physics.Tag]components.Size // Last size pushed to the engine
	springOf map[ecs.Entity]physics.ConstraintID
	soil     map[physics.Tag]geom.Transform

	nextTag physics.Tag
	maxTag  physics.Tag

	live map[ecs.Entity]struct{} // Scratch for Reconcile
}

// NewSyncSystem creates an empty sync layer over engine.
func NewSyncSystem(cells *Cells, engine physics.Engine, cfg *config.Config) *SyncSystem {
	return &SyncSystem{
		cells:    cells,
		engine:   engine,
		cfg:      cfg,
		tagOf:    make(map[ecs.Entity]physics.Tag),
		cellOf:   make(map[physics.Tag]ecs.Entity),
		sizeOf:   make(map[physics.Tag]components.Size),
		springOf: make(map[ecs.Entity]physics.ConstraintID),
		soil:     make(map[physics.Tag]geom.Transform),
		maxTag:   physics.Tag(cfg.Physics.MaxTag),
		live:     make(map[ecs.Entity]struct{}),
	}
}

func fault(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrResourceConsistency, fmt.Sprintf(format, args...)))
}

// issueTag returns the next free tag, wrapping at maxTag and skipping tags in use.
// Tag 0 is never issued.
func (s *SyncSystem) issueTag() physics.Tag {
	for range s.maxTag {
		s.nextTag++
		if s.nextTag >= s.maxTag {
			s.nextTag = 1
		}
		if s.inUse(s.nextTag) {
			continue
		}
		return s.nextTag
	}
	fault("tag space exhausted (%d)", s.maxTag)
	return 0
}

func (s *SyncSystem) inUse(tag physics.Tag) bool {
	if _, ok := s.cellOf[tag]; ok {
		return true
	}
	_, ok := s.soil[tag]
	return ok
}

// AddSoil registers a static soil block and returns its tag.
func (s *SyncSystem) AddSoil(pose geom.Transform, halfExtents r3.Vec) physics.Tag {
	tag := s.issueTag()
	if err := s.engine.AddBody(physics.BodyDesc{Tag: tag, HalfExtents: halfExtents, Pose: pose, Static: true}); err != nil {
		fault("add soil %d: %v", tag, err)
	}
	s.soil[tag] = pose
	return tag
}

// CellAt resolves a body tag to its cell.
func (s *SyncSystem) CellAt(tag physics.Tag) (ecs.Entity, bool) {
	e, ok := s.cellOf[tag]
	return e, ok
}

// bodyTag returns the body tag of a cell.
func (s *SyncSystem) bodyTag(e ecs.Entity) (physics.Tag, bool) {
	tag, ok := s.tagOf[e]
	return tag, ok
}

// IsSoil reports whether tag is a soil block.
func (s *SyncSystem) IsSoil(tag physics.Tag) bool {
	_, ok := s.soil[tag]
	return ok
}

// attached reports whether a cell has a constraint.
func (s *SyncSystem) attached(e ecs.Entity) bool {
	_, ok := s.springOf[e]
	return ok
}

// Bodies returns the number of cell bodies.
func (s *SyncSystem) Bodies() int {
	return len(s.cellOf)
}

// Constraints returns the number of attachment constraints.
func (s *SyncSystem) Constraints() int {
	return len(s.springOf)
}

// SyncStats reports what a reconciliation did.
type SyncStats struct {
	Created, Resized, Removed int
	Attached, Detached        int
}

// Reconcile brings the physics world in line with live: stale cells lose
// their constraint and then their body, new cells get bodies, grown cells are
// resized, and every rooted cell gets or updates its attachment.
func (s *SyncSystem) Reconcile(live []ecs.Entity) SyncStats {
	var stats SyncStats

	s.setLive(live)
	stats.Detached, stats.Removed = s.prune()

	for _, e := range live {
		size := *s.cells.Size.Get(e)
		tag, ok := s.tagOf[e]
		if !ok {
			s.createBody(e, size)
			stats.Created++
			continue
		}
		if s.sizeOf[tag] != size {
			if err := s.engine.ResizeBody(tag, size.HalfExtents(), s.mass(size)); err != nil {
				fault("resize body %d: %v", tag, err)
			}
			s.sizeOf[tag] = size
			stats.Resized++
		}
	}

	for _, e := range live {
		if !s.cells.State.Get(e).Rooted {
			continue
		}
		desc, ok := s.springFor(e)
		if !ok {
			continue
		}
		if id, ok := s.springOf[e]; ok {
			if err := s.engine.UpdateSpring(id, desc); err != nil {
				fault("update spring %d: %v", id, err)
			}
			continue
		}
		id, err := s.engine.AddSpring(desc)
		if err != nil {
			fault("add spring for body %d: %v", desc.B, err)
		}
		s.springOf[e] = id
		stats.Attached++
	}
	return stats
}

// Prune releases the resources of every cell missing from live.
func (s *SyncSystem) Prune(live []ecs.Entity) (detached, removed int) {
	s.setLive(live)
	return s.prune()
}

func (s *SyncSystem) setLive(live []ecs.Entity) {
	clear(s.live)
	for _, e := range live {
		s.live[e] = struct{}{}
	}
}

// prune releases resources of cells missing from s.live. Every stale
// constraint goes before any stale body.
func (s *SyncSystem) prune() (detached, removed int) {
	var stale []ecs.Entity
	for e := range s.tagOf {
		if _, ok := s.live[e]; !ok {
			stale = append(stale, e)
		}
	}
	for _, e := range stale {
		id, ok := s.springOf[e]
		if !ok {
			continue
		}
		if err := s.engine.RemoveConstraint(id); err != nil {
			fault("remove spring %d: %v", id, err)
		}
		delete(s.springOf, e)
		detached++
	}
	for _, e := range stale {
		tag := s.tagOf[e]
		if err := s.engine.RemoveBody(tag); err != nil {
			fault("remove body %d: %v", tag, err)
		}
		delete(s.tagOf, e)
		delete(s.cellOf, tag)
		delete(s.sizeOf, tag)
		removed++
	}
	return detached, removed
}

func (s *SyncSystem) mass(size components.Size) float64 {
	return s.cfg.Physics.Density * size.Volume()
}

func (s *SyncSystem) createBody(e ecs.Entity, size components.Size) {
	tag := s.issueTag()
	err := s.engine.AddBody(physics.BodyDesc{
		Tag:         tag,
		HalfExtents: size.HalfExtents(),
		Mass:        s.mass(size),
		Pose:        s.cells.Pose.Get(e).World,
	})
	if err != nil {
		fault("add body %d: %v", tag, err)
	}
	s.tagOf[e] = tag
	s.cellOf[tag] = e
	s.sizeOf[tag] = size
}

// springFor describes the attachment of a rooted cell: its in-node to the
// parent's out-node, or to the soil anchor captured at first contact.
func (s *SyncSystem) springFor(e ecs.Entity) (physics.SpringDesc, bool) {
	lin := s.cells.Lineage.Get(e)
	sc := s.cfg.Physics.Spring
	desc := physics.SpringDesc{
		B:                s.tagOf[e],
		FrameB:           geom.Translation(r3.Vec{Z: -s.cfg.Cell.UnitSize / 2}),
		Stiffness:        sc.Stiffness,
		AngularStiffness: sc.AngularStiffness,
		Damping:          sc.Damping,
		Limit:            sc.Limit,
		BreakingImpulse:  sc.BreakingImpulse,
	}

	switch {
	case lin.HasParent:
		ptag, ok := s.tagOf[lin.Parent]
		if !ok {
			fault("parent of cell %d has no body", e.ID())
		}
		psize := s.cells.Size.Get(lin.Parent)
		desc.A = ptag
		desc.FrameA = geom.Mul(geom.Translation(r3.Vec{Z: psize.Z / 2}), geom.Rotation(lin.ParentRot))
	case lin.HasSoil:
		if !s.IsSoil(physics.Tag(lin.SoilTag)) {
			fault("soil %d of cell %d is not registered", lin.SoilTag, e.ID())
		}
		desc.A = physics.Tag(lin.SoilTag)
		desc.FrameA = lin.SoilAnchor
	default:
		return desc, false
	}
	return desc, true
}

// Readback copies body poses into the live cells.
func (s *SyncSystem) Readback(live []ecs.Entity) {
	for _, e := range live {
		tag, ok := s.tagOf[e]
		if !ok {
			fault("cell %d has no body", e.ID())
		}
		pose, err := s.engine.BodyPose(tag)
		if err != nil {
			fault("read body %d: %v", tag, err)
		}
		s.cells.Pose.Get(e).World = pose
	}
}

// DetectRooting scans the last step's contacts and roots every unrooted cell
// that touched soil. Root cells also capture their soil anchor. It returns
// the newly rooted cells.
func (s *SyncSystem) DetectRooting() []ecs.Entity {
	var rooted []ecs.Entity
	s.engine.Contacts(func(a, b physics.Tag) {
		cellTag, soilTag := a, b
		if s.IsSoil(a) {
			cellTag, soilTag = b, a
		}
		if !s.IsSoil(soilTag) {
			return
		}
		e, ok := s.cellOf[cellTag]
		if !ok {
			return
		}
		state := s.cells.State.Get(e)
		if state.Rooted {
			return
		}
		state.Rooted = true

		pose := s.cells.Pose.Get(e)
		lin := s.cells.Lineage.Get(e)
		lin.ParentRot = pose.World.Rot
		if lin.IsRoot() {
			lin.HasSoil = true
			lin.SoilTag = uint32(soilTag)
			lin.SoilAnchor = geom.Mul(s.soil[soilTag].Inverse(), pose.InNode(s.cfg.Cell.UnitSize))
		}
		rooted = append(rooted, e)
	})
	return rooted
}
