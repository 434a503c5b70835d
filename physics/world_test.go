package physics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/geom"
)

func testWorld() *World {
	return NewWorld(config.Default().Physics)
}

func addGround(t *testing.T, w *World, tag Tag) {
	t.Helper()
	err := w.AddBody(BodyDesc{
		Tag:         tag,
		HalfExtents: r3.Vec{X: 5, Y: 5, Z: 0.5},
		Pose:        geom.Translation(r3.Vec{Z: -0.5}),
		Static:      true,
	})
	if err != nil {
		t.Fatalf("add ground: %v", err)
	}
}

func TestWorld_BoxSettlesOnGround(t *testing.T) {
	w := testWorld()
	addGround(t, w, 1)
	if err := w.AddBody(BodyDesc{
		Tag:         2,
		HalfExtents: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25},
		Mass:        12.5,
		Pose:        geom.Translation(r3.Vec{Z: 2}),
	}); err != nil {
		t.Fatal(err)
	}

	touched := false
	for i := 0; i < 120; i++ {
		w.Step(0.033)
		w.Contacts(func(a, b Tag) {
			if a == 2 && b == 1 {
				touched = true
			}
		})
	}
	if !touched {
		t.Fatal("expected a contact between box and ground")
	}

	pose, err := w.BodyPose(2)
	if err != nil {
		t.Fatal(err)
	}
	if pose.Pos.Z < 0.15 || pose.Pos.Z > 0.35 {
		t.Errorf("expected box to rest near z=0.25, got %.3f", pose.Pos.Z)
	}
}

func TestWorld_SpringHoldsHangingBox(t *testing.T) {
	w := testWorld()
	cfg := config.Default().Physics.Spring
	if err := w.AddBody(BodyDesc{Tag: 1, HalfExtents: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Pose: geom.Identity(), Static: true}); err != nil {
		t.Fatal(err)
	}
	if err := w.AddBody(BodyDesc{
		Tag:         2,
		HalfExtents: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25},
		Mass:        12.5,
		Pose:        geom.Translation(r3.Vec{Z: -0.75}),
	}); err != nil {
		t.Fatal(err)
	}
	_, err := w.AddSpring(SpringDesc{
		A: 1, B: 2,
		FrameA:           geom.Translation(r3.Vec{Z: -0.5}),
		FrameB:           geom.Translation(r3.Vec{Z: 0.25}),
		Stiffness:        cfg.Stiffness,
		AngularStiffness: cfg.AngularStiffness,
		Damping:          cfg.Damping,
		Limit:            cfg.Limit,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 60; i++ {
		w.Step(0.033)
	}
	pose, _ := w.BodyPose(2)
	if math.Abs(pose.Pos.Z+0.75) > 0.1 {
		t.Errorf("expected box to hang near z=-0.75, got %.3f", pose.Pos.Z)
	}
	if math.Abs(pose.Pos.X) > 0.05 || math.Abs(pose.Pos.Y) > 0.05 {
		t.Errorf("expected no lateral drift, got (%.3f, %.3f)", pose.Pos.X, pose.Pos.Y)
	}
}

func TestWorld_SpringBreaks(t *testing.T) {
	w := testWorld()
	if err := w.AddBody(BodyDesc{Tag: 1, HalfExtents: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Pose: geom.Identity(), Static: true}); err != nil {
		t.Fatal(err)
	}
	if err := w.AddBody(BodyDesc{Tag: 2, HalfExtents: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, Mass: 12.5, Pose: geom.Translation(r3.Vec{Z: -0.75})}); err != nil {
		t.Fatal(err)
	}
	id, err := w.AddSpring(SpringDesc{
		A: 1, B: 2,
		FrameA:          geom.Translation(r3.Vec{Z: -0.5}),
		FrameB:          geom.Translation(r3.Vec{Z: 0.25}),
		Stiffness:       8000,
		Damping:         0.8,
		BreakingImpulse: 1e-6,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		w.Step(0.033)
	}
	if !w.broken(id) {
		t.Fatal("expected spring to break")
	}
	pose, _ := w.BodyPose(2)
	if pose.Pos.Z > -1.5 {
		t.Errorf("expected box to fall after the link sheared, got z=%.3f", pose.Pos.Z)
	}
}

func TestWorld_RayTestReturnsClosest(t *testing.T) {
	w := testWorld()
	addGround(t, w, 1)
	if err := w.AddBody(BodyDesc{Tag: 7, HalfExtents: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Mass: 1, Pose: geom.Translation(r3.Vec{Z: 3})}); err != nil {
		t.Fatal(err)
	}

	tag, ok := w.RayTest(r3.Vec{Z: 100}, r3.Vec{Z: -10})
	if !ok || tag != 7 {
		t.Errorf("expected hit on 7, got %d (hit=%v)", tag, ok)
	}
	tag, ok = w.RayTest(r3.Vec{X: 3, Z: 100}, r3.Vec{X: 3, Z: -10})
	if !ok || tag != 1 {
		t.Errorf("expected hit on ground, got %d (hit=%v)", tag, ok)
	}
	if _, ok := w.RayTest(r3.Vec{X: 20, Z: 100}, r3.Vec{X: 20, Z: -10}); ok {
		t.Error("expected miss outside the scene")
	}
}

func TestWorld_RemoveOrder(t *testing.T) {
	w := testWorld()
	addGround(t, w, 1)
	if err := w.AddBody(BodyDesc{Tag: 2, HalfExtents: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, Mass: 1, Pose: geom.Identity()}); err != nil {
		t.Fatal(err)
	}
	id, err := w.AddSpring(SpringDesc{A: 1, B: 2, FrameA: geom.Identity(), FrameB: geom.Identity()})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.RemoveBody(2); !errors.Is(err, ErrBodyInUse) {
		t.Errorf("expected ErrBodyInUse, got %v", err)
	}
	if err := w.RemoveConstraint(id); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveBody(2); err != nil {
		t.Fatal(err)
	}
	if w.BodyCount() != 1 || w.ConstraintCount() != 0 {
		t.Errorf("expected 1 body and 0 constraints, got %d and %d", w.BodyCount(), w.ConstraintCount())
	}
	if _, err := w.BodyPose(1); err != nil {
		t.Errorf("ground lookup broken after swap-remove: %v", err)
	}
}

func TestWorld_UnknownHandles(t *testing.T) {
	w := testWorld()
	if _, err := w.BodyPose(42); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("expected ErrUnknownBody, got %v", err)
	}
	if err := w.RemoveConstraint(3); !errors.Is(err, ErrUnknownConstraint) {
		t.Errorf("expected ErrUnknownConstraint, got %v", err)
	}
	addGround(t, w, 1)
	if err := w.AddBody(BodyDesc{Tag: 1}); !errors.Is(err, ErrDuplicateTag) {
		t.Errorf("expected ErrDuplicateTag, got %v", err)
	}
}

func TestWorld_ResizeKeepsMotion(t *testing.T) {
	w := testWorld()
	if err := w.AddBody(BodyDesc{Tag: 1, HalfExtents: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, Mass: 1, Pose: geom.Translation(r3.Vec{Z: 10})}); err != nil {
		t.Fatal(err)
	}
	w.Step(0.033)
	before, _ := w.BodyPose(1)
	if err := w.ResizeBody(1, r3.Vec{X: 1, Y: 1, Z: 1}, 8); err != nil {
		t.Fatal(err)
	}
	after, _ := w.BodyPose(1)
	if before != after {
		t.Errorf("resize moved the body: %v -> %v", before.Pos, after.Pos)
	}
}
