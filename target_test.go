package grove3d

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPointOnceAtTarget(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	target := NewNode("target")
	target.SetLocation(mgl32.Vec3{10, 0, 0})
	scene.Root().AddChild(watcher)
	scene.Root().AddChild(target)

	watcher.SetTarget(target)
	scene.Update(0)

	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{1, 0, 0}, 1e-3) {
		t.Fatal("watcher not pointing at its target, forward is", watcher.GlobalForwardDirection())
	}

	// Without tracking, the orientation holds when the target moves on.
	target.SetLocation(mgl32.Vec3{0, 0, 10})
	scene.Update(0)
	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{1, 0, 0}, 1e-3) {
		t.Fatal("point-once watcher followed a moving target")
	}
}

func TestTrackingFollowsTarget(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	watcher.SetShouldTrackTarget(true)
	target := NewNode("target")
	target.SetLocation(mgl32.Vec3{10, 0, 0})
	scene.Root().AddChild(watcher)
	scene.Root().AddChild(target)

	watcher.SetTarget(target)
	scene.Update(0)

	target.SetLocation(mgl32.Vec3{0, 0, -10})
	scene.Update(0)

	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{0, 0, -1}, 1e-3) {
		t.Fatal("tracking watcher did not follow the target, forward is", watcher.GlobalForwardDirection())
	}

	// Tracking also compensates for the watcher's own ancestors moving.
	carrier := NewNode("carrier")
	scene.Root().AddChild(carrier)
	carrier.AddAndLocalizeChild(watcher)
	carrier.SetLocation(mgl32.Vec3{0, 0, -20})
	scene.Update(0)

	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Fatal("tracking watcher did not compensate for ancestor movement, forward is", watcher.GlobalForwardDirection())
	}
}

func TestManualRotationIgnoredWhileTracking(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	watcher.SetShouldTrackTarget(true)
	target := NewNode("target")
	target.SetLocation(mgl32.Vec3{10, 0, 0})
	scene.Root().AddChild(watcher)
	scene.Root().AddChild(target)
	watcher.SetTarget(target)
	scene.Update(0)

	watcher.SetRotation(mgl32.Vec3{0, 90, 0})
	watcher.RotateBy(mgl32.Vec3{45, 0, 0})
	scene.Update(0)

	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{1, 0, 0}, 1e-3) {
		t.Fatal("manual rotation should be ignored while tracking")
	}

	// Releasing the target makes manual rotation effective again.
	watcher.SetTarget(nil)
	watcher.SetRotation(mgl32.Vec3{0, 0, 0})
	scene.Update(0)
	if !vecNear(watcher.GlobalForwardDirection(), VecForward, 1e-3) {
		t.Fatal("manual rotation still ignored after the target was cleared")
	}
}

func TestTargetDestructionRevertsToUntargeted(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	watcher.SetShouldTrackTarget(true)
	target := NewNode("target")
	target.SetLocation(mgl32.Vec3{10, 0, 0})
	scene.Root().AddChild(watcher)
	scene.Root().AddChild(target)
	watcher.SetTarget(target)
	scene.Update(0)

	target.Destroy()

	if watcher.HasTarget() {
		t.Fatal("watcher should revert to untargeted when its target is destroyed")
	}

	// The orientation from the last solve holds, and manual control returns.
	watcher.SetRotation(mgl32.Vec3{0, 180, 0})
	scene.Update(0)
	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Fatal("manual rotation not restored after target destruction")
	}
}

func TestTargettingConstraintKeepsNodeUpright(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	watcher.SetShouldTrackTarget(true)
	watcher.SetTargettingConstraint(TargettingConstraintGlobalY)
	target := NewNode("target")
	target.SetLocation(mgl32.Vec3{10, 30, 0})
	scene.Root().AddChild(watcher)
	scene.Root().AddChild(target)
	watcher.SetTarget(target)
	scene.Update(0)

	// The Y component of the pointing direction is discarded: the watcher
	// yaws toward the target but never pitches.
	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{1, 0, 0}, 1e-3) {
		t.Fatal("Y-constrained watcher should only yaw, forward is", watcher.GlobalForwardDirection())
	}
	if !vecNear(watcher.GlobalUpDirection(), VecUp, 1e-3) {
		t.Fatal("Y-constrained watcher must stay upright, up is", watcher.GlobalUpDirection())
	}
}

func TestBumpMapTrackingUpdatesLightPosition(t *testing.T) {

	scene := NewScene("test")
	surface := NewNode("surface")
	surface.SetShouldTrackTarget(true)
	surface.SetIsTrackingForBumpMapping(true)
	light := NewNode("light")
	light.SetLocation(mgl32.Vec3{5, 20, 5})
	scene.Root().AddChild(surface)
	scene.Root().AddChild(light)

	surface.SetTarget(light)
	scene.Update(0)

	if !vecNear(surface.GlobalLightPosition(), mgl32.Vec3{5, 20, 5}, 1e-3) {
		t.Fatal("bump-map tracking did not record the light position, got", surface.GlobalLightPosition())
	}
	if !vecNear(surface.GlobalForwardDirection(), VecForward, 1e-3) {
		t.Fatal("bump-map tracking must not rotate the node")
	}

	// The node stays manually rotatable in bump-map mode.
	surface.SetRotation(mgl32.Vec3{0, 90, 0})
	scene.Update(0)
	if !vecNear(surface.GlobalForwardDirection(), mgl32.Vec3{-1, 0, 0}, 1e-3) {
		t.Fatal("manual rotation should work during bump-map tracking")
	}

	light.SetLocation(mgl32.Vec3{-5, 10, 0})
	scene.Update(0)
	if !vecNear(surface.GlobalLightPosition(), mgl32.Vec3{-5, 10, 0}, 1e-3) {
		t.Fatal("light position not refreshed after the light moved")
	}
}

func TestTargetLocationWithoutNode(t *testing.T) {

	scene := NewScene("test")
	watcher := NewNode("watcher")
	scene.Root().AddChild(watcher)

	watcher.SetTargetLocation(mgl32.Vec3{0, 0, 10})
	scene.Update(0)

	if !vecNear(watcher.GlobalForwardDirection(), mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Fatal("watcher not pointing at the fixed target location, forward is", watcher.GlobalForwardDirection())
	}
	if watcher.Target() != nil {
		t.Fatal("fixed target location must clear any target node")
	}
}

func TestTrackerAheadOfTargetSettlesSameTick(t *testing.T) {

	scene := NewScene("test")

	// The tracker is added before the target, so the rebuild pass reaches it
	// first; the settle pass must still see the target's final location.
	tracker := NewNode("tracker")
	tracker.SetShouldTrackTarget(true)
	scene.Root().AddChild(tracker)

	target := NewNode("target")
	scene.Root().AddChild(target)
	tracker.SetTarget(target)

	target.OnBeforeTransform = func(ctx *UpdateContext) {
		target.SetLocation(mgl32.Vec3{0, 0, 7})
	}
	scene.Update(0.016)

	if !vecNear(tracker.GlobalForwardDirection(), mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Fatal("tracker did not settle against the target's final location, forward is", tracker.GlobalForwardDirection())
	}
}
