package grove3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TargettingConstraint restricts a target solve to rotation around a single
// axis, for content like billboards or turrets that must stay upright while
// swiveling. Local-axis constraints rotate around the node's own axis after
// the parent rotation is removed; global-axis constraints rotate around the
// world axis.
type TargettingConstraint int

const (
	// TargettingUnconstrained allows the solve full rotational freedom.
	TargettingUnconstrained TargettingConstraint = iota
	TargettingConstraintGlobalX
	TargettingConstraintGlobalY
	TargettingConstraintGlobalZ
	TargettingConstraintLocalX
	TargettingConstraintLocalY
	TargettingConstraintLocalZ
)

func (c TargettingConstraint) String() string {
	switch c {
	case TargettingUnconstrained:
		return "Unconstrained"
	case TargettingConstraintGlobalX:
		return "GlobalX"
	case TargettingConstraintGlobalY:
		return "GlobalY"
	case TargettingConstraintGlobalZ:
		return "GlobalZ"
	case TargettingConstraintLocalX:
		return "LocalX"
	case TargettingConstraintLocalY:
		return "LocalY"
	case TargettingConstraintLocalZ:
		return "LocalZ"
	}
	return "Unknown"
}

// targetObserver bridges Node's targeting state to the NodeListener contract
// without exposing the listener methods on Node itself. Each targeting node
// holds one and registers it on its target.
type targetObserver struct {
	owner *Node
}

func (obs *targetObserver) NodeWasTransformed(target *Node) {
	if obs.owner.shouldTrackTarget {
		obs.owner.targetDirty = true
		obs.owner.markTransformDirty()
	}
}

func (obs *targetObserver) NodeWasDestroyed(target *Node) {
	// The target is gone; revert to untargeted rather than chase a stale
	// location.
	obs.owner.clearTargetState()
}

// Target returns the node currently targeted, or nil.
func (node *Node) Target() *Node { return node.target }

// HasTarget returns whether a target node or a fixed target location is set.
func (node *Node) HasTarget() bool { return node.target != nil || node.hasTargetLocation }

// SetTarget points the node at the target once, or continuously if
// ShouldTrackTarget is set. The target's global location is always used,
// regardless of where either node sits in the hierarchy. Passing nil clears
// the target. The node observes its target for movement and destruction; a
// destroyed target reverts the node to its untargeted state.
func (node *Node) SetTarget(target *Node) {

	if node.target == target {
		if target != nil {
			node.targetDirty = true
			node.markTransformDirty()
		}
		return
	}

	if node.target != nil {
		node.target.RemoveListener(node.observerForTarget())
	}

	node.target = target
	node.hasTargetLocation = false

	if target == nil {
		node.targetDirty = false
		return
	}

	target.AddListener(node.observerForTarget())
	node.targetDirty = true
	node.markTransformDirty()
}

var _ NodeListener = (*targetObserver)(nil)

// observerForTarget returns the node's target observer, allocating it on
// first use so listener identity stays stable across SetTarget calls.
func (node *Node) observerForTarget() *targetObserver {
	if node.targetObserverInstance == nil {
		node.targetObserverInstance = &targetObserver{owner: node}
	}
	return node.targetObserverInstance
}

// TargetLocation returns the global location the node was last pointed at.
func (node *Node) TargetLocation() mgl32.Vec3 { return node.targetLocation }

// SetTargetLocation points the node at a fixed global location, clearing any
// target node. With ShouldTrackTarget set the node holds this orientation as
// its ancestors move.
func (node *Node) SetTargetLocation(location mgl32.Vec3) {
	if node.target != nil {
		node.target.RemoveListener(node.observerForTarget())
		node.target = nil
	}
	node.targetLocation = location
	node.hasTargetLocation = true
	node.targetDirty = true
	node.markTransformDirty()
}

// ShouldTrackTarget returns whether the node re-points at its target every
// transform pass rather than only once when the target is set.
func (node *Node) ShouldTrackTarget() bool { return node.shouldTrackTarget }

// SetShouldTrackTarget switches between point-once and continuous tracking.
// While tracking is on, manual rotation writes to the node are ignored.
func (node *Node) SetShouldTrackTarget(track bool) {
	node.shouldTrackTarget = track
	if track && node.HasTarget() {
		node.targetDirty = true
		node.markTransformDirty()
	}
}

// IsTrackingForBumpMapping returns whether the target solve feeds
// GlobalLightPosition instead of rotating the node.
func (node *Node) IsTrackingForBumpMapping() bool { return node.isTrackingForBumpMapping }

// SetIsTrackingForBumpMapping switches the target solve into bump-map mode:
// instead of rotating the node toward the target, the solve records the
// target's global location as the node's GlobalLightPosition, for tangent
// space lighting computations. The node's orientation stays manual.
func (node *Node) SetIsTrackingForBumpMapping(bump bool) {
	node.isTrackingForBumpMapping = bump
	if node.HasTarget() {
		node.targetDirty = true
		node.markTransformDirty()
	}
}

// TargettingConstraint returns the axis restriction applied to target solves.
func (node *Node) TargettingConstraint() TargettingConstraint { return node.targettingConstraint }

// SetTargettingConstraint restricts target solves to rotation around a
// single global or local axis.
func (node *Node) SetTargettingConstraint(constraint TargettingConstraint) {
	node.targettingConstraint = constraint
	if node.HasTarget() {
		node.targetDirty = true
		node.markTransformDirty()
	}
}

// GlobalLightPosition returns the light position recorded by bump-map mode
// target solves.
func (node *Node) GlobalLightPosition() mgl32.Vec3 { return node.globalLightPosition }

// isTrackingRotation reports whether manual rotation writes should be
// ignored: the node is continuously tracking a target and the solve owns the
// orientation. Bump-map tracking leaves the orientation manual.
func (node *Node) isTrackingRotation() bool {
	return node.shouldTrackTarget && node.HasTarget() && !node.isTrackingForBumpMapping
}

func (node *Node) clearTargetState() {
	node.target = nil
	node.hasTargetLocation = false
	node.targetDirty = false
}

// resolveTarget runs the target solve if one is pending. It is called from
// rebuildTransform after the global matrix is composed, so the node's own
// global location is fresh. Returns whether the node's rotation changed and
// the matrix must be recomposed.
func (node *Node) resolveTarget() bool {

	if !node.targetDirty {
		return false
	}
	if !node.shouldTrackTarget {
		// Point-once solves consume the dirty flag; tracking solves leave it
		// to be re-armed by target movement.
		node.targetDirty = false
	}
	if !node.HasTarget() {
		return false
	}

	targetLoc := node.targetLocation
	if node.target != nil {
		targetLoc = node.target.GlobalLocation()
	}

	if node.isTrackingForBumpMapping {
		node.globalLightPosition = targetLoc
		return false
	}

	dir := targetLoc.Sub(node.GlobalLocation())
	if dir.Len() < mgl32.Epsilon {
		return false
	}

	dir = node.constrainGlobalDirection(dir)
	if dir.Len() < mgl32.Epsilon {
		return false
	}

	// The solve works in the parent's frame: remove the parent's global
	// rotation from the world-space direction before handing it to the
	// rotator.
	localDir := dir
	if node.parent != nil {
		localDir = node.parent.GlobalRotation().Inverse().Rotate(dir)
	}

	localDir = node.constrainLocalDirection(localDir)
	if localDir.Len() < mgl32.Epsilon {
		return false
	}

	before := node.rotator.Quaternion()
	if node.rotator.SetForwardDirection(localDir) != nil {
		return false
	}
	return node.rotator.Quaternion() != before
}

// constrainGlobalDirection flattens the world-space pointing direction for
// global-axis constraints by zeroing its component along the held axis.
func (node *Node) constrainGlobalDirection(dir mgl32.Vec3) mgl32.Vec3 {
	switch node.targettingConstraint {
	case TargettingConstraintGlobalX:
		dir[0] = 0
	case TargettingConstraintGlobalY:
		dir[1] = 0
	case TargettingConstraintGlobalZ:
		dir[2] = 0
	}
	return dir
}

// constrainLocalDirection flattens the parent-frame pointing direction for
// local-axis constraints, after the parent rotation has been removed.
func (node *Node) constrainLocalDirection(dir mgl32.Vec3) mgl32.Vec3 {
	switch node.targettingConstraint {
	case TargettingConstraintLocalX:
		dir[0] = 0
	case TargettingConstraintLocalY:
		dir[1] = 0
	case TargettingConstraintLocalZ:
		dir[2] = 0
	}
	return dir
}
