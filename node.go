package grove3d

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var lastNodeTag uint64

// NodeListener receives notifications about a Node's global transform
// changing, or the Node being destroyed. Listeners are held without any
// lifetime coupling: a listener must remove itself with RemoveListener before
// it goes away, and must tolerate notifications arriving during a transform
// rebuild pass.
type NodeListener interface {
	// NodeWasTransformed is called after the node's global transform matrix
	// has been rebuilt.
	NodeWasTransformed(node *Node)
	// NodeWasDestroyed is called when the node is destroyed. The listener
	// should drop any references it holds to the node.
	NodeWasDestroyed(node *Node)
}

// LocalContent is the collaborator contract for anything that gives a Node
// drawable local content (typically a mesh). It is queried by the bounding
// and draw machinery, never owned.
type LocalContent interface {
	// LocalContentBoundingBox returns the axis-aligned box containing the
	// content, in the owning node's local coordinates.
	LocalContentBoundingBox() Box
	// Draw submits the content using the visitor carried by the context. The
	// node has already passed its visibility and culling checks by the time
	// this is called.
	Draw(ctx *DrawContext)
}

// Node is a single element of the scene graph. It owns a local transform
// (location, rotation, scale), an ordered collection of child Nodes, and a
// cached global transform matrix that is lazily rebuilt whenever local state
// changes anywhere along its ancestor chain.
//
// Nodes form a strict tree: every Node has at most one parent, and a Node can
// never be made a child of its own descendant.
type Node struct {
	name string
	tag  uint64

	location mgl32.Vec3
	rotator  Rotator
	scale    mgl32.Vec3

	parent   *Node
	children []*Node

	globalTransform         mgl32.Mat4
	globalTransformInverted mgl32.Mat4
	globalRotation          mgl32.Quat
	isTransformDirty        bool
	isInvertedDirty         bool
	isGlobalRotationDirty   bool
	isRigid                 bool
	transformGeneration     uint64

	listeners []NodeListener

	visible bool
	running bool

	content        LocalContent
	boundingVolume BoundingVolume

	// ShouldIgnoreRayIntersection makes every ray query against this node
	// return the VecNull sentinel, even when a bounding volume is attached.
	ShouldIgnoreRayIntersection bool

	// ShouldAutoremoveWhenEmpty removes this node from its own parent when
	// its last child is removed. Useful for wrapper nodes that only exist to
	// carry children.
	ShouldAutoremoveWhenEmpty bool

	// ShouldStopActionsWhenRemoved asks the scene's ActionCanceler (if one is
	// installed) to stop externally-owned actions targeting this node's
	// subtree when the node is removed from its parent.
	ShouldStopActionsWhenRemoved bool

	// ShouldCullSubtree makes a failed frustum test skip this node's entire
	// subtree during drawing, not just the node's own content. On for
	// structural nodes whose bounding volume encloses their descendants.
	ShouldCullSubtree bool

	target                   *Node
	targetObserverInstance   *targetObserver
	targetLocation           mgl32.Vec3
	hasTargetLocation        bool
	shouldTrackTarget        bool
	isTrackingForBumpMapping bool
	targettingConstraint     TargettingConstraint
	targetDirty              bool
	globalLightPosition      mgl32.Vec3

	animationStates  map[int]*AnimationState
	animationEnabled bool
	animationDirty   bool

	// OnBeforeTransform runs during the update pass before the transform
	// matrices are rebuilt; model logic that changes location, rotation, or
	// scale belongs here. Structural changes must go through
	// UpdateContext.Remove or Scene.QueueOperation, never directly.
	OnBeforeTransform func(ctx *UpdateContext)

	// OnAfterTransform runs during the update pass after the transform
	// matrices are rebuilt; logic that needs global coordinates belongs here.
	OnAfterTransform func(ctx *UpdateContext)

	scene *Scene // set on the root node only
}

// NewNode returns a new Node with the given name and a freshly assigned
// unique tag. The node starts visible, running, unparented, and at the
// identity transform.
func NewNode(name string) *Node {
	node := &Node{
		name:             name,
		tag:              atomic.AddUint64(&lastNodeTag, 1),
		scale:            mgl32.Vec3{1, 1, 1},
		rotator:          NewRotator(),
		globalTransform:  mgl32.Ident4(),
		visible:          true,
		running:          true,
		animationEnabled: true,
		isTransformDirty: true,
		isInvertedDirty:  true,
		isRigid:          true,

		ShouldCullSubtree:            true,
		ShouldStopActionsWhenRemoved: true,
	}
	return node
}

// Name returns the node's name.
func (node *Node) Name() string { return node.name }

// SetName sets the node's name.
func (node *Node) SetName(name string) { node.name = name }

// Tag returns the node's unique numeric tag, assigned at creation.
func (node *Node) Tag() uint64 { return node.tag }

// Parent returns the node's parent, or nil if the node is unparented. The
// reference is a back-pointer only; the parent owns the child, never the
// other way around.
func (node *Node) Parent() *Node { return node.parent }

// Children returns a copy of the node's ordered child list. The copy can be
// iterated safely while the tree is being restructured.
func (node *Node) Children() []*Node {
	return append(make([]*Node, 0, len(node.children)), node.children...)
}

// ChildCount returns the number of direct children.
func (node *Node) ChildCount() int { return len(node.children) }

// Root returns the top of the tree this node belongs to, which may be the
// node itself.
func (node *Node) Root() *Node {
	root := node
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Scene returns the Scene this node's tree is installed in, or nil if the
// tree is free-standing.
func (node *Node) Scene() *Scene {
	return node.Root().scene
}

// IsDescendantOf returns whether the node sits somewhere below other in the tree.
func (node *Node) IsDescendantOf(other *Node) bool {
	for p := node.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// AddChild appends the child to this node's ordered child collection,
// detaching it from any previous parent first. Adding a child that is
// already parented to this node is a no-op. Attempting to create a cycle
// (parenting a node to its own descendant, or to itself) returns
// ErrInvalidArgument without mutating the tree.
func (node *Node) AddChild(child *Node) error {

	if child == nil {
		return errors.Wrap(ErrInvalidArgument, "nil child")
	}
	if child == node || node.IsDescendantOf(child) {
		return errors.Wrap(ErrInvalidArgument, "a node cannot become a child of itself or of its own descendant")
	}
	if child.parent == node {
		return nil
	}

	if child.parent != nil {
		child.parent.RemoveChild(child)
	}

	child.parent = node
	node.children = append(node.children, child)
	child.markTransformDirty()

	return nil
}

// AddAndLocalizeChild adds the child like AddChild, but first rewrites the
// child's local transform so that its global location, rotation, and scale
// are preserved across the re-parenting. Both global matrices are brought up
// to date as needed. A child with no previous parent is treated as having an
// identity parent transform.
func (node *Node) AddAndLocalizeChild(child *Node) error {

	if child == nil {
		return errors.Wrap(ErrInvalidArgument, "nil child")
	}

	childGlobal := child.GlobalTransform()
	parentInverted := node.GlobalTransformInverted()

	if err := node.AddChild(child); err != nil {
		return err
	}

	location, rotation, scale := decomposeTransform(parentInverted.Mul4(childGlobal))
	child.location = location
	child.scale = scale
	child.rotator.SetQuaternion(rotation)
	child.markTransformDirty()

	return nil
}

// RemoveChild detaches the child from this node's child collection. Removing
// a node that is not a child is a no-op. If the child's
// ShouldStopActionsWhenRemoved flag is set, the scene's ActionCanceler is
// asked to stop actions across the removed subtree. If this node's
// ShouldAutoremoveWhenEmpty flag is set and this was the last child, this
// node removes itself from its own parent in turn.
func (node *Node) RemoveChild(child *Node) {

	for i, c := range node.children {
		if c != child {
			continue
		}

		var canceler ActionCanceler
		if scene := node.Scene(); scene != nil {
			canceler = scene.actionCanceler
		}

		node.children = append(node.children[:i], node.children[i+1:]...)
		child.parent = nil
		child.markTransformDirty()

		if child.ShouldStopActionsWhenRemoved && canceler != nil {
			child.visitSubtree(func(n *Node) {
				canceler.StopActionsFor(n)
			})
		}

		if node.ShouldAutoremoveWhenEmpty && len(node.children) == 0 {
			node.Remove()
		}

		return
	}
}

// Remove detaches the node from its parent. A node with no parent is left untouched.
func (node *Node) Remove() {
	if node.parent != nil {
		node.parent.RemoveChild(node)
	}
}

// Destroy removes the node from its parent, notifies destruction listeners,
// clears its target registration, and destroys all of its children. After
// Destroy the node must not be reused.
func (node *Node) Destroy() {

	node.Remove()
	node.SetTarget(nil)

	for _, listener := range append([]NodeListener{}, node.listeners...) {
		listener.NodeWasDestroyed(node)
	}
	node.listeners = nil

	children := node.children
	node.children = nil
	for _, child := range children {
		child.parent = nil
		child.Destroy()
	}

	node.animationStates = nil
	node.boundingVolume = nil
	node.content = nil
}

// AddListener registers a listener for transform and destruction
// notifications. Registering the same listener twice is a no-op.
func (node *Node) AddListener(listener NodeListener) {
	for _, l := range node.listeners {
		if l == listener {
			return
		}
	}
	node.listeners = append(node.listeners, listener)
}

// RemoveListener deregisters a previously added listener.
func (node *Node) RemoveListener(listener NodeListener) {
	for i, l := range node.listeners {
		if l == listener {
			node.listeners = append(node.listeners[:i], node.listeners[i+1:]...)
			return
		}
	}
}

func (node *Node) notifyTransformListeners() {
	for _, listener := range node.listeners {
		listener.NodeWasTransformed(node)
	}
}

// visitSubtree calls fn for the node and every descendant, in traversal order.
func (node *Node) visitSubtree(fn func(*Node)) {
	fn(node)
	for _, child := range node.children {
		child.visitSubtree(fn)
	}
}

// Visible returns whether the node is visible. Invisible nodes are skipped by
// the draw traversal and excluded from puncture queries by default.
func (node *Node) Visible() bool { return node.visible }

// SetVisible sets the node's visibility, recursively for the whole subtree if
// recursive is true.
func (node *Node) SetVisible(visible, recursive bool) {
	node.visible = visible
	if recursive {
		for _, child := range node.children {
			child.SetVisible(visible, true)
		}
	}
}

// Running returns whether the node participates in the update pass. The
// update hooks of a non-running node and its subtree are skipped.
func (node *Node) Running() bool { return node.running }

// SetRunning sets the node's running state, recursively for the whole
// subtree if recursive is true.
func (node *Node) SetRunning(running, recursive bool) {
	node.running = running
	if recursive {
		for _, child := range node.children {
			child.SetRunning(running, true)
		}
	}
}

// Location returns the node's local location, relative to its parent.
func (node *Node) Location() mgl32.Vec3 { return node.location }

// SetLocation sets the node's local location.
func (node *Node) SetLocation(location mgl32.Vec3) {
	node.location = location
	node.markTransformDirty()
}

// TranslateBy moves the node in its parent's coordinate frame.
func (node *Node) TranslateBy(delta mgl32.Vec3) {
	node.SetLocation(node.location.Add(delta))
}

// GlobalLocation returns the node's location in world coordinates.
func (node *Node) GlobalLocation() mgl32.Vec3 {
	return node.GlobalTransform().Col(3).Vec3()
}

// SetGlobalLocation sets the node's location in world coordinates by
// converting through the parent's inverted global matrix.
func (node *Node) SetGlobalLocation(location mgl32.Vec3) {
	if node.parent == nil {
		node.SetLocation(location)
		return
	}
	node.SetLocation(transformPoint(node.parent.GlobalTransformInverted(), location))
}

// Scale returns the node's local scale, component-wise.
func (node *Node) Scale() mgl32.Vec3 { return node.scale }

// SetScale sets the node's local scale, component-wise. Components are
// clamped to a minimum magnitude when the transform matrix is composed, so
// the matrix stays invertible.
func (node *Node) SetScale(scale mgl32.Vec3) {
	node.scale = scale
	node.markTransformDirty()
}

// IsUniformScale returns whether all three scale components are equal.
func (node *Node) IsUniformScale() bool {
	return node.scale[0] == node.scale[1] && node.scale[1] == node.scale[2]
}

// UniformScale returns the scale as a single scalar. For non-uniform scales
// this is the length of the scale vector relative to the unit cube diagonal,
// a reasonable single-number stand-in.
func (node *Node) UniformScale() float32 {
	if node.IsUniformScale() {
		return node.scale[0]
	}
	return node.scale.Len() / math32.Sqrt(3)
}

// SetUniformScale sets all three scale components to the same value.
func (node *Node) SetUniformScale(scale float32) {
	node.SetScale(mgl32.Vec3{scale, scale, scale})
}

// GlobalScale returns the node's scale in world terms, extracted from the
// global matrix. This requires a decomposition, so prefer Scale where local
// values suffice.
func (node *Node) GlobalScale() mgl32.Vec3 {
	_, _, scale := decomposeTransform(node.GlobalTransform())
	return scale
}

// Rotation returns the node's local rotation as Euler angles in degrees.
func (node *Node) Rotation() mgl32.Vec3 { return node.rotator.Euler() }

// SetRotation sets the node's local rotation from Euler angles in degrees
// (yaw Y, pitch X, roll Z order). Ignored while the node is actively
// tracking a target.
func (node *Node) SetRotation(degrees mgl32.Vec3) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.SetEuler(degrees)
	node.markTransformDirty()
}

// RotateBy adds the given Euler angle increments in degrees to the node's
// rotation. Ignored while the node is actively tracking a target.
func (node *Node) RotateBy(degrees mgl32.Vec3) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.RotateByEuler(degrees)
	node.markTransformDirty()
}

// Quaternion returns the node's local rotation as a quaternion.
func (node *Node) Quaternion() mgl32.Quat { return node.rotator.Quaternion() }

// SetQuaternion sets the node's local rotation from a quaternion. Ignored
// while the node is actively tracking a target.
func (node *Node) SetQuaternion(quat mgl32.Quat) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.SetQuaternion(quat)
	node.markTransformDirty()
}

// RotateByQuaternion composes an additional rotation onto the node's current
// one. Ignored while the node is actively tracking a target.
func (node *Node) RotateByQuaternion(quat mgl32.Quat) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.RotateByQuaternion(quat)
	node.markTransformDirty()
}

// AxisAngle returns the node's local rotation as a unit axis and an angle in
// degrees in (-180, 180]. Under the identity rotation the axis is the zero
// vector by convention.
func (node *Node) AxisAngle() (mgl32.Vec3, float32) { return node.rotator.AxisAngle() }

// SetAxisAngle sets the node's local rotation from an axis and an angle in
// degrees. Ignored while the node is actively tracking a target.
func (node *Node) SetAxisAngle(axis mgl32.Vec3, angleDegrees float32) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.SetAxisAngle(axis, angleDegrees)
	node.markTransformDirty()
}

// RotateByAxisAngle composes an additional rotation of the given angle in
// degrees around the given axis onto the node's rotation. Ignored while the
// node is actively tracking a target.
func (node *Node) RotateByAxisAngle(axis mgl32.Vec3, angleDegrees float32) {
	if node.isTrackingRotation() {
		return
	}
	node.rotator.RotateByAxisAngle(axis, angleDegrees)
	node.markTransformDirty()
}

// ForwardDirection returns the node's local forward direction as a unit vector.
func (node *Node) ForwardDirection() mgl32.Vec3 { return node.rotator.ForwardDirection() }

// SetForwardDirection points the node's local forward direction along the
// given vector, fixing the roll with the reference up direction. A zero
// vector returns ErrInvalidArgument. Ignored while the node is actively
// tracking a target.
func (node *Node) SetForwardDirection(dir mgl32.Vec3) error {
	if node.isTrackingRotation() {
		return nil
	}
	if err := node.rotator.SetForwardDirection(dir); err != nil {
		return err
	}
	node.markTransformDirty()
	return nil
}

// UpDirection returns the node's local up direction as a unit vector.
func (node *Node) UpDirection() mgl32.Vec3 { return node.rotator.UpDirection() }

// RightDirection returns the node's local right direction as a unit vector.
func (node *Node) RightDirection() mgl32.Vec3 { return node.rotator.RightDirection() }

// ReferenceUpDirection returns the up direction used when orienting the node
// directionally (SetForwardDirection and target tracking).
func (node *Node) ReferenceUpDirection() mgl32.Vec3 { return node.rotator.ReferenceUpDirection() }

// SetReferenceUpDirection sets the up direction used when orienting the node
// directionally. A zero vector returns ErrInvalidArgument.
func (node *Node) SetReferenceUpDirection(up mgl32.Vec3) error {
	if err := node.rotator.SetReferenceUpDirection(up); err != nil {
		return err
	}
	node.targetDirty = true
	node.markTransformDirty()
	return nil
}

// GlobalRotation returns the node's rotation in world terms as a quaternion,
// extracted lazily from the global matrix and cached.
func (node *Node) GlobalRotation() mgl32.Quat {
	node.GlobalTransform()
	if node.isGlobalRotationDirty {
		_, rotation, _ := decomposeTransform(node.globalTransform)
		node.globalRotation = rotation
		node.isGlobalRotationDirty = false
	}
	return node.globalRotation
}

// GlobalForwardDirection returns the direction the node faces in world coordinates.
func (node *Node) GlobalForwardDirection() mgl32.Vec3 {
	return node.GlobalRotation().Rotate(VecForward)
}

// GlobalUpDirection returns the node's up direction in world coordinates.
func (node *Node) GlobalUpDirection() mgl32.Vec3 {
	return node.GlobalRotation().Rotate(VecUp)
}

// GlobalRightDirection returns the node's right direction in world coordinates.
func (node *Node) GlobalRightDirection() mgl32.Vec3 {
	return node.GlobalRotation().Rotate(VecRight)
}

// markTransformDirty flags this node and every descendant as needing a
// global matrix rebuild. Because dirtiness always propagates downward at
// marking time, a node whose own flag is clear can trust its cached matrix.
func (node *Node) markTransformDirty() {
	if node.isTransformDirty {
		return
	}
	node.isTransformDirty = true
	node.isInvertedDirty = true
	node.isGlobalRotationDirty = true
	for _, child := range node.children {
		child.markTransformDirty()
	}
}

// DirtiestAncestor returns the highest node above this one (or this node
// itself) whose global matrix is stale. If nothing is stale it returns the
// node itself.
func (node *Node) DirtiestAncestor() *Node {
	dirtiest := node
	for p := node.parent; p != nil; p = p.parent {
		if p.isTransformDirty {
			dirtiest = p
		}
	}
	return dirtiest
}

// localTransform composes the node's local matrix as translation, then
// rotation, then scale, clamping near-zero scale components so the result
// stays invertible.
func (node *Node) localTransform() mgl32.Mat4 {
	t := mgl32.Translate3D(node.location[0], node.location[1], node.location[2])
	r := node.rotator.Quaternion().Mat4()
	s := mgl32.Scale3D(
		clampScaleComponent(node.scale[0]),
		clampScaleComponent(node.scale[1]),
		clampScaleComponent(node.scale[2]),
	)
	return t.Mul4(r).Mul4(s)
}

func (node *Node) scaleIsUnity() bool {
	return node.scale[0] == 1 && node.scale[1] == 1 && node.scale[2] == 1
}

// rebuildTransform recomposes the node's global matrix from its parent's
// (which must already be valid) and its local state. Animation blending and
// target resolution happen here, so they always see up-to-date coordinates.
func (node *Node) rebuildTransform() {

	if node.animationDirty {
		node.applyAnimationBlend()
	}

	parentGlobal := mgl32.Ident4()
	parentRigid := true
	if node.parent != nil {
		parentGlobal = node.parent.globalTransform
		parentRigid = node.parent.isRigid
	}

	node.globalTransform = parentGlobal.Mul4(node.localTransform())
	node.isTransformDirty = false
	node.isInvertedDirty = true
	node.isGlobalRotationDirty = true
	node.isRigid = parentRigid && node.scaleIsUnity()
	node.transformGeneration++

	// The matrix is composed before the target solve so the solve can use
	// this node's own fresh global location; if the solve rotates the node,
	// recompose with the new orientation.
	if node.resolveTarget() {
		node.globalTransform = parentGlobal.Mul4(node.localTransform())
		node.isGlobalRotationDirty = true
	}

	node.notifyTransformListeners()
}

// UpdateTransformMatrices rebuilds the global transform matrices of every
// stale node from the dirtiest ancestor downward, through this node and all
// descendants, clearing dirty flags and notifying transform listeners along
// the way.
func (node *Node) UpdateTransformMatrices() {
	node.DirtiestAncestor().updateTransformsRecursive()
}

func (node *Node) updateTransformsRecursive() {
	if node.isTransformDirty {
		node.rebuildTransform()
	}
	for _, child := range node.children {
		child.updateTransformsRecursive()
	}
}

// UpdateTransformMatrix rebuilds the global matrices along the ancestor
// chain and for this node only, leaving descendants to be rebuilt lazily or
// by a later UpdateTransformMatrices call.
func (node *Node) UpdateTransformMatrix() {
	if !node.isTransformDirty {
		return
	}
	if node.parent != nil {
		node.parent.UpdateTransformMatrix()
	}
	node.rebuildTransform()
}

// GlobalTransform returns the node's global transform matrix, rebuilding the
// stale part of the ancestor chain on demand.
func (node *Node) GlobalTransform() mgl32.Mat4 {
	if node.isTransformDirty {
		node.UpdateTransformMatrix()
	}
	return node.globalTransform
}

// GlobalTransformInverted returns the inverse of the global transform
// matrix, computed lazily and cached. Rigid transforms (rotation and
// translation only) take the cheap transposed-rotation path.
func (node *Node) GlobalTransformInverted() mgl32.Mat4 {
	m := node.GlobalTransform()
	if node.isInvertedDirty {
		if node.isRigid {
			node.globalTransformInverted = rigidInverse(m)
		} else {
			node.globalTransformInverted = m.Inv()
		}
		node.isInvertedDirty = false
	}
	return node.globalTransformInverted
}

// IsTransformRigid returns whether the node's global transform consists of
// rotation and translation only. Rigid transforms allow cheaper inverse and
// normal-transform paths.
func (node *Node) IsTransformRigid() bool {
	node.GlobalTransform()
	return node.isRigid
}

// transformNotice returns the generation counter of the node's global
// matrix, bumped on every rebuild. Bounding volumes cache against it.
func (node *Node) transformNotice() uint64 {
	node.GlobalTransform()
	return node.transformGeneration
}

// Content returns the node's local content collaborator, or nil.
func (node *Node) Content() LocalContent { return node.content }

// SetContent attaches (or clears, with nil) the node's local content
// collaborator. The node queries it for its bounding box and draw callback
// but takes no ownership.
func (node *Node) SetContent(content LocalContent) { node.content = content }

// BoundingVolume returns the node's bounding volume, or nil if none is attached.
func (node *Node) BoundingVolume() BoundingVolume { return node.boundingVolume }

// SetBoundingVolume attaches the volume to this node. The first node a
// volume is attached to becomes its primary node: the node whose global
// matrix positions the volume in world space. Volumes may be shared across
// nodes (e.g. a skeleton bone and the skin mesh it drives); later
// attachments keep the existing primary unless SetPrimaryNode is called.
// Passing nil detaches the volume.
func (node *Node) SetBoundingVolume(volume BoundingVolume) {
	node.boundingVolume = volume
	if volume != nil {
		volume.attachTo(node)
	}
}

// BoundingVolumePadding returns the padding of the attached volume, or 0 if
// no volume is attached.
func (node *Node) BoundingVolumePadding() float32 {
	if node.boundingVolume == nil {
		return 0
	}
	return node.boundingVolume.Padding()
}

// SetBoundingVolumePadding inflates the attached bounding volume by the
// given amount on all sides, a buffer zone against premature culling during
// animation. A no-op without a volume.
func (node *Node) SetBoundingVolumePadding(padding float32) {
	if node.boundingVolume != nil {
		node.boundingVolume.SetPadding(padding)
	}
}

// DoesIntersectFrustum returns whether the node's bounding volume intersects
// the frustum. A node with no bounding volume always reports true, so nodes
// without volumes are always drawn.
func (node *Node) DoesIntersectFrustum(frustum Frustum) bool {
	if node.boundingVolume == nil {
		return true
	}
	return node.boundingVolume.IntersectsFrustum(frustum)
}

// DoesIntersectNode returns whether this node's bounding volume intersects
// the other node's. If either node lacks a volume the answer is false.
func (node *Node) DoesIntersectNode(other *Node) bool {
	if other == nil || node.boundingVolume == nil || other.boundingVolume == nil {
		return false
	}
	return node.boundingVolume.Intersects(other.boundingVolume)
}

// BoundingBox returns the axis-aligned box, in this node's local
// coordinates, containing the node's own content and the recursively
// computed boxes of every child, each transformed into this node's frame.
//
// The aggregate is recomputed on every call for nodes with children, because
// any descendant transform change would invalidate a cache; callers that
// need it repeatedly should hold on to the result themselves. Returns the
// NullBox sentinel when the subtree has no content at all.
func (node *Node) BoundingBox() Box {

	box := NullBox()

	if node.content != nil {
		box = box.Union(node.content.LocalContentBoundingBox())
	} else if node.boundingVolume != nil {
		box = box.Union(node.boundingVolume.LocalBox())
	}

	for _, child := range node.children {
		childBox := child.BoundingBox()
		if childBox.IsNull() {
			continue
		}
		box = box.Union(childBox.Transformed(child.localTransform()))
	}

	return box
}

// GlobalBoundingBox returns the whole-subtree bounding box in world
// coordinates. Returns the NullBox sentinel when the subtree has no content.
func (node *Node) GlobalBoundingBox() Box {
	box := node.BoundingBox()
	if box.IsNull() {
		return box
	}
	return box.Transformed(node.GlobalTransform())
}

// Get searches the node's hierarchy for a descendant by a slash-separated
// path of names relative to this node; "Torso/Arm/Hand" finds the grandchild
// named "Hand". ".." moves up one level. Returns nil if no node matches.
func (node *Node) Get(path string) *Node {

	current := node

	for _, part := range strings.Split(path, "/") {

		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if part == ".." {
			current = current.parent
			if current == nil {
				return nil
			}
			continue
		}

		var found *Node
		for _, child := range current.children {
			if child.name == part {
				found = child
				break
			}
		}
		if found == nil {
			return nil
		}
		current = found
	}

	return current
}

// HierarchyAsString returns a string laying out this node's subtree with
// names, tags, and global locations. Useful for debugging tree layout.
func (node *Node) HierarchyAsString() string {

	var printNode func(node *Node, level int) string

	printNode = func(node *Node, level int) string {

		str := strings.Repeat("    |", level)
		if level > 0 {
			str += "-"
		}

		loc := node.GlobalLocation()
		str += " " + node.name + " #" + strconv.FormatUint(node.tag, 10) +
			" [" + strconv.FormatFloat(float64(loc[0]), 'f', 2, 32) +
			", " + strconv.FormatFloat(float64(loc[1]), 'f', 2, 32) +
			", " + strconv.FormatFloat(float64(loc[2]), 'f', 2, 32) + "]\n"

		for _, child := range node.children {
			str += printNode(child, level+1)
		}

		return str
	}

	return printNode(node, 0)
}

// updateBeforeTransform runs the pre-transform hooks over the subtree,
// skipping non-running nodes, and advances animation weight fades.
func (node *Node) updateBeforeTransform(ctx *UpdateContext) {
	if !node.running {
		return
	}
	node.advanceAnimationFades(ctx.DeltaTime)
	if node.OnBeforeTransform != nil {
		node.OnBeforeTransform(ctx)
	}
	for _, child := range node.children {
		child.updateBeforeTransform(ctx)
	}
}

// updateAfterTransform runs the post-transform hooks over the subtree,
// skipping non-running nodes.
func (node *Node) updateAfterTransform(ctx *UpdateContext) {
	if !node.running {
		return
	}
	if node.OnAfterTransform != nil {
		node.OnAfterTransform(ctx)
	}
	for _, child := range node.children {
		child.updateAfterTransform(ctx)
	}
}

// TransformAndDrawWithVisitor walks the subtree for drawing. Each visible
// node is tested against the context's frustum; nodes that pass hand off to
// their local content's draw callback. A failed test skips the whole subtree
// when ShouldCullSubtree is set, and just the node's own content otherwise.
// The node never talks to the graphics API itself; that belongs to the
// content collaborator.
func (node *Node) TransformAndDrawWithVisitor(ctx *DrawContext) {

	if !node.visible {
		return
	}

	skipContent := false

	if ctx.Frustum != nil && !node.DoesIntersectFrustum(*ctx.Frustum) {
		if node.ShouldCullSubtree {
			return
		}
		skipContent = true
	}

	if !skipContent && node.content != nil {
		if ctx.Visitor != nil {
			ctx.Visitor(node)
		}
		node.content.Draw(ctx)
	}

	for _, child := range node.children {
		child.TransformAndDrawWithVisitor(ctx)
	}
}
