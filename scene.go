package grove3d

import (
	"sync"
)

// ActionCanceler is the collaborator contract for whatever external system
// owns running actions (tweens, behaviors) on nodes. When a node with
// ShouldStopActionsWhenRemoved set is removed from its parent, the scene
// asks its canceler to stop actions across the removed subtree.
type ActionCanceler interface {
	StopActionsFor(node *Node)
}

// UpdateContext carries per-tick state through the update traversal: the
// elapsed time, the scene root, and the collector for structural removals
// requested mid-traversal.
type UpdateContext struct {
	// DeltaTime is the seconds elapsed since the previous update.
	DeltaTime float32
	// Root is the root of the tree being updated.
	Root *Node

	pendingRemovals []*Node
}

// Remove schedules the node for removal from its parent once the current
// traversal finishes. Hooks must use this (or Scene.QueueOperation) instead
// of calling Remove directly, so the child lists being iterated are never
// restructured mid-walk.
func (ctx *UpdateContext) Remove(node *Node) {
	ctx.pendingRemovals = append(ctx.pendingRemovals, node)
}

func (ctx *UpdateContext) applyPendingRemovals() {
	for _, node := range ctx.pendingRemovals {
		node.Remove()
	}
	ctx.pendingRemovals = nil
}

// DrawContext carries per-frame state through the draw traversal: the
// camera's frustum for culling (nil disables culling) and whatever the
// caller's renderer needs to receive draw submissions.
type DrawContext struct {
	// Frustum culls nodes whose bounding volumes fall outside it. Nil means
	// draw everything visible.
	Frustum *Frustum

	// Visitor receives each node whose content is about to draw, before the
	// content's own Draw runs. Optional.
	Visitor func(node *Node)
}

// Scene owns a node tree's root and the machinery around the update pass:
// the cross-goroutine operation queue and the optional action canceler.
// All tree access outside QueueOperation must happen on the goroutine that
// calls Update and Draw.
type Scene struct {
	name string
	root *Node

	opMu    sync.Mutex
	opQueue []func()

	actionCanceler ActionCanceler
}

// NewScene returns a Scene with a fresh root node carrying the given name.
func NewScene(name string) *Scene {
	scene := &Scene{
		name: name,
		root: NewNode(name),
	}
	scene.root.scene = scene
	return scene
}

// Name returns the scene's name.
func (scene *Scene) Name() string { return scene.name }

// Root returns the scene's root node.
func (scene *Scene) Root() *Node { return scene.root }

// SetActionCanceler installs the collaborator asked to stop actions when
// nodes flagged ShouldStopActionsWhenRemoved leave the tree.
func (scene *Scene) SetActionCanceler(canceler ActionCanceler) {
	scene.actionCanceler = canceler
}

// QueueOperation schedules fn to run on the update goroutine at the start
// of the next Update. This is the only safe entry point for touching the
// tree from another goroutine; everything else is single-threaded by
// contract.
func (scene *Scene) QueueOperation(fn func()) {
	if fn == nil {
		return
	}
	scene.opMu.Lock()
	scene.opQueue = append(scene.opQueue, fn)
	scene.opMu.Unlock()
}

func (scene *Scene) drainOperations() {
	scene.opMu.Lock()
	ops := scene.opQueue
	scene.opQueue = nil
	scene.opMu.Unlock()
	for _, fn := range ops {
		fn()
	}
}

// Update advances the scene by dt seconds: queued operations run first, then
// the before-transform hooks over running nodes, then the transform rebuild
// pass (animation blending and target solves happen inside it), then the
// after-transform hooks, and finally any structural removals the hooks
// requested.
func (scene *Scene) Update(dt float32) {

	scene.drainOperations()

	ctx := &UpdateContext{DeltaTime: dt, Root: scene.root}

	scene.root.updateBeforeTransform(ctx)

	// Two passes: a tracking node ahead of its target in traversal order
	// re-dirties itself when the target moves during the first pass, and the
	// second pass settles it against the target's final location.
	scene.root.UpdateTransformMatrices()
	scene.root.UpdateTransformMatrices()

	scene.root.updateAfterTransform(ctx)

	ctx.applyPendingRemovals()
}

// Draw walks the visible tree, frustum-culls against the context, and
// dispatches each surviving node's local content. The scene itself never
// touches the graphics API.
func (scene *Scene) Draw(ctx *DrawContext) {
	if ctx == nil {
		ctx = &DrawContext{}
	}
	scene.root.TransformAndDrawWithVisitor(ctx)
}
