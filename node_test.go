package grove3d

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

func TestGlobalLocationThroughHierarchy(t *testing.T) {

	a := NewNode("A")
	b := NewNode("B")
	if err := a.AddChild(b); err != nil {
		t.Fatal(err)
	}

	a.SetLocation(mgl32.Vec3{10, 5, 0})
	b.SetLocation(mgl32.Vec3{1, 0, 0})

	if !vecNear(b.GlobalLocation(), mgl32.Vec3{11, 5, 0}, 1e-5) {
		t.Fatal("expected child global location (11, 5, 0), got", b.GlobalLocation())
	}

	// Rotating the parent 90 degrees around Y swings the child's offset from
	// +X to -Z.
	a.SetRotation(mgl32.Vec3{0, 90, 0})
	if !vecNear(b.GlobalLocation(), mgl32.Vec3{10, 5, -1}, 1e-4) {
		t.Fatal("expected child global location (10, 5, -1) after parent rotation, got", b.GlobalLocation())
	}

	// Parent scale applies to the child's offset too.
	a.SetRotation(mgl32.Vec3{0, 0, 0})
	a.SetScale(mgl32.Vec3{2, 2, 2})
	if !vecNear(b.GlobalLocation(), mgl32.Vec3{12, 5, 0}, 1e-4) {
		t.Fatal("expected child global location (12, 5, 0) under parent scale, got", b.GlobalLocation())
	}
}

func TestLazyRebuildOnlyTouchesStaleNodes(t *testing.T) {

	root := NewNode("root")
	a := NewNode("a")
	b := NewNode("b")
	sibling := NewNode("sibling")
	root.AddChild(a)
	a.AddChild(b)
	root.AddChild(sibling)

	root.UpdateTransformMatrices()

	siblingGen := sibling.transformGeneration
	bGen := b.transformGeneration

	// Moving a dirties only a's subtree; the sibling's cached matrix must
	// survive the next rebuild untouched.
	a.SetLocation(mgl32.Vec3{3, 0, 0})
	root.UpdateTransformMatrices()

	if sibling.transformGeneration != siblingGen {
		t.Fatal("sibling was rebuilt despite being clean")
	}
	if b.transformGeneration == bGen {
		t.Fatal("descendant of a moved node was not rebuilt")
	}
}

func TestAddChildIdempotence(t *testing.T) {

	parent := NewNode("parent")
	child := NewNode("child")

	if err := parent.AddChild(child); err != nil {
		t.Fatal(err)
	}
	if err := parent.AddChild(child); err != nil {
		t.Fatal("re-adding a child to its current parent must be a no-op, got", err)
	}
	if parent.ChildCount() != 1 {
		t.Fatal("re-adding a child duplicated it; child count is", parent.ChildCount())
	}
}

func TestAddChildRejectsCycles(t *testing.T) {

	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	a.AddChild(b)
	b.AddChild(c)

	if err := a.AddChild(a); !errors.Is(err, ErrInvalidArgument) {
		t.Fatal("self-parenting must return ErrInvalidArgument, got", err)
	}
	if err := c.AddChild(a); !errors.Is(err, ErrInvalidArgument) {
		t.Fatal("parenting to a descendant must return ErrInvalidArgument, got", err)
	}
	if a.Parent() != nil || c.ChildCount() != 0 {
		t.Fatal("rejected add must not mutate the tree")
	}
}

func TestAddChildReparents(t *testing.T) {

	first := NewNode("first")
	second := NewNode("second")
	child := NewNode("child")

	first.AddChild(child)
	second.AddChild(child)

	if first.ChildCount() != 0 {
		t.Fatal("child not detached from its previous parent")
	}
	if child.Parent() != second {
		t.Fatal("child not attached to the new parent")
	}
}

func TestAddAndLocalizeChildPreservesGlobalPose(t *testing.T) {

	oldParent := NewNode("old")
	oldParent.SetLocation(mgl32.Vec3{5, 0, 0})
	oldParent.SetRotation(mgl32.Vec3{0, 45, 0})

	child := NewNode("child")
	child.SetLocation(mgl32.Vec3{1, 2, 3})
	oldParent.AddChild(child)

	newParent := NewNode("new")
	newParent.SetLocation(mgl32.Vec3{-3, 8, 1})
	newParent.SetRotation(mgl32.Vec3{30, 0, 0})
	newParent.SetScale(mgl32.Vec3{2, 2, 2})

	before := child.GlobalLocation()
	beforeForward := child.GlobalForwardDirection()

	if err := newParent.AddAndLocalizeChild(child); err != nil {
		t.Fatal(err)
	}

	if !vecNear(child.GlobalLocation(), before, 1e-3) {
		t.Fatal("global location changed across localize:", before, "->", child.GlobalLocation())
	}
	if !vecNear(child.GlobalForwardDirection(), beforeForward, 1e-3) {
		t.Fatal("global orientation changed across localize")
	}
}

func TestRemoveChildAutoremoveWhenEmpty(t *testing.T) {

	root := NewNode("root")
	wrapper := NewNode("wrapper")
	wrapper.ShouldAutoremoveWhenEmpty = true
	leaf := NewNode("leaf")

	root.AddChild(wrapper)
	wrapper.AddChild(leaf)

	wrapper.RemoveChild(leaf)

	if wrapper.Parent() != nil {
		t.Fatal("empty wrapper should have removed itself from its parent")
	}
	if root.ChildCount() != 0 {
		t.Fatal("root still holds the wrapper")
	}
}

type recordingCanceler struct {
	stopped []*Node
}

func (canceler *recordingCanceler) StopActionsFor(node *Node) {
	canceler.stopped = append(canceler.stopped, node)
}

func TestRemoveStopsActionsAcrossSubtree(t *testing.T) {

	scene := NewScene("test")
	canceler := &recordingCanceler{}
	scene.SetActionCanceler(canceler)

	parent := NewNode("parent")
	child := NewNode("child")
	scene.Root().AddChild(parent)
	parent.AddChild(child)

	parent.Remove()

	if len(canceler.stopped) != 2 {
		t.Fatal("expected actions stopped for the whole removed subtree, got", len(canceler.stopped))
	}
}

type recordingListener struct {
	transformed int
	destroyed   int
}

func (listener *recordingListener) NodeWasTransformed(node *Node) { listener.transformed++ }
func (listener *recordingListener) NodeWasDestroyed(node *Node)   { listener.destroyed++ }

func TestListenersNotified(t *testing.T) {

	node := NewNode("node")
	listener := &recordingListener{}
	node.AddListener(listener)
	node.AddListener(listener) // duplicate registration is a no-op

	node.SetLocation(mgl32.Vec3{1, 0, 0})
	node.UpdateTransformMatrices()

	if listener.transformed != 1 {
		t.Fatal("expected exactly one transform notification, got", listener.transformed)
	}

	node.Destroy()
	if listener.destroyed != 1 {
		t.Fatal("expected exactly one destruction notification, got", listener.destroyed)
	}
}

func TestGlobalTransformInvertedRoundTrip(t *testing.T) {

	parent := NewNode("parent")
	parent.SetLocation(mgl32.Vec3{2, -1, 4})
	parent.SetRotation(mgl32.Vec3{15, 40, -5})

	child := NewNode("child")
	child.SetLocation(mgl32.Vec3{0, 3, 0})
	child.SetScale(mgl32.Vec3{2, 0.5, 1})
	parent.AddChild(child)

	global := child.GlobalTransform()
	inverted := child.GlobalTransformInverted()

	if !global.Mul4(inverted).ApproxEqualThreshold(mgl32.Ident4(), 1e-3) {
		t.Fatal("global transform times its inverse is not identity")
	}

	point := mgl32.Vec3{1.5, -2, 0.25}
	roundTrip := transformPoint(inverted, transformPoint(global, point))
	if !vecNear(roundTrip, point, 1e-3) {
		t.Fatal("point round trip through the inverse failed:", point, "->", roundTrip)
	}
}

func TestRigidInversePath(t *testing.T) {

	parent := NewNode("parent")
	parent.SetLocation(mgl32.Vec3{10, 2, -3})
	parent.SetRotation(mgl32.Vec3{0, 30, 0})

	child := NewNode("child")
	child.SetLocation(mgl32.Vec3{1, 1, 1})
	parent.AddChild(child)

	if !child.IsTransformRigid() {
		t.Fatal("unit-scale chain should be rigid")
	}

	point := mgl32.Vec3{4, 5, 6}
	roundTrip := transformPoint(child.GlobalTransformInverted(), transformPoint(child.GlobalTransform(), point))
	if !vecNear(roundTrip, point, 1e-3) {
		t.Fatal("rigid inverse round trip failed:", point, "->", roundTrip)
	}

	child.SetScale(mgl32.Vec3{2, 2, 2})
	if child.IsTransformRigid() {
		t.Fatal("scaled node must not be classified rigid")
	}
}

func TestScaleComponentClamp(t *testing.T) {

	node := NewNode("node")
	node.SetScale(mgl32.Vec3{0, 1, 1})

	// A zero scale component is clamped when the matrix is composed, so the
	// global matrix stays invertible.
	inverted := node.GlobalTransformInverted()
	for i := 0; i < 16; i++ {
		if math32.IsNaN(inverted[i]) {
			t.Fatal("inverse of a clamped-scale matrix contains NaN")
		}
	}
}

func TestGetByPath(t *testing.T) {

	root := NewNode("root")
	torso := NewNode("Torso")
	arm := NewNode("Arm")
	hand := NewNode("Hand")
	root.AddChild(torso)
	torso.AddChild(arm)
	arm.AddChild(hand)

	if root.Get("Torso/Arm/Hand") != hand {
		t.Fatal("path lookup failed")
	}
	if hand.Get("../../Arm") != arm {
		t.Fatal("parent path lookup failed")
	}
	if root.Get("Torso/Leg") != nil {
		t.Fatal("missing path must return nil")
	}
}

func TestSubtreeBoundingBox(t *testing.T) {

	root := NewNode("root")
	a := NewNode("a")
	a.SetLocation(mgl32.Vec3{5, 0, 0})
	a.SetContent(testContent{box: NewBox(2, 2, 2)})
	root.AddChild(a)

	b := NewNode("b")
	b.SetLocation(mgl32.Vec3{-5, 0, 0})
	b.SetContent(testContent{box: NewBox(2, 2, 2)})
	root.AddChild(b)

	box := root.BoundingBox()
	if box.IsNull() {
		t.Fatal("subtree with content reported a null box")
	}
	if !vecNear(box.Min, mgl32.Vec3{-6, -1, -1}, 1e-4) || !vecNear(box.Max, mgl32.Vec3{6, 1, 1}, 1e-4) {
		t.Fatal("subtree box wrong:", box)
	}

	if !NewNode("empty").BoundingBox().IsNull() {
		t.Fatal("empty subtree must report the null box sentinel")
	}

	root.SetLocation(mgl32.Vec3{100, 0, 0})
	global := root.GlobalBoundingBox()
	if !vecNear(global.Center(), mgl32.Vec3{100, 0, 0}, 1e-3) {
		t.Fatal("global subtree box not in world coordinates:", global)
	}
}

type testContent struct {
	box   Box
	drawn *int
}

func (content testContent) LocalContentBoundingBox() Box { return content.box }

func (content testContent) Draw(ctx *DrawContext) {
	if content.drawn != nil {
		*content.drawn++
	}
}

func BenchmarkUpdateTransformMatrices(b *testing.B) {

	b.ReportAllocs()

	root := NewNode("root")
	parents := []*Node{root}
	for i := 0; i < 500; i++ {
		node := NewNode("node")
		parents[i%len(parents)].AddChild(node)
		parents = append(parents, node)
	}

	for i := 0; i < b.N; i++ {
		root.SetLocation(mgl32.Vec3{float32(i % 10), 0, 0})
		root.UpdateTransformMatrices()
	}
}
