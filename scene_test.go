package grove3d

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUpdateHookOrdering(t *testing.T) {

	scene := NewScene("test")
	node := NewNode("node")
	scene.Root().AddChild(node)

	var order []string

	node.OnBeforeTransform = func(ctx *UpdateContext) {
		order = append(order, "before")
		// Values written here must be visible in this same tick's global
		// matrix.
		node.SetLocation(mgl32.Vec3{1, 2, 3})
	}
	node.OnAfterTransform = func(ctx *UpdateContext) {
		order = append(order, "after")
		if !vecNear(node.GlobalLocation(), mgl32.Vec3{1, 2, 3}, 1e-5) {
			t.Fatal("after-transform hook saw a stale global location:", node.GlobalLocation())
		}
	}

	scene.Update(0.016)

	if len(order) != 2 || order[0] != "before" || order[1] != "after" {
		t.Fatal("hooks ran out of order:", order)
	}
}

func TestNonRunningSubtreeSkipped(t *testing.T) {

	scene := NewScene("test")
	parent := NewNode("parent")
	child := NewNode("child")
	scene.Root().AddChild(parent)
	parent.AddChild(child)

	calls := 0
	child.OnBeforeTransform = func(ctx *UpdateContext) { calls++ }

	parent.SetRunning(false, false)
	scene.Update(0.016)
	if calls != 0 {
		t.Fatal("hooks of a non-running subtree still ran")
	}

	parent.SetRunning(true, false)
	scene.Update(0.016)
	if calls != 1 {
		t.Fatal("hooks did not resume after the subtree restarted")
	}
}

func TestMidTraversalRemovalIsDeferred(t *testing.T) {

	scene := NewScene("test")
	doomed := NewNode("doomed")
	witness := NewNode("witness")
	scene.Root().AddChild(doomed)
	scene.Root().AddChild(witness)

	witnessRan := false
	doomed.OnBeforeTransform = func(ctx *UpdateContext) {
		ctx.Remove(doomed)
	}
	witness.OnBeforeTransform = func(ctx *UpdateContext) {
		witnessRan = true
	}

	scene.Update(0.016)

	if !witnessRan {
		t.Fatal("removal during traversal disturbed the walk")
	}
	if doomed.Parent() != nil {
		t.Fatal("deferred removal was not applied after the traversal")
	}
}

func TestQueuedOperationsRunOnUpdate(t *testing.T) {

	scene := NewScene("test")

	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer wg.Done()
			scene.QueueOperation(func() {
				scene.Root().AddChild(NewNode("queued"))
			})
		}()
	}
	wg.Wait()

	if scene.Root().ChildCount() != 0 {
		t.Fatal("queued operations ran before Update")
	}

	scene.Update(0.016)

	if scene.Root().ChildCount() != 4 {
		t.Fatal("expected 4 queued children after Update, got", scene.Root().ChildCount())
	}
}

func TestDrawDispatchesContent(t *testing.T) {

	scene := NewScene("test")

	drawn := 0
	node := NewNode("node")
	node.SetContent(testContent{box: NewBox(1, 1, 1), drawn: &drawn})
	scene.Root().AddChild(node)
	scene.Update(0.016)

	visited := 0
	scene.Draw(&DrawContext{Visitor: func(n *Node) { visited++ }})

	if drawn != 1 {
		t.Fatal("content not drawn, count is", drawn)
	}
	if visited != 1 {
		t.Fatal("visitor not called, count is", visited)
	}

	// A nil context draws everything without culling.
	scene.Draw(nil)
	if drawn != 2 {
		t.Fatal("nil-context draw did not dispatch content")
	}
}
