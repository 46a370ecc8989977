package grove3d

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a world-space half-line used for picking and line-of-sight queries.
// The direction does not need to be normalized; intersection points are
// exact either way, though the parameter returned by At is then in units of
// the direction's length.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay returns a Ray from the origin along the direction.
func NewRay(origin, direction mgl32.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray.
func (ray Ray) At(t float32) mgl32.Vec3 {
	return ray.Origin.Add(ray.Direction.Mul(t))
}

// LocationOfGlobalRayIntersection returns the point, in this node's local
// coordinates, where the world-space ray first punctures the node's bounding
// volume. Returns the VecNull sentinel when the node has no bounding volume,
// has opted out with ShouldIgnoreRayIntersection, or the ray misses. Only
// punctures at or ahead of the ray's start count; a ray starting inside the
// volume reports the exit point.
func (node *Node) LocationOfGlobalRayIntersection(ray Ray) mgl32.Vec3 {
	global := node.GlobalLocationOfGlobalRayIntersection(ray)
	if IsVecNull(global) {
		return VecNull
	}
	return transformPoint(node.GlobalTransformInverted(), global)
}

// GlobalLocationOfGlobalRayIntersection is LocationOfGlobalRayIntersection
// with the puncture point left in world coordinates.
func (node *Node) GlobalLocationOfGlobalRayIntersection(ray Ray) mgl32.Vec3 {
	if node.ShouldIgnoreRayIntersection || node.boundingVolume == nil {
		return VecNull
	}
	point, ok := node.boundingVolume.GlobalRayIntersection(ray)
	if !ok {
		return VecNull
	}
	return point
}

// Puncture is one node hit by a ray, with the world-space puncture point and
// its distance from the ray's origin.
type Puncture struct {
	Node           *Node
	GlobalLocation mgl32.Vec3
	Distance       float32
}

// NodePuncturer collects, over a subtree, the nodes punctured by a ray,
// sorted nearest first. By default invisible nodes and nodes whose volume
// already contains the ray's origin are skipped; the Should fields widen the
// collection.
type NodePuncturer struct {
	// ShouldPunctureInvisible includes nodes whose Visible flag is off.
	ShouldPunctureInvisible bool
	// ShouldPunctureFromInside includes nodes whose bounding volume already
	// contains the ray's origin.
	ShouldPunctureFromInside bool
}

// PuncturedNodes returns every node in the subtree rooted at root whose
// bounding volume the ray punctures, sorted ascending by distance from the
// ray's origin. Nodes without volumes and nodes that ignore ray
// intersections are never included.
func (puncturer *NodePuncturer) PuncturedNodes(root *Node, ray Ray) []Puncture {

	var punctures []Puncture

	root.visitSubtree(func(node *Node) {

		if !node.visible && !puncturer.ShouldPunctureInvisible {
			return
		}
		if node.boundingVolume == nil || node.ShouldIgnoreRayIntersection {
			return
		}
		if !puncturer.ShouldPunctureFromInside && node.boundingVolume.ContainsGlobalPoint(ray.Origin) {
			return
		}

		point := node.GlobalLocationOfGlobalRayIntersection(ray)
		if IsVecNull(point) {
			return
		}

		punctures = append(punctures, Puncture{
			Node:           node,
			GlobalLocation: point,
			Distance:       point.Sub(ray.Origin).Len(),
		})
	})

	sort.SliceStable(punctures, func(i, j int) bool {
		return punctures[i].Distance < punctures[j].Distance
	})

	return punctures
}

// ClosestPuncture returns the nearest puncture in the subtree, or false when
// the ray hits nothing.
func (puncturer *NodePuncturer) ClosestPuncture(root *Node, ray Ray) (Puncture, bool) {
	punctures := puncturer.PuncturedNodes(root, ray)
	if len(punctures) == 0 {
		return Puncture{}, false
	}
	return punctures[0], true
}
