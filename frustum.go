package grove3d

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a world-space plane in normal-and-distance form: a point p is on
// the plane when Normal·p + D == 0, and on the inside when the expression is
// positive.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from the point to the plane;
// positive on the inside.
func (plane Plane) DistanceTo(point mgl32.Vec3) float32 {
	return plane.Normal.Dot(point) + plane.D
}

// Frustum is a camera's viewing volume as six inward-facing planes, used to
// cull nodes whose bounding volumes fall entirely outside the view.
type Frustum struct {
	// Left, Right, Bottom, Top, Near, Far, inward-facing.
	Planes [6]Plane
}

// NewFrustumFromMatrix extracts the six planes from a combined
// view-projection matrix (projection multiplied by view). Plane normals are
// normalized so signed distances are in world units.
func NewFrustumFromMatrix(viewProjection mgl32.Mat4) Frustum {

	m := viewProjection

	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{m.At(i, 0), m.At(i, 1), m.At(i, 2), m.At(i, 3)}
	}

	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}

	frustum := Frustum{}
	for i, p := range planes {
		n := p.Vec3()
		length := n.Len()
		if length < mgl32.Epsilon {
			frustum.Planes[i] = Plane{Normal: mgl32.Vec3{0, 1, 0}, D: math32.MaxFloat32}
			continue
		}
		frustum.Planes[i] = Plane{Normal: n.Mul(1 / length), D: p.W() / length}
	}
	return frustum
}

// ContainsPoint returns whether the world-space point is inside the frustum.
func (frustum Frustum) ContainsPoint(point mgl32.Vec3) bool {
	for _, plane := range frustum.Planes {
		if plane.DistanceTo(point) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere returns whether any part of the sphere could be inside
// the frustum. The test is conservative: a sphere fully outside any single
// plane is rejected, anything else passes.
func (frustum Frustum) IntersectsSphere(sphere Sphere) bool {
	for _, plane := range frustum.Planes {
		if plane.DistanceTo(sphere.Center) < -sphere.Radius {
			return false
		}
	}
	return true
}

// IntersectsBox returns whether any part of the axis-aligned box could be
// inside the frustum. For each plane the box's most-inside corner is tested;
// a box fully outside any single plane is rejected.
func (frustum Frustum) IntersectsBox(box Box) bool {

	for _, plane := range frustum.Planes {

		corner := box.Min
		if plane.Normal[0] >= 0 {
			corner[0] = box.Max[0]
		}
		if plane.Normal[1] >= 0 {
			corner[1] = box.Max[1]
		}
		if plane.Normal[2] >= 0 {
			corner[2] = box.Max[2]
		}

		if plane.DistanceTo(corner) < 0 {
			return false
		}
	}

	return true
}
