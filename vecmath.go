package grove3d

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Grove3D uses a right-handed, Y-up coordinate system, like OpenGL. A Node with
// no rotation faces VecForward (down the -Z axis), with VecUp above it and
// VecRight off to its right.
var (
	VecForward = mgl32.Vec3{0, 0, -1}
	VecUp      = mgl32.Vec3{0, 1, 0}
	VecRight   = mgl32.Vec3{1, 0, 0}
)

// VecNull is the sentinel returned by location queries that have no answer
// (e.g. a ray query against a node with no bounding volume). It is not a valid
// location; check for it with IsVecNull.
var VecNull = mgl32.Vec3{math32.Inf(1), math32.Inf(1), math32.Inf(1)}

// IsVecNull returns if the vector is the VecNull "no location" sentinel.
func IsVecNull(vec mgl32.Vec3) bool {
	return math32.IsInf(vec[0], 1) && math32.IsInf(vec[1], 1) && math32.IsInf(vec[2], 1)
}

// minScaleComponent is the minimum magnitude a scale component is clamped to
// when composing a transform matrix, so that the matrix stays invertible.
const minScaleComponent = 1e-4

// ToRadians is a helper function to easily convert degrees to radians.
func ToRadians(degrees float32) float32 {
	return math32.Pi * degrees / 180
}

// ToDegrees is a helper function to easily convert radians to degrees for human readability.
func ToDegrees(radians float32) float32 {
	return radians / math32.Pi * 180
}

// normalizeAngle360 brings an angle in degrees into the (-360, 360] range. A
// positive full turn normalizes to 360, not 0, so a deliberate whole-rotation
// value survives a round trip through the Euler view.
func normalizeAngle360(degrees float32) float32 {
	r := math32.Mod(degrees, 360)
	if r == 0 && degrees >= 360 {
		return 360
	}
	return r
}

// normalizeAngle180 brings an angle in degrees into the (-180, 180] range.
func normalizeAngle180(degrees float32) float32 {
	degrees = math32.Mod(degrees, 360)
	if degrees > 180 {
		degrees -= 360
	} else if degrees <= -180 {
		degrees += 360
	}
	return degrees
}

func clampScaleComponent(s float32) float32 {
	if math32.Abs(s) >= minScaleComponent {
		return s
	}
	if math32.Signbit(s) {
		return -minScaleComponent
	}
	return minScaleComponent
}

// transformPoint transforms a point by the matrix, including translation.
func transformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// transformDirection transforms a direction by the matrix, ignoring translation.
func transformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// decomposeTransform splits an affine transform matrix into its translation,
// rotation, and scale components. Negative scale factors cannot be recovered
// unambiguously and come back folded into the rotation.
func decomposeTransform(m mgl32.Mat4) (location mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {

	location = m.Col(3).Vec3()

	bx := m.Col(0).Vec3()
	by := m.Col(1).Vec3()
	bz := m.Col(2).Vec3()

	scale = mgl32.Vec3{bx.Len(), by.Len(), bz.Len()}

	if scale[0] != 0 {
		bx = bx.Mul(1 / scale[0])
	}
	if scale[1] != 0 {
		by = by.Mul(1 / scale[1])
	}
	if scale[2] != 0 {
		bz = bz.Mul(1 / scale[2])
	}

	rotBasis := mgl32.Mat4{
		bx[0], bx[1], bx[2], 0,
		by[0], by[1], by[2], 0,
		bz[0], bz[1], bz[2], 0,
		0, 0, 0, 1,
	}

	return location, mgl32.Mat4ToQuat(rotBasis).Normalize(), scale
}

// rigidInverse inverts a rigid transform (rotation and translation only) by
// transposing the rotation block, which is much cheaper than a full inversion.
func rigidInverse(m mgl32.Mat4) mgl32.Mat4 {

	r := mgl32.Mat4{
		m.At(0, 0), m.At(0, 1), m.At(0, 2), 0,
		m.At(1, 0), m.At(1, 1), m.At(1, 2), 0,
		m.At(2, 0), m.At(2, 1), m.At(2, 2), 0,
		0, 0, 0, 1,
	}

	t := m.Col(3).Vec3()
	it := transformDirection(r, t).Mul(-1)

	r[12] = it[0]
	r[13] = it[1]
	r[14] = it[2]

	return r
}

// maxAbsComponent returns the largest component magnitude of the vector. Used
// to scale sphere radii conservatively under non-uniform node scaling.
func maxAbsComponent(v mgl32.Vec3) float32 {
	return math32.Max(math32.Abs(v[0]), math32.Max(math32.Abs(v[1]), math32.Abs(v[2])))
}

// Box is an axis-aligned box described by its minimum and maximum corners.
// The zero Box is a zero-sized box at the origin; use NullBox for the "no
// content" sentinel.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewBox returns a Box of the given dimensions, centered on the local origin.
func NewBox(width, height, depth float32) Box {
	half := mgl32.Vec3{width / 2, height / 2, depth / 2}
	return Box{Min: half.Mul(-1), Max: half}
}

// NullBox returns the sentinel Box representing "no content anywhere"; any
// union with it yields the other box unchanged.
func NullBox() Box {
	return Box{
		Min: mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// IsNull returns if the Box is the NullBox sentinel (or otherwise inverted).
func (box Box) IsNull() bool {
	return box.Min[0] > box.Max[0] || box.Min[1] > box.Max[1] || box.Min[2] > box.Max[2]
}

// Size returns the width, height, and depth of the Box.
func (box Box) Size() mgl32.Vec3 {
	return box.Max.Sub(box.Min)
}

// Center returns the center point of the Box.
func (box Box) Center() mgl32.Vec3 {
	return box.Min.Add(box.Max).Mul(0.5)
}

// Union returns the smallest Box containing both boxes. Null boxes are
// treated as empty.
func (box Box) Union(other Box) Box {
	if box.IsNull() {
		return other
	}
	if other.IsNull() {
		return box
	}
	return Box{
		Min: mgl32.Vec3{
			math32.Min(box.Min[0], other.Min[0]),
			math32.Min(box.Min[1], other.Min[1]),
			math32.Min(box.Min[2], other.Min[2]),
		},
		Max: mgl32.Vec3{
			math32.Max(box.Max[0], other.Max[0]),
			math32.Max(box.Max[1], other.Max[1]),
			math32.Max(box.Max[2], other.Max[2]),
		},
	}
}

// ExtendedToInclude returns a copy of the Box grown just enough to contain the point.
func (box Box) ExtendedToInclude(point mgl32.Vec3) Box {
	if box.IsNull() {
		return Box{Min: point, Max: point}
	}
	for i := 0; i < 3; i++ {
		if point[i] < box.Min[i] {
			box.Min[i] = point[i]
		}
		if point[i] > box.Max[i] {
			box.Max[i] = point[i]
		}
	}
	return box
}

// ExpandedBy returns a copy of the Box inflated by the padding amount on all six sides.
func (box Box) ExpandedBy(padding float32) Box {
	if box.IsNull() {
		return box
	}
	pad := mgl32.Vec3{padding, padding, padding}
	return Box{Min: box.Min.Sub(pad), Max: box.Max.Add(pad)}
}

// Corners returns the eight corner points of the Box.
func (box Box) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{box.Min[0], box.Min[1], box.Min[2]},
		{box.Max[0], box.Min[1], box.Min[2]},
		{box.Min[0], box.Max[1], box.Min[2]},
		{box.Max[0], box.Max[1], box.Min[2]},
		{box.Min[0], box.Min[1], box.Max[2]},
		{box.Max[0], box.Min[1], box.Max[2]},
		{box.Min[0], box.Max[1], box.Max[2]},
		{box.Max[0], box.Max[1], box.Max[2]},
	}
}

// Transformed returns the axis-aligned Box containing this Box after being
// transformed by the matrix. The result generally grows under rotation.
func (box Box) Transformed(m mgl32.Mat4) Box {
	if box.IsNull() {
		return box
	}
	out := NullBox()
	for _, corner := range box.Corners() {
		out = out.ExtendedToInclude(transformPoint(m, corner))
	}
	return out
}

// Contains returns whether the point lies inside or on the surface of the Box.
func (box Box) Contains(point mgl32.Vec3) bool {
	return point[0] >= box.Min[0] && point[0] <= box.Max[0] &&
		point[1] >= box.Min[1] && point[1] <= box.Max[1] &&
		point[2] >= box.Min[2] && point[2] <= box.Max[2]
}

// ClosestPoint returns the point on the inside or surface of the Box closest
// to the point given.
func (box Box) ClosestPoint(point mgl32.Vec3) mgl32.Vec3 {
	out := point
	for i := 0; i < 3; i++ {
		if out[i] < box.Min[i] {
			out[i] = box.Min[i]
		} else if out[i] > box.Max[i] {
			out[i] = box.Max[i]
		}
	}
	return out
}
