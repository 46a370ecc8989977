package grove3d

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingVolume approximates the spatial extent of one or more Nodes for
// culling and intersection testing. A volume is shared by reference: several
// nodes may point at the same volume (a skeleton bone and the skin mesh it
// drives, for instance), but exactly one of them, the primary node, supplies
// the global matrix that places the volume in world space. The first node a
// volume is attached to becomes the primary; SetPrimaryNode reassigns it.
//
// Global forms are cached against the primary node's transform generation,
// so repeated queries between transform changes cost nothing.
type BoundingVolume interface {
	// PrimaryNode returns the node whose global transform places this
	// volume in world space.
	PrimaryNode() *Node
	// SetPrimaryNode reassigns which sharing node places the volume.
	SetPrimaryNode(node *Node)
	// attachTo records the first attachment as the primary node.
	attachTo(node *Node)

	// Padding returns the amount the global form is inflated on all sides.
	Padding() float32
	// SetPadding inflates the global form by the given amount on all sides,
	// a buffer against premature culling while content animates.
	SetPadding(padding float32)

	// LocalBox returns the volume's bounds as a box in the primary node's
	// local coordinates, without padding.
	LocalBox() Box
	// GlobalBox returns the volume's axis-aligned bounds in world
	// coordinates, padded.
	GlobalBox() Box
	// GlobalSphere returns a world-coordinate sphere enclosing the volume, padded.
	GlobalSphere() Sphere

	// IntersectsFrustum returns whether any part of the volume could be
	// inside the frustum. May report true for some volumes that are
	// actually outside; never false for one that is inside.
	IntersectsFrustum(frustum Frustum) bool
	// Intersects returns whether this volume and the other overlap in world
	// space. A nil other reports false.
	Intersects(other BoundingVolume) bool
	// ContainsGlobalPoint returns whether the world-space point is inside the volume.
	ContainsGlobalPoint(point mgl32.Vec3) bool
	// GlobalRayIntersection returns the first point, at or after the ray's
	// start, where the ray punctures the volume, in world coordinates. The
	// second result is false on a miss. A ray starting inside reports the
	// exit point.
	GlobalRayIntersection(ray Ray) (mgl32.Vec3, bool)
}

// Sphere is a world-space bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// IntersectsSphere returns whether the two spheres overlap.
func (sphere Sphere) IntersectsSphere(other Sphere) bool {
	r := sphere.Radius + other.Radius
	return other.Center.Sub(sphere.Center).LenSqr() <= r*r
}

// Contains returns whether the point lies inside or on the sphere.
func (sphere Sphere) Contains(point mgl32.Vec3) bool {
	return point.Sub(sphere.Center).LenSqr() <= sphere.Radius*sphere.Radius
}

// volumeBase carries the state every volume shape shares: the primary node,
// padding, and the transform-generation cache keys.
type volumeBase struct {
	primary *Node
	padding float32

	cachedGeneration uint64
	cacheValid       bool
}

func (base *volumeBase) PrimaryNode() *Node { return base.primary }

func (base *volumeBase) SetPrimaryNode(node *Node) {
	base.primary = node
	base.cacheValid = false
}

func (base *volumeBase) attachTo(node *Node) {
	if base.primary == nil {
		base.primary = node
		base.cacheValid = false
	}
}

func (base *volumeBase) Padding() float32 { return base.padding }

func (base *volumeBase) SetPadding(padding float32) {
	base.padding = padding
	base.cacheValid = false
}

// refreshNeeded checks the primary node's transform generation against the
// cached one, returning whether the global forms must be rebuilt. A volume
// with no primary node is treated as sitting at the world origin and never
// needs a rebuild after the first.
func (base *volumeBase) refreshNeeded() bool {
	if base.primary == nil {
		if base.cacheValid {
			return false
		}
		base.cacheValid = true
		return true
	}
	gen := base.primary.transformNotice()
	if base.cacheValid && gen == base.cachedGeneration {
		return false
	}
	base.cachedGeneration = gen
	base.cacheValid = true
	return true
}

func (base *volumeBase) primaryTransform() mgl32.Mat4 {
	if base.primary == nil {
		return mgl32.Ident4()
	}
	return base.primary.GlobalTransform()
}

// BoundingBox is an axis-aligned box volume. Its local box is fixed at
// construction; the global form is the axis-aligned box containing the local
// box's transformed corners, so it grows under rotation.
type BoundingBox struct {
	volumeBase
	local Box

	globalBox    Box
	globalSphere Sphere
}

// NewBoundingBox returns a box volume of the given dimensions, centered on
// the primary node's local origin.
func NewBoundingBox(width, height, depth float32) *BoundingBox {
	return &BoundingBox{local: NewBox(width, height, depth)}
}

// NewBoundingBoxFromBox returns a box volume with the given local extents.
func NewBoundingBoxFromBox(local Box) *BoundingBox {
	return &BoundingBox{local: local}
}

// LocalBox returns the box in the primary node's local coordinates.
func (bounds *BoundingBox) LocalBox() Box { return bounds.local }

func (bounds *BoundingBox) refresh() {
	if !bounds.refreshNeeded() {
		return
	}
	bounds.globalBox = bounds.local.Transformed(bounds.primaryTransform()).ExpandedBy(bounds.padding)
	size := bounds.globalBox.Size()
	bounds.globalSphere = Sphere{
		Center: bounds.globalBox.Center(),
		Radius: size.Len() / 2,
	}
}

// GlobalBox returns the padded world-space box.
func (bounds *BoundingBox) GlobalBox() Box {
	bounds.refresh()
	return bounds.globalBox
}

// GlobalSphere returns a world-space sphere enclosing the padded box.
func (bounds *BoundingBox) GlobalSphere() Sphere {
	bounds.refresh()
	return bounds.globalSphere
}

// IntersectsFrustum tests the padded global box against all six frustum planes.
func (bounds *BoundingBox) IntersectsFrustum(frustum Frustum) bool {
	return frustum.IntersectsBox(bounds.GlobalBox())
}

// Intersects tests this box against the other volume in world space.
func (bounds *BoundingBox) Intersects(other BoundingVolume) bool {
	if other == nil {
		return false
	}
	switch o := other.(type) {
	case *BoundingBox:
		return btBoxBox(bounds.GlobalBox(), o.GlobalBox())
	case *BoundingSphere:
		return btBoxSphere(bounds.GlobalBox(), o.GlobalSphere())
	case *BoundingComposite:
		return o.Intersects(bounds)
	}
	// Unknown shape; fall back on its enclosing sphere.
	return btBoxSphere(bounds.GlobalBox(), other.GlobalSphere())
}

// ContainsGlobalPoint returns whether the world-space point is inside the padded box.
func (bounds *BoundingBox) ContainsGlobalPoint(point mgl32.Vec3) bool {
	return bounds.GlobalBox().Contains(point)
}

// GlobalRayIntersection returns the first world-space point at which the ray
// punctures the padded box, or false on a miss.
func (bounds *BoundingBox) GlobalRayIntersection(ray Ray) (mgl32.Vec3, bool) {
	t, ok := rayBoxIntersection(ray, bounds.GlobalBox())
	if !ok {
		return VecNull, false
	}
	return ray.At(t), true
}

// BoundingSphere is a sphere volume. The global radius scales by the largest
// magnitude component of the primary node's global scale, keeping the
// enclosure conservative under non-uniform scaling.
type BoundingSphere struct {
	volumeBase
	localCenter mgl32.Vec3
	localRadius float32

	global Sphere
}

// NewBoundingSphere returns a sphere volume of the given radius, centered on
// the primary node's local origin.
func NewBoundingSphere(radius float32) *BoundingSphere {
	return &BoundingSphere{localRadius: radius}
}

// NewBoundingSphereAt returns a sphere volume centered at the given offset
// in the primary node's local coordinates.
func NewBoundingSphereAt(center mgl32.Vec3, radius float32) *BoundingSphere {
	return &BoundingSphere{localCenter: center, localRadius: radius}
}

// LocalBox returns the box enclosing the sphere in local coordinates.
func (bounds *BoundingSphere) LocalBox() Box {
	r := mgl32.Vec3{bounds.localRadius, bounds.localRadius, bounds.localRadius}
	return Box{Min: bounds.localCenter.Sub(r), Max: bounds.localCenter.Add(r)}
}

func (bounds *BoundingSphere) refresh() {
	if !bounds.refreshNeeded() {
		return
	}
	scale := mgl32.Vec3{1, 1, 1}
	if bounds.primary != nil {
		scale = bounds.primary.GlobalScale()
	}
	bounds.global = Sphere{
		Center: transformPoint(bounds.primaryTransform(), bounds.localCenter),
		Radius: bounds.localRadius*maxAbsComponent(scale) + bounds.padding,
	}
}

// GlobalBox returns the world-space box enclosing the padded sphere.
func (bounds *BoundingSphere) GlobalBox() Box {
	sphere := bounds.GlobalSphere()
	r := mgl32.Vec3{sphere.Radius, sphere.Radius, sphere.Radius}
	return Box{Min: sphere.Center.Sub(r), Max: sphere.Center.Add(r)}
}

// GlobalSphere returns the padded world-space sphere.
func (bounds *BoundingSphere) GlobalSphere() Sphere {
	bounds.refresh()
	return bounds.global
}

// IntersectsFrustum tests the padded global sphere against all six frustum planes.
func (bounds *BoundingSphere) IntersectsFrustum(frustum Frustum) bool {
	return frustum.IntersectsSphere(bounds.GlobalSphere())
}

// Intersects tests this sphere against the other volume in world space.
func (bounds *BoundingSphere) Intersects(other BoundingVolume) bool {
	if other == nil {
		return false
	}
	switch o := other.(type) {
	case *BoundingSphere:
		return bounds.GlobalSphere().IntersectsSphere(o.GlobalSphere())
	case *BoundingBox:
		return btBoxSphere(o.GlobalBox(), bounds.GlobalSphere())
	case *BoundingComposite:
		return o.Intersects(bounds)
	}
	return bounds.GlobalSphere().IntersectsSphere(other.GlobalSphere())
}

// ContainsGlobalPoint returns whether the world-space point is inside the padded sphere.
func (bounds *BoundingSphere) ContainsGlobalPoint(point mgl32.Vec3) bool {
	return bounds.GlobalSphere().Contains(point)
}

// GlobalRayIntersection returns the first world-space point at which the ray
// punctures the padded sphere, or false on a miss.
func (bounds *BoundingSphere) GlobalRayIntersection(ray Ray) (mgl32.Vec3, bool) {
	t, ok := raySphereIntersection(ray, bounds.GlobalSphere())
	if !ok {
		return VecNull, false
	}
	return ray.At(t), true
}

// BoundingComposite combines component volumes; a candidate intersects the
// composite only when it intersects every component. The usual pairing is a
// cheap sphere first and an exact box second, so most far-away candidates
// are rejected on the sphere test alone.
type BoundingComposite struct {
	volumeBase
	components []BoundingVolume
}

// NewBoundingComposite returns a composite over the given components, in
// test order. Components share the composite's primary node once attached.
func NewBoundingComposite(components ...BoundingVolume) *BoundingComposite {
	return &BoundingComposite{components: components}
}

// NewBoundingSphereAndBox returns the standard cheap-then-exact composite: a
// sphere tested first and a box tested second.
func NewBoundingSphereAndBox(sphere *BoundingSphere, box *BoundingBox) *BoundingComposite {
	return &BoundingComposite{components: []BoundingVolume{sphere, box}}
}

// Components returns the component volumes in test order.
func (bounds *BoundingComposite) Components() []BoundingVolume {
	return append(make([]BoundingVolume, 0, len(bounds.components)), bounds.components...)
}

func (bounds *BoundingComposite) attachTo(node *Node) {
	bounds.volumeBase.attachTo(node)
	for _, c := range bounds.components {
		c.attachTo(node)
	}
}

// SetPrimaryNode reassigns the primary node for the composite and all components.
func (bounds *BoundingComposite) SetPrimaryNode(node *Node) {
	bounds.volumeBase.SetPrimaryNode(node)
	for _, c := range bounds.components {
		c.SetPrimaryNode(node)
	}
}

// SetPadding applies the padding to every component.
func (bounds *BoundingComposite) SetPadding(padding float32) {
	bounds.volumeBase.SetPadding(padding)
	for _, c := range bounds.components {
		c.SetPadding(padding)
	}
}

// LocalBox returns the local box of the last (most precise) component, or a
// null box for an empty composite.
func (bounds *BoundingComposite) LocalBox() Box {
	if len(bounds.components) == 0 {
		return NullBox()
	}
	return bounds.components[len(bounds.components)-1].LocalBox()
}

// GlobalBox returns the global box of the last (most precise) component.
func (bounds *BoundingComposite) GlobalBox() Box {
	if len(bounds.components) == 0 {
		return NullBox()
	}
	return bounds.components[len(bounds.components)-1].GlobalBox()
}

// GlobalSphere returns the global sphere of the first component, which by
// convention is the cheap enclosing one.
func (bounds *BoundingComposite) GlobalSphere() Sphere {
	if len(bounds.components) == 0 {
		return Sphere{}
	}
	return bounds.components[0].GlobalSphere()
}

// IntersectsFrustum returns whether every component intersects the frustum;
// the first component to miss rejects the composite.
func (bounds *BoundingComposite) IntersectsFrustum(frustum Frustum) bool {
	for _, c := range bounds.components {
		if !c.IntersectsFrustum(frustum) {
			return false
		}
	}
	return true
}

// Intersects returns whether the other volume intersects every component.
func (bounds *BoundingComposite) Intersects(other BoundingVolume) bool {
	if other == nil {
		return false
	}
	for _, c := range bounds.components {
		if !c.Intersects(other) {
			return false
		}
	}
	return len(bounds.components) > 0
}

// ContainsGlobalPoint returns whether the point is inside every component.
func (bounds *BoundingComposite) ContainsGlobalPoint(point mgl32.Vec3) bool {
	for _, c := range bounds.components {
		if !c.ContainsGlobalPoint(point) {
			return false
		}
	}
	return len(bounds.components) > 0
}

// GlobalRayIntersection runs the ray against the last (most precise)
// component, after a cheap miss check against the earlier ones.
func (bounds *BoundingComposite) GlobalRayIntersection(ray Ray) (mgl32.Vec3, bool) {
	if len(bounds.components) == 0 {
		return VecNull, false
	}
	for _, c := range bounds.components[:len(bounds.components)-1] {
		if _, ok := c.GlobalRayIntersection(ray); !ok {
			return VecNull, false
		}
	}
	return bounds.components[len(bounds.components)-1].GlobalRayIntersection(ray)
}

// btBoxBox returns whether two world-space boxes overlap.
func btBoxBox(a, b Box) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// btBoxSphere returns whether a world-space box and sphere overlap.
func btBoxSphere(box Box, sphere Sphere) bool {
	closest := box.ClosestPoint(sphere.Center)
	return closest.Sub(sphere.Center).LenSqr() <= sphere.Radius*sphere.Radius
}

// rayBoxIntersection returns the smallest non-negative ray parameter at
// which the ray punctures the box (the slab method). A ray starting inside
// the box reports the exit distance.
func rayBoxIntersection(ray Ray, box Box) (float32, bool) {

	var tMin, tMax float32 = -math32.MaxFloat32, math32.MaxFloat32

	for i := 0; i < 3; i++ {
		if math32.Abs(ray.Direction[i]) < 1e-9 {
			if ray.Origin[i] < box.Min[i] || ray.Origin[i] > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / ray.Direction[i]
		t1 := (box.Min[i] - ray.Origin[i]) * inv
		t2 := (box.Max[i] - ray.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}

	if tMax < 0 {
		// The whole box is behind the ray.
		return 0, false
	}
	if tMin < 0 {
		// The ray starts inside; the first puncture is the exit.
		return tMax, true
	}
	return tMin, true
}

// raySphereIntersection returns the smallest non-negative ray parameter at
// which the ray punctures the sphere. A ray starting inside the sphere
// reports the exit distance.
func raySphereIntersection(ray Ray, sphere Sphere) (float32, bool) {

	oc := ray.Origin.Sub(sphere.Center)
	a := ray.Direction.Dot(ray.Direction)
	if a < 1e-12 {
		return 0, false
	}
	b := 2 * oc.Dot(ray.Direction)
	c := oc.Dot(oc) - sphere.Radius*sphere.Radius

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}

	sq := math32.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
