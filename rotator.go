package grove3d

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Rotator holds a Node's local rotation. Internally the rotation is always a
// single canonical quaternion; the other views (Euler angles, axis and angle,
// forward / up direction pair) are derived from it lazily and cached. Setting
// any one view rebuilds the quaternion and invalidates the cached views, so
// the views can never disagree with each other.
//
// Euler angles are in degrees and compose as yaw (Y), then pitch (X), then
// roll (Z), matching the right-handed, Y-up convention of the rest of the
// package.
type Rotator struct {
	quat mgl32.Quat

	euler      mgl32.Vec3 // cached Euler view, degrees
	eulerValid bool

	axis           mgl32.Vec3
	angle          float32 // cached axis-angle view, degrees
	axisAngleValid bool

	// referenceUp fixes the roll around the forward direction when the
	// rotation is specified directionally (SetForwardDirection, targeting).
	referenceUp mgl32.Vec3
}

// NewRotator returns a Rotator at the identity rotation, with the reference
// up direction set to VecUp.
func NewRotator() Rotator {
	return Rotator{
		quat:        mgl32.QuatIdent(),
		referenceUp: VecUp,
	}
}

func (rot *Rotator) invalidateViews() {
	rot.eulerValid = false
	rot.axisAngleValid = false
}

// Quaternion returns the canonical rotation quaternion.
func (rot *Rotator) Quaternion() mgl32.Quat {
	return rot.quat
}

// SetQuaternion sets the rotation from a quaternion directly. The quaternion
// is normalized on the way in.
func (rot *Rotator) SetQuaternion(quat mgl32.Quat) {
	rot.quat = quat.Normalize()
	rot.invalidateViews()
}

// RotateByQuaternion composes an additional rotation onto the current one.
func (rot *Rotator) RotateByQuaternion(quat mgl32.Quat) {
	rot.SetQuaternion(rot.quat.Mul(quat))
}

// Euler returns the rotation as Euler angles in degrees, each normalized to
// the (-360, 360] range.
func (rot *Rotator) Euler() mgl32.Vec3 {
	if !rot.eulerValid {
		rot.euler = eulerFromQuat(rot.quat)
		rot.eulerValid = true
	}
	return rot.euler
}

// SetEuler sets the rotation from Euler angles in degrees (yaw around Y,
// pitch around X, roll around Z, composed in that order). Each angle is
// normalized to (-360, 360].
func (rot *Rotator) SetEuler(degrees mgl32.Vec3) {
	degrees = mgl32.Vec3{
		normalizeAngle360(degrees[0]),
		normalizeAngle360(degrees[1]),
		normalizeAngle360(degrees[2]),
	}
	rot.quat = quatFromEuler(degrees)
	rot.invalidateViews()
	rot.euler = degrees
	rot.eulerValid = true
}

// RotateByEuler adds the given Euler angle increments (in degrees) to the
// current Euler view of the rotation.
func (rot *Rotator) RotateByEuler(degrees mgl32.Vec3) {
	rot.SetEuler(rot.Euler().Add(degrees))
}

// AxisAngle returns the rotation as a unit axis and an angle in degrees,
// normalized to (-180, 180]. Under the identity rotation the axis is
// undefined, and is returned as the zero vector by convention.
func (rot *Rotator) AxisAngle() (axis mgl32.Vec3, angleDegrees float32) {
	if !rot.axisAngleValid {
		rot.axis, rot.angle = axisAngleFromQuat(rot.quat)
		rot.axisAngleValid = true
	}
	return rot.axis, rot.angle
}

// SetAxisAngle sets the rotation to the given angle in degrees around the
// given axis. A zero axis means the identity rotation regardless of angle.
func (rot *Rotator) SetAxisAngle(axis mgl32.Vec3, angleDegrees float32) {
	if axis.Len() < mgl32.Epsilon {
		rot.SetQuaternion(mgl32.QuatIdent())
		return
	}
	rot.SetQuaternion(mgl32.QuatRotate(ToRadians(angleDegrees), axis.Normalize()))
}

// RotateByAxisAngle composes an additional rotation of the given angle in
// degrees around the given axis onto the current rotation.
func (rot *Rotator) RotateByAxisAngle(axis mgl32.Vec3, angleDegrees float32) {
	if axis.Len() < mgl32.Epsilon {
		return
	}
	rot.RotateByQuaternion(mgl32.QuatRotate(ToRadians(angleDegrees), axis.Normalize()))
}

// ForwardDirection returns the unit direction the rotation points VecForward at.
func (rot *Rotator) ForwardDirection() mgl32.Vec3 {
	return rot.quat.Rotate(VecForward)
}

// UpDirection returns the unit direction the rotation points VecUp at.
func (rot *Rotator) UpDirection() mgl32.Vec3 {
	return rot.quat.Rotate(VecUp)
}

// RightDirection returns the unit direction the rotation points VecRight at.
func (rot *Rotator) RightDirection() mgl32.Vec3 {
	return rot.quat.Rotate(VecRight)
}

// SetForwardDirection orients the rotation so that its forward direction
// points along the given vector, using the reference up direction to fix the
// roll. A zero-length direction returns ErrInvalidArgument.
func (rot *Rotator) SetForwardDirection(dir mgl32.Vec3) error {
	if dir.Len() < mgl32.Epsilon {
		return errors.Wrap(ErrInvalidArgument, "zero-length forward direction")
	}
	rot.SetQuaternion(quatForDirection(dir, rot.referenceUp))
	return nil
}

// ReferenceUpDirection returns the up direction used to resolve directional rotations.
func (rot *Rotator) ReferenceUpDirection() mgl32.Vec3 {
	return rot.referenceUp
}

// SetReferenceUpDirection sets the up direction used to resolve directional
// rotations (SetForwardDirection and target tracking). A zero-length
// direction returns ErrInvalidArgument.
func (rot *Rotator) SetReferenceUpDirection(up mgl32.Vec3) error {
	if up.Len() < mgl32.Epsilon {
		return errors.Wrap(ErrInvalidArgument, "zero-length reference up direction")
	}
	rot.referenceUp = up.Normalize()
	return nil
}

// quatFromEuler builds the canonical quaternion for Euler angles in degrees,
// composing yaw (Y), then pitch (X), then roll (Z).
func quatFromEuler(degrees mgl32.Vec3) mgl32.Quat {
	qYaw := mgl32.QuatRotate(ToRadians(degrees[1]), mgl32.Vec3{0, 1, 0})
	qPitch := mgl32.QuatRotate(ToRadians(degrees[0]), mgl32.Vec3{1, 0, 0})
	qRoll := mgl32.QuatRotate(ToRadians(degrees[2]), mgl32.Vec3{0, 0, 1})
	return qYaw.Mul(qPitch).Mul(qRoll).Normalize()
}

// eulerFromQuat extracts yaw / pitch / roll in degrees from a quaternion,
// assuming the Ry * Rx * Rz composition order.
func eulerFromQuat(quat mgl32.Quat) mgl32.Vec3 {

	m := quat.Normalize().Mat4()

	sinPitch := -m.At(1, 2)

	if math32.Abs(sinPitch) > 0.99999 {
		// Gimbal lock; roll folds into yaw, so report roll as zero.
		pitch := math32.Asin(math32.Max(-1, math32.Min(1, sinPitch)))
		yaw := math32.Atan2(m.At(0, 1), m.At(0, 0))
		if sinPitch < 0 {
			yaw = -yaw
		}
		return mgl32.Vec3{ToDegrees(pitch), ToDegrees(yaw), 0}
	}

	pitch := math32.Asin(sinPitch)
	yaw := math32.Atan2(m.At(0, 2), m.At(2, 2))
	roll := math32.Atan2(m.At(1, 0), m.At(1, 1))

	return mgl32.Vec3{ToDegrees(pitch), ToDegrees(yaw), ToDegrees(roll)}
}

// axisAngleFromQuat extracts the unit rotation axis and angle in degrees,
// normalized to (-180, 180]. The identity rotation reports a zero axis.
func axisAngleFromQuat(quat mgl32.Quat) (mgl32.Vec3, float32) {

	quat = quat.Normalize()

	w := math32.Max(-1, math32.Min(1, quat.W))
	angle := 2 * math32.Acos(w)

	s := math32.Sqrt(1 - w*w)
	if s < mgl32.Epsilon {
		return mgl32.Vec3{}, 0
	}

	axis := quat.V.Mul(1 / s)
	angleDegrees := normalizeAngle180(ToDegrees(angle))

	return axis.Normalize(), angleDegrees
}

// quatForDirection builds the rotation that points VecForward along dir,
// using referenceUp to fix the roll around dir.
func quatForDirection(dir, referenceUp mgl32.Vec3) mgl32.Quat {

	back := dir.Normalize().Mul(-1)

	right := referenceUp.Cross(back)
	if right.Len() < mgl32.Epsilon {
		// The direction is parallel to the reference up; pick a stand-in
		// up axis so the orientation stays well defined.
		alt := VecForward
		if math32.Abs(back.Dot(alt)) > 0.99999 {
			alt = VecRight
		}
		right = alt.Cross(back)
	}
	right = right.Normalize()
	up := back.Cross(right)

	basis := mgl32.Mat4{
		right[0], right[1], right[2], 0,
		up[0], up[1], up[2], 0,
		back[0], back[1], back[2], 0,
		0, 0, 0, 1,
	}

	return mgl32.Mat4ToQuat(basis).Normalize()
}
