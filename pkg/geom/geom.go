package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a world or local space position/direction. Y is up.
type Vec3 = mgl64.Vec3

// Quat is a rotation.
type Quat = mgl64.Quat

var (
	// Up is the world vertical axis.
	Up = Vec3{0, 1, 0}
	// Forward is the local forward axis (+Z).
	Forward = Vec3{0, 0, 1}
	// Right is the local right axis (+X).
	Right = Vec3{1, 0, 0}
)

// Identity returns the identity rotation.
func Identity() Quat {
	return mgl64.QuatIdent()
}

// YawRotation returns the rotation about +Y by yaw degrees. A positive yaw
// turns +Z toward +X.
func YawRotation(yawDeg float64) Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(yawDeg), Up)
}

// RotateYaw rotates v about +Y by yaw degrees.
func RotateYaw(yawDeg float64, v Vec3) Vec3 {
	return YawRotation(yawDeg).Rotate(v)
}

// NormalizeYaw wraps a yaw in degrees into [0, 360).
func NormalizeYaw(yawDeg float64) float64 {
	y := math.Mod(yawDeg, 360)
	if y < 0 {
		y += 360
	}
	if y >= 360 {
		y = 0
	}
	return y
}

// Horizontal projects v onto the XZ plane.
func Horizontal(v Vec3) Vec3 {
	return Vec3{v[0], 0, v[2]}
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Slerp spherically interpolates between a and b along the shorter arc.
func Slerp(a, b Quat, t float64) Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// Clamp01 clamps t to [0, 1].
func Clamp01(t float64) float64 {
	return mgl64.Clamp(t, 0, 1)
}

// Sign returns -1, 0 or 1 according to the sign of f.
func Sign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

// ApproxEqual reports whether a and b are within eps of each other on every axis.
func ApproxEqual(a, b Vec3, eps float64) bool {
	return a.ApproxEqualThreshold(b, eps)
}
