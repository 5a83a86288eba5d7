package placement

import (
	"math"

	"github.com/chazu/kexbuild/pkg/geom"
)

// degenerateHorizontal is the squared XZ length below which a view
// direction has no usable horizontal heading.
const degenerateHorizontal = 1e-12

// DepthAxis returns the world axis a depth offset moves along: the object's
// local forward or right, whichever lines up better with the horizontal
// view direction, signed to point away from the viewer. Ties pick right.
// ok is false when the view direction is vertical or zero.
func DepthAxis(yawDeg float64, viewDir geom.Vec3) (axis geom.Vec3, ok bool) {
	flat := geom.Horizontal(viewDir)
	if flat.LenSqr() < degenerateHorizontal {
		return geom.Vec3{}, false
	}
	flat = flat.Normalize()

	rot := geom.YawRotation(yawDeg)
	fwd := rot.Rotate(geom.Forward)
	right := rot.Rotate(geom.Right)
	fd := flat.Dot(fwd)
	rd := flat.Dot(right)
	if math.Abs(fd) > math.Abs(rd) {
		return fwd.Mul(geom.Sign(fd)), true
	}
	return right.Mul(geom.Sign(rd)), true
}

// ResolvePose applies the grid offsets and yaw to target. The vertical
// offset moves along +Y; the depth offset moves along DepthAxis and is
// dropped when the view direction has no horizontal heading.
func ResolvePose(target geom.Vec3, yawDeg float64, vertical, depth int, viewDir geom.Vec3, gridSize float64) (geom.Vec3, geom.Quat) {
	pos := target
	pos[1] += float64(vertical) * gridSize
	if depth != 0 {
		if axis, ok := DepthAxis(yawDeg, viewDir); ok {
			pos = pos.Add(axis.Mul(float64(depth) * gridSize))
		}
	}
	return pos, geom.YawRotation(yawDeg)
}

// Smooth moves the rendered transform toward the resolved one. A transform
// still at the UnsetY sentinel jumps straight to the target; otherwise
// position is lerped and rotation slerped by clamp(dt*rate, 0, 1).
func Smooth(pos geom.Vec3, rot geom.Quat, targetPos geom.Vec3, targetRot geom.Quat, dt, rate float64) (geom.Vec3, geom.Quat) {
	if pos[1] == UnsetY {
		return targetPos, targetRot
	}
	t := geom.Clamp01(dt * rate)
	return geom.Lerp(pos, targetPos, t), geom.Slerp(rot, targetRot, t)
}
