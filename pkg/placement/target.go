package placement

import (
	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
)

// Collider is the ground collidable set: terrain plus anything built on it.
type Collider interface {
	// CastRay returns the first hit on the segment from -> to.
	CastRay(from, to geom.Vec3) (geom.Vec3, bool)
}

// ResolveTarget casts the pending object's ray and returns its default
// target. ok is false when the direction is too short to aim with; the
// caller then keeps the previous target. A nil collider never hits, and a
// nil def skips the base-height adjustment.
func ResolveTarget(origin, direction geom.Vec3, def *catalog.Definition, col Collider, tu Tuning) (target geom.Vec3, ok bool) {
	if direction.LenSqr() < tu.MinDirectionLengthSq {
		return geom.Vec3{}, false
	}
	dir := direction.Normalize()
	far := origin.Add(dir.Mul(tu.MaxRayDistance))

	switch {
	case castRay(col, origin, far, &target):
	case castRay(col,
		geom.Vec3{far[0], far[1] + tu.DowncastHeight, far[2]},
		geom.Vec3{far[0], far[1] - tu.DowncastHeight, far[2]},
		&target):
	default:
		target = geom.Vec3{far[0], 0, far[2]}
	}

	target = enforceMinDistance(origin, target, tu)

	if def != nil {
		target[1] += def.BaseOffset()
	}
	return target, true
}

func castRay(col Collider, from, to geom.Vec3, hit *geom.Vec3) bool {
	if col == nil {
		return false
	}
	p, ok := col.CastRay(from, to)
	if ok {
		*hit = p
	}
	return ok
}

// enforceMinDistance pushes target away from origin on the XZ plane so that
// nothing is built underfoot. Y is left alone.
func enforceMinDistance(origin, target geom.Vec3, tu Tuning) geom.Vec3 {
	o := geom.Horizontal(origin)
	t := geom.Horizontal(target)
	d := t.Sub(o).Len()
	if d >= tu.MinBuildDistance || d <= tu.HorizontalEpsilon {
		return target
	}
	pushed := o.Add(t.Sub(o).Mul(tu.MinBuildDistance / d))
	return geom.Vec3{pushed[0], target[1], pushed[2]}
}
