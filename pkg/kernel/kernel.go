// Package kernel defines the abstract geometry kernel used for world
// collision and tessellation. The sdfx subpackage provides the only
// implementation; the interface keeps world and tessellate independent of
// it.
package kernel

import "github.com/chazu/kexbuild/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max geom.Vec3)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(center, size geom.Vec3) Solid
	Ground(height, extent float64) Solid

	// Union of any number of solids. An empty union is a solid that
	// nothing ever hits.
	Union(solids ...Solid) Solid

	// Transforms
	Translate(s Solid, v geom.Vec3) Solid
	RotateY(s Solid, yawDeg float64) Solid

	// Raycast returns the first surface point on the segment from -> to.
	// Surfaces of solids that contain from are ignored until the
	// segment leaves them.
	Raycast(s Solid, from, to geom.Vec3) (geom.Vec3, bool)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Place orients s by yaw about +Y and moves it to pos, the transform every
// placed instance and ghost uses.
func Place(k Kernel, s Solid, pos geom.Vec3, yawDeg float64) Solid {
	if yawDeg != 0 {
		s = k.RotateY(s, yawDeg)
	}
	if pos != (geom.Vec3{}) {
		s = k.Translate(s, pos)
	}
	return s
}
