// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 64

// Sphere tracing limits for Raycast.
const (
	hitEpsilon  = 1e-5
	minStep     = 1e-4
	bisectSteps = 64
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. A nil s is the
// empty solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max geom.Vec3) {
	if s.s == nil {
		return min, max
	}
	bb := s.s.BoundingBox()
	return fromV3(bb.Min), fromV3(bb.Max)
}

// groundSDF is the half-space below a horizontal plane. The bounding box is
// a slab of the given extent so that unions stay finite.
type groundSDF struct {
	height float64
	extent float64
}

func (g *groundSDF) Evaluate(p v3.Vec) float64 {
	return p.Y - g.height
}

func (g *groundSDF) BoundingBox() sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: -g.extent, Y: g.height - g.extent, Z: -g.extent},
		Max: v3.Vec{X: g.extent, Y: g.height, Z: g.extent},
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{meshCells: defaultMeshCells}
}

// WithMeshCells sets the marching cubes resolution along the longest axis.
func (k *SdfxKernel) WithMeshCells(n int) *SdfxKernel {
	if n > 0 {
		k.meshCells = n
	}
	return k
}

func toV3(v geom.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func fromV3(v v3.Vec) geom.Vec3 {
	return geom.Vec3{v.X, v.Y, v.Z}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	if s == nil {
		return nil
	}
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box of the given size centered at center.
func (k *SdfxKernel) Box(center, size geom.Vec3) kernel.Solid {
	s, err := sdf.Box3D(toV3(size), 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	if center == (geom.Vec3{}) {
		return wrap(s)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(toV3(center))))
}

// Ground creates the solid half-space y <= height.
func (k *SdfxKernel) Ground(height, extent float64) kernel.Solid {
	return wrap(&groundSDF{height: height, extent: extent})
}

// Union returns the union of the given solids, skipping empty ones.
func (k *SdfxKernel) Union(solids ...kernel.Solid) kernel.Solid {
	parts := make([]sdf.SDF3, 0, len(solids))
	for _, s := range solids {
		if u := unwrap(s); u != nil {
			parts = append(parts, u)
		}
	}
	switch len(parts) {
	case 0:
		return wrap(nil)
	case 1:
		return wrap(parts[0])
	}
	return wrap(sdf.Union3D(parts...))
}

// Translate moves a solid by v.
func (k *SdfxKernel) Translate(s kernel.Solid, v geom.Vec3) kernel.Solid {
	u := unwrap(s)
	if u == nil {
		return s
	}
	return wrap(sdf.Transform3D(u, sdf.Translate3d(toV3(v))))
}

// RotateY rotates a solid about the +Y axis by yaw degrees.
func (k *SdfxKernel) RotateY(s kernel.Solid, yawDeg float64) kernel.Solid {
	u := unwrap(s)
	if u == nil {
		return s
	}
	return wrap(sdf.Transform3D(u, sdf.RotateY(yawDeg*math.Pi/180.0)))
}

// Raycast sphere-traces the segment from -> to through the solid's
// distance field. Steps never fall below minStep, so the march always
// reaches the end of the segment; a step that lands inside the solid is
// narrowed back to the surface by bisection.
func (k *SdfxKernel) Raycast(s kernel.Solid, from, to geom.Vec3) (geom.Vec3, bool) {
	f := unwrap(s)
	if f == nil {
		return geom.Vec3{}, false
	}
	seg := to.Sub(from)
	length := seg.Len()
	if length == 0 {
		return geom.Vec3{}, false
	}
	dir := seg.Mul(1 / length)
	at := func(t float64) geom.Vec3 { return from.Add(dir.Mul(t)) }

	// Start inside or on a surface: walk out before looking for hits.
	leaving := f.Evaluate(toV3(from)) < hitEpsilon
	prev, t := 0.0, 0.0
	for {
		d := f.Evaluate(toV3(at(t)))
		switch {
		case leaving:
			if d > 2*hitEpsilon {
				leaving = false
			}
		case d < 0:
			return at(bisect(f, from, dir, prev, t)), true
		case d < hitEpsilon:
			return at(t), true
		}
		if t >= length {
			return geom.Vec3{}, false
		}
		prev = t
		t = math.Min(t+math.Max(math.Abs(d), minStep), length)
	}
}

// bisect narrows [out, in] along the ray, out outside the solid and in
// inside it, and returns the outside end once the interval is below
// hitEpsilon.
func bisect(f sdf.SDF3, from, dir geom.Vec3, out, in float64) float64 {
	for i := 0; i < bisectSteps && in-out > hitEpsilon; i++ {
		mid := (out + in) * 0.5
		if f.Evaluate(toV3(from.Add(dir.Mul(mid)))) < 0 {
			in = mid
		} else {
			out = mid
		}
	}
	return out
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)
	if sdf3 == nil {
		return &kernel.Mesh{}, nil
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
