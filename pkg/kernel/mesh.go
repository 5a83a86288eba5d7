package kernel

import "github.com/chazu/kexbuild/pkg/geom"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // definition the mesh was built from
	Ghost    bool      `json:"ghost"`    // true for a pending object's preview
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Transformed returns a copy of m rotated by rot and moved to pos. Indices
// are shared with m since the topology does not change.
func (m *Mesh) Transformed(pos geom.Vec3, rot geom.Quat) *Mesh {
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  m.Indices,
		Name:     m.Name,
		Ghost:    m.Ghost,
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		v := geom.Vec3{float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])}
		v = rot.Rotate(v).Add(pos)
		out.Vertices[i], out.Vertices[i+1], out.Vertices[i+2] = float32(v[0]), float32(v[1]), float32(v[2])
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := geom.Vec3{float64(m.Normals[i]), float64(m.Normals[i+1]), float64(m.Normals[i+2])}
		n = rot.Rotate(n)
		out.Normals[i], out.Normals[i+1], out.Normals[i+2] = float32(n[0]), float32(n[1]), float32(n[2])
	}
	return out
}

// Bounds returns the axis-aligned bounds of the mesh vertices.
func (m *Mesh) Bounds() (min, max geom.Vec3) {
	if m.IsEmpty() {
		return min, max
	}
	for a := 0; a < 3; a++ {
		min[a] = float64(m.Vertices[a])
		max[a] = float64(m.Vertices[a])
	}
	for i := 3; i+2 < len(m.Vertices); i += 3 {
		for a := 0; a < 3; a++ {
			v := float64(m.Vertices[i+a])
			if v < min[a] {
				min[a] = v
			}
			if v > max[a] {
				max[a] = v
			}
		}
	}
	return min, max
}
