// Package tessellate produces triangle meshes of placed buildings and of
// pending ghosts using a geometry kernel. Each definition is meshed once;
// instances reuse that mesh under their own transform.
package tessellate

import (
	"fmt"
	"sync"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/kernel"
	"github.com/chazu/kexbuild/pkg/placement"
)

// Tessellator caches one local-space mesh per definition. It is safe for
// concurrent use and never mutates the meshes it hands out.
type Tessellator struct {
	kernel  kernel.Kernel
	catalog *catalog.Catalog

	mu     sync.Mutex
	protos map[catalog.ID]*kernel.Mesh
}

// New returns a tessellator over the given kernel and catalog.
func New(k kernel.Kernel, cat *catalog.Catalog) *Tessellator {
	return &Tessellator{
		kernel:  k,
		catalog: cat,
		protos:  make(map[catalog.ID]*kernel.Mesh),
	}
}

// Prototype returns the local-space mesh of a definition's bounding box.
func (t *Tessellator) Prototype(id catalog.ID) (*kernel.Mesh, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.protos[id]; ok {
		return m, nil
	}
	def := t.catalog.Get(id)
	if def == nil {
		return nil, fmt.Errorf("tessellate: unknown definition %d", id)
	}
	m, err := t.kernel.ToMesh(t.kernel.Box(def.Center, def.Size))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", def.Name, err)
	}
	m.Name = def.Name
	t.protos[id] = m
	return m, nil
}

// Placed returns one world-space mesh per placed building, in order.
func (t *Tessellator) Placed(items []placement.Placed) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(items))
	for _, p := range items {
		m, err := t.instance(p.Def, p.Position, p.Rotation())
		if err != nil {
			return nil, fmt.Errorf("tessellate: placed %d: %w", p.ID, err)
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// Ghosts returns one mesh per rendered pending object at its ghost
// transform. Objects that have never been rendered are skipped.
func (t *Tessellator) Ghosts(pending []*placement.Pending) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, p := range pending {
		if p == nil || !p.Rendered() {
			continue
		}
		m, err := t.instance(p.Def, p.Position, p.Rotation)
		if err != nil {
			return nil, fmt.Errorf("tessellate: pending %d: %w", p.ID, err)
		}
		m.Ghost = true
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func (t *Tessellator) instance(id catalog.ID, pos geom.Vec3, rot geom.Quat) (*kernel.Mesh, error) {
	proto, err := t.Prototype(id)
	if err != nil {
		return nil, err
	}
	return proto.Transformed(pos, rot), nil
}
