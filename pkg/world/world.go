// Package world builds the ground collidable set that target resolution
// casts rays against: terrain plus the boxes of every placed building.
package world

import (
	"sync"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/kernel"
	"github.com/chazu/kexbuild/pkg/placement"
	"github.com/chazu/kexbuild/pkg/store"
	"github.com/rs/zerolog"
)

// DefaultGroundExtent is the half width of the terrain slab when none is
// configured.
const DefaultGroundExtent = 1000.0

// Terrain describes the flat ground the world starts with.
type Terrain struct {
	Height float64 `mapstructure:"height"`
	Extent float64 `mapstructure:"extent"`
	// Disabled leaves only placed buildings collidable.
	Disabled bool `mapstructure:"disabled"`
}

// World turns store snapshots into colliders. Instance solids are built
// once per placed building and reused, since snapshots only grow.
type World struct {
	kernel  kernel.Kernel
	catalog *catalog.Catalog
	ground  kernel.Solid
	log     zerolog.Logger

	mu        sync.Mutex
	instances []kernel.Solid
	version   uint64
	current   *Collider
}

// New returns a world over the given kernel and catalog.
func New(k kernel.Kernel, cat *catalog.Catalog, terrain Terrain, log zerolog.Logger) *World {
	w := &World{
		kernel:  k,
		catalog: cat,
		log:     log.With().Str("component", "world").Logger(),
	}
	if !terrain.Disabled {
		extent := terrain.Extent
		if extent <= 0 {
			extent = DefaultGroundExtent
		}
		w.ground = k.Ground(terrain.Height, extent)
	}
	return w
}

// Collider returns the collidable set for snap. Calls with the same
// snapshot version share one collider.
func (w *World) Collider(snap store.Snapshot[placement.Placed]) placement.Collider {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil && w.version == snap.Version() && len(w.instances) == snap.Len() {
		return w.current
	}
	if snap.Len() < len(w.instances) {
		// A snapshot from another store, or an older one.
		w.instances = w.instances[:0]
	}
	for i := len(w.instances); i < snap.Len(); i++ {
		w.instances = append(w.instances, w.instanceSolid(snap.At(i)))
	}

	parts := make([]kernel.Solid, 0, len(w.instances)+1)
	if w.ground != nil {
		parts = append(parts, w.ground)
	}
	for _, s := range w.instances {
		if s != nil {
			parts = append(parts, s)
		}
	}
	w.current = &Collider{kernel: w.kernel, solid: w.kernel.Union(parts...)}
	w.version = snap.Version()

	w.log.Debug().
		Uint64("version", snap.Version()).
		Int("solids", len(parts)).
		Msg("collider rebuilt")
	return w.current
}

// instanceSolid returns the box of a placed building, or nil when its
// definition is unknown.
func (w *World) instanceSolid(p placement.Placed) kernel.Solid {
	def := w.catalog.Get(p.Def)
	if def == nil {
		w.log.Warn().Uint64("id", p.ID).Int("definition", int(p.Def)).Msg("placed building has no definition")
		return nil
	}
	return kernel.Place(w.kernel, w.kernel.Box(def.Center, def.Size), p.Position, p.Yaw)
}

// Collider casts rays against one union of solids.
type Collider struct {
	kernel kernel.Kernel
	solid  kernel.Solid
}

// CastRay returns the first surface hit on the segment from -> to.
func (c *Collider) CastRay(from, to geom.Vec3) (geom.Vec3, bool) {
	return c.kernel.Raycast(c.solid, from, to)
}

// Solid returns the collider's union.
func (c *Collider) Solid() kernel.Solid {
	return c.solid
}

var _ placement.ColliderSource = (*World)(nil)
