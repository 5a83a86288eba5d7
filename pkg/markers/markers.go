// Package markers gathers the snap points a presentation layer draws while
// the player positions a building. It produces data only.
package markers

import (
	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/placement"
)

const (
	// MaxMarkers caps the markers returned by one Gather.
	MaxMarkers = 2048
	// NearbyDistance is how close a placed building's origin must be to a
	// pending target for its points to be shown.
	NearbyDistance = 5.0
	// AlignmentThreshold is the distance under which a pending point and
	// a placed point count as coincident.
	AlignmentThreshold = 0.01
	// Scale is the drawn edge length of a marker quad.
	Scale = 0.25
)

// Marker is one snap point to draw.
type Marker struct {
	Position geom.Vec3 `json:"position"`
	// Aligned is set when a pending point coincides with a placed one.
	Aligned bool `json:"aligned"`
	Primary bool `json:"primary"`
	// Pending marks points of the object being positioned.
	Pending bool `json:"pending"`
}

type point struct {
	pos     geom.Vec3
	primary bool
	aligned bool
}

// Gather returns markers for every pending object with a target and for
// placed buildings within NearbyDistance of one. Pending markers come
// first. Points filtered out by the snap mode are skipped, and ModeNone
// yields nothing.
func Gather(pending []*placement.Pending, placed []placement.Placed, cat *catalog.Catalog, s placement.Settings) []Marker {
	if s.Mode == placement.ModeNone {
		return nil
	}

	var own []point
	var origins []geom.Vec3
	for _, p := range pending {
		if p == nil || !p.HasTarget {
			continue
		}
		def := cat.Get(p.Def)
		if def == nil {
			continue
		}
		origins = append(origins, p.TargetPosition)
		own = appendPoints(own, def, p.TargetPosition, p.TargetYaw, s)
	}
	if len(origins) == 0 {
		return nil
	}

	var near []point
	for _, pl := range placed {
		def := cat.Get(pl.Def)
		if def == nil || !isNearby(pl.Position, origins) {
			continue
		}
		start := len(near)
		near = appendPoints(near, def, pl.Position, pl.Yaw, s)
		for i := start; i < len(near); i++ {
			for j := range own {
				if near[i].pos.Sub(own[j].pos).Len() < AlignmentThreshold {
					near[i].aligned = true
					own[j].aligned = true
				}
			}
		}
	}

	out := make([]Marker, 0, min(len(own)+len(near), MaxMarkers))
	for _, pt := range own {
		if len(out) == MaxMarkers {
			return out
		}
		out = append(out, Marker{Position: pt.pos, Aligned: pt.aligned, Primary: pt.primary, Pending: true})
	}
	for _, pt := range near {
		if len(out) == MaxMarkers {
			return out
		}
		out = append(out, Marker{Position: pt.pos, Aligned: pt.aligned, Primary: pt.primary})
	}
	return out
}

func appendPoints(dst []point, def *catalog.Definition, origin geom.Vec3, yaw float64, s placement.Settings) []point {
	for _, sp := range def.SnapPoints {
		if !s.Mode.Allows(sp.Priority) {
			continue
		}
		dst = append(dst, point{
			pos:     sp.Cell.World(origin, yaw, s.GridSize),
			primary: sp.IsPrimary(),
		})
	}
	return dst
}

func isNearby(pos geom.Vec3, origins []geom.Vec3) bool {
	for _, o := range origins {
		if pos.Sub(o).Len() < NearbyDistance {
			return true
		}
	}
	return false
}
