package catalog

import (
	"fmt"

	"github.com/chazu/kexbuild/pkg/geom"
)

// SnapPointsFromBounds fills the bounding box described by center and size
// with one snap point per grid cell. Corner cells are Primary, every other
// cell is Secondary. Points are ordered by x, then y, then z. A box holding
// more than MaxSnapPoints cells is rejected with ErrTooManySnapPoints before
// anything is allocated.
func SnapPointsFromBounds(center, size geom.Vec3, gridSize float64) ([]SnapPoint, error) {
	if gridSize <= 0 {
		return nil, nil
	}
	if n := geom.CellCount(center, size, gridSize); !(n <= MaxSnapPoints) {
		return nil, fmt.Errorf("%w: bounds hold %g cells > %d", ErrTooManySnapPoints, n, MaxSnapPoints)
	}
	r := geom.CellsInBounds(center, size, gridSize)
	points := make([]SnapPoint, 0, r.Count())
	for x := r.Min.X; x <= r.Max.X; x++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			for z := r.Min.Z; z <= r.Max.Z; z++ {
				c := geom.Cell{X: x, Y: y, Z: z}
				p := SnapPoint{Cell: c, Priority: Secondary}
				if r.IsCorner(c) {
					p.Priority = Primary
				}
				points = append(points, p)
			}
		}
	}
	return points, nil
}
