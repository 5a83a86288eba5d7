package geom

import "math"

// Cell is an integer grid coordinate local to a definition.
type Cell struct {
	X, Y, Z int
}

// Local returns the local space offset of the cell for the given grid size.
func (c Cell) Local(gridSize float64) Vec3 {
	return Vec3{float64(c.X) * gridSize, float64(c.Y) * gridSize, float64(c.Z) * gridSize}
}

// World returns the world position of the cell for an object at origin
// rotated by yaw degrees.
func (c Cell) World(origin Vec3, yawDeg, gridSize float64) Vec3 {
	return origin.Add(RotateYaw(yawDeg, c.Local(gridSize)))
}

// CellRange is an inclusive range of cells on each axis.
type CellRange struct {
	Min, Max Cell
}

// MaxCellCoord bounds the magnitude of a cell coordinate derived from a
// bounding box, keeping float to int conversions exact.
const MaxCellCoord = 1 << 30

// CellCount returns how many cells CellsInBounds would produce for the box,
// computed without building the range. It is +Inf when a bound lies beyond
// MaxCellCoord cells from the origin, and NaN for NaN input.
func CellCount(center, size Vec3, gridSize float64) float64 {
	n := 1.0
	for i := 0; i < 3; i++ {
		lo := (center[i] - size[i]*0.5) / gridSize
		hi := (center[i] + size[i]*0.5) / gridSize
		if math.IsNaN(lo) || math.IsNaN(hi) {
			return math.NaN()
		}
		if math.Abs(lo) > MaxCellCoord || math.Abs(hi) > MaxCellCoord {
			return math.Inf(1)
		}
		a, b := math.Ceil(lo), math.Floor(hi)
		if a > b {
			continue
		}
		n *= b - a + 1
	}
	return n
}

// CellsInBounds returns the inclusive range of grid cells whose local
// positions fall inside the box described by center and size. An axis too
// thin to contain a grid line collapses to the cell nearest the center.
// Callers bound the box with CellCount first.
func CellsInBounds(center, size Vec3, gridSize float64) CellRange {
	var r CellRange
	lo := [3]*int{&r.Min.X, &r.Min.Y, &r.Min.Z}
	hi := [3]*int{&r.Max.X, &r.Max.Y, &r.Max.Z}
	for i := 0; i < 3; i++ {
		minV := center[i] - size[i]*0.5
		maxV := center[i] + size[i]*0.5
		a := int(math.Ceil(minV / gridSize))
		b := int(math.Floor(maxV / gridSize))
		if a > b {
			a = int(math.Round(center[i] / gridSize))
			b = a
		}
		*lo[i] = a
		*hi[i] = b
	}
	return r
}

// Contains reports whether c lies within the range.
func (r CellRange) Contains(c Cell) bool {
	return c.X >= r.Min.X && c.X <= r.Max.X &&
		c.Y >= r.Min.Y && c.Y <= r.Max.Y &&
		c.Z >= r.Min.Z && c.Z <= r.Max.Z
}

// Count returns the number of cells in the range.
func (r CellRange) Count() int {
	return (r.Max.X - r.Min.X + 1) * (r.Max.Y - r.Min.Y + 1) * (r.Max.Z - r.Min.Z + 1)
}

// IsCorner reports whether c sits on a corner of the range on all three axes.
func (r CellRange) IsCorner(c Cell) bool {
	return (c.X == r.Min.X || c.X == r.Max.X) &&
		(c.Y == r.Min.Y || c.Y == r.Max.Y) &&
		(c.Z == r.Min.Z || c.Z == r.Max.Z)
}
