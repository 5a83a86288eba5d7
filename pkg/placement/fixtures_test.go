package placement

import (
	"math"
	"testing"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
)

// planeCollider is a horizontal ground plane at y = height.
type planeCollider struct {
	height float64
}

func (c planeCollider) CastRay(from, to geom.Vec3) (geom.Vec3, bool) {
	a, b := from[1]-c.height, to[1]-c.height
	if a < 0 || b > 0 || a == b {
		return geom.Vec3{}, false
	}
	t := a / (a - b)
	return geom.Lerp(from, to, t), true
}

// testCatalog holds a Floor with one Primary point at cell (1,0,0), a Wall
// with one Primary point at its origin, and a Crate with no snap points.
func testCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Spec{
		{
			Name:       "Floor",
			Center:     geom.Vec3{0, 0.05, 0},
			Size:       geom.Vec3{2, 0.1, 2},
			SnapPoints: []catalog.SnapPoint{{Cell: geom.Cell{X: 1}, Priority: catalog.Primary}},
		},
		{
			Name:       "Wall",
			Center:     geom.Vec3{0, 1.5, 0},
			Size:       geom.Vec3{2, 3, 0.2},
			SnapPoints: []catalog.SnapPoint{{Cell: geom.Cell{}, Priority: catalog.Primary}},
		},
		{
			Name:   "Crate",
			Center: geom.Vec3{0, 0, 0},
			Size:   geom.Vec3{1, 2, 1},
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func mustDef(t *testing.T, c *catalog.Catalog, name string) *catalog.Definition {
	t.Helper()
	d := c.Lookup(name)
	if d == nil {
		t.Fatalf("no definition %q", name)
	}
	return d
}

func near(a, b geom.Vec3) bool {
	return geom.ApproxEqual(a, b, 1e-9)
}

func nearf(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// rayAt returns a unit direction from origin toward target.
func rayAt(origin, target geom.Vec3) geom.Vec3 {
	return target.Sub(origin).Normalize()
}
