package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/kexbuild/pkg/geom"
	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk YAML layout of a catalog.
type fileDoc struct {
	GridSize    float64   `yaml:"grid_size"`
	Definitions []fileDef `yaml:"definitions"`
}

type fileDef struct {
	Name            string     `yaml:"name"`
	Center          [3]float64 `yaml:"center"`
	Size            [3]float64 `yaml:"size"`
	SnapPoints      []fileSnap `yaml:"snap_points"`
	SnapsFromBounds bool       `yaml:"snaps_from_bounds"`
}

type fileSnap struct {
	Cell    [3]int `yaml:"cell"`
	Primary bool   `yaml:"primary"`
}

// LoadYAML reads a catalog file from disk.
func LoadYAML(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return DecodeYAML(f)
}

// DecodeYAML parses a catalog document. Definitions with snaps_from_bounds
// get their snap points generated from the bounding box using the
// document's grid_size, appended after any explicit points.
func DecodeYAML(r io.Reader) (*Catalog, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: yaml: %w", err)
	}

	specs := make([]Spec, 0, len(doc.Definitions))
	for i, d := range doc.Definitions {
		s := Spec{
			Name:   d.Name,
			Center: geom.Vec3(d.Center),
			Size:   geom.Vec3(d.Size),
		}
		for _, p := range d.SnapPoints {
			sp := SnapPoint{Cell: geom.Cell{X: p.Cell[0], Y: p.Cell[1], Z: p.Cell[2]}}
			if p.Primary {
				sp.Priority = Primary
			}
			s.SnapPoints = append(s.SnapPoints, sp)
		}
		if d.SnapsFromBounds {
			if doc.GridSize <= 0 {
				return nil, fmt.Errorf("catalog: definition %d (%q): snaps_from_bounds requires a positive grid_size", i, d.Name)
			}
			points, err := SnapPointsFromBounds(s.Center, s.Size, doc.GridSize)
			if err != nil {
				return nil, fmt.Errorf("catalog: definition %d (%q): %w", i, d.Name, err)
			}
			s.SnapPoints = append(s.SnapPoints, points...)
		}
		specs = append(specs, s)
	}
	return New(specs)
}
