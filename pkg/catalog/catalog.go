// Package catalog defines the immutable table of buildable object
// definitions: bounding geometry plus the grid-cell snap points used to
// align pending objects against placed ones.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/kexbuild/pkg/geom"
)

// MaxSnapPoints bounds the snap points of a single definition so that snap
// matching stays bounded per pending object.
const MaxSnapPoints = 2048

// Priority distinguishes snap points that participate in Simple mode.
type Priority uint8

const (
	Secondary Priority = iota
	Primary
)

func (p Priority) String() string {
	switch p {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// SnapPoint is a definition-relative grid-cell anchor.
type SnapPoint struct {
	Cell     geom.Cell `json:"cell" yaml:"cell"`
	Priority Priority  `json:"priority" yaml:"priority"`
}

// IsPrimary reports whether the point has Primary priority.
func (s SnapPoint) IsPrimary() bool {
	return s.Priority == Primary
}

// ID is the dense index of a definition inside its catalog.
type ID int

// NoID marks a missing definition reference.
const NoID ID = -1

// Definition is the static data of one buildable type. Definitions are
// created when the catalog is built and never mutated afterward.
type Definition struct {
	ID         ID          `json:"id"`
	Name       string      `json:"name"`
	Center     geom.Vec3   `json:"center"`
	Size       geom.Vec3   `json:"size"`
	SnapPoints []SnapPoint `json:"snap_points,omitempty"`
}

// BaseOffset is the vertical shift that puts the definition's base, rather
// than its bounding-box center, on a surface.
func (d *Definition) BaseOffset() float64 {
	return d.Size[1]*0.5 - d.Center[1]
}

// HasSnapPoints reports whether the definition can take part in snapping.
func (d *Definition) HasSnapPoints() bool {
	return len(d.SnapPoints) > 0
}

// Spec is the input record for one definition, as produced by an
// authoring or loading step.
type Spec struct {
	Name       string      `json:"name" yaml:"name"`
	Center     geom.Vec3   `json:"center" yaml:"center"`
	Size       geom.Vec3   `json:"size" yaml:"size"`
	SnapPoints []SnapPoint `json:"snap_points" yaml:"snap_points"`
}

var (
	// ErrDuplicateName is returned when two specs share a name.
	ErrDuplicateName = errors.New("duplicate definition name")
	// ErrInvalidSize is returned for non-positive bounding sizes.
	ErrInvalidSize = errors.New("bounding size must be positive")
	// ErrTooManySnapPoints is returned when a spec exceeds MaxSnapPoints.
	ErrTooManySnapPoints = errors.New("too many snap points")
	// ErrEmptyName is returned when a spec has no name.
	ErrEmptyName = errors.New("definition name is empty")
)

// Catalog is an immutable, read-only table of definitions. It is safe for
// concurrent readers.
type Catalog struct {
	defs   []Definition
	byName map[string]ID
}

// New builds a catalog from specs, preserving their order. Definition IDs
// are assigned densely in input order.
func New(specs []Spec) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]Definition, 0, len(specs)),
		byName: make(map[string]ID, len(specs)),
	}
	for i, s := range specs {
		if err := validateSpec(s); err != nil {
			return nil, fmt.Errorf("catalog: spec %d (%q): %w", i, s.Name, err)
		}
		if _, exists := c.byName[s.Name]; exists {
			return nil, fmt.Errorf("catalog: spec %d: %w: %q", i, ErrDuplicateName, s.Name)
		}
		id := ID(len(c.defs))
		points := make([]SnapPoint, len(s.SnapPoints))
		copy(points, s.SnapPoints)
		c.defs = append(c.defs, Definition{
			ID:         id,
			Name:       s.Name,
			Center:     s.Center,
			Size:       s.Size,
			SnapPoints: points,
		})
		c.byName[s.Name] = id
	}
	return c, nil
}

// Empty returns a catalog with no definitions.
func Empty() *Catalog {
	c, _ := New(nil)
	return c
}

func validateSpec(s Spec) error {
	if s.Name == "" {
		return ErrEmptyName
	}
	for i := 0; i < 3; i++ {
		if s.Size[i] <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidSize, s.Size)
		}
	}
	if len(s.SnapPoints) > MaxSnapPoints {
		return fmt.Errorf("%w: %d > %d", ErrTooManySnapPoints, len(s.SnapPoints), MaxSnapPoints)
	}
	for i, p := range s.SnapPoints {
		if p.Priority != Primary && p.Priority != Secondary {
			return fmt.Errorf("snap point %d: invalid priority %d", i, p.Priority)
		}
	}
	return nil
}

// Get returns the definition with the given ID, or nil when the ID is
// unknown.
func (c *Catalog) Get(id ID) *Definition {
	if c == nil || id < 0 || int(id) >= len(c.defs) {
		return nil
	}
	return &c.defs[id]
}

// Lookup returns the definition with the given name, or nil.
func (c *Catalog) Lookup(name string) *Definition {
	if c == nil {
		return nil
	}
	id, ok := c.byName[name]
	if !ok {
		return nil
	}
	return &c.defs[id]
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Names returns the definition names sorted alphabetically.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the definitions in ID order. The returned slice must not be
// modified.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	return c.defs
}
