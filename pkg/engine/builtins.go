package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites catalog source before passing it to zygomys.
// It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: bounds-snaps -> bounds_snaps
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
// Semicolon comments become // comments, which is what zygomys reads.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is kebab-case, not minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSnap wraps a catalog.SnapPoint.
type sexpSnap struct {
	point catalog.SnapPoint
}

func (s *sexpSnap) SexpString(ps *zygo.PrintState) string {
	c := s.point.Cell
	if s.point.IsPrimary() {
		return fmt.Sprintf("(snap %d %d %d :primary)", c.X, c.Y, c.Z)
	}
	return fmt.Sprintf("(snap %d %d %d)", c.X, c.Y, c.Z)
}
func (s *sexpSnap) Type() *zygo.RegisteredType { return nil }

// sexpDefRef is returned by buildable so a definition can be bound to a
// variable and inspected.
type sexpDefRef struct {
	name  string
	index int
}

func (d *sexpDefRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(buildable %q)", d.name)
}
func (d *sexpDefRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// flag reports whether a valueless keyword such as :primary is present.
func (a kwArgs) flag(name string) bool {
	_, ok := a.kw[name]
	return ok
}

// parseArgs separates args into keyword and positional arguments. A
// keyword followed by another keyword, or sitting last, is a flag.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer grid coordinate. Floats are accepted only when
// they hold an integral value.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSnapPoints flattens a list whose items are snaps or nested lists of
// snaps, so the output of bounds-snaps can be mixed with explicit points.
func toSnapPoints(s zygo.Sexp) ([]catalog.SnapPoint, error) {
	if sp, ok := s.(*sexpSnap); ok {
		return []catalog.SnapPoint{sp.point}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	var out []catalog.SnapPoint
	for i, item := range items {
		pts, err := toSnapPoints(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, pts...)
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func snapList(points []catalog.SnapPoint) zygo.Sexp {
	items := make([]zygo.Sexp, len(points))
	for i, p := range points {
		items[i] = &sexpSnap{point: p}
	}
	return zygo.MakeList(items)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder accumulates definition specs in source order while a program runs.
type builder struct {
	specs []catalog.Spec
}

func (b *builder) index(name string) int {
	for i := range b.specs {
		if b.specs[i].Name == name {
			return i
		}
	}
	return -1
}

// registerBuiltins installs the catalog DSL builtins into a zygomys
// environment. Definitions are collected into b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v geom.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (snap 0 1 0 :primary)
	// -----------------------------------------------------------------------
	env.AddFunction("snap", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("snap requires 3 cell coordinates, got %d", len(pa.positional))
		}
		var cell [3]int
		for i := range cell {
			n, err := toInt(pa.positional[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("snap: coordinate %d: %w", i, err)
			}
			cell[i] = n
		}
		p := catalog.SnapPoint{Cell: geom.Cell{X: cell[0], Y: cell[1], Z: cell[2]}}
		if pa.flag("primary") {
			p.Priority = catalog.Primary
		}
		return &sexpSnap{point: p}, nil
	})

	// -----------------------------------------------------------------------
	// (bounds-snaps (vec3 0 1.5 0) (vec3 3 3 0.2) 0.5)
	//
	// Registered as "bounds_snaps"; the preprocessor converts the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("bounds_snaps", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps requires center, size and grid size")
		}
		center, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps: center: %w", err)
		}
		size, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps: size: %w", err)
		}
		grid, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps: grid: %w", err)
		}
		if grid <= 0 {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps: grid size must be positive, got %g", grid)
		}
		points, err := catalog.SnapPointsFromBounds(center, size, grid)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds-snaps: %w", err)
		}
		return snapList(points), nil
	})

	// -----------------------------------------------------------------------
	// (buildable "Wall" :center (vec3 0 1.5 0) :size (vec3 3 3 0.2)
	//            :snaps (list (snap 0 0 0 :primary) ...)
	//            :snaps-from-bounds 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("buildable", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("buildable requires a name argument")
		}
		defName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("buildable: name: %w", err)
		}
		if b.index(defName) >= 0 {
			return zygo.SexpNull, fmt.Errorf("buildable: %w: %q", catalog.ErrDuplicateName, defName)
		}

		spec := catalog.Spec{Name: defName}
		if v, ok := pa.kw["center"]; ok {
			if spec.Center, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("buildable %q: center: %w", defName, err)
			}
		}
		v, ok := pa.kw["size"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("buildable %q: :size is required", defName)
		}
		if spec.Size, err = toVec3(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("buildable %q: size: %w", defName, err)
		}
		if v, ok := pa.kw["snaps"]; ok {
			if spec.SnapPoints, err = toSnapPoints(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("buildable %q: snaps: %w", defName, err)
			}
		}
		if v, ok := pa.kw["snaps-from-bounds"]; ok {
			grid, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("buildable %q: snaps-from-bounds: %w", defName, err)
			}
			if grid <= 0 {
				return zygo.SexpNull, fmt.Errorf("buildable %q: snaps-from-bounds: grid size must be positive", defName)
			}
			points, err := catalog.SnapPointsFromBounds(spec.Center, spec.Size, grid)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("buildable %q: snaps-from-bounds: %w", defName, err)
			}
			spec.SnapPoints = append(spec.SnapPoints, points...)
		}

		b.specs = append(b.specs, spec)
		return &sexpDefRef{name: defName, index: len(b.specs) - 1}, nil
	})

	// -----------------------------------------------------------------------
	// (snap-count "Wall") or (snap-count wall-ref)
	// -----------------------------------------------------------------------
	env.AddFunction("snap_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("snap-count requires one definition")
		}
		idx := -1
		switch v := args[0].(type) {
		case *sexpDefRef:
			idx = v.index
		case *zygo.SexpStr:
			idx = b.index(v.S)
		}
		if idx < 0 {
			return zygo.SexpNull, fmt.Errorf("snap-count: unknown definition %s", args[0].SexpString(nil))
		}
		return &zygo.SexpInt{Val: int64(len(b.specs[idx].SnapPoints))}, nil
	})
}
