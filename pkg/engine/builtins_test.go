package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(buildable "Wall" :size s)`,
			expect: `(buildable "Wall" "__kw_size" s)`,
		},
		{
			name:   "flag keyword",
			input:  `(snap 0 0 0 :primary)`,
			expect: `(snap 0 0 0 "__kw_primary")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(bounds-snaps c s 0.5)`,
			expect: `(bounds_snaps c s 0.5)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(snap -1 0 -2)`,
			expect: `(snap -1 0 -2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:snaps-from-bounds`,
			expect: `"__kw_snaps-from-bounds"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func mustEvaluate(t *testing.T, source string) *catalog.Catalog {
	t.Helper()
	c, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if c == nil {
		t.Fatal("expected non-nil catalog")
	}
	return c
}

// ---------------------------------------------------------------------------
// Definition tests
// ---------------------------------------------------------------------------

func TestBuildableExplicitSnaps(t *testing.T) {
	c := mustEvaluate(t, `
(buildable "Wall"
  :center (vec3 0 1.5 0)
  :size (vec3 3 3 0.2)
  :snaps (list (snap 0 0 0 :primary)
               (snap 1 0 0)
               (snap -1 2 0 :primary)))
`)
	wall := c.Lookup("Wall")
	if wall == nil {
		t.Fatal("expected definition named Wall")
	}
	if wall.Center != (geom.Vec3{0, 1.5, 0}) {
		t.Errorf("center = %v", wall.Center)
	}
	if wall.Size != (geom.Vec3{3, 3, 0.2}) {
		t.Errorf("size = %v", wall.Size)
	}
	want := []catalog.SnapPoint{
		{Cell: geom.Cell{}, Priority: catalog.Primary},
		{Cell: geom.Cell{X: 1}, Priority: catalog.Secondary},
		{Cell: geom.Cell{X: -1, Y: 2}, Priority: catalog.Primary},
	}
	if len(wall.SnapPoints) != len(want) {
		t.Fatalf("got %d snap points, want %d", len(wall.SnapPoints), len(want))
	}
	for i := range want {
		if wall.SnapPoints[i] != want[i] {
			t.Errorf("snap %d = %+v, want %+v", i, wall.SnapPoints[i], want[i])
		}
	}
}

func TestBuildableOrderAssignsIDs(t *testing.T) {
	c := mustEvaluate(t, `
(buildable "Floor" :center (vec3 0 0.05 0) :size (vec3 2 0.1 2))
(buildable "Wall" :center (vec3 0 1.5 0) :size (vec3 3 3 0.2))
`)
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.Lookup("Floor").ID != 0 || c.Lookup("Wall").ID != 1 {
		t.Error("IDs should follow source order")
	}
	if c.Lookup("Floor").HasSnapPoints() {
		t.Error("Floor should have no snap points")
	}
}

func TestVariableReference(t *testing.T) {
	c := mustEvaluate(t, `
(def h 3)
(def wallsize (vec3 3 h 0.2))
(buildable "Wall" :size wallsize)
`)
	if got := c.Lookup("Wall").Size[1]; got != 3 {
		t.Errorf("height = %v, want 3 (from variable)", got)
	}
}

func TestBoundsSnaps(t *testing.T) {
	c := mustEvaluate(t, `
(def wc (vec3 0 1.5 0))
(def ws (vec3 2 3 0.2))
(buildable "Wall" :center wc :size ws :snaps (bounds-snaps wc ws 0.5))
`)
	wall := c.Lookup("Wall")
	if len(wall.SnapPoints) != 35 {
		t.Fatalf("got %d snap points, want 35", len(wall.SnapPoints))
	}
	primaries := 0
	for _, p := range wall.SnapPoints {
		if p.IsPrimary() {
			primaries++
		}
	}
	// z collapses to a single cell so each x/y corner counts once.
	if primaries != 4 {
		t.Errorf("got %d primary points, want 4", primaries)
	}
}

func TestSnapsFromBoundsKeyword(t *testing.T) {
	c := mustEvaluate(t, `
(buildable "Post" :center (vec3 0 1 0) :size (vec3 0.2 2 0.2)
  :snaps (list (snap 0 10 0 :primary))
  :snaps-from-bounds 0.5)
`)
	post := c.Lookup("Post")
	// One explicit point followed by y cells 0..4 of a 1x5x1 range.
	if len(post.SnapPoints) != 6 {
		t.Fatalf("got %d snap points, want 6", len(post.SnapPoints))
	}
	if post.SnapPoints[0].Cell != (geom.Cell{Y: 10}) {
		t.Errorf("explicit point should come first, got %+v", post.SnapPoints[0])
	}
}

func TestNestedSnapLists(t *testing.T) {
	c := mustEvaluate(t, `
(def corners (bounds-snaps (vec3 0 0 0) (vec3 1 0.1 1) 1))
(buildable "Tile" :size (vec3 1 0.1 1) :snaps (list (snap 0 0 0 :primary) corners))
`)
	if n := len(c.Lookup("Tile").SnapPoints); n != 2 {
		t.Errorf("got %d snap points, want 2", n)
	}
}

func TestSnapCount(t *testing.T) {
	c := mustEvaluate(t, `
(def w (buildable "Wall" :size (vec3 1 1 1) :snaps (list (snap 0 0 0) (snap 1 0 0))))
(def n (snap-count w))
(buildable "Probe" :size (vec3 n n n))
`)
	if got := c.Lookup("Probe").Size[0]; got != 2 {
		t.Errorf("snap-count = %v, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Error tests
// ---------------------------------------------------------------------------

func TestBuildableErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"missing name", `(buildable :size (vec3 1 1 1))`, "name"},
		{"missing size", `(buildable "A")`, "size"},
		{"bad size type", `(buildable "A" :size 3)`, "vec3"},
		{"zero size", `(buildable "A" :size (vec3 1 0 1))`, "positive"},
		{"duplicate", `(buildable "A" :size (vec3 1 1 1)) (buildable "A" :size (vec3 1 1 1))`, "duplicate"},
		{"fractional cell", `(snap 0.5 0 0)`, "integer"},
		{"bad grid", `(bounds-snaps (vec3 0 0 0) (vec3 1 1 1) 0)`, "positive"},
		{"vec3 arity", `(vec3 1 2)`, "3 arguments"},
		{"bounds too large", `(bounds-snaps (vec3 0 0 0) (vec3 100 100 100) 0.5)`, "too many snap points"},
		{"buildable bounds too large", `(buildable "Hangar" :size (vec3 1000 1000 1000) :snaps-from-bounds 0.5)`, "too many snap points"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if c != nil {
				t.Fatal("expected nil catalog")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(evalErrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestParseArgsFlags(t *testing.T) {
	pa := parseArgs(nil)
	if pa.flag("primary") {
		t.Error("empty args should have no flags")
	}
	c := mustEvaluate(t, `(buildable "A" :size (vec3 1 1 1) :snaps (list (snap 1 2 3 :primary)))`)
	if !c.Lookup("A").SnapPoints[0].IsPrimary() {
		t.Error("trailing :primary should set Primary priority")
	}
}

func TestEvalErrorWrapsCatalogSentinel(t *testing.T) {
	// The duplicate is caught while the program runs, so the message
	// carries the sentinel text rather than the error value itself.
	_, evalErrs, _ := NewEngine().Evaluate(`(buildable "A" :size (vec3 1 1 1)) (buildable "A" :size (vec3 1 1 1))`)
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, catalog.ErrDuplicateName.Error()) {
		t.Fatalf("eval errors = %v", evalErrs)
	}
	if errors.Is(evalErrs[0], catalog.ErrDuplicateName) {
		t.Error("EvalError is a message carrier and should not unwrap")
	}
}
