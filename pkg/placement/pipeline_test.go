package placement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/store"
	"github.com/rs/zerolog"
)

// flatWorld is a ColliderSource with a ground plane at y = 0. It records
// the snapshot versions it was asked to build colliders for.
type flatWorld struct {
	mu       sync.Mutex
	versions []uint64
}

func (w *flatWorld) Collider(snap store.Snapshot[Placed]) Collider {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.versions = append(w.versions, snap.Version())
	return planeCollider{}
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store[Placed], *flatWorld) {
	t.Helper()
	st := store.New[Placed]()
	w := &flatWorld{}
	return NewPipeline(testCatalog(t), st, w, DefaultSettings(), zerolog.Nop()), st, w
}

func aimed(id uint64, def *Pending, origin, dir geom.Vec3) *Pending {
	def.ID = id
	def.Aim(origin, dir)
	return def
}

func TestPipelineCommitAfterReads(t *testing.T) {
	pl, st, w := newTestPipeline(t)
	c := pl.Catalog()
	ctx := context.Background()

	floor := aimed(1, NewPending(0, c.Lookup("Floor").ID, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})
	wall := aimed(2, NewPending(0, c.Lookup("Wall").ID, 0), geom.Vec3{0.5, 2, -3}, geom.Vec3{0, -1, 1})

	res, err := pl.Tick(ctx, Frame{DeltaTime: 1.0 / 60, Pending: []*Pending{floor, wall}, Confirm: []uint64{1}})
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if len(res.Placed) != 1 || res.Placed[0].ID != 1 {
		t.Fatalf("tick 1 placed = %+v", res.Placed)
	}
	if !near(res.Placed[0].Position, geom.Vec3{0, 0, -1}) {
		t.Errorf("floor placed at %v, want (0, 0, -1)", res.Placed[0].Position)
	}
	if res.Snapshot.Len() != 1 || st.Len() != 1 {
		t.Errorf("store len = %d / snapshot len = %d, want 1", st.Len(), res.Snapshot.Len())
	}
	// The wall was resolved against the snapshot taken before the commit.
	if wall.Snapped {
		t.Error("wall snapped to a floor committed in the same tick")
	}

	if _, err := pl.Tick(ctx, Frame{DeltaTime: 1.0 / 60, Pending: []*Pending{wall}}); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if !wall.Snapped {
		t.Fatal("wall should snap to the committed floor")
	}
	if !near(wall.TargetPosition, geom.Vec3{0.5, 0, -1}) {
		t.Errorf("wall target = %v, want (0.5, 0, -1)", wall.TargetPosition)
	}

	if len(w.versions) != 2 || w.versions[0] != 0 || w.versions[1] != 1 {
		t.Errorf("collider versions = %v, want [0 1]", w.versions)
	}
}

func TestPipelineFirstTickRenders(t *testing.T) {
	pl, _, _ := newTestPipeline(t)
	p := aimed(1, NewPending(0, pl.Catalog().Lookup("Crate").ID, 0), geom.Vec3{0, 1, 0}, geom.Vec3{0, -0.3, 1})

	if _, err := pl.Tick(context.Background(), Frame{DeltaTime: 1.0 / 60, Pending: []*Pending{p}}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !p.Rendered() || !p.Resolved {
		t.Fatal("pending object should be rendered and resolved after its first tick")
	}
	if p.Position != p.ResolvedPosition {
		t.Errorf("first render should jump: position %v, resolved %v", p.Position, p.ResolvedPosition)
	}
	if !near(p.DefaultTarget, geom.Vec3{0, 1, 1 / 0.3}) {
		t.Errorf("default target = %v", p.DefaultTarget)
	}
}

func TestPipelineDegenerateRayKeepsTarget(t *testing.T) {
	pl, _, _ := newTestPipeline(t)
	ctx := context.Background()
	p := aimed(1, NewPending(0, pl.Catalog().Lookup("Floor").ID, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})

	if _, err := pl.Tick(ctx, Frame{DeltaTime: 1.0 / 60, Pending: []*Pending{p}}); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	before := p.TargetPosition

	p.Aim(geom.Vec3{5, 5, 5}, geom.Vec3{})
	p.ShiftVertical(2)
	if _, err := pl.Tick(ctx, Frame{DeltaTime: 1.0 / 60, Pending: []*Pending{p}}); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if p.TargetPosition != before {
		t.Errorf("target moved to %v on a zero ray", p.TargetPosition)
	}
	if !p.Resolved || !near(p.ResolvedPosition, before.Add(geom.Vec3{0, 1, 0})) {
		t.Errorf("pose should still resolve from the kept target, got %v", p.ResolvedPosition)
	}
}

func TestPipelineUnresolvedCommit(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	c := pl.Catalog()

	good := aimed(1, NewPending(0, c.Lookup("Floor").ID, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})
	// Never aimed, so it never gets a target.
	idle := NewPending(2, c.Lookup("Wall").ID, 0)

	_, err := pl.Tick(context.Background(), Frame{Pending: []*Pending{good, idle}, Confirm: []uint64{1, 2}})
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
	if st.Len() != 0 {
		t.Errorf("store len = %d, want 0 after a failed batch", st.Len())
	}
}

func TestPipelineFrameErrors(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	floor := pl.Catalog().Lookup("Floor").ID

	tests := []struct {
		name  string
		frame func() Frame
		want  error
	}{
		{
			name: "unknown confirmation",
			frame: func() Frame {
				p := aimed(1, NewPending(0, floor, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})
				return Frame{Pending: []*Pending{p}, Confirm: []uint64{3}}
			},
			want: ErrUnknownPending,
		},
		{
			name: "duplicate confirmation",
			frame: func() Frame {
				p := aimed(1, NewPending(0, floor, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})
				return Frame{Pending: []*Pending{p}, Confirm: []uint64{1, 1}}
			},
			want: ErrDuplicatePending,
		},
		{
			name: "duplicate pending",
			frame: func() Frame {
				return Frame{Pending: []*Pending{NewPending(1, floor, 0), NewPending(1, floor, 0)}}
			},
			want: ErrDuplicatePending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pl.Tick(context.Background(), tt.frame()); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if st.Len() != 0 {
				t.Errorf("store len = %d, want 0", st.Len())
			}
		})
	}
}

func TestPipelineCommitOnce(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	ctx := context.Background()
	p := aimed(1, NewPending(0, pl.Catalog().Lookup("Crate").ID, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})

	res, err := pl.Tick(ctx, Frame{Pending: []*Pending{p}, Confirm: []uint64{1}})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(res.Placed) != 1 || st.Len() != 1 {
		t.Fatalf("placed %d, store %d, want 1", len(res.Placed), st.Len())
	}
	if !p.Committed {
		t.Fatal("pending object should be marked committed")
	}

	_, err = pl.Tick(ctx, Frame{Pending: []*Pending{p}, Confirm: []uint64{1}})
	if !errors.Is(err, ErrCommitted) {
		t.Fatalf("second commit err = %v, want ErrCommitted", err)
	}
	if st.Len() != 1 {
		t.Errorf("store len = %d, want 1", st.Len())
	}

	// A committed object is no longer stepped.
	p.Aim(geom.Vec3{5, 2, -3}, geom.Vec3{0, -1, 1})
	before := p.ResolvedPosition
	if _, err := pl.Tick(ctx, Frame{Pending: []*Pending{p}}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if p.ResolvedPosition != before {
		t.Errorf("committed object moved to %v", p.ResolvedPosition)
	}
}

func TestPipelineCancelled(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := aimed(1, NewPending(0, pl.Catalog().Lookup("Floor").ID, 0), geom.Vec3{0, 2, -3}, geom.Vec3{0, -1, 1})
	_, err := pl.Tick(ctx, Frame{Pending: []*Pending{p}, Confirm: []uint64{1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if st.Len() != 0 {
		t.Errorf("store len = %d, want 0", st.Len())
	}
}

func TestPipelineWorkers(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	pl.SetWorkers(1)
	crate := pl.Catalog().Lookup("Crate").ID

	var pending []*Pending
	var confirm []uint64
	for i := 0; i < 20; i++ {
		id := uint64(i + 1)
		origin := geom.Vec3{float64(i) * 3, 2, 0}
		pending = append(pending, aimed(id, NewPending(0, crate, 0), origin, geom.Vec3{0, -1, 1}))
		confirm = append(confirm, id)
	}

	res, err := pl.Tick(context.Background(), Frame{Pending: pending, Confirm: confirm})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(res.Placed) != 20 || st.Len() != 20 {
		t.Fatalf("placed %d, store %d, want 20", len(res.Placed), st.Len())
	}
	// Confirmation order is preserved.
	for i, p := range res.Placed {
		if p.ID != uint64(i+1) {
			t.Errorf("placed[%d].ID = %d", i, p.ID)
		}
	}
	if res.Snapshot.Version() != 1 {
		t.Errorf("version = %d, want 1 for one batch", res.Snapshot.Version())
	}
}

func TestPipelineNilWorld(t *testing.T) {
	st := store.New[Placed]()
	pl := NewPipeline(testCatalog(t), st, nil, DefaultSettings(), zerolog.Nop())
	p := aimed(1, NewPending(0, pl.Catalog().Lookup("Floor").ID, 0), geom.Vec3{0, 2, 0}, geom.Vec3{0, 0, 1})

	if _, err := pl.Tick(context.Background(), Frame{Pending: []*Pending{p}}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !near(p.DefaultTarget, geom.Vec3{0, 0, 10}) {
		t.Errorf("target = %v, want the flat far point", p.DefaultTarget)
	}
}

func TestPipelineSettings(t *testing.T) {
	pl, _, _ := newTestPipeline(t)

	bad := DefaultSettings()
	bad.GridSize = 0
	if err := pl.SetSettings(bad); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if pl.Settings().GridSize != 0.5 {
		t.Errorf("rejected settings were applied")
	}

	pl.SetMode(ModeNone)
	if pl.Settings().Mode != ModeNone {
		t.Errorf("mode = %s", pl.Settings().Mode)
	}

	good := DefaultSettings()
	good.GridSize = 1
	if err := pl.SetSettings(good); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	if got := pl.Settings(); got != good {
		t.Errorf("settings = %+v", got)
	}
}

func TestPipelineModeNoneNeverSnaps(t *testing.T) {
	pl, st, _ := newTestPipeline(t)
	c := pl.Catalog()
	st.Append(Placed{ID: 1, Def: c.Lookup("Floor").ID, Position: geom.Vec3{0, 0, -1}})
	pl.SetMode(ModeNone)

	wall := aimed(2, NewPending(0, c.Lookup("Wall").ID, 0), geom.Vec3{0.5, 2, -3}, geom.Vec3{0, -1, 1})
	if _, err := pl.Tick(context.Background(), Frame{Pending: []*Pending{wall}}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if wall.Snapped || wall.TargetPosition != wall.DefaultTarget {
		t.Errorf("snapped in mode none: %+v", wall)
	}
}

func BenchmarkPipelineTick(b *testing.B) {
	st := store.New[Placed]()
	c := testCatalog(b)
	floor := c.Lookup("Floor").ID
	for i := 0; i < 200; i++ {
		st.Append(Placed{ID: uint64(i + 1), Def: floor, Position: geom.Vec3{float64(i%20) * 1, 0, float64(i/20) * 1}})
	}
	pl := NewPipeline(c, st, &flatWorld{}, DefaultSettings(), zerolog.Nop())
	var pending []*Pending
	for i := 0; i < 8; i++ {
		pending = append(pending, aimed(uint64(1000+i), NewPending(0, floor, 0), geom.Vec3{float64(i), 2, -3}, geom.Vec3{0, -1, 1}))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pl.Tick(context.Background(), Frame{DeltaTime: 1.0 / 60, Pending: pending}); err != nil {
			b.Fatal(err)
		}
	}
}
