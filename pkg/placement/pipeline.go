package placement

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Per-object stages
// ---------------------------------------------------------------------------

// Env is the read-only state one tick runs against.
type Env struct {
	Catalog  *catalog.Catalog
	Placed   []Placed
	Collider Collider
	Settings Settings
}

// Step runs the target, snap and pose stages for one pending object.
//
// A ray too short to aim with leaves the previous target in place; the
// pose stage still runs from it. An object that has never had a target is
// left unresolved.
func Step(p *Pending, env Env, dt float64) {
	p.Resolved = false
	def := env.Catalog.Get(p.Def)

	if target, ok := ResolveTarget(p.RayOrigin, p.RayDirection, def, env.Collider, env.Settings.Tuning); ok {
		p.DefaultTarget = target
		p.TargetPosition = target
		p.HasTarget = true
		p.Snapped = false
		p.SnapScore = 0

		m := MatchSnap(SnapQuery{
			Origin:    p.RayOrigin,
			Direction: p.RayDirection,
			Yaw:       p.TargetYaw,
			Def:       def,
		}, env.Placed, env.Catalog, env.Settings)
		if m.Found {
			p.TargetPosition = m.Origin
			p.Snapped = true
			p.SnapScore = m.Score
		}
	}
	if !p.HasTarget {
		return
	}

	p.ResolvedPosition, p.ResolvedRotation = ResolvePose(
		p.TargetPosition, p.TargetYaw, p.VerticalOffset, p.DepthOffset, p.RayDirection, env.Settings.GridSize)
	p.Resolved = true
	p.Position, p.Rotation = Smooth(
		p.Position, p.Rotation, p.ResolvedPosition, p.ResolvedRotation, dt, env.Settings.Tuning.SmoothingRate)
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// ColliderSource builds the ground collidable set for a store snapshot.
type ColliderSource interface {
	Collider(snap store.Snapshot[Placed]) Collider
}

// Frame is the input of one tick.
type Frame struct {
	DeltaTime float64
	Pending   []*Pending
	// Confirm lists the IDs of pending objects to commit this tick.
	Confirm []uint64
}

// TickResult is the output of one tick.
type TickResult struct {
	Placed   []Placed
	Snapshot store.Snapshot[Placed]
}

var (
	// ErrUnknownPending is returned when a confirmation names an object
	// that is not part of the frame.
	ErrUnknownPending = errors.New("unknown pending object")
	// ErrDuplicatePending is returned when a frame lists an object twice,
	// either as pending or as confirmed.
	ErrDuplicatePending = errors.New("duplicate pending object")
)

// Pipeline runs the placement stages for every pending object of a frame
// and applies confirmed commits to the store.
type Pipeline struct {
	catalog *catalog.Catalog
	store   *store.Store[Placed]
	world   ColliderSource
	log     zerolog.Logger

	mu       sync.RWMutex
	settings Settings
	workers  int
}

// NewPipeline creates a pipeline over the given catalog and store. world
// may be nil, in which case rays never hit and targets fall back to the
// flat far point.
func NewPipeline(cat *catalog.Catalog, st *store.Store[Placed], world ColliderSource, settings Settings, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		catalog:  cat,
		store:    st,
		world:    world,
		log:      log.With().Str("component", "placement").Logger(),
		settings: settings,
		workers:  runtime.GOMAXPROCS(0),
	}
}

// Settings returns the current snap settings.
func (p *Pipeline) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// SetSettings replaces the snap settings used by subsequent ticks.
func (p *Pipeline) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("placement: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
	return nil
}

// SetMode changes only the snap mode.
func (p *Pipeline) SetMode(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings.Mode = m
}

// SetWorkers bounds how many pending objects are resolved concurrently.
// Non-positive values mean GOMAXPROCS.
func (p *Pipeline) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = n
}

// Catalog returns the catalog the pipeline resolves against.
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Snapshot returns the current placed-object snapshot.
func (p *Pipeline) Snapshot() store.Snapshot[Placed] {
	return p.store.Snapshot()
}

// Tick resolves every pending object in the frame against one store
// snapshot, then commits the confirmed ones. Commits are validated as a
// batch; if any of them fails nothing is written to the store.
func (p *Pipeline) Tick(ctx context.Context, frame Frame) (TickResult, error) {
	start := time.Now()

	p.mu.RLock()
	settings, workers := p.settings, p.workers
	p.mu.RUnlock()
	if err := settings.Validate(); err != nil {
		return TickResult{}, fmt.Errorf("placement: tick: %w", err)
	}

	byID := make(map[uint64]*Pending, len(frame.Pending))
	for _, pend := range frame.Pending {
		if pend == nil {
			continue
		}
		if _, dup := byID[pend.ID]; dup {
			return TickResult{}, fmt.Errorf("placement: tick: %w: %d", ErrDuplicatePending, pend.ID)
		}
		byID[pend.ID] = pend
	}

	snap := p.store.Snapshot()
	env := Env{
		Catalog:  p.catalog,
		Placed:   snap.Items(),
		Settings: settings,
	}
	if p.world != nil {
		env.Collider = p.world.Collider(snap)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, pend := range byID {
		if pend.Committed {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			Step(pend, env, frame.DeltaTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TickResult{}, fmt.Errorf("placement: tick: %w", err)
	}

	// Every read of snap is done; commits may now change the store.
	placed := make([]Placed, 0, len(frame.Confirm))
	confirmed := make(map[uint64]bool, len(frame.Confirm))
	for _, id := range frame.Confirm {
		if confirmed[id] {
			return TickResult{Snapshot: snap}, fmt.Errorf("placement: commit %d: %w", id, ErrDuplicatePending)
		}
		confirmed[id] = true
		pend, ok := byID[id]
		if !ok {
			return TickResult{Snapshot: snap}, fmt.Errorf("placement: commit %d: %w", id, ErrUnknownPending)
		}
		pl, err := Commit(pend)
		if err != nil {
			return TickResult{Snapshot: snap}, err
		}
		placed = append(placed, pl)
	}

	result := TickResult{Placed: placed, Snapshot: snap}
	if len(placed) > 0 {
		result.Snapshot = p.store.Append(placed...)
		for _, pl := range placed {
			byID[pl.ID].Committed = true
			p.log.Debug().
				Uint64("id", pl.ID).
				Str("definition", definitionName(p.catalog, pl.Def)).
				Floats64("position", pl.Position[:]).
				Float64("yaw", pl.Yaw).
				Msg("placed")
		}
	}

	p.log.Trace().
		Int("pending", len(byID)).
		Int("committed", len(placed)).
		Int("placed", result.Snapshot.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("tick")
	return result, nil
}

func definitionName(cat *catalog.Catalog, id catalog.ID) string {
	if def := cat.Get(id); def != nil {
		return def.Name
	}
	return fmt.Sprintf("#%d", id)
}
