// Package session is the player side of placement: it owns the single
// pending object, turns input into pending-object changes, and drives the
// pipeline once per frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/placement"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AimPitch tilts the camera forward toward the ground when forming the
// placement ray.
const AimPitch = 0.2

// ErrUnknownDefinition is returned by Select for a name not in the catalog.
var ErrUnknownDefinition = errors.New("unknown definition")

// Session holds at most one pending object at a time.
type Session struct {
	id       uuid.UUID
	pipeline *placement.Pipeline
	log      zerolog.Logger

	mu      sync.Mutex
	current *placement.Pending
	confirm bool
	nextID  uint64
}

// New starts a session on p. Instance IDs continue after the highest ID
// already in the pipeline's store.
func New(p *placement.Pipeline, log zerolog.Logger) *Session {
	id := uuid.New()
	s := &Session{
		id:       id,
		pipeline: p,
		log:      log.With().Str("session", id.String()).Logger(),
		nextID:   1,
	}
	for _, pl := range p.Snapshot().Items() {
		if pl.ID >= s.nextID {
			s.nextID = pl.ID + 1
		}
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Select starts positioning the named definition, replacing any pending
// object. Selecting the definition that is already pending cancels it
// instead. It reports whether an object is pending afterwards.
func (s *Session) Select(name string) (bool, error) {
	def := s.pipeline.Catalog().Lookup(name)
	if def == nil {
		return false, fmt.Errorf("session: select %q: %w", name, ErrUnknownDefinition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	again := s.current != nil && s.current.Def == def.ID
	s.clear()
	if again {
		s.log.Debug().Str("definition", name).Msg("deselected")
		return false, nil
	}

	s.current = placement.NewPending(s.nextID, def.ID, 0)
	s.nextID++
	s.log.Debug().Str("definition", name).Uint64("id", s.current.ID).Msg("selected")
	return true, nil
}

// Cancel drops the pending object, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.log.Debug().Uint64("id", s.current.ID).Msg("cancelled")
	}
	s.clear()
}

func (s *Session) clear() {
	s.current = nil
	s.confirm = false
}

// Pending returns a copy of the pending object.
func (s *Session) Pending() (placement.Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return placement.Pending{}, false
	}
	return *s.current, true
}

// Aim sets the placement ray from the camera: the camera forward tilted
// down by AimPitch, normalized.
func (s *Session) Aim(cameraPos, cameraForward geom.Vec3) {
	dir := cameraForward.Add(geom.Up.Mul(-AimPitch))
	if dir.LenSqr() > 0 {
		dir = dir.Normalize()
	}
	s.with(func(p *placement.Pending) { p.Aim(cameraPos, dir) })
}

// Rotate turns the pending object by steps of placement.YawStep.
func (s *Session) Rotate(steps int) {
	s.with(func(p *placement.Pending) { p.Rotate(steps) })
}

// ShiftVertical moves the pending object up or down by grid steps.
func (s *Session) ShiftVertical(delta int) {
	s.with(func(p *placement.Pending) { p.ShiftVertical(delta) })
}

// ShiftDepth moves the pending object toward or away from the viewer by
// grid steps.
func (s *Session) ShiftDepth(delta int) {
	s.with(func(p *placement.Pending) { p.ShiftDepth(delta) })
}

// Confirm requests that the pending object be placed on the next Tick.
func (s *Session) Confirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	s.confirm = true
	return true
}

// CycleMode advances the pipeline's snap mode and returns the new one.
func (s *Session) CycleMode() placement.Mode {
	m := s.pipeline.Settings().Mode.Next()
	s.pipeline.SetMode(m)
	s.log.Debug().Stringer("mode", m).Msg("snap mode")
	return m
}

func (s *Session) with(fn func(p *placement.Pending)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		fn(s.current)
	}
}

// Tick runs one pipeline frame for the pending object. A confirmed object
// that commits is released; one that fails to commit stays pending and
// the error is returned.
func (s *Session) Tick(ctx context.Context, dt float64) (placement.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := placement.Frame{DeltaTime: dt}
	if s.current != nil {
		frame.Pending = []*placement.Pending{s.current}
		if s.confirm {
			frame.Confirm = []uint64{s.current.ID}
		}
	}
	s.confirm = false

	res, err := s.pipeline.Tick(ctx, frame)
	if err != nil {
		s.log.Error().Err(err).Msg("tick failed")
		return res, err
	}
	if len(res.Placed) > 0 {
		s.log.Info().
			Uint64("id", res.Placed[0].ID).
			Int("placed", res.Snapshot.Len()).
			Msg("committed")
		s.current = nil
	}
	return res, nil
}
