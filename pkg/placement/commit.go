package placement

import (
	"errors"
	"fmt"

	"github.com/chazu/kexbuild/pkg/geom"
)

// ErrUnresolved is returned when a pending object is committed before the
// pose stage has run for it in the current tick.
var ErrUnresolved = errors.New("pending object has no resolved pose")

// ErrCommitted is returned when a pending object that was already placed
// is committed again.
var ErrCommitted = errors.New("pending object already committed")

// Commit turns a resolved pending object into a placed one at its resolved
// position and target yaw. It does not touch any store; the pipeline
// appends the result once the tick's reads are done.
func Commit(p *Pending) (Placed, error) {
	if p == nil {
		return Placed{}, fmt.Errorf("placement: commit: %w", ErrUnresolved)
	}
	if p.Committed {
		return Placed{}, fmt.Errorf("placement: commit %d: %w", p.ID, ErrCommitted)
	}
	if !p.Resolved {
		return Placed{}, fmt.Errorf("placement: commit %d: %w", p.ID, ErrUnresolved)
	}
	return Placed{
		ID:       p.ID,
		Def:      p.Def,
		Position: p.ResolvedPosition,
		Yaw:      geom.NormalizeYaw(p.TargetYaw),
	}, nil
}
