package placement

import (
	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
)

// Building is one building instance in either of its two states: *Pending
// while the player positions it, Placed once committed. Commit is the only
// transition between them.
type Building interface {
	// InstanceID identifies the instance across the transition.
	InstanceID() uint64
	// DefinitionID is the catalog definition the instance was built from.
	DefinitionID() catalog.ID
	building()
}

// Pending is an object being positioned by the player. It is owned by the
// collaborator that created it and mutated only by the pipeline stages, in
// order, once per tick.
type Pending struct {
	ID  uint64     `json:"id"`
	Def catalog.ID `json:"definition"`

	// Input, refreshed every frame.
	RayOrigin      geom.Vec3 `json:"rayOrigin"`
	RayDirection   geom.Vec3 `json:"rayDirection"`
	TargetYaw      float64   `json:"targetYaw"`
	VerticalOffset int       `json:"verticalOffset"`
	DepthOffset    int       `json:"depthOffset"`

	// Target stage output. HasTarget stays false until the first tick
	// with a usable ray.
	DefaultTarget  geom.Vec3 `json:"defaultTarget"`
	TargetPosition geom.Vec3 `json:"targetPosition"`
	HasTarget      bool      `json:"hasTarget"`
	Snapped        bool      `json:"snapped"`
	SnapScore      float64   `json:"snapScore,omitempty"`

	// Pose stage output. Resolved is set only when the pose stage ran in
	// the current tick.
	ResolvedPosition geom.Vec3 `json:"resolvedPosition"`
	ResolvedRotation geom.Quat `json:"resolvedRotation"`
	Resolved         bool      `json:"resolved"`

	// Committed is set by the pipeline once the object has been placed;
	// a committed object is never stepped or committed again.
	Committed bool `json:"committed"`

	// Rendered ghost transform.
	Position geom.Vec3 `json:"position"`
	Rotation geom.Quat `json:"rotation"`
}

// NewPending returns a pending object that has not been rendered yet.
func NewPending(id uint64, def catalog.ID, yawDeg float64) *Pending {
	return &Pending{
		ID:               id,
		Def:              def,
		TargetYaw:        geom.NormalizeYaw(yawDeg),
		ResolvedRotation: geom.Identity(),
		Position:         geom.Vec3{0, UnsetY, 0},
		Rotation:         geom.Identity(),
	}
}

func (p *Pending) InstanceID() uint64       { return p.ID }
func (p *Pending) DefinitionID() catalog.ID { return p.Def }
func (p *Pending) building()                {}

// Aim sets the ray used by the next tick.
func (p *Pending) Aim(origin, direction geom.Vec3) {
	p.RayOrigin = origin
	p.RayDirection = direction
}

// Rotate turns the target yaw by steps of YawStep degrees.
func (p *Pending) Rotate(steps int) {
	p.TargetYaw = geom.NormalizeYaw(p.TargetYaw + float64(steps)*YawStep)
}

// ShiftVertical moves the vertical offset by delta grid steps, clamped to
// [-MaxOffset, MaxOffset].
func (p *Pending) ShiftVertical(delta int) {
	p.VerticalOffset = clampOffset(p.VerticalOffset + delta)
}

// ShiftDepth moves the depth offset by delta grid steps, clamped to
// [-MaxOffset, MaxOffset].
func (p *Pending) ShiftDepth(delta int) {
	p.DepthOffset = clampOffset(p.DepthOffset + delta)
}

// Rendered reports whether the ghost has been shown at least once.
func (p *Pending) Rendered() bool {
	return p.Position[1] != UnsetY
}

func clampOffset(v int) int {
	if v > MaxOffset {
		return MaxOffset
	}
	if v < -MaxOffset {
		return -MaxOffset
	}
	return v
}

// Placed is a committed building. It is immutable once created.
type Placed struct {
	ID       uint64     `json:"id"`
	Def      catalog.ID `json:"definition"`
	Position geom.Vec3  `json:"position"`
	Yaw      float64    `json:"yaw"`
}

func (p Placed) InstanceID() uint64       { return p.ID }
func (p Placed) DefinitionID() catalog.ID { return p.Def }
func (p Placed) building()                {}

// Rotation returns the placed object's orientation.
func (p Placed) Rotation() geom.Quat {
	return geom.YawRotation(p.Yaw)
}

// SnapPointWorld returns the world position of one of the placed object's
// snap points.
func (p Placed) SnapPointWorld(sp catalog.SnapPoint, gridSize float64) geom.Vec3 {
	return sp.Cell.World(p.Position, p.Yaw, gridSize)
}

var (
	_ Building = (*Pending)(nil)
	_ Building = Placed{}
)
