package placement

import (
	"math"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/geom"
)

// Match is the outcome of snap matching. When Found is false Origin is the
// zero vector and the default target should be used unchanged.
type Match struct {
	Origin geom.Vec3 `json:"origin"`
	Score  float64   `json:"score"`
	Found  bool      `json:"found"`

	// Placed is the snapshot index of the object snapped to; the point
	// indices refer to the two definitions' snap point lists.
	Placed       int `json:"placed"`
	PendingPoint int `json:"pendingPoint"`
	PlacedPoint  int `json:"placedPoint"`
}

// SnapQuery describes the pending side of a match.
type SnapQuery struct {
	Origin    geom.Vec3
	Direction geom.Vec3
	Yaw       float64
	Def       *catalog.Definition
}

// MatchSnap finds the pending origin that best aligns one of the pending
// definition's snap points with one of a placed object's.
//
// Candidates are visited in snapshot order, then pending point order, then
// placed point order, and only a strictly lower score replaces the best, so
// the first of several equal scores wins. Lower scores are better.
func MatchSnap(q SnapQuery, placed []Placed, cat *catalog.Catalog, s Settings) Match {
	best := Match{Score: math.MaxFloat64, Placed: -1, PendingPoint: -1, PlacedPoint: -1}
	if s.Mode == ModeNone || q.Def == nil || !q.Def.HasSnapPoints() {
		return notFound()
	}
	if q.Direction.LenSqr() == 0 {
		return notFound()
	}
	tu := s.Tuning
	dir := q.Direction.Normalize()
	g := s.GridSize

	// Pending points rotated into the candidate yaw, filtered once.
	type localPoint struct {
		index   int
		offset  geom.Vec3
		primary bool
	}
	pending := make([]localPoint, 0, len(q.Def.SnapPoints))
	for i, sp := range q.Def.SnapPoints {
		if !s.Mode.Allows(sp.Priority) {
			continue
		}
		pending = append(pending, localPoint{
			index:   i,
			offset:  geom.RotateYaw(q.Yaw, sp.Cell.Local(g)),
			primary: sp.IsPrimary(),
		})
	}
	if len(pending) == 0 {
		return notFound()
	}

	for pi, p := range placed {
		along := p.Position.Sub(q.Origin).Dot(dir)
		if along < 0 || along > tu.MaxRayDistance {
			continue
		}
		pdef := cat.Get(p.Def)
		if pdef == nil || !pdef.HasSnapPoints() {
			continue
		}
		for _, bp := range pending {
			for j, sp := range pdef.SnapPoints {
				if !s.Mode.Allows(sp.Priority) {
					continue
				}
				candidate := p.SnapPointWorld(sp, g).Sub(bp.offset)
				score, ok := scoreCandidate(candidate, q.Origin, dir, tu)
				if !ok {
					continue
				}
				if bp.primary && sp.IsPrimary() {
					score *= tu.PrimaryMultiplier
				}
				if score < best.Score {
					best = Match{
						Origin:       candidate,
						Score:        score,
						Found:        true,
						Placed:       pi,
						PendingPoint: bp.index,
						PlacedPoint:  j,
					}
				}
			}
		}
	}
	if !best.Found {
		return notFound()
	}
	return best
}

func notFound() Match {
	return Match{Placed: -1, PendingPoint: -1, PlacedPoint: -1}
}

// scoreCandidate rates a candidate origin against a unit ray. ok is false
// when the candidate is behind the ray, beyond its reach, or farther from
// it than the snap threshold.
func scoreCandidate(candidate, origin, dir geom.Vec3, tu Tuning) (float64, bool) {
	to := candidate.Sub(origin)
	along := to.Dot(dir)
	if along < 0 || along > tu.MaxRayDistance {
		return 0, false
	}
	perp := origin.Add(dir.Mul(along)).Sub(candidate).Len()
	if perp > tu.SnapThreshold {
		return 0, false
	}

	// A candidate at the ray origin sits exactly on the ray.
	cos := 1.0
	if l := to.Len(); l > 0 {
		cos = to.Dot(dir) / l
	}

	return tu.RayDistanceWeight*(perp/tu.SnapThreshold) +
		tu.OriginDistanceWeight*(along/tu.MaxRayDistance) +
		tu.AngleWeight*(1-cos), true
}
