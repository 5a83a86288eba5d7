// Package placement resolves where a pending building object should go and
// turns it into a placed one.
//
// Every tick a pending object passes through four stages in a fixed order:
//
//	ResolveTarget  ray -> default world target (ground hit, down-cast, flat fallback)
//	MatchSnap      best alignment of its snap points against placed objects
//	ResolvePose    offsets and yaw applied, then Smooth toward the result
//	Commit         pending -> placed, only on confirmation
//
// The stages are pure functions over their inputs. Pipeline runs them for
// a set of pending objects against a read-only store snapshot and applies
// commits only after every object has finished reading it.
package placement
