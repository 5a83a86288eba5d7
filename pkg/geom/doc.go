// Package geom holds the small set of geometric types shared by every
// kexbuild package: world vectors and rotations (backed by mathgl's mgl64),
// integer grid cells, and yaw helpers for rotations about the vertical axis.
package geom
