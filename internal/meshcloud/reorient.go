package meshcloud

import "gonum.org/v1/gonum/spatial/r3"

// Reorient maps a native mesh position to the output frame:
// (x, y, z) -> (x, z, -y). It is a 90 degree rotation about x which turns
// the mesh's z-up convention into the output's y-up convention.
//
// Every emitted point is derived from reoriented corners, so edge vectors
// and samples live entirely in the output frame.
func Reorient(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Z, Z: -p.Y}
}

// Unorient is the inverse of Reorient: (x, y, z) -> (x, -z, y).
func Unorient(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X, Y: -p.Z, Z: p.Y}
}
