package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// face is an axis-aligned planar rectangle with an outward normal along
// one coordinate axis.
type face struct {
	axis  int     // 0=x, 1=y, 2=z
	sign  int     // +1 or -1, direction of the outward normal
	coord float64 // position of the plane along axis
	lo    [2]float64
	hi    [2]float64 // extent in the two remaining axes, in increasing axis order
}

// planeAxes returns the two axes spanning the plane normal to axis.
func planeAxes(axis int) (int, int) {
	switch axis {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// boxFaces returns the six faces of a bounding box, ordered -x,+x,-y,+y,-z,+z.
func boxFaces(bb sdf.Box3) []face {
	min := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	faces := make([]face, 0, 6)
	for axis := 0; axis < 3; axis++ {
		u, v := planeAxes(axis)
		lo := [2]float64{min[u], min[v]}
		hi := [2]float64{max[u], max[v]}
		faces = append(faces,
			face{axis: axis, sign: -1, coord: min[axis], lo: lo, hi: hi},
			face{axis: axis, sign: +1, coord: max[axis], lo: lo, hi: hi},
		)
	}
	return faces
}

// coincident reports whether two faces occupy the same rectangle with
// opposing normals, i.e. they are the touching sides of two solids.
func (f face) coincident(o face, tol float64) bool {
	if f.axis != o.axis || f.sign != -o.sign {
		return false
	}
	if math.Abs(f.coord-o.coord) > tol {
		return false
	}
	for i := 0; i < 2; i++ {
		if math.Abs(f.lo[i]-o.lo[i]) > tol || math.Abs(f.hi[i]-o.hi[i]) > tol {
			return false
		}
	}
	return true
}

func (f face) translate(d [3]float64) face {
	u, v := planeAxes(f.axis)
	f.coord += d[f.axis]
	f.lo[0] += d[u]
	f.hi[0] += d[u]
	f.lo[1] += d[v]
	f.hi[1] += d[v]
	return f
}
