// Package geometry holds the vertex math used to place blob components:
// rotations about the cartesian axes, distances, and vector expansion.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	xAxis = r3.Vec{X: 1}
	yAxis = r3.Vec{Y: 1}
	zAxis = r3.Vec{Z: 1}
)

// snap is the grid coordinates are rounded to after a rotation, so right
// angle turns land exactly on integers again.
const snap = 1e-9

// Rotate rotates v by x radians about the x axis, then y about the y axis,
// then z about the z axis, i.e. Rz·Ry·Rx·v.
func Rotate(v r3.Vec, z, y, x float64) r3.Vec {
	v = r3.NewRotation(x, xAxis).Rotate(v)
	v = r3.NewRotation(y, yAxis).Rotate(v)
	return r3.NewRotation(z, zAxis).Rotate(v)
}

// Distance returns the distance of v from the origin.
func Distance(v r3.Vec) float64 {
	return r3.Norm(v)
}

// Hypotenuse returns the square root of the sum of squares of sides.
func Hypotenuse(sides ...float64) float64 {
	var sum float64
	for _, s := range sides {
		sum += s * s
	}
	return math.Sqrt(sum)
}

// Arctan returns the angle of a right-angled triangle with the given
// opposite and adjacent sides, in [0, 2π).
func Arctan(opposite, adjacent float64) float64 {
	a := math.Atan2(opposite, adjacent)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// ConvertTo3DVector expands a one-element vector to three equal components
// and passes a three-element vector through.
func ConvertTo3DVector(v []float64) ([3]float64, error) {
	switch len(v) {
	case 1:
		return [3]float64{v[0], v[0], v[0]}, nil
	case 3:
		return [3]float64{v[0], v[1], v[2]}, nil
	}
	return [3]float64{}, fmt.Errorf("vector should have 1 or 3 components, got %d", len(v))
}

// Vec converts an array to an r3.Vec.
func Vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// Array converts an r3.Vec to an array.
func Array(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// IsRightAngle reports whether deg is a whole multiple of 90 degrees.
func IsRightAngle(deg float64) bool {
	q := deg / 90
	return math.Abs(q-math.Round(q)) < snap
}

// RotateBox rotates an axis-aligned box about pivot by deg degrees (applied
// x, then y, then z) and returns the box that bounds the result. Only right
// angle rotations keep a box axis-aligned, so any other angle is an error.
func RotateBox(b r3.Box, pivot, deg r3.Vec) (r3.Box, error) {
	for _, d := range [3]float64{deg.X, deg.Y, deg.Z} {
		if !IsRightAngle(d) {
			return r3.Box{}, fmt.Errorf("rotation %v: %g is not a multiple of 90 degrees", deg, d)
		}
	}
	rad := r3.Scale(math.Pi/180, deg)

	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, c := range b.Vertices() {
		p := r3.Add(pivot, Rotate(r3.Sub(c, pivot), rad.Z, rad.Y, rad.X))
		p = r3.Vec{X: round(p.X), Y: round(p.Y), Z: round(p.Z)}
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return r3.Box{Min: lo, Max: hi}, nil
}

func round(f float64) float64 {
	return math.Round(f/snap) * snap
}
