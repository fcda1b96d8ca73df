package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func near(a, b r3.Vec) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name    string
		v       r3.Vec
		z, y, x float64
		want    r3.Vec
	}{
		{"identity", r3.Vec{X: 1, Y: 2, Z: 3}, 0, 0, 0, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"quarter about z", r3.Vec{X: 1}, math.Pi / 2, 0, 0, r3.Vec{Y: 1}},
		{"quarter about y", r3.Vec{X: 1}, 0, math.Pi / 2, 0, r3.Vec{Z: -1}},
		{"quarter about x", r3.Vec{Y: 1}, 0, 0, math.Pi / 2, r3.Vec{Z: 1}},
		// x first: (0,1,0) -> (0,0,1), then z leaves it alone.
		{"x then z", r3.Vec{Y: 1}, math.Pi / 2, 0, math.Pi / 2, r3.Vec{Z: 1}},
		// x first: (1,0,0) unchanged, then z: (0,1,0).
		{"order matters", r3.Vec{X: 1}, math.Pi / 2, 0, math.Pi / 2, r3.Vec{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate(tt.v, tt.z, tt.y, tt.x)
			if !near(got, tt.want) {
				t.Errorf("Rotate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceAndHypotenuse(t *testing.T) {
	if got := Distance(r3.Vec{X: 3, Y: 4}); math.Abs(got-5) > eps {
		t.Errorf("Distance = %v, want 5", got)
	}
	if got := Hypotenuse(1, 2, 2); math.Abs(got-3) > eps {
		t.Errorf("Hypotenuse = %v, want 3", got)
	}
	if got := Hypotenuse(); got != 0 {
		t.Errorf("Hypotenuse() = %v, want 0", got)
	}
}

func TestArctan(t *testing.T) {
	tests := []struct {
		opp, adj float64
		want     float64
	}{
		{1, 1, math.Pi / 4},
		{1, 0, math.Pi / 2},
		{1, -1, 3 * math.Pi / 4},
		{-1, -1, 5 * math.Pi / 4},
		{-1, 0, 3 * math.Pi / 2},
		{-1, 1, 7 * math.Pi / 4},
		{0, 1, 0},
	}
	for _, tt := range tests {
		got := Arctan(tt.opp, tt.adj)
		if math.Abs(got-tt.want) > eps {
			t.Errorf("Arctan(%v, %v) = %v, want %v", tt.opp, tt.adj, got, tt.want)
		}
		if got < 0 || got >= 2*math.Pi {
			t.Errorf("Arctan(%v, %v) = %v out of range", tt.opp, tt.adj, got)
		}
	}
}

func TestConvertTo3DVector(t *testing.T) {
	got, err := ConvertTo3DVector([]float64{2})
	if err != nil || got != [3]float64{2, 2, 2} {
		t.Errorf("one component: %v, %v", got, err)
	}
	got, err = ConvertTo3DVector([]float64{1, 2, 3})
	if err != nil || got != [3]float64{1, 2, 3} {
		t.Errorf("three components: %v, %v", got, err)
	}
	for _, bad := range [][]float64{nil, {1, 2}, {1, 2, 3, 4}} {
		if _, err := ConvertTo3DVector(bad); err == nil {
			t.Errorf("ConvertTo3DVector(%v) should fail", bad)
		}
	}
}

func TestRotateBox(t *testing.T) {
	box := r3.Box{Max: r3.Vec{X: 3, Y: 1, Z: 2}}

	got, err := RotateBox(box, r3.Vec{}, r3.Vec{Z: 90})
	if err != nil {
		t.Fatalf("RotateBox: %v", err)
	}
	want := r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{Y: 3, Z: 2}}
	if !near(got.Min, want.Min) || !near(got.Max, want.Max) {
		t.Errorf("RotateBox = %v, want %v", got, want)
	}

	// A full turn about every axis is the identity.
	got, err = RotateBox(box, r3.Vec{X: 5}, r3.Vec{X: 360, Y: -360, Z: 720})
	if err != nil {
		t.Fatalf("RotateBox: %v", err)
	}
	if !near(got.Min, box.Min) || !near(got.Max, box.Max) {
		t.Errorf("full turn = %v, want %v", got, box)
	}

	if _, err := RotateBox(box, r3.Vec{}, r3.Vec{Y: 45}); err == nil {
		t.Error("expected error for 45 degree rotation")
	}
}

func TestIsRightAngle(t *testing.T) {
	for _, d := range []float64{0, 90, -90, 180, 270, 450} {
		if !IsRightAngle(d) {
			t.Errorf("IsRightAngle(%v) = false", d)
		}
	}
	for _, d := range []float64{1, 45, 89.9} {
		if IsRightAngle(d) {
			t.Errorf("IsRightAngle(%v) = true", d)
		}
	}
}
