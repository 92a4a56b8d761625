package layout

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func matrixNear(a, b Matrix) bool {
	for i := range a {
		if !almostEqual(a[i], b[i], 1e-9) {
			return false
		}
	}
	return true
}

func TestMultiply(t *testing.T) {
	translate := Matrix{1, 0, 0, 1, 10, 20}
	scale := Matrix{2, 0, 0, 3, 0, 0}

	// translate × scale scales first.
	got := translate.Multiply(scale)
	want := Matrix{2, 0, 0, 3, 10, 20}
	if got != want {
		t.Errorf("translate×scale = %v, want %v", got, want)
	}

	got = scale.Multiply(translate)
	want = Matrix{2, 0, 0, 3, 20, 60}
	if got != want {
		t.Errorf("scale×translate = %v, want %v", got, want)
	}

	x, y := translate.Multiply(scale).Apply(1, 1)
	if x != 12 || y != 23 {
		t.Errorf("Apply = (%v, %v), want (12, 23)", x, y)
	}

	if id := Identity().Multiply(want); id != want {
		t.Errorf("identity × m = %v", id)
	}
}

func TestParseTransform(t *testing.T) {
	s45 := math.Sqrt2 / 2
	tests := []struct {
		in   string
		want Matrix
	}{
		{"", Identity()},
		{"none", Identity()},
		{"matrix(1, 2, 3, 4, 5, 6)", Matrix{1, 2, 3, 4, 5, 6}},
		{"matrix(1 2 3 4 5 6)", Matrix{1, 2, 3, 4, 5, 6}},
		{"translate(10px, 5px)", Matrix{1, 0, 0, 1, 10, 5}},
		{"translate(7px)", Matrix{1, 0, 0, 1, 7, 0}},
		{"translateX(3px) translateY(4px)", Matrix{1, 0, 0, 1, 3, 4}},
		{"scale(2)", Matrix{2, 0, 0, 2, 0, 0}},
		{"scale(2, 0.5)", Matrix{2, 0, 0, 0.5, 0, 0}},
		{"rotate(45deg)", Matrix{s45, s45, -s45, s45, 0, 0}},
		{"rotate(0.25turn)", Matrix{0, 1, -1, 0, 0, 0}},
		{"rotate(100grad)", Matrix{0, 1, -1, 0, 0, 0}},
		{"rotate(0)", Identity()},
		{"skewX(45deg)", Matrix{1, 0, 1, 1, 0, 0}},
		{"translate(10px, 0px) scale(2)", Matrix{2, 0, 0, 2, 10, 0}},
		{"matrix3d(2,0,0,0, 0,3,0,0, 0,0,1,0, 4,5,0,1)", Matrix{2, 0, 0, 3, 4, 5}},
		{"rotate(45)", Identity()},
		{"perspective(100px)", Identity()},
		{"matrix(1, 2, 3)", Identity()},
		{"garbage", Identity()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseTransform(tt.in); !matrixNear(got, tt.want) {
				t.Errorf("ParseTransform(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformRoundTrip(t *testing.T) {
	matrices := []Matrix{
		Identity(),
		{1, 0, 0, 1, 12.5, -3},
		{0.7071067811865476, 0.7071067811865475, -0.7071067811865475, 0.7071067811865476, 0, 0},
		{2, 0.1, -0.3, 1.5, 1e-7, 400},
	}
	for _, m := range matrices {
		got := ParseTransform(m.String())
		if !matrixNear(got, m) {
			t.Errorf("ParseTransform(%q) = %v, want %v", m.String(), got, m)
		}
		back, ok := MatrixFromList(m.List())
		if !ok || back != m {
			t.Errorf("MatrixFromList(List()) = %v, %v", back, ok)
		}
	}
}

func TestMatrixFromListLength(t *testing.T) {
	if _, ok := MatrixFromList([]float64{1, 2, 3}); ok {
		t.Error("MatrixFromList accepted 3 values")
	}
}

func TestIsIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Error("Identity() is not identity")
	}
	if (Matrix{1, 0, 0, 1, 0, 1}).IsIdentity() {
		t.Error("translation reported as identity")
	}
}
