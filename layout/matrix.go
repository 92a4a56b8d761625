package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Matrix is a 2D affine transform (a, b, c, d, e, f) standing for
//
//	| a c e |
//	| b d f |
//	| 0 0 1 |
//
// which is the layout of both CSS matrix() and the PDF Tm/cm operands.
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Multiply returns m × o: the transform that applies o first, then m.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

// IsIdentity reports whether m is exactly the identity transform.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// List returns the six components in order.
func (m Matrix) List() []float64 {
	return m[:]
}

// MatrixFromList builds a matrix from exactly six components.
func MatrixFromList(v []float64) (Matrix, bool) {
	if len(v) != 6 {
		return Identity(), false
	}
	var m Matrix
	copy(m[:], v)
	return m, true
}

// String renders m as a CSS matrix() function.
func (m Matrix) String() string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "matrix(" + strings.Join(parts, ", ") + ")"
}

// ParseTransform parses a CSS transform value. Functions compose left to
// right as CSS specifies. "none", an empty value or anything that does not
// parse yields the identity.
func ParseTransform(s string) Matrix {
	m, err := parseTransform(s)
	if err != nil {
		return Identity()
	}
	return m
}

func parseTransform(s string) (Matrix, error) {
	s = strings.TrimSpace(s)
	m := Identity()
	if s == "" || strings.EqualFold(s, "none") {
		return m, nil
	}
	for s != "" {
		open := strings.IndexByte(s, '(')
		if open <= 0 {
			return m, fmt.Errorf("layout: malformed transform %q", s)
		}
		end := strings.IndexByte(s, ')')
		if end < open {
			return m, fmt.Errorf("layout: unterminated transform %q", s)
		}
		name := strings.ToLower(strings.TrimSpace(s[:open]))
		args := splitArgs(s[open+1 : end])
		fn, err := transformFunc(name, args)
		if err != nil {
			return m, err
		}
		m = m.Multiply(fn)
		s = strings.TrimSpace(s[end+1:])
	}
	return m, nil
}

func splitArgs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func transformFunc(name string, args []string) (Matrix, error) {
	m := Identity()
	switch name {
	case "matrix":
		v, err := numbers(args, 6)
		if err != nil {
			return m, err
		}
		copy(m[:], v)
	case "matrix3d":
		v, err := numbers(args, 16)
		if err != nil {
			return m, err
		}
		// Column-major 4x4; keep the 2D affine part.
		m = Matrix{v[0], v[1], v[4], v[5], v[12], v[13]}
	case "translate":
		if len(args) != 1 && len(args) != 2 {
			return m, argCountError(name, args)
		}
		tx, err := length(args[0])
		if err != nil {
			return m, err
		}
		ty := 0.0
		if len(args) == 2 {
			if ty, err = length(args[1]); err != nil {
				return m, err
			}
		}
		m[4], m[5] = tx, ty
	case "translatex":
		tx, err := oneArg(name, args, length)
		if err != nil {
			return m, err
		}
		m[4] = tx
	case "translatey":
		ty, err := oneArg(name, args, length)
		if err != nil {
			return m, err
		}
		m[5] = ty
	case "scale":
		v, err := numbersRange(args, 1, 2)
		if err != nil {
			return m, err
		}
		m[0], m[3] = v[0], v[0]
		if len(v) == 2 {
			m[3] = v[1]
		}
	case "scalex":
		sx, err := oneArg(name, args, number)
		if err != nil {
			return m, err
		}
		m[0] = sx
	case "scaley":
		sy, err := oneArg(name, args, number)
		if err != nil {
			return m, err
		}
		m[3] = sy
	case "rotate":
		a, err := oneArg(name, args, angle)
		if err != nil {
			return m, err
		}
		sin, cos := math.Sincos(a)
		m = Matrix{cos, sin, -sin, cos, 0, 0}
	case "skew":
		if len(args) != 1 && len(args) != 2 {
			return m, argCountError(name, args)
		}
		ax, err := angle(args[0])
		if err != nil {
			return m, err
		}
		ay := 0.0
		if len(args) == 2 {
			if ay, err = angle(args[1]); err != nil {
				return m, err
			}
		}
		m[1], m[2] = math.Tan(ay), math.Tan(ax)
	case "skewx":
		a, err := oneArg(name, args, angle)
		if err != nil {
			return m, err
		}
		m[2] = math.Tan(a)
	case "skewy":
		a, err := oneArg(name, args, angle)
		if err != nil {
			return m, err
		}
		m[1] = math.Tan(a)
	default:
		return m, fmt.Errorf("layout: unsupported transform function %q", name)
	}
	return m, nil
}

func argCountError(name string, args []string) error {
	return fmt.Errorf("layout: %s() with %d arguments", name, len(args))
}

func oneArg(name string, args []string, parse func(string) (float64, error)) (float64, error) {
	if len(args) != 1 {
		return 0, argCountError(name, args)
	}
	return parse(args[0])
}

func numbers(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("layout: want %d numbers, got %d", n, len(args))
	}
	return numbersRange(args, n, n)
}

func numbersRange(args []string, lo, hi int) ([]float64, error) {
	if len(args) < lo || len(args) > hi {
		return nil, fmt.Errorf("layout: want %d to %d numbers, got %d", lo, hi, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := number(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func number(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// length parses a px or unitless length.
func length(s string) (float64, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "px")
	return number(s)
}

// angle parses a CSS angle into radians.
func angle(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	units := []struct {
		suffix string
		scale  float64
	}{
		{"grad", math.Pi / 200},
		{"turn", 2 * math.Pi},
		{"deg", math.Pi / 180},
		{"rad", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := number(strings.TrimSuffix(s, u.suffix))
			return v * u.scale, err
		}
	}
	v, err := number(s)
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return 0, fmt.Errorf("layout: angle %q has no unit", s)
	}
	return 0, nil
}
