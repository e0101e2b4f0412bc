package scene

import (
	"fmt"
	"math"
	"strings"
)

// Matrix is the SVG affine transform [a c e; b d f; 0 0 1].
type Matrix struct {
	A, B, C, D, E, F float64
}

func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

func Translate(x, y float64) Matrix {
	return Matrix{A: 1, D: 1, E: x, F: y}
}

func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

func Rotate(degrees float64) Matrix {
	r := degrees * math.Pi / 180
	s, c := math.Sin(r), math.Cos(r)
	return Matrix{A: c, B: s, C: -s, D: c}
}

// Multiply returns m*n: n is applied first, then m.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// parseTransform parses an SVG transform list such as "translate(10 20) scale(2)".
func parseTransform(s string) (Matrix, error) {
	m := Identity()
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return m, fmt.Errorf("malformed transform %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := parseNumberList(rest[open+1 : closing])
		if err != nil {
			return m, fmt.Errorf("transform %q: %w", s, err)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return m, err
		}
		m = m.Multiply(t)
		rest = strings.TrimLeft(rest[closing+1:], " \t\r\n,")
	}
	return m, nil
}

func transformFunc(name string, args []float64) (Matrix, error) {
	argc := len(args)
	switch {
	case name == "matrix" && argc == 6:
		return Matrix{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}, nil
	case name == "translate" && argc == 1:
		return Translate(args[0], 0), nil
	case name == "translate" && argc == 2:
		return Translate(args[0], args[1]), nil
	case name == "scale" && argc == 1:
		return Scale(args[0], args[0]), nil
	case name == "scale" && argc == 2:
		return Scale(args[0], args[1]), nil
	case name == "rotate" && argc == 1:
		return Rotate(args[0]), nil
	case name == "rotate" && argc == 3:
		return Translate(args[1], args[2]).Multiply(Rotate(args[0])).Multiply(Translate(-args[1], -args[2])), nil
	case name == "skewX" && argc == 1:
		return Matrix{A: 1, C: math.Tan(args[0] * math.Pi / 180), D: 1}, nil
	case name == "skewY" && argc == 1:
		return Matrix{A: 1, B: math.Tan(args[0] * math.Pi / 180), D: 1}, nil
	default:
		return Matrix{}, fmt.Errorf("unsupported transform %s with %d arguments", name, argc)
	}
}
