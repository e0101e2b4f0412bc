package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"golang.org/x/image/math/fixed"
)

type SegmentOp int

const (
	MoveTo SegmentOp = iota
	LineTo
	QuadTo
	CubicTo
	ClosePath
)

type Point struct {
	X, Y float64
}

// Segment is one absolute path command. The last used point is the end point;
// QuadTo uses P[0] as control and CubicTo uses P[0] and P[1].
type Segment struct {
	Op SegmentOp
	P  [3]Point
}

// End returns the point the pen is left at.
func (s Segment) End() Point {
	switch s.Op {
	case QuadTo:
		return s.P[1]
	case CubicTo:
		return s.P[2]
	default:
		return s.P[0]
	}
}

// parsePath converts path data into absolute segments. Arcs come back as cubics.
func parsePath(d string) ([]Segment, error) {
	cursor := &oksvg.PathCursor{ErrorMode: oksvg.StrictErrorMode}
	if err := cursor.CompilePath(d); err != nil {
		return nil, fmt.Errorf("path %q: %w", d, err)
	}
	b := &segmentBuilder{}
	cursor.Path.AddTo(b)
	return b.segs, nil
}

// segmentBuilder receives a compiled path as a rasterx.Adder.
type segmentBuilder struct {
	segs  []Segment
	start Point
}

func toPoint(p fixed.Point26_6) Point {
	return Point{float64(p.X) / 64, float64(p.Y) / 64}
}

func (b *segmentBuilder) Start(a fixed.Point26_6) {
	b.start = toPoint(a)
	b.segs = append(b.segs, Segment{Op: MoveTo, P: [3]Point{b.start}})
}

func (b *segmentBuilder) Line(p fixed.Point26_6) {
	b.segs = append(b.segs, Segment{Op: LineTo, P: [3]Point{toPoint(p)}})
}

func (b *segmentBuilder) QuadBezier(c, p fixed.Point26_6) {
	b.segs = append(b.segs, Segment{Op: QuadTo, P: [3]Point{toPoint(c), toPoint(p)}})
}

func (b *segmentBuilder) CubeBezier(c1, c2, p fixed.Point26_6) {
	b.segs = append(b.segs, Segment{Op: CubicTo, P: [3]Point{toPoint(c1), toPoint(c2), toPoint(p)}})
}

func (b *segmentBuilder) Stop(closeLoop bool) {
	if closeLoop {
		b.segs = append(b.segs, Segment{Op: ClosePath, P: [3]Point{b.start}})
	}
}

// parseNumberList reads whitespace or comma separated numbers.
func parseNumberList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q in %q", f, s)
		}
		out = append(out, v)
	}
	return out, nil
}

// polyPath treats a points list as the arguments of an implicit moveto/lineto run.
func polyPath(points string, closed bool) ([]Segment, error) {
	if strings.TrimSpace(points) == "" {
		return nil, nil
	}
	d := "M" + points
	if closed {
		d += "Z"
	}
	return parsePath(d)
}

// kappa places cubic control points to approximate a quarter ellipse.
var kappa = 4 * (math.Sqrt2 - 1) / 3

func rectPath(x, y, w, h, rx, ry float64) []Segment {
	if rx <= 0 && ry <= 0 {
		return []Segment{
			{Op: MoveTo, P: [3]Point{{x, y}}},
			{Op: LineTo, P: [3]Point{{x + w, y}}},
			{Op: LineTo, P: [3]Point{{x + w, y + h}}},
			{Op: LineTo, P: [3]Point{{x, y + h}}},
			{Op: ClosePath, P: [3]Point{{x, y}}},
		}
	}
	if rx <= 0 {
		rx = ry
	}
	if ry <= 0 {
		ry = rx
	}
	rx, ry = math.Min(rx, w/2), math.Min(ry, h/2)
	kx, ky := rx*kappa, ry*kappa
	return []Segment{
		{Op: MoveTo, P: [3]Point{{x + rx, y}}},
		{Op: LineTo, P: [3]Point{{x + w - rx, y}}},
		{Op: CubicTo, P: [3]Point{{x + w - rx + kx, y}, {x + w, y + ry - ky}, {x + w, y + ry}}},
		{Op: LineTo, P: [3]Point{{x + w, y + h - ry}}},
		{Op: CubicTo, P: [3]Point{{x + w, y + h - ry + ky}, {x + w - rx + kx, y + h}, {x + w - rx, y + h}}},
		{Op: LineTo, P: [3]Point{{x + rx, y + h}}},
		{Op: CubicTo, P: [3]Point{{x + rx - kx, y + h}, {x, y + h - ry + ky}, {x, y + h - ry}}},
		{Op: LineTo, P: [3]Point{{x, y + ry}}},
		{Op: CubicTo, P: [3]Point{{x, y + ry - ky}, {x + rx - kx, y}, {x + rx, y}}},
		{Op: ClosePath, P: [3]Point{{x + rx, y}}},
	}
}

func ellipsePath(cx, cy, rx, ry float64) []Segment {
	kx, ky := rx*kappa, ry*kappa
	return []Segment{
		{Op: MoveTo, P: [3]Point{{cx + rx, cy}}},
		{Op: CubicTo, P: [3]Point{{cx + rx, cy + ky}, {cx + kx, cy + ry}, {cx, cy + ry}}},
		{Op: CubicTo, P: [3]Point{{cx - kx, cy + ry}, {cx - rx, cy + ky}, {cx - rx, cy}}},
		{Op: CubicTo, P: [3]Point{{cx - rx, cy - ky}, {cx - kx, cy - ry}, {cx, cy - ry}}},
		{Op: CubicTo, P: [3]Point{{cx + kx, cy - ry}, {cx + rx, cy - ky}, {cx + rx, cy}}},
		{Op: ClosePath, P: [3]Point{{cx + rx, cy}}},
	}
}
