// Package raster draws a scene document onto an RGBA canvas and encodes it for
// the display.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/stuartleeks/home-dash/epaper-dash/scene"
)

// Rasterize draws doc onto a transparent canvas the size of its viewport.
func Rasterize(doc *scene.Document, fonts *FontSet) (*gg.Context, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("document has no root")
	}
	width := int(math.Ceil(doc.Width))
	height := int(math.Ceil(doc.Height))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	dc := gg.NewContextForRGBA(img)

	r := &renderer{fonts: fonts, faces: faceCache{}}
	defer r.faces.close()
	if err := r.drawNode(dc, doc.Root, scene.Identity()); err != nil {
		return nil, err
	}
	return dc, nil
}

type renderer struct {
	fonts *FontSet
	faces faceCache
}

func (r *renderer) drawNode(dc *gg.Context, n scene.Node, parent scene.Matrix) error {
	switch n := n.(type) {
	case *scene.Group:
		ctm := parent.Multiply(n.Transform)
		return r.withOpacity(dc, n.Opacity, func(dc *gg.Context) error {
			for _, child := range n.Children {
				if err := r.drawNode(dc, child, ctm); err != nil {
					return err
				}
			}
			return nil
		})
	case *scene.Shape:
		return r.withOpacity(dc, n.Opacity, func(dc *gg.Context) error {
			drawShape(dc, n, parent.Multiply(n.Transform))
			return nil
		})
	case *scene.Text:
		return r.withOpacity(dc, n.Opacity, func(dc *gg.Context) error {
			r.drawText(dc, n, parent.Multiply(n.Transform))
			return nil
		})
	default:
		return fmt.Errorf("unexpected node %T", n)
	}
}

// withOpacity runs draw directly when opaque, skips it when fully transparent, and
// otherwise draws onto a separate layer composited at the given opacity.
func (r *renderer) withOpacity(dc *gg.Context, opacity float64, drawFn func(*gg.Context) error) error {
	if opacity <= 0 {
		return nil
	}
	if opacity >= 1 {
		return drawFn(dc)
	}
	layer := gg.NewContext(dc.Width(), dc.Height())
	if err := drawFn(layer); err != nil {
		return err
	}
	dst, ok := dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("unexpected canvas %T", dc.Image())
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), layer.Image(), image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

// setMatrix loads m into dc as translate, rotate, shear and scale steps, since gg
// only composes transforms. It reports false for a degenerate matrix, which draws
// nothing.
func setMatrix(dc *gg.Context, m scene.Matrix) bool {
	sx := math.Hypot(m.A, m.B)
	if sx == 0 {
		return false
	}
	sy := m.Determinant() / sx
	if sy == 0 || math.IsNaN(sy) || math.IsInf(sy, 0) {
		return false
	}
	shear := (m.A*m.C + m.B*m.D) / sx / sy

	dc.Identity()
	dc.Translate(m.E, m.F)
	dc.Rotate(math.Atan2(m.B, m.A))
	dc.Shear(shear, 0)
	dc.Scale(sx, sy)
	return true
}

func drawShape(dc *gg.Context, s *scene.Shape, m scene.Matrix) {
	if len(s.Path) == 0 || !setMatrix(dc, m) {
		return
	}
	if fill, ok := paintColor(s.Style.Fill, s.Style.FillOpacity); ok {
		tracePath(dc, s.Path)
		dc.SetFillRuleWinding()
		dc.SetColor(fill)
		dc.Fill()
	}
	if stroke, ok := paintColor(s.Style.Stroke, s.Style.StrokeOpacity); ok && s.Style.StrokeWidth > 0 {
		tracePath(dc, s.Path)
		// gg strokes in device space
		dc.SetLineWidth(s.Style.StrokeWidth * math.Sqrt(math.Abs(m.Determinant())))
		dc.SetColor(stroke)
		dc.Stroke()
	}
}

func tracePath(dc *gg.Context, path []scene.Segment) {
	dc.ClearPath()
	for _, seg := range path {
		p := seg.P
		switch seg.Op {
		case scene.MoveTo:
			dc.MoveTo(p[0].X, p[0].Y)
		case scene.LineTo:
			dc.LineTo(p[0].X, p[0].Y)
		case scene.QuadTo:
			dc.QuadraticTo(p[0].X, p[0].Y, p[1].X, p[1].Y)
		case scene.CubicTo:
			dc.CubicTo(p[0].X, p[0].Y, p[1].X, p[1].Y, p[2].X, p[2].Y)
		case scene.ClosePath:
			dc.ClosePath()
		}
	}
}

// drawText lays runs out left to right. A run with an absolute x starts a new
// chunk, and each chunk is aligned by the text-anchor of its first run.
func (r *renderer) drawText(dc *gg.Context, t *scene.Text, m scene.Matrix) {
	if !setMatrix(dc, m) {
		return
	}
	x, y := t.X, t.Y
	for start := 0; start < len(t.Runs); {
		end := start + 1
		for end < len(t.Runs) && t.Runs[end].X == nil {
			end++
		}
		chunk := t.Runs[start:end]

		widths := make([]float64, len(chunk))
		total := 0.0
		for i, run := range chunk {
			dc.SetFontFace(r.face(run.Style))
			widths[i], _ = dc.MeasureString(run.Text)
			total += widths[i]
			if i > 0 {
				total += run.DX
			}
		}

		first := chunk[0]
		if first.X != nil {
			x = *first.X
		}
		if first.Y != nil {
			y = *first.Y
		}
		switch first.Style.TextAnchor {
		case "middle":
			x -= total / 2
		case "end":
			x -= total
		}

		for i, run := range chunk {
			x += run.DX
			y += run.DY
			if fill, ok := paintColor(run.Style.Fill, run.Style.FillOpacity); ok && run.Text != "" {
				dc.SetFontFace(r.face(run.Style))
				dc.SetColor(fill)
				dc.DrawString(run.Text, x, y)
			}
			x += widths[i]
		}
		start = end
	}
}

func (r *renderer) face(style scene.Style) font.Face {
	f := r.fonts.Resolve(style.Families(), style.Bold())
	return r.faces.face(f, style.FontSize)
}

func paintColor(p scene.Paint, opacity float64) (color.NRGBA, bool) {
	if p.None || opacity <= 0 {
		return color.NRGBA{}, false
	}
	c := p.Color
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c, true
}
