package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
)

// Paint is a fill or stroke. A paint with None set draws nothing.
type Paint struct {
	Color color.NRGBA
	None  bool
}

var (
	black   = Paint{Color: color.NRGBA{A: 0xff}}
	noPaint = Paint{None: true}
)

// Style holds the resolved inheritable presentation properties of a node.
type Style struct {
	Fill          Paint
	Stroke        Paint
	StrokeWidth   float64
	FillOpacity   float64
	StrokeOpacity float64
	FontFamily    string
	FontSize      float64
	FontWeight    string
	TextAnchor    string
}

func defaultStyle() Style {
	return Style{
		Fill:          black,
		Stroke:        noPaint,
		StrokeWidth:   1,
		FillOpacity:   1,
		StrokeOpacity: 1,
		FontFamily:    "sans-serif",
		FontSize:      16,
		FontWeight:    "normal",
		TextAnchor:    "start",
	}
}

// Bold reports whether the font weight selects a bold face.
func (s Style) Bold() bool {
	switch s.FontWeight {
	case "bold", "bolder":
		return true
	}
	w, err := strconv.Atoi(s.FontWeight)
	return err == nil && w >= 600
}

// Families returns the font-family list with quotes stripped.
func (s Style) Families() []string {
	var out []string
	for _, f := range strings.Split(s.FontFamily, ",") {
		f = strings.Trim(strings.TrimSpace(f), `"'`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// styleProperties collects presentation attributes, with declarations in a style
// attribute taking precedence.
func styleProperties(attrs map[string]string) map[string]string {
	props := make(map[string]string)
	for _, name := range []string{
		"fill", "stroke", "stroke-width", "fill-opacity", "stroke-opacity",
		"font-family", "font-size", "font-weight", "text-anchor", "opacity", "display",
	} {
		if v, ok := attrs[name]; ok {
			props[name] = strings.TrimSpace(v)
		}
	}
	for _, decl := range strings.Split(attrs["style"], ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		props[strings.TrimSpace(name)] = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
	}
	return props
}

// inherit resolves a node's style from its parent's and its own properties.
func inherit(parent Style, props map[string]string) (Style, error) {
	s := parent
	var err error
	for name, v := range props {
		if v == "inherit" || v == "" {
			continue
		}
		switch name {
		case "fill":
			s.Fill, err = parsePaint(v)
		case "stroke":
			s.Stroke, err = parsePaint(v)
		case "stroke-width":
			s.StrokeWidth, err = parseLength(v, 0)
		case "fill-opacity":
			s.FillOpacity, err = parseOpacity(v)
		case "stroke-opacity":
			s.StrokeOpacity, err = parseOpacity(v)
		case "font-family":
			s.FontFamily = v
		case "font-size":
			s.FontSize, err = parseLength(v, parent.FontSize)
		case "font-weight":
			s.FontWeight = v
		case "text-anchor":
			s.TextAnchor = v
		}
		if err != nil {
			return s, fmt.Errorf("%s: %w", name, err)
		}
	}
	return s, nil
}

func parsePaint(v string) (Paint, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "none" || v == "transparent":
		return noPaint, nil
	case strings.HasPrefix(v, "url("):
		// gradients and patterns are not rendered on a monochrome panel
		return noPaint, nil
	case v == "currentColor":
		return black, nil
	}
	c, err := parseColor(v)
	if err != nil {
		return Paint{}, err
	}
	return Paint{Color: c}, nil
}

// parseColor accepts SVG 1.1 color names, hex and rgb()/hsl() forms.
func parseColor(v string) (color.NRGBA, error) {
	c, err := oksvg.ParseSVGColor(strings.ReplaceAll(strings.ToLower(v), " ", ""))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", v, err)
	}
	if c == nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q", v)
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA), nil
}

func parseOpacity(v string) (float64, error) {
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		return clamp01(f / 100), err
	}
	f, err := strconv.ParseFloat(v, 64)
	return clamp01(f), err
}

// parseLength converts a length to user units. Percentages are taken of ref.
func parseLength(v string, ref float64) (float64, error) {
	v = strings.TrimSpace(v)
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "%"):
		v, scale = strings.TrimSuffix(v, "%"), ref/100
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "pt"):
		v, scale = strings.TrimSuffix(v, "pt"), 4.0/3
	case strings.HasSuffix(v, "em"):
		v, scale = strings.TrimSuffix(v, "em"), 16
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("bad length %q", v)
	}
	return f * scale, nil
}
