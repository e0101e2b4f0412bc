package scene

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/beevik/etree"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

const sourceName = "svg template"

type parser struct {
	doc *Document
	// viewport size in user units, the reference for percentage lengths
	vw, vh float64
}

// Parse reads an SVG document. Elements that cannot be drawn (defs, metadata,
// filters and the like) are skipped.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.Entity = xml.HTMLEntity
	p := &parser{doc: &Document{index: make(map[string]Node)}}
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, p.fail(err)
	}
	root := tree.Root()
	if root == nil {
		return nil, p.fail(errors.New("no svg element"))
	}
	if root.Tag != "svg" {
		return nil, p.fail(fmt.Errorf("root element is <%s>, want <svg>", root.Tag))
	}
	if err := p.parseRoot(root); err != nil {
		return nil, p.fail(err)
	}
	return p.doc, nil
}

func (p *parser) fail(err error) error {
	return &dasherr.ParseError{Source: sourceName, Err: err}
}

func (p *parser) parseRoot(el *etree.Element) error {
	attrs := attrMap(el)

	var vb []float64
	if v, ok := attrs["viewBox"]; ok {
		nums, err := parseNumberList(v)
		if err != nil || len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
			return fmt.Errorf("bad viewBox %q", v)
		}
		vb = nums
	}

	width, err := rootDimension(attrs["width"], vb, 2)
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	height, err := rootDimension(attrs["height"], vb, 3)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}
	p.doc.Width, p.doc.Height = width, height

	transform := Identity()
	p.vw, p.vh = width, height
	if vb != nil {
		p.vw, p.vh = vb[2], vb[3]
		transform = Scale(width/vb[2], height/vb[3]).Multiply(Translate(-vb[0], -vb[1]))
	}

	props := styleProperties(attrs)
	style, err := inherit(defaultStyle(), props)
	if err != nil {
		return err
	}
	opacity, err := opacityOf(props)
	if err != nil {
		return err
	}
	children, err := p.parseChildren(el, style)
	if err != nil {
		return err
	}
	p.doc.Root = &Group{ID: attrs["id"], Transform: transform, Opacity: opacity, Children: children}
	p.register(p.doc.Root)
	return nil
}

// rootDimension resolves the outer width or height, falling back to the viewBox.
func rootDimension(v string, vb []float64, vbIndex int) (float64, error) {
	if v == "" || strings.HasSuffix(strings.TrimSpace(v), "%") {
		if vb == nil {
			return 0, errors.New("missing and no viewBox")
		}
		return vb[vbIndex], nil
	}
	f, err := parseLength(v, 0)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", f)
	}
	return f, nil
}

func (p *parser) register(n Node) {
	id := n.NodeID()
	if id == "" {
		return
	}
	if _, dup := p.doc.index[id]; !dup {
		p.doc.index[id] = n
	}
}

func (p *parser) parseChildren(el *etree.Element, parent Style) ([]Node, error) {
	var children []Node
	for _, child := range el.ChildElements() {
		n, err := p.parseElement(child, parent)
		if err != nil {
			return nil, err
		}
		if n != nil {
			children = append(children, n)
		}
	}
	return children, nil
}

func (p *parser) parseElement(el *etree.Element, parent Style) (Node, error) {
	attrs := attrMap(el)
	props := styleProperties(attrs)
	if props["display"] == "none" {
		return nil, nil
	}

	id := attrs["id"]
	style, err := inherit(parent, props)
	if err != nil {
		return nil, fmt.Errorf("<%s id=%q>: %w", el.Tag, id, err)
	}
	opacity, err := opacityOf(props)
	if err != nil {
		return nil, fmt.Errorf("<%s id=%q>: %w", el.Tag, id, err)
	}
	transform := Identity()
	if v, ok := attrs["transform"]; ok {
		if transform, err = parseTransform(v); err != nil {
			return nil, fmt.Errorf("<%s id=%q>: %w", el.Tag, id, err)
		}
	}

	var n Node
	switch el.Tag {
	case "g", "a", "switch", "svg":
		if el.Tag == "svg" {
			x, _ := p.length(attrs, "x", p.vw)
			y, _ := p.length(attrs, "y", p.vh)
			transform = transform.Multiply(Translate(x, y))
		}
		children, err := p.parseChildren(el, style)
		if err != nil {
			return nil, err
		}
		n = &Group{ID: id, Transform: transform, Opacity: opacity, Children: children}
	case "text":
		t := &Text{ID: id, Transform: transform, Opacity: opacity, Style: style}
		if t.X, err = p.length(attrs, "x", p.vw); err != nil {
			return nil, err
		}
		if t.Y, err = p.length(attrs, "y", p.vh); err != nil {
			return nil, err
		}
		if err := p.parseTextContent(el, t, style); err != nil {
			return nil, err
		}
		n = t
	case "rect", "circle", "ellipse", "line", "polyline", "polygon", "path":
		path, err := p.geometry(el.Tag, attrs)
		if err != nil {
			return nil, fmt.Errorf("<%s id=%q>: %w", el.Tag, id, err)
		}
		n = &Shape{ID: id, Element: el.Tag, Transform: transform, Opacity: opacity, Style: style, Path: path}
	default:
		return nil, nil
	}
	p.register(n)
	return n, nil
}

func (p *parser) geometry(element string, attrs map[string]string) ([]Segment, error) {
	diag := math.Sqrt((p.vw*p.vw + p.vh*p.vh) / 2)
	var err error
	num := func(name string, ref float64) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = p.length(attrs, name, ref)
		return v
	}

	switch element {
	case "rect":
		x, y, w, h := num("x", p.vw), num("y", p.vh), num("width", p.vw), num("height", p.vh)
		rx, ry := num("rx", p.vw), num("ry", p.vh)
		if err != nil {
			return nil, err
		}
		if w <= 0 || h <= 0 {
			return nil, nil
		}
		return rectPath(x, y, w, h, rx, ry), nil
	case "circle":
		cx, cy, r := num("cx", p.vw), num("cy", p.vh), num("r", diag)
		if err != nil || r <= 0 {
			return nil, err
		}
		return ellipsePath(cx, cy, r, r), nil
	case "ellipse":
		cx, cy, rx, ry := num("cx", p.vw), num("cy", p.vh), num("rx", p.vw), num("ry", p.vh)
		if err != nil || rx <= 0 || ry <= 0 {
			return nil, err
		}
		return ellipsePath(cx, cy, rx, ry), nil
	case "line":
		x1, y1, x2, y2 := num("x1", p.vw), num("y1", p.vh), num("x2", p.vw), num("y2", p.vh)
		if err != nil {
			return nil, err
		}
		return []Segment{
			{Op: MoveTo, P: [3]Point{{x1, y1}}},
			{Op: LineTo, P: [3]Point{{x2, y2}}},
		}, nil
	case "polyline", "polygon":
		return polyPath(attrs["points"], element == "polygon")
	default:
		return parsePath(attrs["d"])
	}
}

// parseTextContent collects the character data and tspans of a text element, one
// run per tspan or loose text.
func (p *parser) parseTextContent(el *etree.Element, t *Text, style Style) error {
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			if s := collapseSpace(tok.Data); s != "" {
				t.Runs = append(t.Runs, &TextRun{Text: s, Style: style})
			}
		case *etree.Element:
			if tok.Tag != "tspan" {
				continue
			}
			run, err := p.parseTspan(tok, style)
			if err != nil {
				return fmt.Errorf("<text id=%q>: %w", t.ID, err)
			}
			t.Runs = append(t.Runs, run)
		}
	}
	return nil
}

func (p *parser) parseTspan(el *etree.Element, parent Style) (*TextRun, error) {
	attrs := attrMap(el)
	style, err := inherit(parent, styleProperties(attrs))
	if err != nil {
		return nil, err
	}
	run := &TextRun{Style: style}
	for _, pos := range []struct {
		name string
		ref  float64
		dst  **float64
	}{{"x", p.vw, &run.X}, {"y", p.vh, &run.Y}} {
		if _, ok := attrs[pos.name]; ok {
			v, err := p.length(attrs, pos.name, pos.ref)
			if err != nil {
				return nil, err
			}
			*pos.dst = &v
		}
	}
	if run.DX, err = p.length(attrs, "dx", p.vw); err != nil {
		return nil, err
	}
	if run.DY, err = p.length(attrs, "dy", p.vh); err != nil {
		return nil, err
	}

	var sb strings.Builder
	innerText(el, &sb)
	run.Text = collapseSpace(sb.String())
	return run, nil
}

// innerText flattens nested spans into one string.
func innerText(el *etree.Element, sb *strings.Builder) {
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			sb.WriteString(tok.Data)
		case *etree.Element:
			innerText(tok, sb)
		}
	}
}

// length reads a coordinate attribute. Lists keep their first value; a missing
// attribute is zero.
func (p *parser) length(attrs map[string]string, name string, ref float64) (float64, error) {
	v, ok := attrs[name]
	if !ok {
		return 0, nil
	}
	if first := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' }); len(first) > 0 {
		v = first[0]
	}
	f, err := parseLength(v, ref)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func opacityOf(props map[string]string) (float64, error) {
	v, ok := props["opacity"]
	if !ok || v == "" {
		return 1, nil
	}
	o, err := parseOpacity(v)
	if err != nil {
		return 0, fmt.Errorf("opacity: %w", err)
	}
	return o, nil
}

// attrMap keeps unprefixed attributes only.
func attrMap(el *etree.Element) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "" {
			m[a.Key] = a.Value
		}
	}
	return m
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
