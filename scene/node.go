// Package scene holds an SVG template as a mutable tree of drawable nodes addressable
// by element id.
//
// Lookups return one of three node variants: *Group, *Text or *Shape. The typed
// accessors fail with a *dasherr.TemplateContractError when the id is missing or
// names a node of another kind.
package scene

import (
	"fmt"

	"github.com/stuartleeks/home-dash/epaper-dash/dasherr"
)

type NodeKind int

const (
	KindGroup NodeKind = iota
	KindText
	KindShape
)

func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindText:
		return "text"
	case KindShape:
		return "shape"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is implemented by *Group, *Text and *Shape only.
type Node interface {
	NodeID() string
	Kind() NodeKind
}

// Group is a container; its transform and opacity apply to every descendant.
type Group struct {
	ID        string
	Transform Matrix
	Opacity   float64
	Children  []Node
}

func (g *Group) NodeID() string { return g.ID }
func (g *Group) Kind() NodeKind { return KindGroup }

// SetScaleY replaces the vertical scale component of the group's transform.
func (g *Group) SetScaleY(sy float64) {
	g.Transform.D = sy
}

func (g *Group) SetOpacity(opacity float64) {
	g.Opacity = clamp01(opacity)
}

// Text is a text element made of one or more runs, one per tspan.
type Text struct {
	ID        string
	Transform Matrix
	Opacity   float64
	Style     Style
	X, Y      float64
	Runs      []*TextRun
}

// TextRun is a span of text. X and Y are set when the run starts a new absolutely
// positioned chunk.
type TextRun struct {
	Text   string
	X, Y   *float64
	DX, DY float64
	Style  Style
}

func (t *Text) NodeID() string { return t.ID }
func (t *Text) Kind() NodeKind { return KindText }

// SetRun replaces the content of run i.
func (t *Text) SetRun(i int, s string) error {
	if i < 0 || i >= len(t.Runs) {
		return &dasherr.TemplateContractError{
			NodeID: t.ID,
			Reason: fmt.Sprintf("has %d text runs, need run %d", len(t.Runs), i),
		}
	}
	t.Runs[i].Text = s
	return nil
}

// Shape is any filled or stroked geometry, reduced to an absolute path.
type Shape struct {
	ID        string
	Element   string
	Transform Matrix
	Opacity   float64
	Style     Style
	Path      []Segment
}

func (s *Shape) NodeID() string { return s.ID }
func (s *Shape) Kind() NodeKind { return KindShape }

// Document is a parsed template.
type Document struct {
	Width, Height float64
	Root          *Group
	index         map[string]Node
}

// Lookup returns the node with the given id.
func (d *Document) Lookup(id string) (Node, bool) {
	n, ok := d.index[id]
	return n, ok
}

// TextByID returns the text node with the given id.
func (d *Document) TextByID(id string) (*Text, error) {
	n, err := d.lookupKind(id, KindText)
	if err != nil {
		return nil, err
	}
	return n.(*Text), nil
}

// GroupByID returns the group node with the given id.
func (d *Document) GroupByID(id string) (*Group, error) {
	n, err := d.lookupKind(id, KindGroup)
	if err != nil {
		return nil, err
	}
	return n.(*Group), nil
}

func (d *Document) lookupKind(id string, want NodeKind) (Node, error) {
	n, ok := d.index[id]
	if !ok {
		return nil, &dasherr.TemplateContractError{NodeID: id, Reason: "not found"}
	}
	if n.Kind() != want {
		return nil, &dasherr.TemplateContractError{
			NodeID: id,
			Reason: fmt.Sprintf("is a %s node, want %s", n.Kind(), want),
		}
	}
	return n, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
