package value

import (
	"fmt"
	"strings"
)

// Tag is a label attached to a vertex with its own property bag.
type Tag struct {
	Name  string
	Props map[string]Value
}

// Vertex is a labelled node. VID's kind is fixed per space.
type Vertex struct {
	VID   Value
	Tags  []Tag
	Props map[string]Value
}

// NewVertexEntity builds a vertex with initialised property maps.
func NewVertexEntity(vid Value) *Vertex {
	return &Vertex{VID: vid, Props: map[string]Value{}}
}

// AddTag attaches a tag. An existing tag of the same name has its
// properties merged in place.
func (v *Vertex) AddTag(name string, props map[string]Value) {
	if props == nil {
		props = map[string]Value{}
	}
	for i := range v.Tags {
		if v.Tags[i].Name == name {
			for k, pv := range props {
				v.Tags[i].Props[k] = pv
			}
			return
		}
	}
	v.Tags = append(v.Tags, Tag{Name: name, Props: props})
}

// HasTag reports whether the vertex carries the named tag.
func (v *Vertex) HasTag(name string) bool {
	for _, t := range v.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// TagNames returns the tag names in declaration order.
func (v *Vertex) TagNames() []string {
	names := make([]string, len(v.Tags))
	for i, t := range v.Tags {
		names[i] = t.Name
	}
	return names
}

// Property looks a property up: tags in declaration order first, then the
// vertex-level bag.
func (v *Vertex) Property(name string) (Value, bool) {
	for _, t := range v.Tags {
		if pv, ok := t.Props[name]; ok {
			return pv, true
		}
	}
	pv, ok := v.Props[name]
	return pv, ok
}

// TagProperty looks a property up on one named tag only.
func (v *Vertex) TagProperty(tag, name string) (Value, bool) {
	for _, t := range v.Tags {
		if t.Name == tag {
			pv, ok := t.Props[name]
			return pv, ok
		}
	}
	return Value{}, false
}

// Equal compares by vid.
func (v *Vertex) Equal(other *Vertex) bool {
	return v.VID.Equal(other.VID)
}

func (v *Vertex) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s", v.VID.displayString())
	for _, t := range v.Tags {
		b.WriteString(" :" + t.Name)
	}
	b.WriteString(")")
	return b.String()
}

func (v *Vertex) estimatedSize() int {
	size := v.VID.EstimatedSize()
	for _, t := range v.Tags {
		size += len(t.Name)
		for k, pv := range t.Props {
			size += len(k) + pv.EstimatedSize()
		}
	}
	for k, pv := range v.Props {
		size += len(k) + pv.EstimatedSize()
	}
	return size
}

// Edge is a typed, directed relation between two vertices.
type Edge struct {
	Src     Value
	Dst     Value
	Type    string
	Version int64
	Props   map[string]Value
}

// NewEdgeEntity builds an edge with an initialised property map.
func NewEdgeEntity(src, dst Value, edgeType string) *Edge {
	return &Edge{Src: src, Dst: dst, Type: edgeType, Props: map[string]Value{}}
}

// Property looks up an edge property.
func (e *Edge) Property(name string) (Value, bool) {
	pv, ok := e.Props[name]
	return pv, ok
}

// Equal compares by identity (src, dst, type, version).
func (e *Edge) Equal(other *Edge) bool {
	return e.Src.Equal(other.Src) && e.Dst.Equal(other.Dst) &&
		e.Type == other.Type && e.Version == other.Version
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s-[:%s]->%s", e.Src.displayString(), e.Type, e.Dst.displayString())
}

func (e *Edge) estimatedSize() int {
	size := e.Src.EstimatedSize() + e.Dst.EstimatedSize() + len(e.Type)
	for k, pv := range e.Props {
		size += len(k) + pv.EstimatedSize()
	}
	return size
}

// Step is one hop of a path.
type Step struct {
	Edge Edge
	Dst  Vertex
}

// Path is a head vertex plus an ordered list of steps.
type Path struct {
	Src   Vertex
	Steps []Step
}

// Vertices returns all vertices along the path in order.
func (p *Path) Vertices() []Vertex {
	out := make([]Vertex, 0, len(p.Steps)+1)
	out = append(out, p.Src)
	for _, s := range p.Steps {
		out = append(out, s.Dst)
	}
	return out
}

// Edges returns all edges along the path in order.
func (p *Path) Edges() []Edge {
	out := make([]Edge, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Edge)
	}
	return out
}

// Len returns the number of hops.
func (p *Path) Len() int { return len(p.Steps) }

// Equal compares paths hop by hop.
func (p *Path) Equal(other *Path) bool {
	if !p.Src.Equal(&other.Src) || len(p.Steps) != len(other.Steps) {
		return false
	}
	for i := range p.Steps {
		if !p.Steps[i].Edge.Equal(&other.Steps[i].Edge) || !p.Steps[i].Dst.Equal(&other.Steps[i].Dst) {
			return false
		}
	}
	return true
}

func (p *Path) String() string {
	var b strings.Builder
	b.WriteString(p.Src.String())
	for _, s := range p.Steps {
		fmt.Fprintf(&b, "-[:%s]->%s", s.Edge.Type, s.Dst.String())
	}
	return b.String()
}

// EdgeDirection selects which incident edges of a vertex to consider.
type EdgeDirection int

const (
	DirOut EdgeDirection = iota
	DirIn
	DirBoth
)

func (d EdgeDirection) String() string {
	switch d {
	case DirOut:
		return "OUT"
	case DirIn:
		return "IN"
	default:
		return "BOTH"
	}
}
