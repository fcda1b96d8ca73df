// Package design defines the blob design tree: the typed description of an
// assembly of bricks and layered stacks that the build pipeline turns into
// kernel geometry. Trees are loaded from JSON or YAML files or produced by
// the Lisp engine.
package design

import (
	"fmt"
	"strings"
)

// Kind enumerates the classes of design tree nodes.
type Kind int

const (
	KindAssembly Kind = iota // group of components, optionally united per material
	KindBrick                // axis-aligned box of one material
	KindLayers               // stack of slabs along one axis
)

func (k Kind) String() string {
	switch k {
	case KindAssembly:
		return "assembly"
	case KindBrick:
		return "brick"
	case KindLayers:
		return "layers"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind resolves a design class name. "blob" is an alias for assembly.
func ParseKind(class string) (Kind, error) {
	switch strings.ToLower(class) {
	case "assembly", "blob":
		return KindAssembly, nil
	case "brick":
		return KindBrick, nil
	case "layers":
		return KindLayers, nil
	}
	return 0, fmt.Errorf("unknown class %q", class)
}

// Axis is one of the cartesian axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAxis resolves "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", s)
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Array returns the components as an array.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Component returns the component along a.
func (v Vec3) Component(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With returns v with the component along a replaced by f.
func (v Vec3) With(a Axis, f float64) Vec3 {
	switch a {
	case AxisX:
		v.X = f
	case AxisY:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// ---------------------------------------------------------------------------
// Components
// ---------------------------------------------------------------------------

// BrickData is an axis-aligned box. Origin is its minimum corner before
// rotation; Rotation is in degrees about x, y then z, through the origin.
type BrickData struct {
	Material string `json:"material"`
	Size     Vec3   `json:"size"`
	Origin   Vec3   `json:"origin"`
	Rotation Vec3   `json:"rotation"`
}

func (BrickData) nodeData() {}

// Layer is one slab of a LayersData stack.
type Layer struct {
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness"`
}

// LayersData stacks slabs along Axis starting at Origin. Every slab spans
// Extent across the other two axes; the Extent component along Axis is
// ignored.
type LayersData struct {
	Layers []Layer `json:"layers"`
	Extent Vec3    `json:"extent"`
	Origin Vec3    `json:"origin"`
	Axis   Axis    `json:"axis"`
}

func (LayersData) nodeData() {}

// AssemblyData groups components. With Unite set, the volumes of each
// material inside the assembly are fused after construction.
type AssemblyData struct {
	Unite bool `json:"unite"`
}

func (AssemblyData) nodeData() {}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Node is one element of a design tree.
type Node struct {
	Kind     Kind     `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Data     NodeData `json:"data"`
	Children []*Node  `json:"children,omitempty"`
}

// Tree is a design: a forest of nodes built in order.
type Tree struct {
	Roots []*Node `json:"roots"`
}

// Walk visits every node depth first, parents before children. Returning
// an error stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range t.Roots {
		if err := walk(r, 0); err != nil {
			return err
		}
	}
	return nil
}

// Materials returns every material name used in the tree, in first-seen
// order.
func (t *Tree) Materials() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(m string) {
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	_ = t.Walk(func(n *Node, _ int) error {
		switch d := n.Data.(type) {
		case BrickData:
			add(d.Material)
		case LayersData:
			for _, l := range d.Layers {
				add(l.Material)
			}
		}
		return nil
	})
	return out
}

// NodeCount returns the total number of nodes.
func (t *Tree) NodeCount() int {
	n := 0
	_ = t.Walk(func(*Node, int) error {
		n++
		return nil
	})
	return n
}
