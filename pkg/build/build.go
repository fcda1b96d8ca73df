// Package build walks a design tree and constructs it in a geometry
// kernel: every brick and layer becomes a volume registered with the
// materials tracker, after which boundaries are merged, organised into
// groups and promoted to sidesets.
package build

import (
	"context"
	"fmt"

	"github.com/chazu/blobmaker/pkg/design"
	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/geometry"
	"github.com/chazu/blobmaker/pkg/kernel"
	"github.com/chazu/blobmaker/pkg/materials"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Builder constructs design trees. A Builder belongs to one build run.
type Builder struct {
	m       kernel.Modeler
	tracker *materials.Tracker
	log     *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// New returns a Builder creating geometry with m and registering it with
// tracker.
func New(m kernel.Modeler, tracker *materials.Tracker, opts ...Option) *Builder {
	b := &Builder{m: m, tracker: tracker, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// placed is a volume created for a material.
type placed struct {
	e        entity.Entity
	material string
}

// Build checks the material names of the tree, constructs it, then merges and tracks boundaries, organises
// groups and creates sidesets. It returns the tracker report.
func (b *Builder) Build(ctx context.Context, tree *design.Tree) (*materials.Report, error) {
	if tree != nil {
		if err := materials.CheckMaterialNames(tree.Materials()); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}
	if err := b.Construct(ctx, tree); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.tracker.MergeAndTrackBoundaries(); err != nil {
		return nil, fmt.Errorf("build: merge: %w", err)
	}
	if err := b.tracker.OrganiseIntoGroups(); err != nil {
		return nil, fmt.Errorf("build: organise: %w", err)
	}
	if err := b.tracker.AddBoundariesToSidesets(); err != nil {
		return nil, fmt.Errorf("build: sidesets: %w", err)
	}
	r, err := b.tracker.Info()
	if err != nil {
		return nil, fmt.Errorf("build: report: %w", err)
	}
	b.log.Info("build complete",
		zap.Int("materials", len(r.Materials)),
		zap.Int("boundaries", len(r.Boundaries)))
	return r, nil
}

// Construct creates the geometry of every node and registers it with the
// tracker, without merging.
func (b *Builder) Construct(ctx context.Context, tree *design.Tree) error {
	if tree == nil {
		return nil
	}
	for i, root := range tree.Roots {
		if _, err := b.walkNode(ctx, root); err != nil {
			return fmt.Errorf("build: root %d: %w", i, err)
		}
	}
	return nil
}

// walkNode recursively constructs a node and its children and returns the
// volumes it produced.
func (b *Builder) walkNode(ctx context.Context, n *design.Node) ([]placed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch data := n.Data.(type) {
	case design.BrickData:
		p, err := b.brick(data)
		if err != nil {
			return nil, nodeError(n, err)
		}
		return []placed{p}, nil

	case design.LayersData:
		ps, err := b.layers(data)
		if err != nil {
			return nil, nodeError(n, err)
		}
		return ps, nil

	case design.AssemblyData:
		return b.assembly(ctx, n, data)

	default:
		return nil, fmt.Errorf("%s node %q has unsupported data type %T", n.Kind, n.Name, n.Data)
	}
}

func nodeError(n *design.Node, err error) error {
	if n.Name != "" {
		return fmt.Errorf("%s %q: %w", n.Kind, n.Name, err)
	}
	return fmt.Errorf("%s: %w", n.Kind, err)
}

// brickPlacement returns the size and minimum corner of a brick after its
// rotation about its origin.
func brickPlacement(d design.BrickData) (size, origin [3]float64, err error) {
	o := geometry.Vec(d.Origin.Array())
	box := r3.Box{Min: o, Max: r3.Add(o, geometry.Vec(d.Size.Array()))}
	if d.Rotation != (design.Vec3{}) {
		box, err = geometry.RotateBox(box, o, geometry.Vec(d.Rotation.Array()))
		if err != nil {
			return size, origin, err
		}
	}
	return geometry.Array(box.Size()), geometry.Array(box.Min), nil
}

func (b *Builder) brick(d design.BrickData) (placed, error) {
	size, origin, err := brickPlacement(d)
	if err != nil {
		return placed{}, err
	}
	return b.place(d.Material, size, origin)
}

func (b *Builder) place(material string, size, origin [3]float64) (placed, error) {
	if material == "" {
		return placed{}, fmt.Errorf("no material")
	}
	v, err := b.m.Brick(size, origin)
	if err != nil {
		return placed{}, err
	}
	if err := b.tracker.AddGeometryToMaterial(v, material); err != nil {
		return placed{}, err
	}
	b.log.Debug("placed brick",
		zap.String("material", material), zap.Stringer("entity", v),
		zap.Float64s("size", size[:]), zap.Float64s("origin", origin[:]))
	return placed{e: v, material: material}, nil
}

// layers stacks one brick per layer along the axis.
func (b *Builder) layers(d design.LayersData) ([]placed, error) {
	pos := d.Origin.Component(d.Axis)
	out := make([]placed, 0, len(d.Layers))
	for i, l := range d.Layers {
		if l.Thickness <= 0 {
			return nil, fmt.Errorf("layer %d: thickness %g must be positive", i, l.Thickness)
		}
		size := d.Extent.With(d.Axis, l.Thickness)
		origin := d.Origin.With(d.Axis, pos)
		p, err := b.place(l.Material, size.Array(), origin.Array())
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		out = append(out, p)
		pos += l.Thickness
	}
	return out, nil
}

// assembly builds the children and, with Unite set, fuses the volumes of
// each material and re-tracks the result.
func (b *Builder) assembly(ctx context.Context, n *design.Node, d design.AssemblyData) ([]placed, error) {
	var out []placed
	for _, c := range n.Children {
		ps, err := b.walkNode(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	if !d.Unite {
		return out, nil
	}

	var order []string
	byMaterial := make(map[string][]entity.Entity)
	for _, p := range out {
		if _, ok := byMaterial[p.material]; !ok {
			order = append(order, p.material)
		}
		byMaterial[p.material] = append(byMaterial[p.material], p.e)
	}

	united := make([]placed, 0, len(order))
	for _, material := range order {
		parts := byMaterial[material]
		if len(parts) == 1 {
			united = append(united, placed{e: parts[0], material: material})
			continue
		}
		fused, err := b.m.Unite(parts)
		if err != nil {
			return nil, nodeError(n, fmt.Errorf("unite %s: %w", material, err))
		}
		if err := b.tracker.UpdateTrackingList(parts, []entity.Entity{fused}, material); err != nil {
			return nil, nodeError(n, err)
		}
		b.log.Debug("united", zap.String("assembly", n.Name), zap.String("material", material),
			zap.Int("parts", len(parts)), zap.Stringer("entity", fused))
		united = append(united, placed{e: fused, material: material})
	}
	return united, nil
}

// Preview tessellates every tracked material into one mesh, in material
// registration order.
func Preview(ctx context.Context, m kernel.Modeler, tracker *materials.Tracker) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, mat := range tracker.Materials() {
		mesh := &kernel.Mesh{Material: mat.Name}
		for _, e := range mat.Geometries() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			part, err := m.ToMesh(e)
			if err != nil {
				return nil, fmt.Errorf("preview %s: %w", mat.Name, err)
			}
			mesh.Append(part)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
