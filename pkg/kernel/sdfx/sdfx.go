// Package sdfx implements the kernel interfaces in-process using the
// github.com/deadsy/sdfx SDF-based CAD library. Every solid is an SDF; the
// boundary representation the tracker works with (bodies, volumes, planar
// surfaces) is derived from axis-aligned bounding boxes, which is exact for
// the bricks and layered stacks a blob is built from.
package sdfx

import (
	"fmt"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel  = (*Kernel)(nil)
	_ kernel.Modeler = (*Kernel)(nil)
)

const (
	// defaultMeshCells controls marching cubes tessellation resolution.
	defaultMeshCells = 200
	// defaultTolerance is the distance below which faces are coincident.
	defaultTolerance = 1e-6
)

type body struct {
	id      int
	volumes []int
}

type volume struct {
	id       int
	body     int
	solid    sdf.SDF3
	surfaces []int
}

type surface struct {
	id      int
	f       face
	volumes []int
	merged  bool
}

type group struct {
	id      int
	name    string
	members []entity.Entity
}

type sideset struct {
	id       int
	name     string
	surfaces []int
}

// Kernel is a single-session geometry kernel. It is not safe for concurrent
// use; a build run owns it exclusively.
type Kernel struct {
	tol       float64
	meshCells int

	next       map[entity.Kind]int
	bodies     map[int]*body
	volumes    map[int]*volume
	surfaces   map[int]*surface
	groups     map[int]*group
	groupNames map[string]int
	sidesets   map[int]*sideset
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithTolerance sets the coincidence tolerance used when merging.
func WithTolerance(tol float64) Option {
	return func(k *Kernel) {
		if tol > 0 {
			k.tol = tol
		}
	}
}

// WithMeshCells sets the marching cubes resolution used by ToMesh.
func WithMeshCells(cells int) Option {
	return func(k *Kernel) {
		if cells > 0 {
			k.meshCells = cells
		}
	}
}

// New returns an empty Kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		tol:        defaultTolerance,
		meshCells:  defaultMeshCells,
		next:       make(map[entity.Kind]int),
		bodies:     make(map[int]*body),
		volumes:    make(map[int]*volume),
		surfaces:   make(map[int]*surface),
		groups:     make(map[int]*group),
		groupNames: make(map[string]int),
		sidesets:   make(map[int]*sideset),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// nextID allocates the next id for kind. Ids are never reused.
func (k *Kernel) nextID(kind entity.Kind) int {
	k.next[kind]++
	return k.next[kind]
}

// Brick creates a box with its minimum corner at origin. The sdf.Box3D is
// centred on the origin, so it is shifted by half its size.
func (k *Kernel) Brick(size, origin [3]float64) (entity.Entity, error) {
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return entity.Entity{}, fmt.Errorf("brick: size %v must be positive", size)
	}
	s, err := sdf.Box3D(v3.Vec{X: size[0], Y: size[1], Z: size[2]}, 0)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("brick: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{
		X: origin[0] + size[0]/2,
		Y: origin[1] + size[1]/2,
		Z: origin[2] + size[2]/2,
	})
	solid := sdf.Transform3D(s, m)

	b := &body{id: k.nextID(entity.Body)}
	v := &volume{id: k.nextID(entity.Volume), body: b.id, solid: solid}
	b.volumes = []int{v.id}

	for _, f := range boxFaces(solid.BoundingBox()) {
		sf := &surface{id: k.nextID(entity.Surface), f: f, volumes: []int{v.id}}
		k.surfaces[sf.id] = sf
		v.surfaces = append(v.surfaces, sf.id)
	}
	k.bodies[b.id] = b
	k.volumes[v.id] = v
	return entity.Entity{Kind: entity.Volume, ID: v.id}, nil
}

// Move translates a volume or body. Merged geometry is shared with a
// neighbour and cannot be moved independently.
func (k *Kernel) Move(e entity.Entity, delta [3]float64) error {
	vols, err := k.expandVolumes(e)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	for _, v := range vols {
		for _, sid := range v.surfaces {
			if k.surfaces[sid].merged {
				return fmt.Errorf("move: volume %d has merged surface %d", v.id, sid)
			}
		}
	}
	m := sdf.Translate3d(v3.Vec{X: delta[0], Y: delta[1], Z: delta[2]})
	for _, v := range vols {
		v.solid = sdf.Transform3D(v.solid, m)
		for _, sid := range v.surfaces {
			s := k.surfaces[sid]
			s.f = s.f.translate(delta)
		}
	}
	return nil
}

// Unite fuses volumes into a single new body and volume. Faces that touch
// inside the union disappear; the rest keep their ids. The consumed volumes
// and any bodies left empty are deleted and purged from groups.
func (k *Kernel) Unite(es []entity.Entity) (entity.Entity, error) {
	var vols []*volume
	seen := make(map[int]bool)
	for _, e := range es {
		vs, err := k.expandVolumes(e)
		if err != nil {
			return entity.Entity{}, fmt.Errorf("unite: %w", err)
		}
		for _, v := range vs {
			if !seen[v.id] {
				seen[v.id] = true
				vols = append(vols, v)
			}
		}
	}
	if len(vols) == 0 {
		return entity.Entity{}, fmt.Errorf("unite: no volumes given")
	}

	// Collect candidate surfaces once, in volume order.
	var sids []int
	owned := make(map[int]bool)
	for _, v := range vols {
		for _, sid := range v.surfaces {
			if !owned[sid] {
				owned[sid] = true
				sids = append(sids, sid)
			}
		}
	}

	internal := make(map[int]bool)
	for _, sid := range sids {
		s := k.surfaces[sid]
		if len(s.volumes) > 1 && allIn(s.volumes, seen) {
			internal[sid] = true
		}
	}
	for i, a := range sids {
		for _, b := range sids[i+1:] {
			if internal[a] || internal[b] {
				continue
			}
			sa, sb := k.surfaces[a], k.surfaces[b]
			if sa.merged || sb.merged || sameVolume(sa, sb) {
				continue
			}
			if sa.f.coincident(sb.f, k.tol) {
				internal[a], internal[b] = true, true
			}
		}
	}

	solids := make([]sdf.SDF3, len(vols))
	for i, v := range vols {
		solids[i] = v.solid
	}
	nb := &body{id: k.nextID(entity.Body)}
	nv := &volume{id: k.nextID(entity.Volume), body: nb.id, solid: sdf.Union3D(solids...)}
	nb.volumes = []int{nv.id}

	for _, sid := range sids {
		if internal[sid] {
			k.deleteSurface(sid)
			continue
		}
		s := k.surfaces[sid]
		s.volumes = append(without(s.volumes, seen), nv.id)
		nv.surfaces = append(nv.surfaces, sid)
	}
	for _, v := range vols {
		k.deleteVolume(v)
	}
	k.bodies[nb.id] = nb
	k.volumes[nv.id] = nv
	return entity.Entity{Kind: entity.Volume, ID: nv.id}, nil
}

// ToMesh converts a volume or body to a triangle mesh using marching cubes.
func (k *Kernel) ToMesh(e entity.Entity) (*kernel.Mesh, error) {
	vols, err := k.expandVolumes(e)
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	out := &kernel.Mesh{}
	for _, v := range vols {
		out.Append(k.tessellate(v.solid))
	}
	return out, nil
}

func (k *Kernel) tessellate(sdf3 sdf.SDF3) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}
	return &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
}

// Exists reports whether e is live in the kernel.
func (k *Kernel) Exists(e entity.Entity) bool {
	switch e.Kind {
	case entity.Body:
		return k.bodies[e.ID] != nil
	case entity.Volume:
		return k.volumes[e.ID] != nil
	case entity.Surface:
		return k.surfaces[e.ID] != nil
	case entity.Group:
		return k.groups[e.ID] != nil
	}
	return false
}

// expandVolumes resolves a volume or body to its volumes.
func (k *Kernel) expandVolumes(e entity.Entity) ([]*volume, error) {
	switch e.Kind {
	case entity.Volume:
		if v := k.volumes[e.ID]; v != nil {
			return []*volume{v}, nil
		}
	case entity.Body:
		if b := k.bodies[e.ID]; b != nil {
			vols := make([]*volume, 0, len(b.volumes))
			for _, vid := range b.volumes {
				vols = append(vols, k.volumes[vid])
			}
			return vols, nil
		}
	default:
		return nil, fmt.Errorf("%s is not a volume or body", e)
	}
	return nil, fmt.Errorf("no such %s", e)
}

func (k *Kernel) deleteSurface(id int) {
	delete(k.surfaces, id)
	k.purge(entity.Entity{Kind: entity.Surface, ID: id})
	for _, ss := range k.sidesets {
		ss.surfaces = removeInt(ss.surfaces, id)
	}
}

func (k *Kernel) deleteVolume(v *volume) {
	delete(k.volumes, v.id)
	k.purge(entity.Entity{Kind: entity.Volume, ID: v.id})
	if b := k.bodies[v.body]; b != nil {
		b.volumes = removeInt(b.volumes, v.id)
		if len(b.volumes) == 0 {
			delete(k.bodies, b.id)
			k.purge(entity.Entity{Kind: entity.Body, ID: b.id})
		}
	}
}

// purge drops a dead entity from every group.
func (k *Kernel) purge(e entity.Entity) {
	for _, g := range k.groups {
		if i := entity.Index(g.members, e); i >= 0 {
			g.members = append(g.members[:i], g.members[i+1:]...)
		}
	}
}

func allIn(ids []int, set map[int]bool) bool {
	for _, id := range ids {
		if !set[id] {
			return false
		}
	}
	return true
}

func without(ids []int, set map[int]bool) []int {
	out := ids[:0]
	for _, id := range ids {
		if !set[id] {
			out = append(out, id)
		}
	}
	return out
}

func sameVolume(a, b *surface) bool {
	for _, x := range a.volumes {
		for _, y := range b.volumes {
			if x == y {
				return true
			}
		}
	}
	return false
}

func removeInt(ids []int, id int) []int {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
