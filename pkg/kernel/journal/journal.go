// Package journal records the commands a build issues to the geometry kernel
// as a Cubit journal, so a run against the in-process kernel can be replayed
// in the real one. Only commands that succeed are written.
package journal

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
)

// ErrNoModeler is returned by modelling calls when the wrapped kernel cannot
// construct geometry.
var ErrNoModeler = errors.New("journal: wrapped kernel is not a modeler")

var (
	_ kernel.Kernel  = (*Recorder)(nil)
	_ kernel.Modeler = (*Recorder)(nil)
)

// Recorder wraps a Kernel and writes one journal line per successful
// mutating call. Queries pass through unrecorded.
type Recorder struct {
	inner kernel.Kernel
	w     io.Writer

	mu  sync.Mutex
	err error
}

// New returns a Recorder writing to w.
func New(inner kernel.Kernel, w io.Writer) *Recorder {
	return &Recorder{inner: inner, w: w}
}

// Err returns the first write error, if any. Write failures never fail the
// kernel command itself.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if _, err := fmt.Fprintf(r.w, format+"\n", args...); err != nil {
		r.err = err
	}
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

func (r *Recorder) CreateGroup(name string) (int, error) {
	id, err := r.inner.CreateGroup(name)
	if err == nil {
		r.record("create group %q", name)
	}
	return id, err
}

func (r *Recorder) GroupID(name string) (int, bool) {
	return r.inner.GroupID(name)
}

func (r *Recorder) AddToGroup(e entity.Entity, group string) error {
	err := r.inner.AddToGroup(e, group)
	if err == nil {
		r.record("group %q add %s %d", group, e.Kind, e.ID)
	}
	return err
}

func (r *Recorder) RemoveFromGroup(e entity.Entity, group string) error {
	err := r.inner.RemoveFromGroup(e, group)
	if err == nil {
		r.record("group %q remove %s %d", group, e.Kind, e.ID)
	}
	return err
}

func (r *Recorder) RenameGroup(id int, name string) error {
	err := r.inner.RenameGroup(id, name)
	if err == nil {
		r.record("group %d rename %q", id, name)
	}
	return err
}

func (r *Recorder) DeleteGroup(id int) error {
	err := r.inner.DeleteGroup(id)
	if err == nil {
		r.record("delete group %d", id)
	}
	return err
}

func (r *Recorder) MergeGroups(a, b int) (int, bool, error) {
	id, ok, err := r.inner.MergeGroups(a, b)
	if err == nil {
		r.record("merge group %d with group %d group_results", a, b)
	}
	return id, ok, err
}

func (r *Recorder) GroupSurfaces(id int) ([]int, error) {
	return r.inner.GroupSurfaces(id)
}

func (r *Recorder) GroupGroups(id int) ([]int, error) {
	return r.inner.GroupGroups(id)
}

// ---------------------------------------------------------------------------
// Topology
// ---------------------------------------------------------------------------

func (r *Recorder) Entities(kind entity.Kind, p kernel.Predicate) ([]int, error) {
	return r.inner.Entities(kind, p)
}

func (r *Recorder) Surfaces(es []entity.Entity) ([]int, error) {
	return r.inner.Surfaces(es)
}

func (r *Recorder) Volumes(es []entity.Entity) ([]int, error) {
	return r.inner.Volumes(es)
}

// ---------------------------------------------------------------------------
// Sidesets
// ---------------------------------------------------------------------------

func (r *Recorder) CreateSideset(id int, surfaces []int) error {
	err := r.inner.CreateSideset(id, surfaces)
	if err == nil {
		r.record("sideset %d add surface %s", id, entity.IDString(surfaces))
	}
	return err
}

func (r *Recorder) NameSideset(id int, name string) error {
	err := r.inner.NameSideset(id, name)
	if err == nil {
		r.record("sideset %d name %q", id, name)
	}
	return err
}

// ---------------------------------------------------------------------------
// Modelling
// ---------------------------------------------------------------------------

func (r *Recorder) modeler() (kernel.Modeler, error) {
	m, ok := r.inner.(kernel.Modeler)
	if !ok {
		return nil, ErrNoModeler
	}
	return m, nil
}

// Brick journals a centred brick followed by a move to its minimum corner,
// which is how Cubit places bricks.
func (r *Recorder) Brick(size, origin [3]float64) (entity.Entity, error) {
	m, err := r.modeler()
	if err != nil {
		return entity.Entity{}, err
	}
	v, err := m.Brick(size, origin)
	if err == nil {
		r.record("brick x %g y %g z %g", size[0], size[1], size[2])
		r.record("move volume %d location %g %g %g", v.ID,
			origin[0]+size[0]/2, origin[1]+size[1]/2, origin[2]+size[2]/2)
	}
	return v, err
}

func (r *Recorder) Move(e entity.Entity, delta [3]float64) error {
	m, err := r.modeler()
	if err != nil {
		return err
	}
	err = m.Move(e, delta)
	if err == nil {
		r.record("move %s %d x %g y %g z %g include_merged", e.Kind, e.ID, delta[0], delta[1], delta[2])
	}
	return err
}

func (r *Recorder) Unite(es []entity.Entity) (entity.Entity, error) {
	m, err := r.modeler()
	if err != nil {
		return entity.Entity{}, err
	}
	v, err := m.Unite(es)
	if err == nil {
		r.record("unite %s", uniteTargets(es))
	}
	return v, err
}

func (r *Recorder) ToMesh(e entity.Entity) (*kernel.Mesh, error) {
	m, err := r.modeler()
	if err != nil {
		return nil, err
	}
	return m.ToMesh(e)
}

// uniteTargets renders "volume 1 2 body 3", grouping ids by kind in order
// of first appearance.
func uniteTargets(es []entity.Entity) string {
	var kinds []entity.Kind
	ids := make(map[entity.Kind][]int)
	for _, e := range es {
		if _, ok := ids[e.Kind]; !ok {
			kinds = append(kinds, e.Kind)
		}
		ids[e.Kind] = append(ids[e.Kind], e.ID)
	}
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s %s", k, entity.IDString(ids[k]))
	}
	return out
}
