// Package materials mirrors, in process, which kernel entities belong to
// which material, and derives the boundaries between materials by driving
// the kernel's merge command over every pair of material groups.
//
// Every mutating Tracker method issues the kernel command first and only
// updates the mirror once the kernel has accepted it, so the mirror and the
// kernel's group membership never diverge.
package materials

import (
	"errors"
	"fmt"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
	"go.uber.org/zap"
)

// Names of the umbrella groups created by OrganiseIntoGroups.
const (
	MaterialsGroup  = "materials"
	BoundariesGroup = "boundaries"
)

// Tracker owns the materials and boundaries of one build run. It assumes
// exclusive use of its kernel and is not safe for concurrent use.
type Tracker struct {
	k       kernel.Kernel
	log     *zap.Logger
	metrics *Metrics

	materials  []*Material
	byMaterial map[string]*Material
	boundaries []*Boundary
	byBoundary map[string]*Boundary
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics records tracker activity on m.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// NewTracker returns an empty Tracker driving k.
func NewTracker(k kernel.Kernel, opts ...Option) *Tracker {
	t := &Tracker{
		k:          k,
		log:        zap.NewNop(),
		byMaterial: make(map[string]*Material),
		byBoundary: make(map[string]*Boundary),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// MakeMaterial registers a material backed by kernel group groupID. It is a
// no-op returning the existing record if the name is already registered.
// A new material needs a valid name and a positive group id.
func (t *Tracker) MakeMaterial(name string, groupID int) (*Material, error) {
	if m, ok := t.byMaterial[name]; ok {
		return m, nil
	}
	if err := checkMaterialName(name); err != nil {
		return nil, err
	}
	if err := (entity.Entity{Kind: entity.Group, ID: groupID}).Validate(); err != nil {
		return nil, err
	}
	m := newMaterial(name, groupID)
	t.materials = append(t.materials, m)
	t.byMaterial[name] = m
	return m, nil
}

// AddGeometryToMaterial adds e to the kernel group named after the material,
// registering the material on first use, then tracks e in the mirror.
// Adding an entity that is already tracked changes nothing.
func (t *Tracker) AddGeometryToMaterial(e entity.Entity, name string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := checkMaterialName(name); err != nil {
		return err
	}
	if err := t.k.AddToGroup(e, name); err != nil {
		return &TrackingError{Op: "add geometry to material", Name: name, Err: err}
	}
	groupID, ok := t.k.GroupID(name)
	if !ok {
		return &TrackingError{Op: "add geometry to material", Name: name, Err: errors.New("kernel group missing after add")}
	}
	m, err := t.MakeMaterial(name, groupID)
	if err != nil {
		return &TrackingError{Op: "add geometry to material", Name: name, Err: err}
	}
	if m.GroupID != groupID {
		t.log.Warn("material group id resynchronised",
			zap.String("material", name), zap.Int("was", m.GroupID), zap.Int("group", groupID))
		m.GroupID = groupID
	}
	if m.Tracks(e) {
		return nil
	}
	if err := m.addGeometry(e); err != nil {
		return err
	}
	t.metrics.trackedDelta(1)
	t.log.Debug("tracking geometry", zap.String("material", name), zap.Stringer("entity", e))
	return nil
}

// ContainsMaterial reports whether a material is registered.
func (t *Tracker) ContainsMaterial(name string) bool {
	_, ok := t.byMaterial[name]
	return ok
}

// Material returns a registered material.
func (t *Tracker) Material(name string) (*Material, error) {
	m, ok := t.byMaterial[name]
	if !ok {
		return nil, &NotFoundError{Kind: "material", Name: name}
	}
	return m, nil
}

// Materials returns the materials in registration order.
func (t *Tracker) Materials() []*Material {
	return append([]*Material(nil), t.materials...)
}

// Boundary returns a tracked boundary.
func (t *Tracker) Boundary(name string) (*Boundary, error) {
	b, ok := t.byBoundary[name]
	if !ok {
		return nil, &NotFoundError{Kind: "boundary", Name: name}
	}
	return b, nil
}

// Boundaries returns the boundaries in creation order.
func (t *Tracker) Boundaries() []*Boundary {
	return append([]*Boundary(nil), t.boundaries...)
}

// ---------------------------------------------------------------------------
// Lookup and mutation
// ---------------------------------------------------------------------------

// BoundaryIDs returns the surface ids of a boundary in the order the kernel
// reported them.
func (t *Tracker) BoundaryIDs(name string) ([]int, error) {
	b, err := t.Boundary(name)
	if err != nil {
		return nil, err
	}
	return b.SurfaceIDs(), nil
}

// AddGeometryToBoundary adds a surface to a tracked boundary and its group.
func (t *Tracker) AddGeometryToBoundary(e entity.Entity, name string) error {
	b, err := t.Boundary(name)
	if err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Kind != entity.Surface {
		return &entity.InvalidEntityError{Entity: e, Reason: "boundaries hold surfaces only"}
	}
	if err := t.k.AddToGroup(e, name); err != nil {
		return &TrackingError{Op: "add geometry to boundary", Name: name, Err: err}
	}
	return b.addGeometry(e)
}

// UpdateTracking replaces old with replacement in a material, in place. An
// old entity the material does not track is ignored.
func (t *Tracker) UpdateTracking(old, replacement entity.Entity, name string) error {
	if err := old.Validate(); err != nil {
		return err
	}
	if err := replacement.Validate(); err != nil {
		return err
	}
	m, err := t.Material(name)
	if err != nil {
		return err
	}
	i := entity.Index(m.geometries, old)
	if i < 0 || old == replacement {
		return nil
	}
	if err := t.k.RemoveFromGroup(old, name); err != nil {
		return &TrackingError{Op: "update tracking", Name: name, Err: err}
	}
	if err := t.k.AddToGroup(replacement, name); err != nil {
		// Put the old entity back so the group still matches the mirror.
		if rerr := t.k.AddToGroup(old, name); rerr != nil {
			t.log.Warn("group no longer matches material",
				zap.String("material", name), zap.Stringer("entity", old), zap.Error(rerr))
			err = errors.Join(err, fmt.Errorf("restore %s: %w", old, rerr))
		}
		return &TrackingError{Op: "update tracking", Name: name, Err: err}
	}
	if m.Tracks(replacement) {
		m.geometries = append(m.geometries[:i], m.geometries[i+1:]...)
		t.metrics.trackedDelta(-1)
	} else {
		m.geometries[i] = replacement
	}
	t.log.Debug("tracking updated", zap.String("material", name),
		zap.Stringer("old", old), zap.Stringer("new", replacement))
	return nil
}

// UpdateTrackingList stops tracking every entity of olds the material
// tracks, then tracks every entity of replacements. Olds the material does
// not track are ignored.
func (t *Tracker) UpdateTrackingList(olds, replacements []entity.Entity, name string) error {
	for _, e := range olds {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range replacements {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	m, err := t.Material(name)
	if err != nil {
		return err
	}
	for _, e := range olds {
		if !m.Tracks(e) {
			continue
		}
		if err := t.k.RemoveFromGroup(e, name); err != nil {
			return &TrackingError{Op: "update tracking", Name: name, Err: err}
		}
		m.removeGeometry(e)
		t.metrics.trackedDelta(-1)
	}
	for _, e := range replacements {
		if m.Tracks(e) {
			continue
		}
		if err := t.k.AddToGroup(e, name); err != nil {
			return &TrackingError{Op: "update tracking", Name: name, Err: err}
		}
		if err := m.addGeometry(e); err != nil {
			return err
		}
		t.metrics.trackedDelta(1)
	}
	t.log.Debug("tracking list updated", zap.String("material", name),
		zap.Int("old", len(olds)), zap.Int("new", len(replacements)))
	return nil
}

// StopTrackingInMaterial removes e from a material and its group. It is a
// no-op if the material does not track e.
func (t *Tracker) StopTrackingInMaterial(e entity.Entity, name string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m, err := t.Material(name)
	if err != nil {
		return err
	}
	if !m.Tracks(e) {
		return nil
	}
	if err := t.k.RemoveFromGroup(e, name); err != nil {
		return &TrackingError{Op: "stop tracking", Name: name, Err: err}
	}
	m.removeGeometry(e)
	t.metrics.trackedDelta(-1)
	return nil
}

// ---------------------------------------------------------------------------
// Promotion
// ---------------------------------------------------------------------------

// OrganiseIntoGroups nests every material group under a "materials" group
// and every boundary group under a "boundaries" group, then deletes
// boundary groups that ended up with no surfaces.
func (t *Tracker) OrganiseIntoGroups() error {
	if _, err := t.k.CreateGroup(MaterialsGroup); err != nil {
		return &TrackingError{Op: "create group", Name: MaterialsGroup, Err: err}
	}
	for _, m := range t.materials {
		if err := t.k.AddToGroup(entity.Entity{Kind: entity.Group, ID: m.GroupID}, MaterialsGroup); err != nil {
			return &TrackingError{Op: "organise material", Name: m.Name, Err: err}
		}
	}

	boundariesID, err := t.k.CreateGroup(BoundariesGroup)
	if err != nil {
		return &TrackingError{Op: "create group", Name: BoundariesGroup, Err: err}
	}
	for _, b := range t.boundaries {
		if err := t.k.AddToGroup(entity.Entity{Kind: entity.Group, ID: b.GroupID}, BoundariesGroup); err != nil {
			return &TrackingError{Op: "organise boundary", Name: b.Name, Err: err}
		}
	}

	subgroups, err := t.k.GroupGroups(boundariesID)
	if err != nil {
		return &TrackingError{Op: "list boundary groups", Name: BoundariesGroup, Err: err}
	}
	for _, id := range subgroups {
		surfaces, err := t.k.GroupSurfaces(id)
		if err != nil {
			return &TrackingError{Op: "list boundary surfaces", Name: fmt.Sprint(id), Err: err}
		}
		if len(surfaces) > 0 {
			continue
		}
		if err := t.k.DeleteGroup(id); err != nil {
			return &TrackingError{Op: "delete empty boundary group", Name: fmt.Sprint(id), Err: err}
		}
		t.forgetBoundary(id)
		t.log.Info("deleted empty boundary group", zap.Int("group", id))
	}
	return nil
}

// forgetBoundary drops the boundary backed by a deleted group.
func (t *Tracker) forgetBoundary(groupID int) {
	for i, b := range t.boundaries {
		if b.GroupID == groupID {
			t.boundaries = append(t.boundaries[:i], t.boundaries[i+1:]...)
			delete(t.byBoundary, b.Name)
			return
		}
	}
}

// AddBoundariesToSidesets creates one sideset per non-empty boundary, with
// the boundary's group id as the sideset id and its name as the label.
func (t *Tracker) AddBoundariesToSidesets() error {
	for _, b := range t.boundaries {
		ids := b.SurfaceIDs()
		if len(ids) == 0 {
			t.log.Debug("skipping empty boundary", zap.String("boundary", b.Name))
			continue
		}
		if err := t.k.CreateSideset(b.GroupID, ids); err != nil {
			return &TrackingError{Op: "create sideset", Name: b.Name, Err: err}
		}
		if err := t.k.NameSideset(b.GroupID, b.Name); err != nil {
			return &TrackingError{Op: "name sideset", Name: b.Name, Err: err}
		}
	}
	return nil
}
