package materials

import (
	"errors"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
	"go.uber.org/zap"
)

// Pair is an unordered pair of distinct materials.
type Pair struct {
	A, B *Material
}

// SortMaterialsIntoPairs returns every unordered pair of distinct materials
// exactly once, in registration order.
func (t *Tracker) SortMaterialsIntoPairs() []Pair {
	n := len(t.materials)
	if n < 2 {
		return nil
	}
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{A: t.materials[i], B: t.materials[j]})
		}
	}
	return pairs
}

// MergeAndTrackBoundaries merges every material with itself, then every
// pair of materials, creating a boundary for each merge the kernel
// performs. A final pass collects each material's unmerged surfaces into a
// "<material>_air" boundary. Material names are checked with
// CheckMaterialNames before any merge. The first error aborts the pass;
// merges already committed stay in the kernel.
func (t *Tracker) MergeAndTrackBoundaries() error {
	if err := CheckMaterialNames(t.materialNames()); err != nil {
		return err
	}
	for _, m := range t.materials {
		if err := t.mergeAndTrackBetween(m, m, kindSelf); err != nil {
			return err
		}
	}
	for _, p := range t.SortMaterialsIntoPairs() {
		if err := t.mergeAndTrackBetween(p.A, p.B, kindInterface); err != nil {
			return err
		}
	}
	return t.trackAirBoundaries()
}

func (t *Tracker) mergeAndTrackBetween(a, b *Material, kind string) error {
	name := a.Name + "_" + b.Name
	t.metrics.mergeAttempt()

	id, ok, err := t.k.MergeGroups(a.GroupID, b.GroupID)
	if err != nil {
		return &TrackingError{Op: "merge", Name: name, Err: err}
	}
	if !ok {
		t.log.Debug("nothing merged", zap.String("a", a.Name), zap.String("b", b.Name))
		return nil
	}
	if err := t.k.RenameGroup(id, name); err != nil {
		return &TrackingError{Op: "rename merge group", Name: name, Err: err}
	}
	if err := t.trackAsBoundary(name, id); err != nil {
		return err
	}
	t.metrics.boundary(kind)
	t.log.Info("boundary tracked", zap.String("boundary", name), zap.Int("group", id),
		zap.Ints("surfaces", t.byBoundary[name].SurfaceIDs()))
	return nil
}

// trackAsBoundary registers an existing kernel group as a boundary holding
// the group's surfaces.
func (t *Tracker) trackAsBoundary(name string, groupID int) error {
	if _, dup := t.byBoundary[name]; dup {
		return &TrackingError{Op: "track boundary", Name: name, Err: errors.New("boundary already tracked")}
	}
	ids, err := t.k.GroupSurfaces(groupID)
	if err != nil {
		return &TrackingError{Op: "list boundary surfaces", Name: name, Err: err}
	}
	b := &Boundary{Name: name, GroupID: groupID}
	for _, e := range entity.Surfaces(ids) {
		if err := b.addGeometry(e); err != nil {
			return err
		}
	}
	t.boundaries = append(t.boundaries, b)
	t.byBoundary[name] = b
	return nil
}

// createBoundary creates an empty kernel group and tracks it as a boundary.
func (t *Tracker) createBoundary(name string) (*Boundary, error) {
	id, err := t.k.CreateGroup(name)
	if err != nil {
		return nil, &TrackingError{Op: "create boundary group", Name: name, Err: err}
	}
	if err := t.trackAsBoundary(name, id); err != nil {
		return nil, err
	}
	t.metrics.boundary(kindAir)
	return t.byBoundary[name], nil
}

func (t *Tracker) trackAirBoundaries() error {
	unmerged, err := t.k.Entities(entity.Surface, kernel.Unmerged)
	if err != nil {
		return &TrackingError{Op: "query unmerged surfaces", Err: err}
	}
	free := entity.NewIDSet(unmerged...)

	for _, m := range t.materials {
		ids, err := m.SurfaceIDs(t.k)
		if err != nil {
			return &TrackingError{Op: "decompose material", Name: m.Name, Err: err}
		}
		name := m.Name + airSuffix
		if _, dup := t.byBoundary[name]; dup {
			return &TrackingError{Op: "track air boundary", Name: name, Err: errors.New("boundary already tracked")}
		}
		for _, id := range ids {
			if !free.Contains(id) {
				continue
			}
			if _, ok := t.byBoundary[name]; !ok {
				if _, err := t.createBoundary(name); err != nil {
					return err
				}
			}
			if err := t.AddGeometryToBoundary(entity.Entity{Kind: entity.Surface, ID: id}, name); err != nil {
				return err
			}
		}
		if b, ok := t.byBoundary[name]; ok {
			t.log.Info("air boundary tracked", zap.String("boundary", name), zap.Ints("surfaces", b.SurfaceIDs()))
		}
	}
	return nil
}
