package materials

import (
	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
)

// Material tracks the kernel entities made of one material. Its geometries
// mirror the membership of the kernel group GroupID and are only changed
// through the Tracker.
type Material struct {
	Name    string
	GroupID int

	geometries []entity.Entity
	state      string
}

func newMaterial(name string, groupID int) *Material {
	return &Material{Name: name, GroupID: groupID}
}

func (m *Material) addGeometry(e entity.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.geometries = append(m.geometries, e)
	return nil
}

func (m *Material) removeGeometry(e entity.Entity) bool {
	i := entity.Index(m.geometries, e)
	if i < 0 {
		return false
	}
	m.geometries = append(m.geometries[:i], m.geometries[i+1:]...)
	return true
}

// Tracks reports whether e is one of the material's geometries.
func (m *Material) Tracks(e entity.Entity) bool {
	return entity.Index(m.geometries, e) >= 0
}

// Geometries returns a copy of the tracked entities in insertion order.
func (m *Material) Geometries() []entity.Entity {
	return append([]entity.Entity(nil), m.geometries...)
}

// SurfaceIDs decomposes the tracked bodies and volumes into surface ids.
func (m *Material) SurfaceIDs(t kernel.Topology) ([]int, error) {
	return t.Surfaces(m.geometries)
}

// VolumeIDs decomposes the tracked bodies into volume ids.
func (m *Material) VolumeIDs(t kernel.Topology) ([]int, error) {
	return t.Volumes(m.geometries)
}

// ChangeState records a physical state label (solid, liquid, ...). It is
// carried for reporting only.
func (m *Material) ChangeState(state string) {
	m.state = state
}

// State returns the label set by ChangeState.
func (m *Material) State() string {
	return m.state
}

// Boundary is the set of surfaces shared by two materials, by a material
// with itself, or by a material and the surrounding void.
type Boundary struct {
	Name    string
	GroupID int

	surfaces []entity.Entity
}

// addGeometry appends a surface. Boundaries never hold other kinds.
func (b *Boundary) addGeometry(e entity.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Kind != entity.Surface {
		return &entity.InvalidEntityError{Entity: e, Reason: "boundaries hold surfaces only"}
	}
	if entity.Index(b.surfaces, e) < 0 {
		b.surfaces = append(b.surfaces, e)
	}
	return nil
}

// Geometries returns a copy of the boundary's surfaces in the order the
// kernel reported them.
func (b *Boundary) Geometries() []entity.Entity {
	return append([]entity.Entity(nil), b.surfaces...)
}

// SurfaceIDs returns the ids of the boundary's surfaces.
func (b *Boundary) SurfaceIDs() []int {
	return entity.IDs(b.surfaces)
}
