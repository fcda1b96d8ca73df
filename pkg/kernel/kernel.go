// Package kernel defines the command/query surface of the external geometry
// kernel as consumed by the materials tracker and the build pipeline.
// The kernel owns every entity; callers only hold integer ids and group
// names. Implementations (the in-process sdfx kernel, the journal recorder)
// sit behind these interfaces so the tracker never depends on one backend.
package kernel

import (
	"fmt"

	"github.com/chazu/blobmaker/pkg/entity"
)

// Predicate filters entity queries.
type Predicate int

const (
	All Predicate = iota
	Merged
	Unmerged
)

func (p Predicate) String() string {
	switch p {
	case All:
		return "all"
	case Merged:
		return "is_merged=1"
	case Unmerged:
		return "is_merged=0"
	default:
		return fmt.Sprintf("Predicate(%d)", int(p))
	}
}

// Groups manages named groups of entities.
type Groups interface {
	// CreateGroup creates an empty group and returns its id. It fails if
	// the name is taken.
	CreateGroup(name string) (int, error)
	// GroupID resolves a group name.
	GroupID(name string) (int, bool)
	// AddToGroup adds e to the named group, creating the group on first use.
	AddToGroup(e entity.Entity, group string) error
	// RemoveFromGroup removes e from the named group. Removing a
	// non-member is not an error; a missing group is.
	RemoveFromGroup(e entity.Entity, group string) error
	RenameGroup(id int, name string) error
	DeleteGroup(id int) error
	// MergeGroups merges coincident geometry between the two groups. When
	// anything merged, the merged surfaces are placed in a new group whose
	// id is returned with ok set. ok=false with a nil error means nothing
	// was merged.
	MergeGroups(a, b int) (id int, ok bool, err error)
	// GroupSurfaces returns the surfaces of a group, including those of
	// member volumes and bodies, in first-seen order.
	GroupSurfaces(id int) ([]int, error)
	// GroupGroups returns the ids of groups nested directly in a group.
	GroupGroups(id int) ([]int, error)
}

// Topology answers entity queries.
type Topology interface {
	Entities(kind entity.Kind, p Predicate) ([]int, error)
	// Surfaces decomposes bodies and volumes into their surfaces.
	Surfaces(es []entity.Entity) ([]int, error)
	// Volumes decomposes bodies into their volumes.
	Volumes(es []entity.Entity) ([]int, error)
}

// Sidesets manages simulation sidesets.
type Sidesets interface {
	CreateSideset(id int, surfaces []int) error
	NameSideset(id int, name string) error
}

// Kernel is everything the materials tracker needs.
type Kernel interface {
	Groups
	Topology
	Sidesets
}

// Modeler constructs geometry. Ids returned here may later be invalidated by
// Unite, which is why the tracker supports replacing tracked entities.
type Modeler interface {
	// Brick creates an axis-aligned box with its minimum corner at origin
	// and returns the new volume.
	Brick(size, origin [3]float64) (entity.Entity, error)
	// Move translates a volume or body.
	Move(e entity.Entity, delta [3]float64) error
	// Unite fuses the given volumes/bodies into one and returns the new volume.
	Unite(es []entity.Entity) (entity.Entity, error)
	// ToMesh tessellates a volume or body for previews.
	ToMesh(e entity.Entity) (*Mesh, error)
}
