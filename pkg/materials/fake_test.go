package materials

import (
	"fmt"
	"sort"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
)

// fakeKernel is a scripted kernel. Volumes decompose to surfaces through
// volumeSurfaces and merges are looked up by "groupA|groupB" name.
type fakeKernel struct {
	next    int
	ids     map[string]int
	names   map[int]string
	members map[int][]entity.Entity

	volumeSurfaces map[int][]int
	merges         map[string][]int
	unmerged       []int

	sidesets     map[int][]int
	sidesetNames map[int]string

	failAdd    map[string]error
	failRemove map[string]error
	failMerge  error
	mergeCalls []string
}

var _ kernel.Kernel = (*fakeKernel)(nil)

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		ids:            make(map[string]int),
		names:          make(map[int]string),
		members:        make(map[int][]entity.Entity),
		volumeSurfaces: make(map[int][]int),
		merges:         make(map[string][]int),
		sidesets:       make(map[int][]int),
		sidesetNames:   make(map[int]string),
		failAdd:        make(map[string]error),
		failRemove:     make(map[string]error),
	}
}

func (k *fakeKernel) CreateGroup(name string) (int, error) {
	if _, ok := k.ids[name]; ok {
		return 0, fmt.Errorf("group %q exists", name)
	}
	k.next++
	k.ids[name] = k.next
	k.names[k.next] = name
	return k.next, nil
}

func (k *fakeKernel) GroupID(name string) (int, bool) {
	id, ok := k.ids[name]
	return id, ok
}

func (k *fakeKernel) AddToGroup(e entity.Entity, name string) error {
	if err := k.failAdd[name]; err != nil {
		return err
	}
	id, ok := k.ids[name]
	if !ok {
		id, _ = k.CreateGroup(name)
	}
	if entity.Index(k.members[id], e) < 0 {
		k.members[id] = append(k.members[id], e)
	}
	return nil
}

func (k *fakeKernel) RemoveFromGroup(e entity.Entity, name string) error {
	if err := k.failRemove[name]; err != nil {
		return err
	}
	id, ok := k.ids[name]
	if !ok {
		return fmt.Errorf("no group %q", name)
	}
	if i := entity.Index(k.members[id], e); i >= 0 {
		k.members[id] = append(k.members[id][:i], k.members[id][i+1:]...)
	}
	return nil
}

func (k *fakeKernel) RenameGroup(id int, name string) error {
	old, ok := k.names[id]
	if !ok {
		return fmt.Errorf("no group %d", id)
	}
	delete(k.ids, old)
	k.ids[name] = id
	k.names[id] = name
	return nil
}

func (k *fakeKernel) DeleteGroup(id int) error {
	name, ok := k.names[id]
	if !ok {
		return fmt.Errorf("no group %d", id)
	}
	delete(k.ids, name)
	delete(k.names, id)
	delete(k.members, id)
	for gid, ms := range k.members {
		if i := entity.Index(ms, entity.Entity{Kind: entity.Group, ID: id}); i >= 0 {
			k.members[gid] = append(ms[:i], ms[i+1:]...)
		}
	}
	return nil
}

func (k *fakeKernel) MergeGroups(a, b int) (int, bool, error) {
	key := k.names[a] + "|" + k.names[b]
	k.mergeCalls = append(k.mergeCalls, key)
	if k.failMerge != nil {
		return 0, false, k.failMerge
	}
	surfaces, ok := k.merges[key]
	if !ok {
		return 0, false, nil
	}
	id, _ := k.CreateGroup(fmt.Sprintf("merged_%d", k.next+1))
	for _, sid := range surfaces {
		k.members[id] = append(k.members[id], entity.Entity{Kind: entity.Surface, ID: sid})
	}
	return id, true, nil
}

func (k *fakeKernel) GroupSurfaces(id int) ([]int, error) {
	if _, ok := k.names[id]; !ok {
		return nil, fmt.Errorf("no group %d", id)
	}
	out, err := k.Surfaces(k.members[id])
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (k *fakeKernel) GroupGroups(id int) ([]int, error) {
	if _, ok := k.names[id]; !ok {
		return nil, fmt.Errorf("no group %d", id)
	}
	var out []int
	for _, m := range k.members[id] {
		if m.Kind == entity.Group {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

func (k *fakeKernel) Entities(kind entity.Kind, p kernel.Predicate) ([]int, error) {
	if kind != entity.Surface || p != kernel.Unmerged {
		return nil, fmt.Errorf("unsupported query %s %s", kind, p)
	}
	out := append([]int(nil), k.unmerged...)
	sort.Ints(out)
	return out, nil
}

func (k *fakeKernel) Surfaces(es []entity.Entity) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range es {
		switch e.Kind {
		case entity.Surface:
			add(e.ID)
		case entity.Volume:
			for _, sid := range k.volumeSurfaces[e.ID] {
				add(sid)
			}
		case entity.Group:
			// Nested groups are not decomposed by the fake.
		default:
			return nil, fmt.Errorf("cannot decompose %s", e)
		}
	}
	return out, nil
}

func (k *fakeKernel) Volumes(es []entity.Entity) ([]int, error) {
	var out []int
	for _, e := range es {
		if e.Kind == entity.Volume {
			out = append(out, e.ID)
		}
	}
	return out, nil
}

func (k *fakeKernel) CreateSideset(id int, surfaces []int) error {
	k.sidesets[id] = append(k.sidesets[id], surfaces...)
	return nil
}

func (k *fakeKernel) NameSideset(id int, name string) error {
	if _, ok := k.sidesets[id]; !ok {
		return fmt.Errorf("no sideset %d", id)
	}
	k.sidesetNames[id] = name
	return nil
}

// groupMembers returns the members of a named group.
func (k *fakeKernel) groupMembers(name string) []entity.Entity {
	return k.members[k.ids[name]]
}
