package sdfx

import (
	"fmt"
	"sort"

	"github.com/chazu/blobmaker/pkg/entity"
	"github.com/chazu/blobmaker/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

// CreateGroup creates an empty named group.
func (k *Kernel) CreateGroup(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("create group: empty name")
	}
	if _, ok := k.groupNames[name]; ok {
		return 0, fmt.Errorf("create group: group %q already exists", name)
	}
	return k.newGroup(name), nil
}

func (k *Kernel) newGroup(name string) int {
	g := &group{id: k.nextID(entity.Group), name: name}
	k.groups[g.id] = g
	k.groupNames[name] = g.id
	return g.id
}

// freeGroupName returns "<prefix>_<n>" for the first n from start that no
// group is named.
func (k *Kernel) freeGroupName(prefix string, start int) string {
	for n := start; ; n++ {
		name := fmt.Sprintf("%s_%d", prefix, n)
		if _, taken := k.groupNames[name]; !taken {
			return name
		}
	}
}

// GroupID resolves a group name.
func (k *Kernel) GroupID(name string) (int, bool) {
	id, ok := k.groupNames[name]
	return id, ok
}

// AddToGroup adds e to the named group, creating the group if needed.
func (k *Kernel) AddToGroup(e entity.Entity, name string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !k.Exists(e) {
		return fmt.Errorf("group %q add: no such %s", name, e)
	}
	if name == "" {
		return fmt.Errorf("group add %s: empty group name", e)
	}
	id, ok := k.groupNames[name]
	if !ok {
		id = k.newGroup(name)
	}
	if e.Kind == entity.Group && e.ID == id {
		return fmt.Errorf("group %q add: a group cannot contain itself", name)
	}
	g := k.groups[id]
	if entity.Index(g.members, e) < 0 {
		g.members = append(g.members, e)
	}
	return nil
}

// RemoveFromGroup removes e from the named group.
func (k *Kernel) RemoveFromGroup(e entity.Entity, name string) error {
	id, ok := k.groupNames[name]
	if !ok {
		return fmt.Errorf("group %q remove: no such group", name)
	}
	g := k.groups[id]
	if i := entity.Index(g.members, e); i >= 0 {
		g.members = append(g.members[:i], g.members[i+1:]...)
	}
	return nil
}

// RenameGroup gives a group a new, unused name.
func (k *Kernel) RenameGroup(id int, name string) error {
	g := k.groups[id]
	if g == nil {
		return fmt.Errorf("rename group %d: no such group", id)
	}
	if name == "" {
		return fmt.Errorf("rename group %d: empty name", id)
	}
	if other, ok := k.groupNames[name]; ok && other != id {
		return fmt.Errorf("rename group %d: name %q is used by group %d", id, name, other)
	}
	delete(k.groupNames, g.name)
	g.name = name
	k.groupNames[name] = id
	return nil
}

// DeleteGroup deletes a group. Its members are not affected.
func (k *Kernel) DeleteGroup(id int) error {
	g := k.groups[id]
	if g == nil {
		return fmt.Errorf("delete group %d: no such group", id)
	}
	delete(k.groups, id)
	delete(k.groupNames, g.name)
	k.purge(entity.Entity{Kind: entity.Group, ID: id})
	return nil
}

// GroupName returns the name of a group.
func (k *Kernel) GroupName(id int) (string, bool) {
	g := k.groups[id]
	if g == nil {
		return "", false
	}
	return g.name, true
}

// GroupSurfaces returns every surface reachable from the group.
func (k *Kernel) GroupSurfaces(id int) ([]int, error) {
	if k.groups[id] == nil {
		return nil, fmt.Errorf("group %d: no such group", id)
	}
	var out []int
	seen := make(map[int]bool)
	add := func(sid int) {
		if !seen[sid] {
			seen[sid] = true
			out = append(out, sid)
		}
	}
	k.walkGroup(id, make(map[int]bool), func(e entity.Entity) {
		switch e.Kind {
		case entity.Surface:
			add(e.ID)
		case entity.Volume, entity.Body:
			vols, _ := k.expandVolumes(e)
			for _, v := range vols {
				for _, sid := range v.surfaces {
					add(sid)
				}
			}
		}
	})
	return out, nil
}

// GroupGroups returns the groups nested directly in a group.
func (k *Kernel) GroupGroups(id int) ([]int, error) {
	g := k.groups[id]
	if g == nil {
		return nil, fmt.Errorf("group %d: no such group", id)
	}
	var out []int
	for _, m := range g.members {
		if m.Kind == entity.Group {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

// walkGroup visits the non-group members of a group and its nested groups.
func (k *Kernel) walkGroup(id int, visited map[int]bool, fn func(entity.Entity)) {
	if visited[id] {
		return
	}
	visited[id] = true
	g := k.groups[id]
	if g == nil {
		return
	}
	for _, m := range g.members {
		if m.Kind == entity.Group {
			k.walkGroup(m.ID, visited, fn)
			continue
		}
		fn(m)
	}
}

// groupVolumes returns the volumes reachable from a group, in order.
func (k *Kernel) groupVolumes(id int) []*volume {
	var out []*volume
	seen := make(map[int]bool)
	k.walkGroup(id, make(map[int]bool), func(e entity.Entity) {
		if e.Kind != entity.Volume && e.Kind != entity.Body {
			return
		}
		vols, _ := k.expandVolumes(e)
		for _, v := range vols {
			if !seen[v.id] {
				seen[v.id] = true
				out = append(out, v)
			}
		}
	})
	return out
}

// ---------------------------------------------------------------------------
// Merging
// ---------------------------------------------------------------------------

// MergeGroups merges coincident faces between the volumes of two groups.
// With a == b the volumes of the group are merged among themselves.
func (k *Kernel) MergeGroups(a, b int) (int, bool, error) {
	if k.groups[a] == nil {
		return 0, false, fmt.Errorf("merge group %d: no such group", a)
	}
	if k.groups[b] == nil {
		return 0, false, fmt.Errorf("merge group %d: no such group", b)
	}
	volsA := k.groupVolumes(a)
	volsB := volsA
	if a != b {
		volsB = k.groupVolumes(b)
	}

	var merged []int
	done := make(map[[2]int]bool)
	for _, va := range volsA {
		for _, vb := range volsB {
			if va.id == vb.id {
				continue
			}
			key := [2]int{va.id, vb.id}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if done[key] {
				continue
			}
			done[key] = true
			merged = append(merged, k.mergeVolumes(va, vb)...)
		}
	}
	if len(merged) == 0 {
		return 0, false, nil
	}

	id := k.newGroup(k.freeGroupName("merged", k.next[entity.Group]+1))
	g := k.groups[id]
	for _, sid := range merged {
		g.members = append(g.members, entity.Entity{Kind: entity.Surface, ID: sid})
	}
	return id, true, nil
}

// mergeVolumes merges every coincident, unmerged face pair between two
// volumes. The lower surface id survives and becomes shared.
func (k *Kernel) mergeVolumes(va, vb *volume) []int {
	var out []int
	for _, aid := range append([]int(nil), va.surfaces...) {
		sa := k.surfaces[aid]
		if sa == nil || sa.merged {
			continue
		}
		for _, bid := range append([]int(nil), vb.surfaces...) {
			sb := k.surfaces[bid]
			if sb == nil || sb.merged || aid == bid {
				continue
			}
			if !sa.f.coincident(sb.f, k.tol) {
				continue
			}
			keep, drop := sa, sb
			if drop.id < keep.id {
				keep, drop = drop, keep
			}
			k.mergeSurface(keep, drop)
			out = append(out, keep.id)
			break
		}
	}
	return out
}

func (k *Kernel) mergeSurface(keep, drop *surface) {
	keep.merged = true
	for _, vid := range drop.volumes {
		v := k.volumes[vid]
		for i, sid := range v.surfaces {
			if sid == drop.id {
				v.surfaces[i] = keep.id
			}
		}
		keep.volumes = append(keep.volumes, vid)
	}
	k.deleteSurface(drop.id)
}

// ---------------------------------------------------------------------------
// Topology
// ---------------------------------------------------------------------------

// Entities lists live ids of a kind in ascending order. Merge predicates
// only apply to surfaces.
func (k *Kernel) Entities(kind entity.Kind, p kernel.Predicate) ([]int, error) {
	if kind != entity.Surface && p != kernel.All {
		return nil, fmt.Errorf("entities: predicate %s is not supported for %s", p, kind)
	}
	var out []int
	switch kind {
	case entity.Surface:
		for id, s := range k.surfaces {
			switch {
			case p == kernel.Merged && !s.merged:
			case p == kernel.Unmerged && s.merged:
			default:
				out = append(out, id)
			}
		}
	case entity.Volume:
		for id := range k.volumes {
			out = append(out, id)
		}
	case entity.Body:
		for id := range k.bodies {
			out = append(out, id)
		}
	case entity.Group:
		for id := range k.groups {
			out = append(out, id)
		}
	case entity.Vertex, entity.Curve:
	default:
		return nil, fmt.Errorf("entities: unknown kind %s", kind)
	}
	sort.Ints(out)
	return out, nil
}

// Surfaces decomposes surfaces, volumes and bodies into surface ids.
func (k *Kernel) Surfaces(es []entity.Entity) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	for _, e := range es {
		if e.Kind == entity.Surface {
			if k.surfaces[e.ID] == nil {
				return nil, fmt.Errorf("surfaces: no such %s", e)
			}
			if !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e.ID)
			}
			continue
		}
		vols, err := k.expandVolumes(e)
		if err != nil {
			return nil, fmt.Errorf("surfaces: %w", err)
		}
		for _, v := range vols {
			for _, sid := range v.surfaces {
				if !seen[sid] {
					seen[sid] = true
					out = append(out, sid)
				}
			}
		}
	}
	return out, nil
}

// Volumes decomposes bodies into volume ids. Lower-dimensional entities
// contribute nothing.
func (k *Kernel) Volumes(es []entity.Entity) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	for _, e := range es {
		if e.Kind != entity.Volume && e.Kind != entity.Body {
			continue
		}
		vols, err := k.expandVolumes(e)
		if err != nil {
			return nil, fmt.Errorf("volumes: %w", err)
		}
		for _, v := range vols {
			if !seen[v.id] {
				seen[v.id] = true
				out = append(out, v.id)
			}
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Sidesets
// ---------------------------------------------------------------------------

// CreateSideset creates the sideset if needed and adds surfaces to it.
func (k *Kernel) CreateSideset(id int, surfaces []int) error {
	if id <= 0 {
		return fmt.Errorf("sideset %d: id must be positive", id)
	}
	for _, sid := range surfaces {
		if k.surfaces[sid] == nil {
			return fmt.Errorf("sideset %d add: no such surface %d", id, sid)
		}
	}
	ss := k.sidesets[id]
	if ss == nil {
		ss = &sideset{id: id}
		k.sidesets[id] = ss
	}
	for _, sid := range surfaces {
		if !containsInt(ss.surfaces, sid) {
			ss.surfaces = append(ss.surfaces, sid)
		}
	}
	return nil
}

// NameSideset names an existing sideset.
func (k *Kernel) NameSideset(id int, name string) error {
	ss := k.sidesets[id]
	if ss == nil {
		return fmt.Errorf("sideset %d name: no such sideset", id)
	}
	ss.name = name
	return nil
}

// Sideset returns the name and surfaces of a sideset.
func (k *Kernel) Sideset(id int) (string, []int, bool) {
	ss := k.sidesets[id]
	if ss == nil {
		return "", nil, false
	}
	return ss.name, append([]int(nil), ss.surfaces...), true
}

func containsInt(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
