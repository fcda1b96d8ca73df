package kernel

import (
	"testing"

	"github.com/chazu/blobmaker/pkg/entity"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
	if (&Mesh{Vertices: []float32{1, 2, 3}}).IsEmpty() {
		t.Error("IsEmpty() = true for non-empty mesh, want false")
	}
}

func TestMeshAppendOffsetsIndices(t *testing.T) {
	a := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
	b := &Mesh{
		Vertices: []float32{0, 0, 1, 1, 0, 1, 0, 1, 1},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
	a.Append(b)
	if a.VertexCount() != 6 || a.TriangleCount() != 2 {
		t.Fatalf("after Append: %d vertices, %d triangles", a.VertexCount(), a.TriangleCount())
	}
	want := []uint32{0, 1, 2, 3, 4, 5}
	for i, idx := range a.Indices {
		if idx != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, idx, want[i])
		}
	}
}

func TestPredicateString(t *testing.T) {
	if Unmerged.String() != "is_merged=0" || Merged.String() != "is_merged=1" || All.String() != "all" {
		t.Error("unexpected predicate strings")
	}
	if Predicate(9).String() != "Predicate(9)" {
		t.Errorf("got %q", Predicate(9).String())
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (stubKernel) CreateGroup(string) (int, error)               { return 1, nil }
func (stubKernel) GroupID(string) (int, bool)                    { return 0, false }
func (stubKernel) AddToGroup(entity.Entity, string) error        { return nil }
func (stubKernel) RemoveFromGroup(entity.Entity, string) error   { return nil }
func (stubKernel) RenameGroup(int, string) error                 { return nil }
func (stubKernel) DeleteGroup(int) error                         { return nil }
func (stubKernel) MergeGroups(int, int) (int, bool, error)       { return 0, false, nil }
func (stubKernel) GroupSurfaces(int) ([]int, error)              { return nil, nil }
func (stubKernel) GroupGroups(int) ([]int, error)                { return nil, nil }
func (stubKernel) Entities(entity.Kind, Predicate) ([]int, error) { return nil, nil }
func (stubKernel) Surfaces([]entity.Entity) ([]int, error)       { return nil, nil }
func (stubKernel) Volumes([]entity.Entity) ([]int, error)        { return nil, nil }
func (stubKernel) CreateSideset(int, []int) error                { return nil }
func (stubKernel) NameSideset(int, string) error                 { return nil }

var _ Kernel = stubKernel{}

func TestStubKernelMergeReportsNothing(t *testing.T) {
	var k Kernel = stubKernel{}
	_, ok, err := k.MergeGroups(1, 2)
	if err != nil {
		t.Fatalf("MergeGroups() error = %v", err)
	}
	if ok {
		t.Error("stub MergeGroups() should report nothing merged")
	}
}
