package entity

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Vertex, "vertex"},
		{Curve, "curve"},
		{Surface, "surface"},
		{Volume, "volume"},
		{Body, "body"},
		{Group, "group"},
		{KindInvalid, "unknown"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		id      int
		wantErr bool
	}{
		{"volume", Volume, 3, false},
		{"surface", Surface, 1, false},
		{"zero kind", KindInvalid, 1, true},
		{"out of range kind", Kind(99), 1, true},
		{"zero id", Surface, 0, true},
		{"negative id", Body, -4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.kind, tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEntity) {
					t.Fatalf("New(%v, %d) error = %v, want ErrInvalidEntity", tt.kind, tt.id, err)
				}
				var iee *InvalidEntityError
				if !errors.As(err, &iee) {
					t.Fatalf("error is not *InvalidEntityError: %T", err)
				}
				if e != (Entity{}) {
					t.Errorf("New returned non-zero entity on error: %v", e)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Kind != tt.kind || e.ID != tt.id {
				t.Errorf("New = %v", e)
			}
		})
	}
}

func TestEntityEqualityIsStructural(t *testing.T) {
	a := Must(Surface, 7)
	b := Entity{Kind: Surface, ID: 7}
	if a != b {
		t.Error("entities with equal kind and id should be equal")
	}
	if a == Must(Volume, 7) {
		t.Error("entities with different kinds should differ")
	}
	m := map[Entity]int{a: 1}
	if m[b] != 1 {
		t.Error("Entity should work as a map key")
	}
}

func TestHelpers(t *testing.T) {
	es := Surfaces([]int{7, 8})
	if len(es) != 2 || es[0] != Must(Surface, 7) || es[1] != Must(Surface, 8) {
		t.Fatalf("Surfaces = %v", es)
	}
	if got := IDs(es); len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("IDs = %v", got)
	}
	if got := IDString([]int{1, 2, 3}); got != "1 2 3" {
		t.Errorf("IDString = %q", got)
	}
	if Index(es, Must(Surface, 8)) != 1 || Index(es, Must(Surface, 9)) != -1 {
		t.Error("Index returned wrong position")
	}
	if Must(Volume, 2).String() != "volume 2" {
		t.Errorf("String = %q", Must(Volume, 2).String())
	}

	s := NewIDSet(2, 3)
	if s.Contains(1) || !s.Contains(2) || !s.Contains(3) {
		t.Errorf("IDSet = %v", s)
	}
}
