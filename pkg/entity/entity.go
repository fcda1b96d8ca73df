// Package entity identifies objects that live inside the external geometry
// kernel. An Entity is a pure reference: a kind tag plus the kernel's integer
// id. It carries no mutable state, so any number of containers may hold the
// same Entity at once.
package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the kernel entity types the tracker can reference.
type Kind int

const (
	KindInvalid Kind = iota
	Vertex
	Curve
	Surface
	Volume
	Body
	Group
)

func (k Kind) String() string {
	switch k {
	case Vertex:
		return "vertex"
	case Curve:
		return "curve"
	case Surface:
		return "surface"
	case Volume:
		return "volume"
	case Body:
		return "body"
	case Group:
		return "group"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= Vertex && k <= Group
}

// ErrInvalidEntity is matched by every InvalidEntityError.
var ErrInvalidEntity = errors.New("invalid entity")

// InvalidEntityError reports a value used where a kernel entity was required.
type InvalidEntityError struct {
	Entity Entity
	Reason string
}

func (e *InvalidEntityError) Error() string {
	return fmt.Sprintf("invalid entity %s: %s", e.Entity, e.Reason)
}

func (e *InvalidEntityError) Is(target error) bool {
	return target == ErrInvalidEntity
}

// Entity is a (kind, id) reference to one kernel entity. Two entities are
// the same iff both fields match, so Entity is usable as a map key and with ==.
type Entity struct {
	Kind Kind `json:"kind"`
	ID   int  `json:"id"`
}

// New returns a validated Entity.
func New(kind Kind, id int) (Entity, error) {
	e := Entity{Kind: kind, ID: id}
	if err := e.Validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// Must is like New but panics on an invalid entity. Intended for literals in
// tests and examples.
func Must(kind Kind, id int) Entity {
	e, err := New(kind, id)
	if err != nil {
		panic(err)
	}
	return e
}

// Validate returns an InvalidEntityError unless the kind is known and the id
// is positive. Kernel ids start at 1.
func (e Entity) Validate() error {
	if !e.Kind.Valid() {
		return &InvalidEntityError{Entity: e, Reason: "unknown kind"}
	}
	if e.ID <= 0 {
		return &InvalidEntityError{Entity: e, Reason: "id must be positive"}
	}
	return nil
}

func (e Entity) String() string {
	return fmt.Sprintf("%s %d", e.Kind, e.ID)
}

// Surfaces wraps surface ids as entities, preserving order.
func Surfaces(ids []int) []Entity {
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = Entity{Kind: Surface, ID: id}
	}
	return out
}

// IDs returns the ids of es in order.
func IDs(es []Entity) []int {
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

// IDString joins ids with spaces, the form kernel commands expect.
func IDString(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}

// Index returns the position of e in es, or -1.
func Index(es []Entity, e Entity) int {
	for i, x := range es {
		if x == e {
			return i
		}
	}
	return -1
}
