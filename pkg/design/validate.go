package design

import (
	"fmt"
	"strings"

	"github.com/chazu/blobmaker/pkg/geometry"
)

// Severity grades a validation finding.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ValidationError is one problem found in a tree. Path locates the node,
// e.g. "blob/core/layers[2]".
type ValidationError struct {
	Path     string
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Severity, e.Path, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a tree for geometry the build cannot construct.
func Validate(t *Tree) []ValidationError {
	var errs []ValidationError
	if len(t.Roots) == 0 {
		errs = append(errs, ValidationError{Message: "design has no components", Severity: SeverityWarning})
	}
	for i, r := range t.Roots {
		errs = append(errs, validateNode(r, nodePath("", r, i))...)
	}
	return errs
}

func nodePath(parent string, n *Node, i int) string {
	seg := n.Name
	if seg == "" {
		seg = fmt.Sprintf("%s[%d]", n.Kind, i)
	}
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

func validateNode(n *Node, path string) []ValidationError {
	var errs []ValidationError
	fail := func(sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	switch d := n.Data.(type) {
	case BrickData:
		if strings.TrimSpace(d.Material) == "" {
			fail(SeverityError, "brick has no material")
		}
		if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
			fail(SeverityError, "size %v must be positive", d.Size.Array())
		}
		for _, deg := range d.Rotation.Array() {
			if !geometry.IsRightAngle(deg) {
				fail(SeverityError, "rotation %v must be multiples of 90 degrees", d.Rotation.Array())
				break
			}
		}
	case LayersData:
		if len(d.Layers) == 0 {
			fail(SeverityError, "layers has no layers")
		}
		if d.Axis < AxisX || d.Axis > AxisZ {
			fail(SeverityError, "invalid axis %d", int(d.Axis))
		}
		for _, a := range []Axis{AxisX, AxisY, AxisZ} {
			if a != d.Axis && d.Extent.Component(a) <= 0 {
				fail(SeverityError, "extent along %s must be positive", a)
			}
		}
		for i, l := range d.Layers {
			if strings.TrimSpace(l.Material) == "" {
				fail(SeverityError, "layer %d has no material", i)
			}
			if l.Thickness <= 0 {
				fail(SeverityError, "layer %d thickness %g must be positive", i, l.Thickness)
			}
		}
	case AssemblyData:
		if len(n.Children) == 0 {
			fail(SeverityWarning, "assembly has no components")
		}
	case nil:
		fail(SeverityError, "%s node has no data", n.Kind)
	}

	for i, c := range n.Children {
		errs = append(errs, validateNode(c, nodePath(path, c, i))...)
	}
	return errs
}
