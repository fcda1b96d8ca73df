package materials

import (
	"fmt"
	"strings"
)

const airSuffix = "_air"

// checkMaterialName rejects names the tracker uses for its own groups.
func checkMaterialName(name string) error {
	switch {
	case name == "":
		return &NameError{Name: name, Reason: "empty"}
	case name == MaterialsGroup || name == BoundariesGroup:
		return &NameError{Name: name, Reason: "reserved for the umbrella groups"}
	case name == "air" || strings.HasSuffix(name, airSuffix):
		return &NameError{Name: name, Reason: "reserved for air boundaries"}
	}
	return nil
}

// CheckMaterialNames validates the materials of one run, in registration
// order. Besides the per-name rules it requires every kernel group the run
// will create to have a distinct name: the material groups, the
// "<a>_<b>" merge boundaries, the "<m>_air" boundaries and the umbrella
// groups. Repeated names are checked once.
func CheckMaterialNames(names []string) error {
	var order []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		if err := checkMaterialName(n); err != nil {
			return err
		}
		seen[n] = true
		order = append(order, n)
	}

	owner := map[string]string{
		MaterialsGroup:  "umbrella group",
		BoundariesGroup: "umbrella group",
	}
	claim := func(group, use, name string) error {
		if prev, ok := owner[group]; ok {
			return &NameError{Name: name, Reason: fmt.Sprintf("group %q would be both %s and %s", group, prev, use)}
		}
		owner[group] = use
		return nil
	}
	for _, n := range order {
		if err := claim(n, "material "+n, n); err != nil {
			return err
		}
	}
	for i, a := range order {
		if err := claim(a+"_"+a, "boundary of "+a+" with itself", a); err != nil {
			return err
		}
		if err := claim(a+airSuffix, "air boundary of "+a, a); err != nil {
			return err
		}
		for _, b := range order[i+1:] {
			if err := claim(a+"_"+b, "boundary of "+a+" and "+b, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tracker) materialNames() []string {
	out := make([]string, len(t.materials))
	for i, m := range t.materials {
		out[i] = m.Name
	}
	return out
}
