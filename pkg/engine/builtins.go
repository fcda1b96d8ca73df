package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/blobmaker/pkg/design"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms blob Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: my-brick -> my_brick
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value - treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toAxis converts a keyword or string to a design.Axis.
func toAxis(s zygo.Sexp) (design.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return design.ParseAxis(name)
}

// toBool accepts true/false and the keywords :true/:false.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	if name, err := toKeywordString(s); err == nil {
		switch name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3. A plain number is expanded to
// all three components.
func toVec3(s zygo.Sexp) (design.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	if f, err := toFloat64(s); err == nil {
		return design.Vec3{X: f, Y: f, Z: f}, nil
	}
	return design.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toNode extracts the node from a sexpNode.
func toNode(s zygo.Sexp) (*design.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return nil, fmt.Errorf("expected component, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a design.Vec3.
type sexpVec3 struct {
	vec design.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpNode wraps a design node so it can be returned from `brick` or
// `layers` and consumed by `assembly`.
type sexpNode struct {
	node *design.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	if n.node.Name != "" {
		return fmt.Sprintf("(%s %q)", n.node.Kind, n.node.Name)
	}
	return fmt.Sprintf("(%s)", n.node.Kind)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Tree building
// ---------------------------------------------------------------------------

// builder collects the nodes created during one evaluation. Nodes not
// claimed by an assembly become roots, in creation order.
type builder struct {
	nodes   []*design.Node
	claimed map[*design.Node]bool
}

func newBuilder() *builder {
	return &builder{claimed: make(map[*design.Node]bool)}
}

func (b *builder) add(n *design.Node) *sexpNode {
	b.nodes = append(b.nodes, n)
	return &sexpNode{node: n}
}

func (b *builder) claim(n *design.Node) error {
	if b.claimed[n] {
		return fmt.Errorf("component already belongs to an assembly")
	}
	b.claimed[n] = true
	return nil
}

func (b *builder) tree() *design.Tree {
	t := &design.Tree{}
	for _, n := range b.nodes {
		if !b.claimed[n] {
			t.Roots = append(t.Roots, n)
		}
	}
	return t
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the blob DSL builtins into a zygomys environment.
// The builtins add nodes to b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: design.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (brick :material "steel" :size (vec3 1 2 3) :at (vec3 0 0 0)
	//        :rotate (vec3 0 0 90) :name "plug")
	// -----------------------------------------------------------------------
	env.AddFunction("brick", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bd := design.BrickData{Size: design.Vec3{X: 1, Y: 1, Z: 1}}
		n := &design.Node{Kind: design.KindBrick}

		if v, ok := pa.kw["material"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brick: material: %w", err)
			}
			bd.Material = s
		}
		if v, ok := pa.kw["size"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brick: size: %w", err)
			}
			bd.Size = vec
		}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brick: at: %w", err)
			}
			bd.Origin = vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brick: rotate: %w", err)
			}
			bd.Rotation = vec
		}
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brick: name: %w", err)
			}
			n.Name = s
		}

		n.Data = bd
		return b.add(n), nil
	})

	// -----------------------------------------------------------------------
	// (layers :axis :z :extent (vec3 10 10 0) :at (vec3 0 0 0)
	//         :materials (list "steel" "water") :thickness (list 1 2))
	// -----------------------------------------------------------------------
	env.AddFunction("layers", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ld := design.LayersData{Axis: design.AxisZ}
		n := &design.Node{Kind: design.KindLayers}

		if v, ok := pa.kw["axis"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layers: axis: %w", err)
			}
			ld.Axis = a
		}
		if v, ok := pa.kw["extent"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layers: extent: %w", err)
			}
			ld.Extent = vec
		}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layers: at: %w", err)
			}
			ld.Origin = vec
		}
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layers: name: %w", err)
			}
			n.Name = s
		}

		var materials []string
		if v, ok := pa.kw["materials"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layers: materials: %w", err)
			}
			for i, item := range items {
				s, err := toKeywordString(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("layers: material %d: %w", i, err)
				}
				materials = append(materials, s)
			}
		}

		// A single thickness applies to every layer.
		thickness := make([]float64, len(materials))
		if v, ok := pa.kw["thickness"]; ok {
			if f, err := toFloat64(v); err == nil {
				for i := range thickness {
					thickness[i] = f
				}
			} else {
				items, err := sexpListToSlice(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("layers: thickness: %w", err)
				}
				if len(items) != len(materials) {
					return zygo.SexpNull, fmt.Errorf("layers: %d thicknesses for %d materials", len(items), len(materials))
				}
				for i, item := range items {
					f, err := toFloat64(item)
					if err != nil {
						return zygo.SexpNull, fmt.Errorf("layers: thickness %d: %w", i, err)
					}
					thickness[i] = f
				}
			}
		}

		for i, m := range materials {
			ld.Layers = append(ld.Layers, design.Layer{Material: m, Thickness: thickness[i]})
		}
		n.Data = ld
		return b.add(n), nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" :unite true (brick ...) (layers ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}

		asmName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}

		ad := design.AssemblyData{}
		if v, ok := pa.kw["unite"]; ok {
			u, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("assembly: unite: %w", err)
			}
			ad.Unite = u
		}

		n := &design.Node{Kind: design.KindAssembly, Name: asmName, Data: ad}
		for i, arg := range pa.positional[1:] {
			child, err := toNode(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i+1, err)
			}
			if err := b.claim(child); err != nil {
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i+1, err)
			}
			n.Children = append(n.Children, child)
		}

		return b.add(n), nil
	})
}
