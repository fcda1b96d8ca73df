package design

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/blobmaker/pkg/geometry"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// maxDepth bounds nested component file references.
const maxDepth = 32

// Loader turns design files into trees.
type Loader struct {
	defaults Defaults
	log      *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDefaults replaces DefaultParameters.
func WithDefaults(d Defaults) LoaderOption {
	return func(l *Loader) {
		l.defaults = d
	}
}

// WithLogger sets the logger fill log lines are mirrored to at debug.
func WithLogger(zl *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if zl != nil {
			l.log = zl
		}
	}
}

// NewLoader returns a Loader using DefaultParameters.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{defaults: DefaultParameters(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads a JSON or YAML design file, resolves component file
// references relative to it, fills defaults and decodes the result. The
// file may hold one object or a list of objects, each becoming a root. The
// fill log is returned alongside the tree.
func (l *Loader) LoadFile(path string) (*Tree, []string, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return l.Load(raw, filepath.Dir(path))
}

// Load is LoadFile for an already decoded value. File references are
// resolved relative to dir.
func (l *Loader) Load(raw any, dir string) (*Tree, []string, error) {
	var objs []Object
	switch v := raw.(type) {
	case Object:
		objs = []Object{v}
	case []any:
		for i, x := range v {
			obj, ok := x.(Object)
			if !ok {
				return nil, nil, fmt.Errorf("root %d: expected object, got %T", i, x)
			}
			objs = append(objs, obj)
		}
	default:
		return nil, nil, fmt.Errorf("design: expected object or list, got %T", raw)
	}

	filler := NewParameterFiller(l.defaults, l.log)
	tree := &Tree{}
	for i, obj := range objs {
		if err := resolve(obj, dir, 0); err != nil {
			return nil, filler.Log(), fmt.Errorf("root %d: %w", i, err)
		}
		if _, err := filler.Process(obj); err != nil {
			return nil, filler.Log(), fmt.Errorf("root %d: %w", i, err)
		}
		n, err := Decode(obj)
		if err != nil {
			return nil, filler.Log(), fmt.Errorf("root %d: %w", i, err)
		}
		tree.Roots = append(tree.Roots, n)
	}
	l.log.Info("design loaded", zap.Int("roots", len(tree.Roots)), zap.Int("nodes", tree.NodeCount()))
	return tree, filler.Log(), nil
}

// ReadFile decodes a design file. ".yaml" and ".yml" files are YAML,
// everything else is JSON.
func ReadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read design: %w", err)
	}
	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return v, nil
}

// resolve replaces file names inside obj's components with the decoded
// file contents, recursively. Nested references resolve relative to the
// file that contains them.
func resolve(obj Object, dir string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("components nested deeper than %d files", maxDepth)
	}
	comps, ok := obj["components"]
	if !ok {
		return nil
	}
	resolved, err := delve(comps, dir, depth)
	if err != nil {
		return err
	}
	obj["components"] = resolved
	return nil
}

func delve(comps any, dir string, depth int) (any, error) {
	switch v := comps.(type) {
	case string:
		loaded, childDir, err := load(v, dir)
		if err != nil {
			return nil, err
		}
		if obj, ok := loaded.(Object); ok {
			if _, hasClass := obj["class"]; hasClass {
				loaded = []any{obj}
			}
		}
		return delve(loaded, childDir, depth+1)
	case []any:
		for i, c := range v {
			child, err := extract(c, dir, depth)
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			v[i] = child
		}
		return v, nil
	case Object:
		for _, key := range sortedKeys(v) {
			child, err := extract(v[key], dir, depth)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", key, err)
			}
			v[key] = child
		}
		return v, nil
	case nil:
		return []any{}, nil
	}
	return nil, fmt.Errorf("unrecognised components value %T", comps)
}

// extract loads c if it is a file name, then resolves its own components.
func extract(c any, dir string, depth int) (any, error) {
	childDir := dir
	if name, ok := c.(string); ok {
		loaded, d, err := load(name, dir)
		if err != nil {
			return nil, err
		}
		c, childDir = loaded, d
	}
	obj, ok := c.(Object)
	if !ok {
		return nil, fmt.Errorf("expected object or file name, got %T", c)
	}
	return obj, resolve(obj, childDir, depth+1)
}

func load(name, dir string) (any, string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	v, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return v, filepath.Dir(path), nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Decode converts a filled design object into a Node.
func Decode(obj Object) (*Node, error) {
	class, err := classOf(obj)
	if err != nil {
		return nil, err
	}
	kind, err := ParseKind(class)
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: kind}
	if n.Name, err = optString(obj, "name"); err != nil {
		return nil, err
	}

	switch kind {
	case KindBrick:
		n.Data, err = decodeBrick(obj)
	case KindLayers:
		n.Data, err = decodeLayers(obj)
	case KindAssembly:
		n.Data, n.Children, err = decodeAssembly(obj)
	}
	if err != nil {
		if n.Name != "" {
			return nil, fmt.Errorf("%s %q: %w", kind, n.Name, err)
		}
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return n, nil
}

func decodeBrick(obj Object) (BrickData, error) {
	var d BrickData
	var err error
	if d.Material, err = optString(obj, "material"); err != nil {
		return d, err
	}
	if d.Size, err = optVec(obj, "size"); err != nil {
		return d, err
	}
	if d.Origin, err = optVec(obj, "origin"); err != nil {
		return d, err
	}
	if d.Rotation, err = optVec(obj, "rotation"); err != nil {
		return d, err
	}
	return d, nil
}

func decodeLayers(obj Object) (LayersData, error) {
	var d LayersData
	var err error
	if d.Extent, err = optVec(obj, "extent"); err != nil {
		return d, err
	}
	if d.Origin, err = optVec(obj, "origin"); err != nil {
		return d, err
	}
	axis, err := optString(obj, "axis")
	if err != nil {
		return d, err
	}
	if axis != "" {
		if d.Axis, err = ParseAxis(axis); err != nil {
			return d, err
		}
	} else {
		d.Axis = AxisZ
	}

	raw, ok := obj["layers"]
	if !ok {
		return d, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return d, fmt.Errorf("layers: expected list, got %T", raw)
	}
	for i, item := range list {
		lo, ok := item.(Object)
		if !ok {
			return d, fmt.Errorf("layer %d: expected object, got %T", i, item)
		}
		var l Layer
		if l.Material, err = optString(lo, "material"); err != nil {
			return d, fmt.Errorf("layer %d: %w", i, err)
		}
		if v, ok := lo["thickness"]; ok {
			if l.Thickness, err = toFloat(v); err != nil {
				return d, fmt.Errorf("layer %d: thickness: %w", i, err)
			}
		}
		d.Layers = append(d.Layers, l)
	}
	return d, nil
}

func decodeAssembly(obj Object) (AssemblyData, []*Node, error) {
	var d AssemblyData
	if v, ok := obj["unite"]; ok {
		b, ok := v.(bool)
		if !ok {
			return d, nil, fmt.Errorf("unite: expected bool, got %T", v)
		}
		d.Unite = b
	}

	var children []*Node
	switch comps := obj["components"].(type) {
	case nil:
	case []any:
		for i, c := range comps {
			co, ok := c.(Object)
			if !ok {
				return d, nil, fmt.Errorf("component %d: expected object, got %T", i, c)
			}
			n, err := Decode(co)
			if err != nil {
				return d, nil, fmt.Errorf("component %d: %w", i, err)
			}
			children = append(children, n)
		}
	case Object:
		for _, key := range sortedKeys(comps) {
			co, ok := comps[key].(Object)
			if !ok {
				return d, nil, fmt.Errorf("component %q: expected object, got %T", key, comps[key])
			}
			n, err := Decode(co)
			if err != nil {
				return d, nil, fmt.Errorf("component %q: %w", key, err)
			}
			if n.Name == "" {
				n.Name = key
			}
			children = append(children, n)
		}
	default:
		return d, nil, fmt.Errorf("components: expected list or object, got %T", comps)
	}
	return d, children, nil
}

func optString(obj Object, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
	return s, nil
}

// optVec decodes a scalar, a one-element list or a three-element list.
func optVec(obj Object, key string) (Vec3, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return Vec3{}, nil
	}
	var comps []float64
	switch t := v.(type) {
	case []any:
		for _, x := range t {
			f, err := toFloat(x)
			if err != nil {
				return Vec3{}, fmt.Errorf("%s: %w", key, err)
			}
			comps = append(comps, f)
		}
	default:
		f, err := toFloat(v)
		if err != nil {
			return Vec3{}, fmt.Errorf("%s: %w", key, err)
		}
		comps = []float64{f}
	}
	a, err := geometry.ConvertTo3DVector(comps)
	if err != nil {
		return Vec3{}, fmt.Errorf("%s: %w", key, err)
	}
	return Vec3{X: a[0], Y: a[1], Z: a[2]}, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
