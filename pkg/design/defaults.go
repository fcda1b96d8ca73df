package design

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Object is an undecoded design tree object as read from JSON or YAML.
type Object = map[string]any

// Defaults maps a class name to its default parameters. Nested objects are
// filled recursively.
type Defaults map[string]Object

// DefaultParameters are the parameters filled into objects that leave them
// out.
func DefaultParameters() Defaults {
	return Defaults{
		"assembly": {
			"unite":      false,
			"components": []any{},
		},
		"blob": {
			"unite":      false,
			"components": []any{},
		},
		"brick": {
			"size":     []any{1.0, 1.0, 1.0},
			"origin":   []any{0.0, 0.0, 0.0},
			"rotation": []any{0.0, 0.0, 0.0},
		},
		"layers": {
			"axis":   "z",
			"extent": []any{1.0, 1.0, 0.0},
			"origin": []any{0.0, 0.0, 0.0},
		},
	}
}

// ParameterFiller fills missing parameters from Defaults and keeps a
// human-readable log of what it did.
type ParameterFiller struct {
	defaults Defaults
	log      []string
	zl       *zap.Logger
}

// NewParameterFiller returns a filler using defaults. A nil logger
// discards the debug records mirrored from the fill log.
func NewParameterFiller(defaults Defaults, zl *zap.Logger) *ParameterFiller {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &ParameterFiller{defaults: defaults, zl: zl}
}

// Log returns the fill log.
func (p *ParameterFiller) Log() []string {
	return append([]string(nil), p.log...)
}

func (p *ParameterFiller) addLog(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.log = append(p.log, msg)
	p.zl.Debug(msg)
}

// Process fills obj and, recursively, every object in its components. obj
// is modified in place and returned.
func (p *ParameterFiller) Process(obj Object) (Object, error) {
	class, err := classOf(obj)
	if err != nil {
		return nil, err
	}
	cfg := p.config(class)
	if cfg == nil {
		p.addLog("Default configuration not found for: %s", class)
	} else {
		p.fill(obj, cfg, class)
	}
	return obj, p.processComponents(obj)
}

func (p *ParameterFiller) processComponents(obj Object) error {
	switch comps := obj["components"].(type) {
	case []any:
		for i, c := range comps {
			child, ok := c.(Object)
			if !ok {
				return fmt.Errorf("component %d: expected object, got %T", i, c)
			}
			if _, err := p.Process(child); err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
		}
	case Object:
		for _, key := range sortedKeys(comps) {
			child, ok := comps[key].(Object)
			if !ok {
				return fmt.Errorf("component %q: expected object, got %T", key, comps[key])
			}
			if _, err := p.Process(child); err != nil {
				return fmt.Errorf("component %q: %w", key, err)
			}
		}
	}
	return nil
}

func (p *ParameterFiller) config(class string) Object {
	for name, cfg := range p.defaults {
		if strings.EqualFold(name, class) {
			return cfg
		}
	}
	return nil
}

func (p *ParameterFiller) fill(obj, cfg Object, class string) {
	if class != "" {
		p.addLog("---------- Logging class: %s ----------", class)
	}
	for _, key := range sortedKeys(cfg) {
		def := cfg[key]
		val, ok := obj[key]
		if !ok {
			obj[key] = copyValue(def)
			p.addLog("key %s not specified. Added default.", key)
			continue
		}
		if nested, isObj := def.(Object); isObj {
			if sub, ok := val.(Object); ok {
				p.fill(sub, nested, "")
				continue
			}
		}
		p.addLog("%s set to: %v (default: %v)", key, val, def)
	}
	for _, key := range sortedKeys(obj) {
		if _, ok := cfg[key]; !ok && key != "class" {
			p.addLog("key %s not in default config", key)
		}
	}
	if class != "" {
		p.addLog("---------- Finished logging class: %s ----------", class)
	}
}

func classOf(obj Object) (string, error) {
	raw, ok := obj["class"]
	if !ok {
		return "", fmt.Errorf("all design objects need to have a class")
	}
	class, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("design object class must be a string, got %T", raw)
	}
	return class, nil
}

// copyValue deep-copies default values so filled trees never share them.
func copyValue(v any) any {
	switch t := v.(type) {
	case Object:
		out := make(Object, len(t))
		for k, x := range t {
			out[k] = copyValue(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = copyValue(x)
		}
		return out
	}
	return v
}

func sortedKeys(m Object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
