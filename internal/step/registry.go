package step

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config represents step-specific configuration overrides.
type Config map[string]any

// StringSlice reads a key as a list of strings. YAML lists arrive as []any;
// a plain string is split on whitespace so command-line "key=a b c" overrides
// work too. The second return reports whether the key was present.
func (c Config) StringSlice(key string) ([]string, bool, error) {
	raw, ok := c[key]
	if !ok {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return strings.Fields(v), true, nil
	case []string:
		return v, true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("step: config key %q holds a non-string element", key)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("step: config key %q must be a string or a string list", key)
	}
}

// Factory constructs a step with the provided configuration.
type Factory func(Config) (Step, error)

type registration struct {
	factory Factory
	keys    map[string]struct{}
}

// Registry maintains known step factories along with the configuration keys
// each step accepts.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: map[string]registration{}}
}

// Register installs a step factory together with the override keys the step
// understands. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory, keys ...string) error {
	if id == "" {
		return fmt.Errorf("step: id is required")
	}
	if factory == nil {
		return fmt.Errorf("step: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step: %s already registered", id)
	}
	allowed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		allowed[key] = struct{}{}
	}
	r.steps[id] = registration{factory: factory, keys: allowed}
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory, keys ...string) {
	if err := r.Register(id, factory, keys...); err != nil {
		panic(err)
	}
}

// Resolve constructs a step by ID. Override keys the step never declared are
// rejected here so a typo in a pipeline file or a -set flag fails the run
// before any step executes.
func (r *Registry) Resolve(id string, cfg Config) (Step, error) {
	r.mu.RLock()
	reg, ok := r.steps[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("step: unknown id %s", id)
	}
	if err := validateKeys(id, reg.keys, cfg); err != nil {
		return nil, err
	}
	step, err := reg.factory(cfg)
	if err != nil {
		return nil, err
	}
	if err := step.Info().Validate(); err != nil {
		return nil, err
	}
	return step, nil
}

func validateKeys(id string, allowed map[string]struct{}, cfg Config) error {
	var unknown []string
	for key := range cfg {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	if len(allowed) == 0 {
		return fmt.Errorf("step: %s accepts no config keys, got %s", id, strings.Join(unknown, ", "))
	}
	accepted := make([]string, 0, len(allowed))
	for key := range allowed {
		accepted = append(accepted, key)
	}
	sort.Strings(accepted)
	return fmt.Errorf("step: %s does not accept config key(s) %s (accepted: %s)",
		id, strings.Join(unknown, ", "), strings.Join(accepted, ", "))
}

// IDs returns a sorted list of registered step identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
