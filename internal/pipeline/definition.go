package pipeline

import (
	"fmt"
	"strings"

	"github.com/packline/packline/internal/step"
)

// DefaultID names the built-in publish pipeline.
const DefaultID = "publish"

// StepRef references a registered step inside a pipeline definition, with
// optional per-step configuration overrides.
type StepRef struct {
	ID     string         `json:"id" yaml:"id"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a deep copy of the reference.
func (ref StepRef) Clone() StepRef {
	clone := StepRef{ID: ref.ID}
	if len(ref.Config) > 0 {
		clone.Config = make(map[string]any, len(ref.Config))
		for key, value := range ref.Config {
			clone.Config[key] = value
		}
	}
	return clone
}

// Validate ensures the reference is well-formed.
func (ref StepRef) Validate() error {
	if strings.TrimSpace(ref.ID) == "" {
		return fmt.Errorf("step id is required")
	}
	return nil
}

// Overrides converts the reference configuration into a step.Config.
func (ref StepRef) Overrides() step.Config {
	if len(ref.Config) == 0 {
		return nil
	}
	cfg := make(step.Config, len(ref.Config))
	for key, value := range ref.Config {
		cfg[key] = value
	}
	return cfg
}

// Definition declares an executable pipeline: an ordered list of steps that
// run strictly in sequence with a fail-fast policy.
type Definition struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []StepRef `json:"steps" yaml:"steps"`
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
	}
	if len(def.Steps) > 0 {
		clone.Steps = make([]StepRef, len(def.Steps))
		for i, ref := range def.Steps {
			clone.Steps[i] = ref.Clone()
		}
	}
	return clone
}

// Validate ensures the pipeline definition is self-consistent.
func (def Definition) Validate() error {
	if def.ID == "" {
		return fmt.Errorf("pipeline: id is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("pipeline %s: at least one step is required", def.ID)
	}
	seen := map[string]struct{}{}
	for idx, ref := range def.Steps {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("pipeline %s step[%d]: %w", def.ID, idx, err)
		}
		if _, exists := seen[ref.ID]; exists {
			return fmt.Errorf("pipeline %s: duplicate step id %s", def.ID, ref.ID)
		}
		seen[ref.ID] = struct{}{}
	}
	return nil
}

// Normalized clones the definition, trims identifiers, and validates the
// result.
func (def Definition) Normalized() (Definition, error) {
	clone := def.Clone()
	clone.ID = strings.TrimSpace(clone.ID)
	clone.Name = strings.TrimSpace(clone.Name)
	for i := range clone.Steps {
		clone.Steps[i].ID = strings.TrimSpace(clone.Steps[i].ID)
	}
	if err := clone.Validate(); err != nil {
		return Definition{}, err
	}
	return clone, nil
}

// StepIDs returns the step identifiers in declaration order.
func (def Definition) StepIDs() []string {
	ids := make([]string, 0, len(def.Steps))
	for _, ref := range def.Steps {
		ids = append(ids, ref.ID)
	}
	return ids
}

// Default returns the built-in four-step publish pipeline: clean, build,
// enumerate, announce.
func Default() Definition {
	return Definition{
		ID:          DefaultID,
		Name:        "Publish",
		Description: "Cleans prior output, builds distribution archives, lists them, and prints upload instructions.",
		Steps: []StepRef{
			{ID: "clean"},
			{ID: "build"},
			{ID: "enumerate"},
			{ID: "announce"},
		},
	}
}
