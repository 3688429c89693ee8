// Package workflow maps intents to capability steps and executes them.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/intent"
	"brainstorm-api/internal/domain/reconcile"
)

// Precondition gates a step on the result of an earlier step.
type Precondition struct {
	Step      capability.Name `yaml:"step" json:"step"`
	Condition ConditionName   `yaml:"condition" json:"condition"`
}

// Step is one capability invocation of a workflow. Consecutive steps sharing a non-empty
// ParallelGroup run concurrently.
type Step struct {
	Capability    capability.Name `yaml:"capability" json:"capability"`
	ParallelGroup string          `yaml:"parallelGroup,omitempty" json:"parallelGroup,omitempty"`
	Precondition  *Precondition   `yaml:"precondition,omitempty" json:"precondition,omitempty"`
}

// Definition is the workflow of one intent.
type Definition struct {
	Intent intent.Type    `yaml:"-" json:"intent"`
	Mode   reconcile.Mode `yaml:"mode" json:"mode"`
	Steps  []Step         `yaml:"steps" json:"steps"`
}

// Table maps intents to workflows. It is built at startup and never mutated afterwards.
type Table struct {
	workflows map[intent.Type]Definition
}

// Lookup returns the workflow for t, or the general workflow when t has none.
func (t *Table) Lookup(it intent.Type) Definition {
	if def, ok := t.workflows[it]; ok {
		return def
	}
	if def, ok := t.workflows[intent.General]; ok {
		return def
	}
	return Definition{Intent: intent.General, Mode: reconcile.ModePermissive}
}

// Intents returns the intents with a workflow.
func (t *Table) Intents() []intent.Type {
	out := make([]intent.Type, 0, len(t.workflows))
	for _, it := range intent.Types() {
		if _, ok := t.workflows[it]; ok {
			out = append(out, it)
		}
	}
	return out
}

func step(name capability.Name) Step { return Step{Capability: name} }

func parallel(name capability.Name, group string) Step {
	return Step{Capability: name, ParallelGroup: group}
}

func when(s Step, on capability.Name, cond ConditionName) Step {
	s.Precondition = &Precondition{Step: on, Condition: cond}
	return s
}

// DefaultTable returns the built-in workflow table.
func DefaultTable() *Table {
	analyze := []Step{
		parallel(capability.Recording, "analyze"),
		parallel(capability.GapDetection, "analyze"),
		when(step(capability.Clarification), capability.GapDetection, HasCriticalGaps),
	}
	validate := []Step{
		step(capability.Recording),
		when(parallel(capability.Verification, "validate"), capability.Recording, HasProposals),
		when(parallel(capability.ConsistencyCheck, "validate"), capability.Recording, HasProposals),
	}

	defs := []Definition{
		{Intent: intent.Brainstorming, Mode: reconcile.ModePermissive, Steps: analyze},
		{Intent: intent.Exploring, Mode: reconcile.ModePermissive, Steps: analyze},
		{Intent: intent.Deciding, Mode: reconcile.ModeStrict, Steps: validate},
		{Intent: intent.Modifying, Mode: reconcile.ModeStrict, Steps: validate},
		{Intent: intent.Parking, Mode: reconcile.ModePermissive, Steps: []Step{step(capability.Recording)}},
		{Intent: intent.Developing, Mode: reconcile.ModePermissive, Steps: []Step{
			parallel(capability.Development, "expand"),
			parallel(capability.GapDetection, "expand"),
		}},
		{Intent: intent.Reviewing, Mode: reconcile.ModeStrict, Steps: []Step{
			step(capability.Review),
			when(step(capability.Verification), capability.Review, HasProposals),
		}},
		{Intent: intent.General, Mode: reconcile.ModePermissive},
	}

	t := &Table{workflows: make(map[intent.Type]Definition, len(defs))}
	for _, d := range defs {
		t.workflows[d.Intent] = cloneDefinition(d)
	}
	return t
}

type tableFile struct {
	Workflows map[string]Definition `yaml:"workflows"`
}

// LoadTable reads workflow overrides from a YAML file on top of the default table. An empty path
// returns the default table.
func LoadTable(path string) (*Table, error) {
	t := DefaultTable()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow table: %w", err)
	}
	return t.withOverrides(data)
}

// ParseTable applies YAML overrides to the default table.
func ParseTable(data []byte) (*Table, error) {
	return DefaultTable().withOverrides(data)
}

func (t *Table) withOverrides(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse workflow table: %w", err)
	}

	for label, def := range file.Workflows {
		it, ok := intent.ParseType(label)
		if !ok {
			return nil, fmt.Errorf("workflow table: unknown intent %q", label)
		}
		mode, err := reconcile.ParseMode(string(def.Mode))
		if err != nil {
			return nil, fmt.Errorf("workflow table: intent %s: %w", label, err)
		}
		def.Intent = it
		def.Mode = mode
		if err := Validate(def.Steps); err != nil {
			return nil, fmt.Errorf("workflow table: intent %s: %w", label, err)
		}
		t.workflows[it] = cloneDefinition(def)
	}
	return t, nil
}

// Validate checks that every step names a capability and every precondition references an earlier
// batch with a known condition.
func Validate(steps []Step) error {
	seen := map[capability.Name]bool{}
	batches := Batches(steps)
	for _, batch := range batches {
		for _, s := range batch {
			if s.Capability == "" {
				return fmt.Errorf("step without capability")
			}
			if s.Precondition == nil {
				continue
			}
			if !seen[s.Precondition.Step] {
				return fmt.Errorf("step %s: precondition references %s which does not run in an earlier batch",
					s.Capability, s.Precondition.Step)
			}
			if _, ok := conditions[s.Precondition.Condition]; !ok {
				return fmt.Errorf("step %s: unknown condition %q", s.Capability, s.Precondition.Condition)
			}
		}
		for _, s := range batch {
			seen[s.Capability] = true
		}
	}
	return nil
}

// Batches splits steps into execution batches: consecutive steps sharing a non-empty parallel group
// form one batch, every other step is a batch of its own.
func Batches(steps []Step) [][]Step {
	var out [][]Step
	for i := 0; i < len(steps); {
		group := steps[i].ParallelGroup
		j := i + 1
		if group != "" {
			for j < len(steps) && steps[j].ParallelGroup == group {
				j++
			}
		}
		out = append(out, steps[i:j])
		i = j
	}
	return out
}

func cloneDefinition(d Definition) Definition {
	steps := make([]Step, len(d.Steps))
	for i, s := range d.Steps {
		if s.Precondition != nil {
			pc := *s.Precondition
			s.Precondition = &pc
		}
		steps[i] = s
	}
	d.Steps = steps
	return d
}
