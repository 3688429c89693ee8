package workflow_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/intent"
	"brainstorm-api/internal/domain/reconcile"
	"brainstorm-api/internal/domain/workflow"
)

func TestBatches(t *testing.T) {
	steps := []workflow.Step{
		{Capability: "a", ParallelGroup: "1"},
		{Capability: "b", ParallelGroup: "1"},
		{Capability: "c"},
		{Capability: "d"},
		{Capability: "e", ParallelGroup: "2"},
		{Capability: "f", ParallelGroup: "1"},
	}
	batches := workflow.Batches(steps)

	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{2, 1, 1, 1, 1}, sizes, "only consecutive steps of the same group are batched")
}

func TestDefaultTable(t *testing.T) {
	table := workflow.DefaultTable()

	tests := []struct {
		intent intent.Type
		mode   reconcile.Mode
		steps  []capability.Name
	}{
		{intent.Brainstorming, reconcile.ModePermissive, []capability.Name{capability.Recording, capability.GapDetection, capability.Clarification}},
		{intent.Exploring, reconcile.ModePermissive, []capability.Name{capability.Recording, capability.GapDetection, capability.Clarification}},
		{intent.Deciding, reconcile.ModeStrict, []capability.Name{capability.Recording, capability.Verification, capability.ConsistencyCheck}},
		{intent.Modifying, reconcile.ModeStrict, []capability.Name{capability.Recording, capability.Verification, capability.ConsistencyCheck}},
		{intent.Parking, reconcile.ModePermissive, []capability.Name{capability.Recording}},
		{intent.Developing, reconcile.ModePermissive, []capability.Name{capability.Development, capability.GapDetection}},
		{intent.Reviewing, reconcile.ModeStrict, []capability.Name{capability.Review, capability.Verification}},
		{intent.General, reconcile.ModePermissive, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			def := table.Lookup(tt.intent)
			assert.Equal(t, tt.mode, def.Mode)
			var names []capability.Name
			for _, s := range def.Steps {
				names = append(names, s.Capability)
			}
			assert.Equal(t, tt.steps, names)
			assert.NoError(t, workflow.Validate(def.Steps))
		})
	}
	assert.Len(t, table.Intents(), len(intent.Types()))
}

func TestDefaultTable_LookupIsACopy(t *testing.T) {
	table := workflow.DefaultTable()
	def := table.Lookup(intent.Deciding)
	def.Steps[1].Precondition.Condition = "mutated"

	again := table.Lookup(intent.Deciding)
	assert.Equal(t, workflow.HasProposals, again.Steps[1].Precondition.Condition)
}

func TestParseTable_Overrides(t *testing.T) {
	data := []byte(`
workflows:
  parking:
    mode: strict
    steps:
      - capability: recording
      - capability: verification
        precondition:
          step: recording
          condition: has_proposals
`)
	table, err := workflow.ParseTable(data)
	require.NoError(t, err)

	def := table.Lookup(intent.Parking)
	assert.Equal(t, reconcile.ModeStrict, def.Mode)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, workflow.HasProposals, def.Steps[1].Precondition.Condition)

	assert.Len(t, table.Lookup(intent.Deciding).Steps, 3, "other intents keep their defaults")
}

func TestParseTable_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown intent": `workflows: {dancing: {steps: [{capability: recording}]}}`,
		"unknown mode":   `workflows: {parking: {mode: lax, steps: [{capability: recording}]}}`,
		"forward precondition": `
workflows:
  parking:
    steps:
      - capability: verification
        precondition: {step: recording, condition: has_proposals}
      - capability: recording`,
		"same batch precondition": `
workflows:
  parking:
    steps:
      - {capability: recording, parallelGroup: x}
      - {capability: verification, parallelGroup: x, precondition: {step: recording, condition: has_proposals}}`,
		"unknown condition": `
workflows:
  parking:
    steps:
      - capability: recording
      - capability: verification
        precondition: {step: recording, condition: sunny}`,
		"bad yaml": "workflows: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := workflow.ParseTable([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTable(t *testing.T) {
	table, err := workflow.LoadTable("")
	require.NoError(t, err)
	assert.Len(t, table.Lookup(intent.Deciding).Steps, 3)

	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflows:\n  general:\n    steps:\n      - capability: gap_detection\n"), 0o600))
	table, err = workflow.LoadTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Lookup(intent.General).Steps, 1)

	_, err = workflow.LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
