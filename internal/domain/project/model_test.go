package project_test

import (
	"errors"
	"testing"
	"time"

	"brainstorm-api/internal/domain/project"
)

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to project.State
		want     bool
	}{
		{project.StateExploring, project.StateDecided, true},
		{project.StateExploring, project.StateParked, true},
		{project.StateDecided, project.StateExploring, true},
		{project.StateParked, project.StateExploring, true},
		{project.StateExploring, project.StateRejected, true},
		{project.StateDecided, project.StateRejected, true},
		{project.StateParked, project.StateRejected, true},
		{project.StateDecided, project.StateParked, false},
		{project.StateParked, project.StateDecided, false},
		{project.StateRejected, project.StateExploring, false},
		{project.StateRejected, project.StateDecided, false},
		{project.StateRejected, project.StateParked, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_IsInitial(t *testing.T) {
	if project.StateRejected.IsInitial() {
		t.Error("items cannot be created rejected")
	}
	for _, s := range []project.State{project.StateDecided, project.StateExploring, project.StateParked} {
		if !s.IsInitial() {
			t.Errorf("%s should be a valid initial state", s)
		}
	}
}

func TestItem_TransitionTo(t *testing.T) {
	item := project.Item{ID: "a", State: project.StateRejected}
	err := item.TransitionTo(project.StateExploring)
	if !errors.Is(err, project.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if item.State != project.StateRejected {
		t.Errorf("state changed on invalid transition")
	}
}

func TestItem_AppendVersion(t *testing.T) {
	now := time.Now()
	item := project.Item{ID: "a", Text: "t", State: project.StateExploring}

	v1 := item.AppendVersion(project.ChangeCreated, "", now)
	v2 := item.AppendVersion(project.ChangeModified, "edited", now.Add(time.Second))

	if v1.VersionNumber != 1 || v2.VersionNumber != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", v1.VersionNumber, v2.VersionNumber)
	}
	if item.CurrentVersion() != 2 {
		t.Errorf("CurrentVersion = %d, want 2", item.CurrentVersion())
	}
	if !item.UpdatedAt.Equal(now.Add(time.Second)) {
		t.Errorf("UpdatedAt not advanced")
	}
}

func TestProject_CloneIsDeep(t *testing.T) {
	p := &project.Project{ID: "p", Items: []project.Item{{ID: "a", VersionHistory: []project.Version{{VersionNumber: 1}}}}}
	c := p.Clone()
	c.Items[0].VersionHistory[0].VersionNumber = 99
	c.Items[0].Text = "changed"

	if p.Items[0].VersionHistory[0].VersionNumber != 1 || p.Items[0].Text != "" {
		t.Error("clone shares state with the original")
	}
}

func TestProject_Fingerprint(t *testing.T) {
	p := &project.Project{Items: []project.Item{
		{ID: "b", State: project.StateDecided, VersionHistory: []project.Version{{VersionNumber: 1}, {VersionNumber: 2}}},
		{ID: "a", State: project.StateParked},
	}}
	if got, want := p.Fingerprint(), "a:0:parked,b:2:decided"; got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
	if got, want := p.Fingerprint(project.StateDecided), "b:2:decided"; got != want {
		t.Errorf("Fingerprint(decided) = %q, want %q", got, want)
	}
}
