package project

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// State is the lifecycle state of a project item.
type State string

const (
	StateDecided   State = "decided"
	StateExploring State = "exploring"
	StateParked    State = "parked"
	StateRejected  State = "rejected"
)

// ErrInvalidTransition is returned when an item state change is not allowed.
var ErrInvalidTransition = errors.New("invalid item state transition")

// ValidTransitions lists the allowed item state changes. Nothing leaves rejected.
var ValidTransitions = map[State][]State{
	StateExploring: {StateDecided, StateParked, StateRejected},
	StateDecided:   {StateExploring, StateRejected},
	StateParked:    {StateExploring, StateRejected},
	StateRejected:  {},
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// IsInitial reports whether an item may be created in state s.
func (s State) IsInitial() bool {
	return s == StateDecided || s == StateExploring || s == StateParked
}

// CanTransitionTo checks if a transition from s to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ChangeType labels a version history entry.
type ChangeType string

const (
	ChangeCreated      ChangeType = "created"
	ChangeModified     ChangeType = "modified"
	ChangeTransitioned ChangeType = "transitioned"
	ChangeRejected     ChangeType = "rejected"
)

// Citation is the literal user text that justifies an item.
type Citation struct {
	UserQuote string    `json:"userQuote"`
	Timestamp time.Time `json:"timestamp"`
}

// Version is one entry of an item's mutation history.
type Version struct {
	VersionNumber int        `json:"versionNumber"`
	ChangeType    ChangeType `json:"changeType"`
	State         State      `json:"state"`
	Text          string     `json:"text"`
	Reasoning     string     `json:"reasoning,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Item is a tracked decision or idea.
type Item struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	State          State     `json:"state"`
	Confidence     int       `json:"confidence"`
	Citation       Citation  `json:"citation"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	VersionHistory []Version `json:"versionHistory"`
}

// CurrentVersion returns the highest version number, or 0 for an item without history.
func (i *Item) CurrentVersion() int {
	max := 0
	for _, v := range i.VersionHistory {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max
}

// AppendVersion records a mutation with the next version number.
func (i *Item) AppendVersion(changeType ChangeType, reasoning string, at time.Time) Version {
	v := Version{
		VersionNumber: i.CurrentVersion() + 1,
		ChangeType:    changeType,
		State:         i.State,
		Text:          i.Text,
		Reasoning:     reasoning,
		Timestamp:     at,
	}
	i.VersionHistory = append(i.VersionHistory, v)
	i.UpdatedAt = at
	return v
}

// TransitionTo moves the item to target, enforcing the state machine.
func (i *Item) TransitionTo(target State) error {
	if !i.State.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.State, target)
	}
	i.State = target
	return nil
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	c := i
	c.VersionHistory = append([]Version(nil), i.VersionHistory...)
	return c
}

// Project is the root aggregate owning items.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindItem returns a pointer to the item with the given id.
func (p *Project) FindItem(id string) *Item {
	for idx := range p.Items {
		if p.Items[idx].ID == id {
			return &p.Items[idx]
		}
	}
	return nil
}

// ItemsInState returns the items currently in state s.
func (p *Project) ItemsInState(s State) []Item {
	var out []Item
	for _, item := range p.Items {
		if item.State == s {
			out = append(out, item)
		}
	}
	return out
}

// CountByState returns how many items are in each state.
func (p *Project) CountByState() map[State]int {
	counts := map[State]int{
		StateDecided:   0,
		StateExploring: 0,
		StateParked:    0,
		StateRejected:  0,
	}
	for _, item := range p.Items {
		counts[item.State]++
	}
	return counts
}

// Fingerprint is a stable summary of item identity, version and state, optionally limited to states.
func (p *Project) Fingerprint(states ...State) string {
	include := func(State) bool { return true }
	if len(states) > 0 {
		allowed := make(map[State]bool, len(states))
		for _, s := range states {
			allowed[s] = true
		}
		include = func(s State) bool { return allowed[s] }
	}

	parts := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if !include(item.State) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%s", item.ID, item.CurrentVersion(), item.State))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = make([]Item, len(p.Items))
	for idx, item := range p.Items {
		c.Items[idx] = item.Clone()
	}
	return &c
}
