// Package intent classifies a user message into the workflow it should trigger.
package intent

import "strings"

// Type is a workflow intent label.
type Type string

const (
	Brainstorming Type = "brainstorming"
	Exploring     Type = "exploring"
	Deciding      Type = "deciding"
	Modifying     Type = "modifying"
	Parking       Type = "parking"
	Developing    Type = "developing"
	Reviewing     Type = "reviewing"
	General       Type = "general"
)

// Types lists every intent label.
func Types() []Type {
	return []Type{Brainstorming, Exploring, Deciding, Modifying, Parking, Developing, Reviewing, General}
}

// ParseType maps a label to a Type. Unknown labels are reported with ok=false.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if known == t {
			return t, true
		}
	}
	return General, false
}

// Source records how a classification was reached.
type Source string

const (
	SourceCommand     Source = "command"
	SourceAffirmative Source = "affirmative"
	SourceModel       Source = "model"
	SourceFallback    Source = "fallback"
)

// Band is a confidence band.
type Band string

const (
	BandHigh    Band = "high"
	BandMedium  Band = "medium"
	BandLow     Band = "low"
	BandDefault Band = "default"
)

// BandFor returns the band of a 0-100 confidence.
func BandFor(confidence int) Band {
	switch {
	case confidence >= 90:
		return BandHigh
	case confidence >= 70:
		return BandMedium
	case confidence >= 50:
		return BandLow
	default:
		return BandDefault
	}
}

// Classification is the ephemeral outcome of classifying one message.
type Classification struct {
	Type       Type   `json:"type"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`
	Source     Source `json:"source"`
}

// Band returns the confidence band.
func (c Classification) Band() Band {
	return BandFor(c.Confidence)
}

// WorkflowType is the intent whose workflow should run: classifications in the default band run the
// general workflow.
func (c Classification) WorkflowType() Type {
	if c.Band() == BandDefault {
		return General
	}
	return c.Type
}

// ShortCircuited reports whether the classification was decided without the model.
func (c Classification) ShortCircuited() bool {
	return c.Source == SourceCommand || c.Source == SourceAffirmative
}
