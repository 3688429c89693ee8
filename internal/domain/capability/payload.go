package capability

import "brainstorm-api/internal/domain/project"

// Payload is the capability-specific part of a Result. The concrete type is determined by the
// capability that produced it.
type Payload interface {
	payloadKind() Name
}

// ConversationPayload is the user-facing reply.
type ConversationPayload struct {
	Reply string `json:"reply"`
}

// ClassificationPayload is the model's intent classification.
type ClassificationPayload struct {
	Type       string `json:"type" jsonschema:"required,enum=brainstorming,enum=exploring,enum=deciding,enum=modifying,enum=parking,enum=developing,enum=reviewing,enum=general"`
	Confidence int    `json:"confidence" jsonschema:"required,minimum=0,maximum=100"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// ProposalChange is the kind of item mutation a proposal asks for.
type ProposalChange string

const (
	ProposalCreate ProposalChange = "create"
	ProposalModify ProposalChange = "modify"
	ProposalReject ProposalChange = "reject"
)

// Proposal is a suggested change to the project's items.
type Proposal struct {
	ItemID     string           `json:"itemId,omitempty" jsonschema:"description=id of the existing item for modify or reject"`
	ChangeType ProposalChange   `json:"changeType" jsonschema:"required,enum=create,enum=modify,enum=reject"`
	Text       string           `json:"text" jsonschema:"required"`
	State      project.State    `json:"state,omitempty" jsonschema:"enum=decided,enum=exploring,enum=parked,enum=rejected"`
	Confidence int              `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	Citation   project.Citation `json:"citation"`
	Approved   bool             `json:"approved"`
	Reasoning  string           `json:"reasoning,omitempty"`
}

// ProposalsPayload carries item proposals from recording or review.
type ProposalsPayload struct {
	Proposals []Proposal `json:"proposals"`
}

// VerificationPayload approves or vetoes the proposals of the current run.
type VerificationPayload struct {
	Approved   bool     `json:"approved" jsonschema:"required"`
	Confidence int      `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	Issues     []string `json:"issues,omitempty"`
}

// GapSeverity grades a detected gap.
type GapSeverity string

const (
	GapCritical GapSeverity = "critical"
	GapModerate GapSeverity = "moderate"
	GapMinor    GapSeverity = "minor"
)

// Gap is missing information in the project.
type Gap struct {
	Description string      `json:"description" jsonschema:"required"`
	Severity    GapSeverity `json:"severity" jsonschema:"required,enum=critical,enum=moderate,enum=minor"`
	Question    string      `json:"question,omitempty"`
}

// GapPayload lists gaps found in the project.
type GapPayload struct {
	Gaps        []Gap `json:"gaps"`
	HasCritical bool  `json:"hasCritical"`
}

// ClarificationPayload holds follow-up questions for the user.
type ClarificationPayload struct {
	Questions []string `json:"questions"`
}

// Conflict is an inconsistency between a proposal and existing items.
type Conflict struct {
	ItemID      string `json:"itemId,omitempty"`
	Text        string `json:"text,omitempty" jsonschema:"description=text of the conflicting proposal"`
	Description string `json:"description" jsonschema:"required"`
	Blocking    bool   `json:"blocking"`
}

// ConsistencyPayload lists conflicts found by the consistency check.
type ConsistencyPayload struct {
	Consistent bool       `json:"consistent"`
	Conflicts  []Conflict `json:"conflicts"`
}

// Suggestion is a development idea.
type Suggestion struct {
	Title       string `json:"title" jsonschema:"required"`
	Description string `json:"description"`
}

// DevelopmentPayload expands on the project.
type DevelopmentPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (ConversationPayload) payloadKind() Name   { return Conversation }
func (ClassificationPayload) payloadKind() Name { return IntentClassification }
func (ProposalsPayload) payloadKind() Name      { return Recording }
func (VerificationPayload) payloadKind() Name   { return Verification }
func (GapPayload) payloadKind() Name            { return GapDetection }
func (ClarificationPayload) payloadKind() Name  { return Clarification }
func (ConsistencyPayload) payloadKind() Name    { return ConsistencyCheck }
func (DevelopmentPayload) payloadKind() Name    { return Development }

// newPayload returns an empty payload of the type produced by name.
func newPayload(name Name) Payload {
	switch name {
	case Conversation:
		return &ConversationPayload{}
	case IntentClassification:
		return &ClassificationPayload{}
	case Recording, Review:
		return &ProposalsPayload{}
	case Verification:
		return &VerificationPayload{}
	case GapDetection:
		return &GapPayload{}
	case Clarification:
		return &ClarificationPayload{}
	case ConsistencyCheck:
		return &ConsistencyPayload{}
	case Development:
		return &DevelopmentPayload{}
	default:
		return nil
	}
}
