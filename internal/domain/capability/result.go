package capability

import (
	"encoding/json"
	"fmt"
	"time"

	domainerrors "brainstorm-api/internal/domain/errors"
)

// Result is the outcome of one capability invocation.
type Result struct {
	Capability  Name                    `json:"capability"`
	Approved    *bool                   `json:"approved,omitempty"`
	Confidence  *int                    `json:"confidence,omitempty"`
	Message     string                  `json:"message,omitempty"`
	Payload     Payload                 `json:"-"`
	SideEffects []string                `json:"sideEffects,omitempty"`
	Error       *domainerrors.StepError `json:"error,omitempty"`
	FromCache   bool                    `json:"fromCache"`
	Degraded    bool                    `json:"degraded,omitempty"`
	Duration    time.Duration           `json:"-"`
}

// ErrorResult builds an error-tagged result.
func ErrorResult(name Name, err *domainerrors.StepError) Result {
	return Result{Capability: name, Error: err, Message: err.Message}
}

// Failed reports whether the result carries an error marker.
func (r Result) Failed() bool {
	return r.Error != nil
}

// Proposals returns the item proposals carried by recording or review results.
func (r Result) Proposals() []Proposal {
	if p, ok := r.Payload.(ProposalsPayload); ok {
		return p.Proposals
	}
	return nil
}

// Verification returns the verification payload, if any.
func (r Result) Verification() (VerificationPayload, bool) {
	p, ok := r.Payload.(VerificationPayload)
	return p, ok
}

// Gaps returns the gap payload, if any.
func (r Result) Gaps() (GapPayload, bool) {
	p, ok := r.Payload.(GapPayload)
	return p, ok
}

// Consistency returns the consistency payload, if any.
func (r Result) Consistency() (ConsistencyPayload, bool) {
	p, ok := r.Payload.(ConsistencyPayload)
	return p, ok
}

// Classification returns the classification payload, if any.
func (r Result) Classification() (ClassificationPayload, bool) {
	p, ok := r.Payload.(ClassificationPayload)
	return p, ok
}

// Reply returns the conversational reply text.
func (r Result) Reply() string {
	if p, ok := r.Payload.(ConversationPayload); ok {
		return p.Reply
	}
	return r.Message
}

type resultJSON struct {
	resultAlias
	Payload    json.RawMessage `json:"payload,omitempty"`
	DurationMS int64           `json:"durationMs,omitempty"`
}

type resultAlias Result

// MarshalJSON encodes the payload alongside the capability tag.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{resultAlias: resultAlias(r), DurationMS: r.Duration.Milliseconds()}
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", r.Capability, err)
		}
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload using the capability tag as discriminator.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result(in.resultAlias)
	r.Duration = time.Duration(in.DurationMS) * time.Millisecond
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	payload, err := decodePayload(r.Capability, in.Payload)
	if err != nil {
		return err
	}
	r.Payload = payload
	return nil
}

func decodePayload(name Name, raw []byte) (Payload, error) {
	target := newPayload(name)
	if target == nil {
		return nil, fmt.Errorf("unknown capability payload: %s", name)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return derefPayload(target), nil
}

func derefPayload(p Payload) Payload {
	switch v := p.(type) {
	case *ConversationPayload:
		return *v
	case *ClassificationPayload:
		return *v
	case *ProposalsPayload:
		return *v
	case *VerificationPayload:
		return *v
	case *GapPayload:
		return *v
	case *ClarificationPayload:
		return *v
	case *ConsistencyPayload:
		return *v
	case *DevelopmentPayload:
		return *v
	default:
		return p
	}
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
