package capability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseable is returned when model output contains no usable JSON object.
var ErrUnparseable = errors.New("unparseable capability output")

// ExtractJSON returns the JSON object embedded in raw model output. Code fences and any prose
// around the outermost braces are ignored.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrUnparseable
	}
	return text[start : end+1], nil
}

// Parse converts raw model output into a Result for the named capability. It never fails: output
// that cannot be parsed yields a degraded result with low confidence and no proposals, and the
// parse error is returned alongside for logging.
func Parse(name Name, raw string) (Result, error) {
	if name == Conversation {
		reply := strings.TrimSpace(raw)
		if reply == "" {
			return degraded(name), ErrUnparseable
		}
		return Result{Capability: name, Message: reply, Payload: ConversationPayload{Reply: reply}}, nil
	}

	body, err := ExtractJSON(raw)
	if err != nil {
		return degraded(name), err
	}
	payload, err := decodePayload(name, []byte(body))
	if err != nil {
		return degraded(name), fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return normalize(name, payload), nil
}

// normalize clamps values and fills the common result fields from the payload.
func normalize(name Name, payload Payload) Result {
	res := Result{Capability: name}

	switch p := payload.(type) {
	case ClassificationPayload:
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		p.Confidence = clamp(p.Confidence)
		res.Confidence = intPtr(p.Confidence)
		res.Message = p.Reasoning
		payload = p
	case ProposalsPayload:
		kept := p.Proposals[:0]
		for _, prop := range p.Proposals {
			prop.Text = strings.TrimSpace(prop.Text)
			if prop.Text == "" && prop.ChangeType != ProposalReject {
				continue
			}
			if prop.ChangeType == "" {
				prop.ChangeType = ProposalCreate
			}
			prop.Confidence = clamp(prop.Confidence)
			kept = append(kept, prop)
		}
		p.Proposals = kept
		res.Message = fmt.Sprintf("%d proposal(s)", len(kept))
		payload = p
	case VerificationPayload:
		p.Confidence = clamp(p.Confidence)
		res.Approved = boolPtr(p.Approved)
		res.Confidence = intPtr(p.Confidence)
		res.Message = strings.Join(p.Issues, "; ")
		payload = p
	case GapPayload:
		hasCritical := false
		for _, g := range p.Gaps {
			if g.Severity == GapCritical {
				hasCritical = true
			}
		}
		p.HasCritical = p.HasCritical || hasCritical
		res.Message = fmt.Sprintf("%d gap(s)", len(p.Gaps))
		payload = p
	case ConsistencyPayload:
		if len(p.Conflicts) > 0 {
			p.Consistent = false
		}
		res.Approved = boolPtr(p.Consistent)
		res.Message = fmt.Sprintf("%d conflict(s)", len(p.Conflicts))
		payload = p
	case ClarificationPayload:
		res.Message = strings.Join(p.Questions, "\n")
	case DevelopmentPayload:
		res.Message = fmt.Sprintf("%d suggestion(s)", len(p.Suggestions))
	}

	res.Payload = payload
	return res
}

// degraded is the fail-closed result: no proposals, no approval, zero confidence.
func degraded(name Name) Result {
	res := Result{
		Capability: name,
		Confidence: intPtr(0),
		Message:    "output could not be parsed",
		Degraded:   true,
	}
	switch name {
	case Recording, Review:
		res.Payload = ProposalsPayload{}
	case Verification:
		res.Approved = boolPtr(false)
		res.Payload = VerificationPayload{Approved: false}
	case GapDetection:
		res.Payload = GapPayload{}
	case ConsistencyCheck:
		res.Payload = ConsistencyPayload{Consistent: true}
	case Clarification:
		res.Payload = ClarificationPayload{}
	case Development:
		res.Payload = DevelopmentPayload{}
	}
	return res
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// marshalPayload is used by prompts to show prior results to the model.
func marshalPayload(p Payload) string {
	if p == nil {
		return "{}"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
