package capability

// Name identifies a prompt-backed capability.
type Name string

const (
	Conversation         Name = "conversation"
	IntentClassification Name = "intent_classification"
	Recording            Name = "recording"
	Verification         Name = "verification"
	GapDetection         Name = "gap_detection"
	Clarification        Name = "clarification"
	ConsistencyCheck     Name = "consistency_check"
	Review               Name = "review"
	Development          Name = "development"
)

// All returns every built-in capability in a stable order.
func All() []Name {
	return []Name{
		Conversation,
		IntentClassification,
		Recording,
		Verification,
		GapDetection,
		Clarification,
		ConsistencyCheck,
		Review,
		Development,
	}
}

// IsBuiltin reports whether n is one of the built-in capabilities.
func (n Name) IsBuiltin() bool {
	for _, b := range All() {
		if b == n {
			return true
		}
	}
	return false
}

func (n Name) String() string { return string(n) }
