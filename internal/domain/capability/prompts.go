package capability

import "brainstorm-api/internal/domain/llm"

const sharedRules = `Only use what the user actually said. Never invent decisions the user did not state.
Every proposal must carry citation.userQuote: a verbatim fragment of the latest user message.`

const jsonTail = `
Respond with a single JSON object matching this schema and nothing else:
{{.Schema}}`

// Definitions returns the prompt definitions of the built-in capabilities.
func Definitions() map[Name]PromptDefinition {
	return map[Name]PromptDefinition{
		Conversation: {
			System: `You are a thoughtful brainstorming partner. Reflect what the user said, ask at most one
question, and keep replies short. Do not claim anything was recorded.`,
			Template: `Project items:
{{.Items}}

Recent conversation:
{{.Transcript}}

User: {{.Message}}`,
		},
		IntentClassification: {
			System: `You classify the intent of a brainstorming message.
brainstorming: new ideas. exploring: weighing options. deciding: committing to something.
modifying: changing an existing item. parking: setting something aside for later.
developing: expanding an existing idea. reviewing: summarising the conversation. general: anything else.`,
			Template: `Recent conversation:
{{.Transcript}}

Message to classify: {{.Message}}
` + jsonTail,
			Output: ClassificationPayload{},
		},
		Recording: {
			System: "You record decisions and ideas from a brainstorming conversation.\n" + sharedRules,
			Template: `Current items:
{{.Items}}

Conversation:
{{.Transcript}}

Latest user message: {{.Message}}

Propose items to create, modify or reject. Use state decided only for explicit commitments,
exploring for ideas under consideration and parked for things set aside.
Set approved to true only when the quote supports the proposal.
` + jsonTail,
			Output: ProposalsPayload{},
		},
		Verification: {
			System: "You verify proposed project changes against what the user said.\n" + sharedRules,
			Template: `Latest user message: {{.Message}}

Recent conversation:
{{.Transcript}}

Results so far:
{{.Prior}}

Approve only if every proposal is supported by a literal quote of the user.
` + jsonTail,
			Output: VerificationPayload{},
		},
		GapDetection: {
			System: `You find missing information in a project. A gap is critical when progress is blocked without it.`,
			Template: `Current items:
{{.Items}}

Latest user message: {{.Message}}
` + jsonTail,
			Output: GapPayload{},
		},
		Clarification: {
			System: `You write short clarifying questions for the user, one per critical gap.`,
			Template: `Latest user message: {{.Message}}

Conversation:
{{.Transcript}}

Results so far:
{{.Prior}}
` + jsonTail,
			Output: ClarificationPayload{},
		},
		ConsistencyCheck: {
			System: `You check proposed changes against recorded items. Mark a conflict blocking when accepting
the proposal would contradict a decided item.`,
			Template: `Current items:
{{.Items}}

Recorded history:
{{.Transcript}}

Results so far:
{{.Prior}}
` + jsonTail,
			Output: ConsistencyPayload{},
		},
		Review: {
			System: "You review a whole brainstorming conversation and propose items that were missed.\n" + sharedRules,
			Template: `Current items:
{{.Items}}

Full conversation:
{{.Transcript}}

Latest user message: {{.Message}}
` + jsonTail,
			Output: ProposalsPayload{},
		},
		Development: {
			System: `You help develop an idea further with concrete next steps.`,
			Template: `Current items:
{{.Items}}

Latest user message: {{.Message}}
` + jsonTail,
			Output: DevelopmentPayload{},
		},
	}
}

// NewDefaultRegistry registers every built-in capability backed by provider.
func NewDefaultRegistry(provider llm.Provider, maxTokens int) (*DefaultRegistry, error) {
	registry := NewRegistry()
	defs := Definitions()
	for _, name := range All() {
		c, err := NewPromptCapability(name, provider, defs[name], maxTokens)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
