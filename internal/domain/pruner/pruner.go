// Package pruner selects the slice of conversation history each capability sees.
package pruner

import (
	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/llm"
	"brainstorm-api/internal/domain/project"
)

// Selector picks the messages a rule keeps, before the token budget is applied.
type Selector func(history []conversation.Message, p *project.Project) []conversation.Message

// Rule is the static pruning rule of one capability.
type Rule struct {
	Select      Selector
	TokenBudget int
}

// DefaultRule applies to capabilities without their own rule.
var DefaultRule = Rule{Select: LastN(20), TokenBudget: 8000}

// Rules is the per-capability rule table.
var Rules = map[capability.Name]Rule{
	capability.Conversation:         {Select: LastN(10), TokenBudget: 4000},
	capability.IntentClassification: {Select: LastN(5), TokenBudget: 2000},
	capability.Verification:         {Select: LastN(5), TokenBudget: 2000},
	capability.Clarification:        {Select: LastN(5), TokenBudget: 2000},
	capability.Recording:            {Select: LastN(10), TokenBudget: 4000},
	capability.ConsistencyCheck:     {Select: ItemRecorded(), TokenBudget: 6000},
	capability.Review:               {Select: All(), TokenBudget: 32000},
}

// RuleFor returns the rule for name, or DefaultRule.
func RuleFor(name capability.Name) Rule {
	if r, ok := Rules[name]; ok {
		return r
	}
	return DefaultRule
}

// Prune returns the history slice for name. It is pure: the input is not modified and identical
// inputs always produce identical output.
func Prune(name capability.Name, history []conversation.Message, p *project.Project) []conversation.Message {
	rule := RuleFor(name)
	selected := rule.Select(history, p)
	return fitBudget(selected, rule.TokenBudget)
}

// LastN keeps the n most recent messages.
func LastN(n int) Selector {
	return func(history []conversation.Message, _ *project.Project) []conversation.Message {
		start := len(history) - n
		if start < 0 {
			start = 0
		}
		return clone(history[start:])
	}
}

// ItemRecorded keeps messages flagged with metadata.itemRecorded=true.
func ItemRecorded() Selector {
	return func(history []conversation.Message, _ *project.Project) []conversation.Message {
		out := make([]conversation.Message, 0)
		for _, m := range history {
			if m.ItemRecorded() {
				out = append(out, m)
			}
		}
		return out
	}
}

// All keeps every message.
func All() Selector {
	return func(history []conversation.Message, _ *project.Project) []conversation.Message {
		return clone(history)
	}
}

// fitBudget drops the oldest messages until the estimate fits. The newest message is always kept.
func fitBudget(messages []conversation.Message, budget int) []conversation.Message {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}
	total := 0
	for _, m := range messages {
		total += llm.EstimateMessageTokens(m.Content)
	}
	start := 0
	for total > budget && start < len(messages)-1 {
		total -= llm.EstimateMessageTokens(messages[start].Content)
		start++
	}
	return messages[start:]
}

func clone(in []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, len(in))
	copy(out, in)
	return out
}
