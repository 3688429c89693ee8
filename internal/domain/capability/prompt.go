package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/invopop/jsonschema"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/llm"
	"brainstorm-api/internal/domain/project"
)

// PromptDefinition describes how a capability talks to the model.
type PromptDefinition struct {
	System   string
	Template string
	// Output is a zero value of the payload type the model must return. Nil means plain text.
	Output Payload
}

// PromptCapability renders a template, calls the LLM provider and parses the answer.
type PromptCapability struct {
	name      Name
	provider  llm.Provider
	system    string
	tmpl      *template.Template
	schema    string
	maxTokens int
}

// NewPromptCapability compiles the definition for name.
func NewPromptCapability(name Name, provider llm.Provider, def PromptDefinition, maxTokens int) (*PromptCapability, error) {
	tmpl, err := template.New(string(name)).Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(def.Template)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}

	schema := ""
	if def.Output != nil {
		schema, err = outputSchema(def.Output)
		if err != nil {
			return nil, fmt.Errorf("reflect %s output schema: %w", name, err)
		}
	}

	return &PromptCapability{
		name:      name,
		provider:  provider,
		system:    def.System,
		tmpl:      tmpl,
		schema:    schema,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the capability name.
func (c *PromptCapability) Name() Name { return c.name }

// Invoke renders the prompt, calls the model and parses its output.
func (c *PromptCapability) Invoke(ctx context.Context, in Input) (Result, error) {
	prompt, err := c.render(in)
	if err != nil {
		return Result{}, err
	}

	raw, err := c.provider.Complete(ctx, llm.CompletionRequest{
		TemplateID: string(c.name),
		System:     c.system,
		Messages:   []llm.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:  c.maxTokens,
	})
	if err != nil {
		return Result{}, err
	}

	// Parse never fails closed into an error; a degraded result is still a result.
	res, _ := Parse(c.name, raw)
	return res, nil
}

type promptData struct {
	Message    string
	Transcript string
	Items      string
	Prior      string
	Schema     string
}

func (c *PromptCapability) render(in Input) (string, error) {
	data := promptData{
		Message:    in.Message,
		Transcript: Transcript(in.History),
		Items:      itemsSummary(in.Project),
		Prior:      priorSummary(in.Prior),
		Schema:     c.schema,
	}
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", c.name, err)
	}
	return buf.String(), nil
}

// Transcript renders history as "role: content" lines.
func Transcript(history []conversation.Message) string {
	var b strings.Builder
	for _, m := range history {
		role := string(m.Role)
		if m.AgentLabel != "" {
			role = role + "/" + m.AgentLabel
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func itemsSummary(p *project.Project) string {
	if p == nil || len(p.Items) == 0 {
		return "(no items yet)"
	}
	var b strings.Builder
	for _, item := range p.Items {
		if item.State == project.StateRejected {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s (id=%s, confidence=%d)\n", item.State, item.Text, item.ID, item.Confidence)
	}
	if b.Len() == 0 {
		return "(no active items)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorSummary(prior map[Name]Result) string {
	if len(prior) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(prior))
	for name := range prior {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		res := prior[Name(name)]
		if res.Failed() {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", name, marshalPayload(res.Payload))
	}
	return strings.TrimRight(b.String(), "\n")
}

func outputSchema(v Payload) (string, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(v)
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
