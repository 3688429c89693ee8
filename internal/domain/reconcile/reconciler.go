// Package reconcile applies capability proposals to a project's items.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/project"
)

// Rejection reasons.
const (
	ReasonNotApproved        = "proposal not approved by capability"
	ReasonMissingCitation    = "missing citation"
	ReasonCitationNotLiteral = "citation is not a literal fragment of the user message"
	ReasonVerificationFailed = "verification failed"
	ReasonVerificationVeto   = "verification did not approve"
	ReasonBlockingConflict   = "blocking consistency conflict"
	ReasonDuplicate          = "duplicate of existing item"
	ReasonUnknownItem        = "unknown item"
	ReasonInvalidTransition  = "invalid state transition"
	ReasonInvalidState       = "invalid initial state"
	ReasonNoChange           = "proposal does not change the item"
)

// Options describes the message being reconciled.
type Options struct {
	Mode        Mode
	MessageText string
	MessageTime time.Time
}

// Rejection is a proposal that was not applied.
type Rejection struct {
	Source   capability.Name     `json:"source"`
	Proposal capability.Proposal `json:"proposal"`
	Reason   string              `json:"reason"`
}

// Outcome is the result of one reconciliation.
type Outcome struct {
	Accepted []project.Item `json:"accepted"`
	Rejected []Rejection    `json:"rejected"`
	Saved    bool           `json:"saved"`
}

// Reconciler merges proposals into project items and persists the whole items array at once.
// Concurrent reconciliations for the same project are not serialized here; the last SaveItems wins.
type Reconciler struct {
	repo       project.Repository
	similarity Similarity
	threshold  float64
	now        func() time.Time
	newID      func() string
	log        zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSimilarity replaces the duplicate detector.
func WithSimilarity(s Similarity, threshold float64) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.similarity = s
		}
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDGenerator overrides item id generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) { r.newID = fn }
}

// NewReconciler creates a reconciler writing through repo.
func NewReconciler(repo project.Repository, log zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:       repo,
		similarity: Jaccard{},
		threshold:  DefaultSimilarityThreshold,
		now:        time.Now,
		newID:      func() string { return "item_" + uuid.NewString() },
		log:        log.With().Str("component", "reconciler").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type candidate struct {
	source   capability.Name
	proposal capability.Proposal
}

// Reconcile applies the proposals in results to p. Rejections are normal outcomes; the only error
// is a failed save, in which case p is left unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, results []capability.Result, p *project.Project, opts Options) (*Outcome, error) {
	out := &Outcome{Accepted: []project.Item{}, Rejected: []Rejection{}}
	if p == nil {
		return out, nil
	}

	var candidates []candidate
	var verification *capability.Result
	var conflicts []capability.Conflict
	for i := range results {
		res := results[i]
		switch res.Capability {
		case capability.Recording, capability.Review:
			if res.Failed() {
				continue
			}
			for _, prop := range res.Proposals() {
				candidates = append(candidates, candidate{source: res.Capability, proposal: prop})
			}
		case capability.Verification:
			verification = &results[i]
		case capability.ConsistencyCheck:
			if c, ok := res.Consistency(); ok && !res.Failed() {
				conflicts = append(conflicts, c.Conflicts...)
			}
		}
	}
	if len(candidates) == 0 {
		return out, nil
	}

	if reason, vetoed := r.vetoed(verification, opts.Mode); vetoed {
		for _, c := range candidates {
			out.Rejected = append(out.Rejected, Rejection{Source: c.source, Proposal: c.proposal, Reason: reason})
		}
		r.log.Info().Str("project_id", p.ID).Int("rejected", len(out.Rejected)).Str("reason", reason).Msg("proposals vetoed")
		return out, nil
	}

	now := r.now()
	msgTime := opts.MessageTime
	if msgTime.IsZero() {
		msgTime = now
	}

	working := p.Clone()
	acceptedIDs := []string{}
	seen := map[string]bool{}

	for _, c := range candidates {
		reason := r.check(c.proposal, opts, conflicts)
		if reason == "" {
			var itemID string
			itemID, reason = r.apply(working, c.proposal, msgTime, now)
			if reason == "" {
				if !seen[itemID] {
					seen[itemID] = true
					acceptedIDs = append(acceptedIDs, itemID)
				}
				continue
			}
		}
		out.Rejected = append(out.Rejected, Rejection{Source: c.source, Proposal: c.proposal, Reason: reason})
	}

	if len(acceptedIDs) == 0 {
		r.log.Info().Str("project_id", p.ID).Int("rejected", len(out.Rejected)).Msg("no proposals accepted")
		return out, nil
	}

	if err := r.repo.SaveItems(ctx, p.ID, working.Items); err != nil {
		return out, fmt.Errorf("save project items: %w", err)
	}

	p.Items = working.Items
	p.UpdatedAt = now
	for _, id := range acceptedIDs {
		if item := p.FindItem(id); item != nil {
			out.Accepted = append(out.Accepted, item.Clone())
		}
	}
	out.Saved = true

	r.log.Info().
		Str("project_id", p.ID).
		Str("mode", string(opts.Mode)).
		Int("accepted", len(out.Accepted)).
		Int("rejected", len(out.Rejected)).
		Msg("reconciled proposals")
	return out, nil
}

// vetoed applies the verification rules: an error-tagged verification rejects everything in strict
// mode, and an explicit disapproval rejects everything in any mode.
func (r *Reconciler) vetoed(verification *capability.Result, mode Mode) (string, bool) {
	if verification == nil {
		return "", false
	}
	if verification.Failed() {
		if mode == ModeStrict {
			return ReasonVerificationFailed, true
		}
		return "", false
	}
	if verification.Approved != nil && !*verification.Approved {
		reason := ReasonVerificationVeto
		if v, ok := verification.Verification(); ok && len(v.Issues) > 0 {
			reason = reason + ": " + strings.Join(v.Issues, "; ")
		}
		return reason, true
	}
	return "", false
}

// check applies the acceptance rules that do not depend on current item state.
func (r *Reconciler) check(prop capability.Proposal, opts Options, conflicts []capability.Conflict) string {
	if !prop.Approved {
		return ReasonNotApproved
	}
	quote := strings.TrimSpace(prop.Citation.UserQuote)
	if quote == "" {
		return ReasonMissingCitation
	}
	if opts.Mode == ModeStrict {
		if !quoteInMessage(quote, opts.MessageText) {
			return ReasonCitationNotLiteral
		}
		for _, conflict := range conflicts {
			if conflict.Blocking && r.conflictMatches(conflict, prop) {
				return ReasonBlockingConflict + ": " + conflict.Description
			}
		}
	}
	return ""
}

func (r *Reconciler) conflictMatches(c capability.Conflict, prop capability.Proposal) bool {
	if c.ItemID != "" && prop.ItemID != "" && c.ItemID == prop.ItemID {
		return true
	}
	if c.Text == "" {
		return false
	}
	return normalize(c.Text) == normalize(prop.Text) || r.similarity.Score(c.Text, prop.Text) >= r.threshold
}

// apply mutates working for one proposal and returns the affected item id, or a rejection reason.
func (r *Reconciler) apply(working *project.Project, prop capability.Proposal, msgTime, now time.Time) (string, string) {
	citation := project.Citation{UserQuote: strings.TrimSpace(prop.Citation.UserQuote), Timestamp: prop.Citation.Timestamp}
	if citation.Timestamp.IsZero() {
		citation.Timestamp = msgTime
	}

	switch prop.ChangeType {
	case capability.ProposalReject:
		item := working.FindItem(prop.ItemID)
		if item == nil {
			return "", ReasonUnknownItem
		}
		if err := item.TransitionTo(project.StateRejected); err != nil {
			return "", ReasonInvalidTransition + ": " + err.Error()
		}
		item.Citation = citation
		item.AppendVersion(project.ChangeRejected, prop.Reasoning, now)
		return item.ID, ""

	case capability.ProposalModify:
		item := working.FindItem(prop.ItemID)
		if item == nil {
			return "", ReasonUnknownItem
		}
		return r.modify(item, prop, citation, now)

	default:
		return r.create(working, prop, citation, now)
	}
}

func (r *Reconciler) modify(item *project.Item, prop capability.Proposal, citation project.Citation, now time.Time) (string, string) {
	if item.State == project.StateRejected {
		return "", ReasonInvalidTransition + ": item is rejected"
	}

	changeType := project.ChangeModified
	changed := false
	if prop.State != "" && prop.State != item.State {
		if err := item.TransitionTo(prop.State); err != nil {
			return "", ReasonInvalidTransition + ": " + err.Error()
		}
		changeType = project.ChangeTransitioned
		if prop.State == project.StateRejected {
			changeType = project.ChangeRejected
		}
		changed = true
	}
	if text := strings.TrimSpace(prop.Text); text != "" && text != item.Text {
		item.Text = text
		changed = true
	}
	if prop.Confidence > 0 && prop.Confidence != item.Confidence {
		item.Confidence = prop.Confidence
		changed = true
	}
	if !changed {
		return "", ReasonNoChange
	}

	item.Citation = citation
	item.AppendVersion(changeType, prop.Reasoning, now)
	return item.ID, ""
}

func (r *Reconciler) create(working *project.Project, prop capability.Proposal, citation project.Citation, now time.Time) (string, string) {
	state := prop.State
	if state == "" {
		state = project.StateExploring
	}
	if !state.IsInitial() {
		return "", ReasonInvalidState + ": " + string(state)
	}

	if existing := r.findSimilar(working, prop.Text); existing != nil {
		if existing.State == state {
			return "", ReasonDuplicate + " " + existing.ID
		}
		if err := existing.TransitionTo(state); err != nil {
			return "", ReasonInvalidTransition + ": " + err.Error()
		}
		existing.Citation = citation
		if prop.Confidence > 0 {
			existing.Confidence = prop.Confidence
		}
		existing.AppendVersion(project.ChangeTransitioned, prop.Reasoning, now)
		return existing.ID, ""
	}

	item := project.Item{
		ID:         r.newID(),
		Text:       prop.Text,
		State:      state,
		Confidence: prop.Confidence,
		Citation:   citation,
		CreatedAt:  now,
	}
	item.AppendVersion(project.ChangeCreated, prop.Reasoning, now)
	working.Items = append(working.Items, item)
	return item.ID, ""
}

// findSimilar returns the most similar non-rejected item at or above the threshold.
func (r *Reconciler) findSimilar(p *project.Project, text string) *project.Item {
	var best *project.Item
	bestScore := 0.0
	for i := range p.Items {
		item := &p.Items[i]
		if item.State == project.StateRejected {
			continue
		}
		score := r.similarity.Score(item.Text, text)
		if score >= r.threshold && score > bestScore {
			best, bestScore = item, score
		}
	}
	return best
}
