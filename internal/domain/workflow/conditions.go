package workflow

import "brainstorm-api/internal/domain/capability"

// ConditionName names a precondition predicate.
type ConditionName string

const (
	HasCriticalGaps ConditionName = "has_critical_gaps"
	HasProposals    ConditionName = "has_proposals"
	Approved        ConditionName = "approved"
)

var conditions = map[ConditionName]func(capability.Result) bool{
	HasCriticalGaps: func(r capability.Result) bool {
		gaps, ok := r.Gaps()
		return ok && gaps.HasCritical
	},
	HasProposals: func(r capability.Result) bool {
		return len(r.Proposals()) > 0
	},
	Approved: func(r capability.Result) bool {
		return r.Approved != nil && *r.Approved
	},
}

// Satisfied evaluates pc against earlier results. A missing, skipped or error-tagged result never
// satisfies a precondition.
func Satisfied(pc *Precondition, prior map[capability.Name]capability.Result) bool {
	if pc == nil {
		return true
	}
	res, ok := prior[pc.Step]
	if !ok || res.Failed() {
		return false
	}
	check, ok := conditions[pc.Condition]
	if !ok {
		return false
	}
	return check(res)
}
