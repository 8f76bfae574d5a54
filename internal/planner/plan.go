// Package planner implements the Meta-Planner (spec C5): turning a
// question into a CouncilPlan, in static (rule-based), model-based, or
// hybrid modes.
//
// Grounded on the teacher's agents.TemplateRegistry
// (internal/debate/agents/templates.go — a built-in table of named
// configurations, matched and instantiated on demand) generalized from
// per-agent templates to whole-council presets, and on the teacher's
// config-loader pattern of defaulting + clamping loaded values
// (Toolkit/ai_debate_loader.go).
package planner

import (
	"github.com/vasic-digital/council/internal/iteration"
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/voting"
)

// Complexity classifies how demanding a question appears to be.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityExpert   Complexity = "expert"
)

// PlanMember is one member slot in a CouncilPlan, prior to realization
// into a full models.Member.
type PlanMember struct {
	Model   models.ModelConfig
	Role    models.Role
	Persona string
	Weight  float64
	// Domain and ExpertiseLevel carry the member's specialization.
	// Zero-valued for presets that don't specialize a slot;
	// realizeMembers fills a role-based default.
	Domain         models.Domain
	ExpertiseLevel float64
}

// CouncilPlan is the planner's output (spec.md §3).
type CouncilPlan struct {
	Complexity        Complexity
	Domain            models.Domain
	Reasoning         bool
	CouncilSize       int
	Members           []PlanMember
	VotingMethod      voting.Method
	AllowIterations   bool
	MaxIterations     int
	IterationStrategy iteration.Strategy
}

// clampPlan applies the safety clamps from spec.md §4.5: size in
// [3,9], members trimmed/padded to size, and at least one synthesizer
// (the last member is relabeled if there is none). A plan that already
// has several synthesizers keeps them all.
func clampPlan(plan CouncilPlan) CouncilPlan {
	if plan.CouncilSize < 3 {
		plan.CouncilSize = 3
	}
	if plan.CouncilSize > 9 {
		plan.CouncilSize = 9
	}

	if len(plan.Members) > plan.CouncilSize {
		plan.Members = plan.Members[:plan.CouncilSize]
	}
	for len(plan.Members) < plan.CouncilSize {
		plan.Members = append(plan.Members, PlanMember{
			Role:   models.RoleOpinionGiver,
			Weight: 1.0,
		})
	}

	hasSynthesizer := false
	for _, m := range plan.Members {
		if m.Role == models.RoleSynthesizer {
			hasSynthesizer = true
			break
		}
	}
	if !hasSynthesizer && len(plan.Members) > 0 {
		last := len(plan.Members) - 1
		plan.Members[last].Role = models.RoleSynthesizer
	}

	if plan.MaxIterations < 1 {
		plan.MaxIterations = 1
	}
	if plan.MaxIterations > 5 {
		plan.MaxIterations = 5
	}

	return plan
}

// dropUnknownModels removes plan members whose model id is not in the
// known set, per spec.md §4.5 ("unknown model names dropped with
// warning"). onWarning, if non-nil, is called once per dropped member.
func dropUnknownModels(plan CouncilPlan, known map[string]models.ModelConfig, onWarning func(string)) CouncilPlan {
	if known == nil {
		return plan
	}
	kept := make([]PlanMember, 0, len(plan.Members))
	for _, m := range plan.Members {
		if _, ok := known[m.Model.ID]; ok {
			kept = append(kept, m)
			continue
		}
		if onWarning != nil {
			onWarning(m.Model.ID)
		}
	}
	plan.Members = kept
	plan.CouncilSize = len(kept)
	return plan
}
