package planner

import (
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/voting"
)

// PresetName identifies one of the four fixed static-mode presets
// (spec.md §4.5).
type PresetName string

const (
	PresetSmall    PresetName = "small"
	PresetStandard PresetName = "standard"
	PresetReasoning PresetName = "reasoning"
	PresetDiverse  PresetName = "diverse"
)

// Preset is a fixed table of {size, members, votingMethod}.
type Preset struct {
	Size         int
	Members      []PlanMember
	VotingMethod voting.Method
}

// Presets returns the four built-in presets, parameterized by the
// pool of model configs the caller has credentials for (keyed by
// ModelConfig.ID). Members whose role calls for a reasoning model use
// reasoningModelID when non-empty; all other slots use generalModelID.
func Presets(generalModelID, reasoningModelID string, pool map[string]models.ModelConfig) map[PresetName]Preset {
	general := pool[generalModelID]
	reasoning := pool[reasoningModelID]
	if reasoning.ID == "" {
		reasoning = general
	}

	return map[PresetName]Preset{
		PresetSmall: {
			Size: 3,
			Members: []PlanMember{
				{Model: general, Role: models.RoleOpinionGiver, Weight: 1.0},
				{Model: general, Role: models.RoleReviewer, Weight: 1.0},
				{Model: general, Role: models.RoleSynthesizer, Weight: 1.0},
			},
			VotingMethod: voting.MethodMajority,
		},
		PresetStandard: {
			Size: 5,
			Members: []PlanMember{
				{Model: general, Role: models.RoleOpinionGiver, Weight: 1.0},
				{Model: general, Role: models.RoleOpinionGiver, Weight: 1.0},
				{Model: general, Role: models.RoleReviewer, Weight: 1.2},
				{Model: general, Role: models.RoleCritic, Weight: 1.0},
				{Model: general, Role: models.RoleSynthesizer, Weight: 1.0},
			},
			VotingMethod: voting.MethodWeighted,
		},
		PresetReasoning: {
			Size: 5,
			Members: []PlanMember{
				{Model: reasoning, Role: models.RoleOpinionGiver, Weight: 1.2},
				{Model: reasoning, Role: models.RoleDomainExpert, Weight: 1.2, Domain: models.DomainReasoning, ExpertiseLevel: 0.85},
				{Model: general, Role: models.RoleSkeptic, Weight: 1.0},
				{Model: general, Role: models.RoleReviewer, Weight: 1.0},
				{Model: reasoning, Role: models.RoleSynthesizer, Weight: 1.0},
			},
			VotingMethod: voting.MethodConfidence,
		},
		PresetDiverse: {
			Size: 7,
			Members: []PlanMember{
				{Model: general, Role: models.RoleOpinionGiver, Weight: 1.0},
				{Model: general, Role: models.RoleCreative, Weight: 1.0},
				{Model: general, Role: models.RoleDomainExpert, Weight: 1.2, Domain: models.DomainArchitecture, ExpertiseLevel: 0.8},
				{Model: general, Role: models.RoleDevilsAdvocate, Weight: 1.0},
				{Model: general, Role: models.RoleFactChecker, Weight: 1.0},
				{Model: general, Role: models.RoleReviewer, Weight: 1.0},
				{Model: general, Role: models.RoleSynthesizer, Weight: 1.0},
			},
			VotingMethod: voting.MethodRankedChoice,
		},
	}
}
