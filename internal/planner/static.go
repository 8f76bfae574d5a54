package planner

import (
	"regexp"

	"github.com/vasic-digital/council/internal/iteration"
	"github.com/vasic-digital/council/internal/models"
)

// Rule is one entry of the static planner's ordered rule list
// (spec.md §4.5): first match wins.
type Rule struct {
	Pattern         *regexp.Regexp
	Preset          PresetName
	Complexity      Complexity
	AllowIterations bool
	Domain          models.Domain
}

// LengthLadder configures the fallback thresholds used when no Rule
// matches (spec.md §4.5).
type LengthLadder struct {
	ShortThreshold  int
	MediumThreshold int
	LongThreshold   int
}

// DefaultLengthLadder mirrors the spec's worked example thresholds.
func DefaultLengthLadder() LengthLadder {
	return LengthLadder{ShortThreshold: 60, MediumThreshold: 160, LongThreshold: 400}
}

// DefaultRules is a small, representative ordered rule list. Callers
// may supply their own via StaticConfig.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: regexp.MustCompile(`(?i)^(what is|define)`), Preset: PresetSmall, Complexity: ComplexitySimple, AllowIterations: false, Domain: models.DomainGeneral},
		{Pattern: regexp.MustCompile(`(?i)(prove|derive|theorem|step by step)`), Preset: PresetReasoning, Complexity: ComplexityComplex, AllowIterations: true, Domain: models.DomainReasoning},
		{Pattern: regexp.MustCompile(`(?i)(architecture|design a system|scal(e|ing|ability))`), Preset: PresetDiverse, Complexity: ComplexityExpert, AllowIterations: true, Domain: models.DomainArchitecture},
	}
}

// StaticConfig parameterizes the static planner.
type StaticConfig struct {
	Rules            []Rule
	Ladder           LengthLadder
	GeneralModelID   string
	ReasoningModelID string
	ModelPool        map[string]models.ModelConfig
}

// PlanStatic implements spec.md §4.5's static mode: match question
// against the ordered rule list, falling back to the length ladder.
func PlanStatic(question string, cfg StaticConfig) CouncilPlan {
	presets := Presets(cfg.GeneralModelID, cfg.ReasoningModelID, cfg.ModelPool)

	for _, rule := range cfg.Rules {
		if rule.Pattern.MatchString(question) {
			return fromPreset(presets[rule.Preset], rule.Complexity, rule.AllowIterations, rule.Domain)
		}
	}

	n := len(question)
	switch {
	case n < cfg.Ladder.ShortThreshold:
		return fromPreset(presets[PresetSmall], ComplexitySimple, false, models.DomainGeneral)
	case n < cfg.Ladder.MediumThreshold:
		return fromPreset(presets[PresetStandard], ComplexityModerate, false, models.DomainGeneral)
	case n < cfg.Ladder.LongThreshold:
		return fromPreset(presets[PresetStandard], ComplexityComplex, true, models.DomainGeneral)
	default:
		return fromPreset(presets[PresetDiverse], ComplexityExpert, true, models.DomainArchitecture)
	}
}

func fromPreset(preset Preset, complexity Complexity, allowIterations bool, domain models.Domain) CouncilPlan {
	members := make([]PlanMember, len(preset.Members))
	copy(members, preset.Members)

	if domain == "" {
		domain = models.DomainGeneral
	}
	plan := CouncilPlan{
		Complexity:        complexity,
		Domain:            domain,
		CouncilSize:       preset.Size,
		Members:           members,
		VotingMethod:      preset.VotingMethod,
		AllowIterations:   allowIterations,
		MaxIterations:     1,
		IterationStrategy: iteration.StrategyRefine,
	}
	if allowIterations {
		plan.MaxIterations = 3
	}
	return clampPlan(plan)
}
