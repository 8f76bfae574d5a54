package planner

import (
	"context"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/models"
)

// Mode selects which of the three planner strategies produces the plan.
type Mode string

const (
	ModeStatic Mode = "static"
	ModeModel  Mode = "model"
	ModeHybrid Mode = "hybrid"
)

// Config configures the Planner.
type Config struct {
	Mode           Mode
	Static         StaticConfig
	PlannerAdapter adapter.ModelAdapter
	ModelPool      map[string]models.ModelConfig
}

// Planner produces a CouncilPlan for a question per spec.md §4.5.
type Planner struct {
	cfg Config
}

// New builds a Planner from Config.
func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan dispatches to the configured mode. Hybrid mode runs static
// first and escalates to model mode only for complex/expert questions
// when a planner adapter is available, falling back to the static
// result on model failure (spec.md §4.5).
func (p *Planner) Plan(ctx context.Context, question string) (CouncilPlan, error) {
	switch p.cfg.Mode {
	case ModeStatic:
		return PlanStatic(question, p.cfg.Static), nil

	case ModeModel:
		return PlanModel(ctx, p.cfg.PlannerAdapter, question, p.cfg.ModelPool)

	case ModeHybrid:
		staticPlan := PlanStatic(question, p.cfg.Static)
		if (staticPlan.Complexity == ComplexityComplex || staticPlan.Complexity == ComplexityExpert) && p.cfg.PlannerAdapter != nil {
			modelPlan, err := PlanModel(ctx, p.cfg.PlannerAdapter, question, p.cfg.ModelPool)
			if err == nil {
				return modelPlan, nil
			}
			return staticPlan, nil
		}
		return staticPlan, nil

	default:
		return PlanStatic(question, p.cfg.Static), nil
	}
}
