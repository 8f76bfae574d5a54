package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/iteration"
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/voting"
)

// planSchema is the strict council-plan JSON Schema from spec.md §6.5.
// additionalProperties is false; required keys match the spec's list.
var planSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"complexity":      map[string]any{"type": "string", "enum": []string{"simple", "moderate", "complex", "expert"}},
		"domain":          map[string]any{"type": "string"},
		"reasoning":       map[string]any{"type": "boolean"},
		"councilSize":     map[string]any{"type": "integer", "minimum": 3, "maximum": 9},
		"roles":           map[string]any{"type": "array"},
		"votingMethod":    map[string]any{"type": "string"},
		"allowIterations": map[string]any{"type": "boolean"},
		"maxIterations":   map[string]any{"type": "integer"},
		"iterationStrategy": map[string]any{"type": "string"},
	},
	"required":             []string{"complexity", "domain", "reasoning", "councilSize", "roles", "votingMethod", "allowIterations"},
	"additionalProperties": false,
}

// wirePlan is the JSON shape the planner model is asked to return.
type wirePlan struct {
	Complexity        string `json:"complexity"`
	Domain            string `json:"domain"`
	Reasoning         bool   `json:"reasoning"`
	CouncilSize       int    `json:"councilSize"`
	Roles             []struct {
		Model          string  `json:"model"`
		Role           string  `json:"role"`
		Persona        string  `json:"persona"`
		Weight         float64 `json:"weight"`
		Domain         string  `json:"domain"`
		ExpertiseLevel float64 `json:"expertiseLevel"`
	} `json:"roles"`
	VotingMethod      string `json:"votingMethod"`
	AllowIterations   bool   `json:"allowIterations"`
	MaxIterations     int    `json:"maxIterations"`
	IterationStrategy string `json:"iterationStrategy"`
}

const modelPlannerPromptTemplate = `You are the meta-planner for a council of language models. Given the
question below, design a council: how many members (3-9), what role
and model each member should have, the voting method, and whether
iterative refinement should run.

Respond with JSON only, matching the council-plan schema exactly.

Question: %s`

// PlanModel implements spec.md §4.5's model mode: calls a planner
// adapter with strict json_schema output, temperature 0.3, token cap
// ~2000.
func PlanModel(ctx context.Context, plannerAdapter adapter.ModelAdapter, question string, modelPool map[string]models.ModelConfig) (CouncilPlan, error) {
	if plannerAdapter == nil {
		return CouncilPlan{}, &Error{Kind: KindNoModelAvailable, Message: "no planner adapter configured"}
	}

	temperature := 0.3
	resp, err := plannerAdapter.Complete(ctx, []models.Message{
		{Role: models.MessageRoleUser, Content: fmt.Sprintf(modelPlannerPromptTemplate, question)},
	}, adapter.CompletionOptions{
		MaxTokens:   2000,
		Temperature: &temperature,
		ResponseFormat: adapter.ResponseFormat{
			Kind:   adapter.ResponseFormatJSONSchema,
			Name:   "council-plan",
			Strict: true,
			Schema: planSchema,
		},
	})
	if err != nil {
		return CouncilPlan{}, &Error{Kind: KindNoModelAvailable, Message: "planner model call failed", Cause: err}
	}

	var wire wirePlan
	if jsonErr := json.Unmarshal([]byte(resp.Content), &wire); jsonErr != nil {
		return CouncilPlan{}, &Error{Kind: KindSchemaViolation, Message: "planner response was not valid JSON", Cause: jsonErr}
	}

	plan := CouncilPlan{
		Complexity:        Complexity(wire.Complexity),
		Domain:            models.Domain(wire.Domain),
		Reasoning:         wire.Reasoning,
		CouncilSize:       wire.CouncilSize,
		VotingMethod:      voting.Method(wire.VotingMethod),
		AllowIterations:   wire.AllowIterations,
		MaxIterations:     wire.MaxIterations,
		IterationStrategy: iteration.Strategy(wire.IterationStrategy),
	}
	for _, r := range wire.Roles {
		plan.Members = append(plan.Members, PlanMember{
			Model:          modelPool[r.Model],
			Role:           models.Role(r.Role),
			Persona:        r.Persona,
			Weight:         r.Weight,
			Domain:         models.Domain(r.Domain),
			ExpertiseLevel: r.ExpertiseLevel,
		})
	}

	return clampPlan(dropUnknownModels(plan, modelPool, nil)), nil
}
