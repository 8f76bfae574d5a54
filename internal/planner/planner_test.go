package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/models"
)

func testPool() map[string]models.ModelConfig {
	return map[string]models.ModelConfig{
		"general-1":   {ID: "general-1", ProviderKind: "openai-compatible"},
		"reasoning-1": {ID: "reasoning-1", ProviderKind: "azure-chat", Reasoning: true},
	}
}

// S1 — static planner, small preset, no iteration.
func TestPlanStatic_SmallPreset(t *testing.T) {
	cfg := StaticConfig{
		Rules:          DefaultRules(),
		Ladder:         DefaultLengthLadder(),
		GeneralModelID: "general-1",
		ModelPool:      testPool(),
	}
	plan := PlanStatic("Define entropy in one sentence.", cfg)

	assert.Equal(t, 3, plan.CouncilSize)
	assert.False(t, plan.AllowIterations)
	roles := make([]models.Role, len(plan.Members))
	for i, m := range plan.Members {
		roles[i] = m.Role
	}
	assert.Equal(t, []models.Role{models.RoleOpinionGiver, models.RoleReviewer, models.RoleSynthesizer}, roles)
}

func TestPlanStatic_LengthLadderFallback(t *testing.T) {
	cfg := StaticConfig{
		Rules:          nil,
		Ladder:         DefaultLengthLadder(),
		GeneralModelID: "general-1",
		ModelPool:      testPool(),
	}
	short := PlanStatic("short q", cfg)
	assert.Equal(t, 3, short.CouncilSize)

	long := PlanStatic(longQuestion(500), cfg)
	assert.Equal(t, 7, long.CouncilSize)
	assert.True(t, long.AllowIterations)
}

func longQuestion(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}

func TestClampPlan_EnsuresExactlyOneSynthesizer(t *testing.T) {
	plan := CouncilPlan{
		CouncilSize: 3,
		Members: []PlanMember{
			{Role: models.RoleOpinionGiver},
			{Role: models.RoleReviewer},
			{Role: models.RoleCritic},
		},
	}
	clamped := clampPlan(plan)
	count := 0
	for _, m := range clamped.Members {
		if m.Role == models.RoleSynthesizer {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestClampPlan_ClampsSizeRange(t *testing.T) {
	tooSmall := clampPlan(CouncilPlan{CouncilSize: 1})
	assert.Equal(t, 3, tooSmall.CouncilSize)

	tooBig := clampPlan(CouncilPlan{CouncilSize: 20})
	assert.Equal(t, 9, tooBig.CouncilSize)
}

func TestDropUnknownModels(t *testing.T) {
	plan := CouncilPlan{
		Members: []PlanMember{
			{Model: models.ModelConfig{ID: "general-1"}, Role: models.RoleOpinionGiver},
			{Model: models.ModelConfig{ID: "ghost-model"}, Role: models.RoleReviewer},
		},
	}
	var warned []string
	out := dropUnknownModels(plan, testPool(), func(id string) { warned = append(warned, id) })
	assert.Len(t, out.Members, 1)
	assert.Equal(t, []string{"ghost-model"}, warned)
}

type fakePlannerAdapter struct {
	content string
	err     error
}

func (f *fakePlannerAdapter) Complete(ctx context.Context, messages []models.Message, opts adapter.CompletionOptions) (*adapter.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &adapter.Response{Content: f.content}, nil
}

func (f *fakePlannerAdapter) HealthCheck(ctx context.Context) bool { return f.err == nil }

func validWirePlanJSON() string {
	b, _ := json.Marshal(map[string]any{
		"complexity":  "complex",
		"domain":      "general",
		"reasoning":   true,
		"councilSize": 3,
		"roles": []map[string]any{
			{"model": "general-1", "role": "opinion-giver", "weight": 1.0},
			{"model": "general-1", "role": "reviewer", "weight": 1.0},
			{"model": "reasoning-1", "role": "synthesizer", "weight": 1.0},
		},
		"votingMethod":    "majority",
		"allowIterations": false,
	})
	return string(b)
}

func TestPlanModel_Success(t *testing.T) {
	a := &fakePlannerAdapter{content: validWirePlanJSON()}
	plan, err := PlanModel(context.Background(), a, "design a scalable system", testPool())
	require.NoError(t, err)
	assert.Equal(t, 3, plan.CouncilSize)
	assert.Equal(t, ComplexityComplex, plan.Complexity)
}

func TestPlanModel_SchemaViolation(t *testing.T) {
	a := &fakePlannerAdapter{content: "not json"}
	_, err := PlanModel(context.Background(), a, "q", testPool())
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindSchemaViolation, perr.Kind)
}

func TestPlanModel_NoAdapter(t *testing.T) {
	_, err := PlanModel(context.Background(), nil, "q", testPool())
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindNoModelAvailable, perr.Kind)
}

func TestHybrid_EscalatesOnComplexity(t *testing.T) {
	p := New(Config{
		Mode: ModeHybrid,
		Static: StaticConfig{
			Rules:          DefaultRules(),
			Ladder:         DefaultLengthLadder(),
			GeneralModelID: "general-1",
			ModelPool:      testPool(),
		},
		PlannerAdapter: &fakePlannerAdapter{content: validWirePlanJSON()},
		ModelPool:      testPool(),
	})

	plan, err := p.Plan(context.Background(), "design a system architecture for millions of users")
	require.NoError(t, err)
	assert.Equal(t, ComplexityComplex, plan.Complexity)
}

func TestHybrid_FallsBackToStaticOnModelFailure(t *testing.T) {
	p := New(Config{
		Mode: ModeHybrid,
		Static: StaticConfig{
			Rules:          DefaultRules(),
			Ladder:         DefaultLengthLadder(),
			GeneralModelID: "general-1",
			ModelPool:      testPool(),
		},
		PlannerAdapter: &fakePlannerAdapter{err: errors.New("upstream down")},
		ModelPool:      testPool(),
	})

	plan, err := p.Plan(context.Background(), "design a system architecture for millions of users")
	require.NoError(t, err)
	assert.Equal(t, PresetDiverse, presetNameOf(plan))
}

// presetNameOf is a test-only helper inferring which preset a plan
// came from by its size, since static mode doesn't echo preset names.
func presetNameOf(plan CouncilPlan) PresetName {
	switch plan.CouncilSize {
	case 3:
		return PresetSmall
	case 7:
		return PresetDiverse
	default:
		return PresetStandard
	}
}

func TestRolePrompts_CoverAllRoles(t *testing.T) {
	for _, role := range models.AllRoles() {
		assert.NotEmpty(t, RolePrompts[role], "missing prompt for role %s", role)
	}
}

func TestPromptFor_PersonaOverride(t *testing.T) {
	assert.Equal(t, "custom persona", PromptFor(models.RoleCritic, "custom persona"))
	assert.Equal(t, RolePrompts[models.RoleCritic], PromptFor(models.RoleCritic, ""))
}
