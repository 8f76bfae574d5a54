package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader_EmptyPath(t *testing.T) {
	loader := NewLoader("", "")
	assert.NotNil(t, loader)
	assert.Nil(t, loader.GetConfig())
}

func TestLoader_Load_EmptyPath(t *testing.T) {
	loader := NewLoader("", "")
	cfg, err := loader.Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestLoader_Load_NonexistentFile(t *testing.T) {
	loader := NewLoader("/nonexistent/path/config.yaml", "")
	cfg, err := loader.Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoader_LoadFromString_InvalidYAML(t *testing.T) {
	loader := NewLoader("unused", "")
	cfg, err := loader.LoadFromString("invalid yaml content: [unclosed")
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestLoader_LoadFromString_ValidationFailure_NoModels(t *testing.T) {
	loader := NewLoader("unused", "")
	cfg, err := loader.LoadFromString(`
planner:
  mode: static
`)
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one model is required")
}

const validConfigYAML = `
models:
  - id: general-1
    providerKind: openai-compatible
    endpoint: https://api.example.com/v1
    apiKey: ${TEST_COUNCIL_API_KEY}
  - id: reasoning-1
    providerKind: azure-chat
    reasoning: true
    maxTokens: 4000
planner:
  mode: hybrid
  generalModelId: general-1
  reasoningModelId: reasoning-1
  plannerModelId: reasoning-1
session:
  selfCorrectionEnabled: true
repository:
  backend: memory
`

func TestLoader_LoadFromString_Valid_AppliesDefaultsAndSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_COUNCIL_API_KEY", "secret-123")

	loader := NewLoader("unused", "")
	cfg, err := loader.LoadFromString(validConfigYAML)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	general, ok := cfg.EntryFor("general-1")
	require.True(t, ok)
	assert.Equal(t, "secret-123", general.APIKey)
	assert.Equal(t, 2000, general.MaxTokens) // default applied

	reasoning, ok := cfg.EntryFor("reasoning-1")
	require.True(t, ok)
	assert.Equal(t, 4000, reasoning.MaxTokens) // explicit value kept

	assert.Equal(t, 0.6, cfg.Session.SelfCorrectionThreshold) // default applied
	assert.Equal(t, 1, cfg.Session.MaxCorrectionRounds)

	pool := cfg.ModelPool()
	assert.Len(t, pool, 2)
	assert.Equal(t, loader.GetConfig(), cfg)
}

func TestValidate_RejectsUnknownPlannerMode(t *testing.T) {
	loader := NewLoader("unused", "")
	_, err := loader.LoadFromString(`
models:
  - id: m
    providerKind: openai-compatible
planner:
  mode: telepathic
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown planner mode")
}

func TestValidate_ModelPlannerModeRequiresPlannerModelID(t *testing.T) {
	loader := NewLoader("unused", "")
	_, err := loader.LoadFromString(`
models:
  - id: m
    providerKind: openai-compatible
planner:
  mode: model
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires plannerModelId")
}

func TestValidate_RedisBackendRequiresAddr(t *testing.T) {
	loader := NewLoader("unused", "")
	_, err := loader.LoadFromString(`
models:
  - id: m
    providerKind: openai-compatible
repository:
  backend: redis
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires redisAddr")
}

func TestValidate_DuplicateModelID(t *testing.T) {
	loader := NewLoader("unused", "")
	_, err := loader.LoadFromString(`
models:
  - id: dup
    providerKind: openai-compatible
  - id: dup
    providerKind: azure-chat
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model id")
}

func TestLoader_Load_ReadsFileAndReloads(t *testing.T) {
	f, err := os.CreateTemp("", "council_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString(validConfigYAML)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("TEST_COUNCIL_API_KEY", "from-file")
	loader := NewLoader(f.Name(), "")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 2)

	cfg2, err := loader.Reload()
	require.NoError(t, err)
	assert.Equal(t, cfg.Models[0].ID, cfg2.Models[0].ID)
}
