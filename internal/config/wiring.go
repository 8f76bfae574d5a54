package config

import (
	"fmt"
	"time"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/council"
	"github.com/vasic-digital/council/internal/iteration"
	"github.com/vasic-digital/council/internal/memory"
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/planner"
)

// ToIterationConfig converts the YAML section to iteration.Config.
func (c IterationDefaults) ToIterationConfig() iteration.Config {
	return iteration.Config{
		Enabled:              c.Enabled,
		MaxIterations:        c.MaxIterations,
		ConvergenceThreshold: c.ConvergenceThreshold,
		Strategy:             iteration.Strategy(c.Strategy),
	}
}

// ToMemoryConfig converts the YAML section to memory.Config.
func (c MemoryDefaults) ToMemoryConfig() memory.Config {
	return memory.Config{
		Enabled:              c.Enabled,
		CompressionEnabled:   c.CompressionEnabled,
		MaxContextTokens:     c.MaxContextTokens,
		PersistConsensus:     c.PersistConsensus,
		PersistDisagreements: c.PersistDisagreements,
		PersistKeyInsights:   c.PersistKeyInsights,
		LongTermEnabled:      c.LongTermEnabled,
	}
}

// ToSessionConfig converts the YAML section to council.SessionConfig.
func (c SessionDefaults) ToSessionConfig() council.SessionConfig {
	return council.SessionConfig{
		SelfCorrectionEnabled:   c.SelfCorrectionEnabled,
		SelfCorrectionThreshold: c.SelfCorrectionThreshold,
		MaxCorrectionRounds:     c.MaxCorrectionRounds,
		ParallelExecution:       c.ParallelExecution,
		TimeoutMs:               c.TimeoutMs,
	}
}

// ToStaticConfig converts the planner/model sections to
// planner.StaticConfig, using planner.DefaultRules for the rule list
// (the config file only tunes the length ladder and model ids).
func (c *Config) ToStaticConfig() planner.StaticConfig {
	return planner.StaticConfig{
		Rules: planner.DefaultRules(),
		Ladder: planner.LengthLadder{
			ShortThreshold:  c.Planner.ShortThreshold,
			MediumThreshold: c.Planner.MediumThreshold,
			LongThreshold:   c.Planner.LongThreshold,
		},
		GeneralModelID:   c.Planner.GeneralModelID,
		ReasoningModelID: c.Planner.ReasoningModelID,
		ModelPool:        c.ModelPool(),
	}
}

// ToPlannerConfig builds a full planner.Config from the file, passing
// plannerAdapter through unchanged whatever Planner.Mode is (static
// mode never calls it) — callers resolve that adapter themselves since
// it requires a live Transport, and may pass nil.
func (c *Config) ToPlannerConfig(plannerAdapter adapter.ModelAdapter) planner.Config {
	return planner.Config{
		Mode:           planner.Mode(c.Planner.Mode),
		Static:         c.ToStaticConfig(),
		PlannerAdapter: plannerAdapter,
		ModelPool:      c.ModelPool(),
	}
}

// NewAdapterResolver builds the AdapterResolver the pipeline uses to
// turn a plan member's ModelConfig into a live adapter, looking up
// each model's endpoint/apiKey from the loaded config by id.
func NewAdapterResolver(cfg *Config, registry *adapter.Registry, transport adapter.Transport) council.AdapterResolver {
	return func(modelCfg models.ModelConfig) (adapter.ModelAdapter, error) {
		entry, ok := cfg.EntryFor(modelCfg.ID)
		if !ok {
			return nil, fmt.Errorf("config: no model entry for id %q", modelCfg.ID)
		}
		return registry.CreateAdapter(entry.ModelConfig, entry.Endpoint, entry.APIKey, transport)
	}
}

// DefaultTransport builds the production HTTP transport with a 30s
// timeout, matching the teacher's adapter default.
func DefaultTransport() adapter.Transport {
	return adapter.NewHTTPTransport(30 * time.Second)
}
