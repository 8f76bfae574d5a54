// Package config loads the council's YAML configuration file: the
// model pool (with ${VAR}-style credential substitution), the planner
// mode, length-ladder thresholds and model ids, and the default
// session/iteration/memory
// budgets. Grounded on the teacher's AIDebateConfigLoader
// (internal/config/ai_debate_loader.go): read file, substitute env
// vars, apply defaults, validate.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vasic-digital/council/internal/models"
)

// ModelEntry is one entry of the model pool section of the config
// file: a ModelConfig plus the provider credentials/endpoint needed to
// build its adapter via adapter.Registry.CreateAdapter.
type ModelEntry struct {
	models.ModelConfig `yaml:",inline"`
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"apiKey"`
}

// PlannerConfig is the planner section of the config file.
type PlannerConfig struct {
	Mode             string   `yaml:"mode"` // static|model|hybrid
	GeneralModelID   string   `yaml:"generalModelId"`
	ReasoningModelID string   `yaml:"reasoningModelId"`
	PlannerModelID   string   `yaml:"plannerModelId"` // used in model/hybrid mode
	ShortThreshold   int      `yaml:"shortThreshold"`
	MediumThreshold  int      `yaml:"mediumThreshold"`
	LongThreshold    int      `yaml:"longThreshold"`
}

// SessionDefaults mirrors council.SessionConfig, expressed in
// milliseconds/wire-friendly primitives for YAML.
type SessionDefaults struct {
	SelfCorrectionEnabled   bool    `yaml:"selfCorrectionEnabled"`
	SelfCorrectionThreshold float64 `yaml:"selfCorrectionThreshold"`
	MaxCorrectionRounds     int     `yaml:"maxCorrectionRounds"`
	ParallelExecution       bool    `yaml:"parallelExecution"`
	TimeoutMs               int64   `yaml:"timeoutMs"`
}

// IterationDefaults mirrors iteration.Config.
type IterationDefaults struct {
	Enabled              bool    `yaml:"enabled"`
	MaxIterations        int     `yaml:"maxIterations"`
	Strategy             string  `yaml:"strategy"`
	ConvergenceThreshold float64 `yaml:"convergenceThreshold"`
}

// MemoryDefaults mirrors memory.Config.
type MemoryDefaults struct {
	Enabled              bool `yaml:"enabled"`
	CompressionEnabled   bool `yaml:"compressionEnabled"`
	MaxContextTokens     int  `yaml:"maxContextTokens"`
	PersistConsensus     bool `yaml:"persistConsensus"`
	PersistDisagreements bool `yaml:"persistDisagreements"`
	PersistKeyInsights   bool `yaml:"persistKeyInsights"`
	LongTermEnabled      bool `yaml:"longTermEnabled"`
}

// RepositoryConfig selects and configures the session repository.
type RepositoryConfig struct {
	Backend   string `yaml:"backend"` // memory|redis
	RedisAddr string `yaml:"redisAddr"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Config is the top-level council configuration file shape.
type Config struct {
	Models     []ModelEntry      `yaml:"models"`
	Planner    PlannerConfig     `yaml:"planner"`
	Session    SessionDefaults   `yaml:"session"`
	Iteration  IterationDefaults `yaml:"iteration"`
	Memory     MemoryDefaults    `yaml:"memory"`
	Repository RepositoryConfig  `yaml:"repository"`
}

// ModelPool indexes Models by ID for quick lookup, as the planner and
// pipeline consume it.
func (c *Config) ModelPool() map[string]models.ModelConfig {
	pool := make(map[string]models.ModelConfig, len(c.Models))
	for _, m := range c.Models {
		pool[m.ID] = m.ModelConfig
	}
	return pool
}

// EntryFor returns the full ModelEntry (including credentials) for a
// model id, for use by an AdapterResolver.
func (c *Config) EntryFor(id string) (ModelEntry, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelEntry{}, false
}

// Loader reads and validates a council configuration file, mirroring
// AIDebateConfigLoader's Load/LoadFromString/Reload shape.
type Loader struct {
	configPath string
	envFile    string
	config     *Config
}

// NewLoader builds a Loader for configPath. If envFile is non-empty,
// Load first populates the process environment from it via
// godotenv.Load before substituting ${VAR} placeholders — the teacher
// pack's integration tests use the same godotenv.Load(envFile) call
// ahead of config parsing.
func NewLoader(configPath, envFile string) *Loader {
	return &Loader{configPath: configPath, envFile: envFile}
}

// Load reads, env-substitutes, defaults, and validates the config file.
func (l *Loader) Load() (*Config, error) {
	if l.configPath == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", l.configPath, err)
	}
	return l.parse(data)
}

// LoadFromString parses YAML content directly (used by tests and by
// embedded-config deployments).
func (l *Loader) LoadFromString(yamlContent string) (*Config, error) {
	return l.parse([]byte(yamlContent))
}

func (l *Loader) parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	substituteEnvVars(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	l.config = &cfg
	return &cfg, nil
}

// Reload re-reads the file this Loader was constructed with.
func (l *Loader) Reload() (*Config, error) {
	return l.Load()
}

// GetConfig returns the last successfully loaded Config, or nil.
func (l *Loader) GetConfig() *Config {
	return l.config
}

func substituteEnvVars(cfg *Config) {
	for i := range cfg.Models {
		m := &cfg.Models[i]
		m.Endpoint = os.ExpandEnv(m.Endpoint)
		m.APIKey = os.ExpandEnv(m.APIKey)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Planner.Mode == "" {
		cfg.Planner.Mode = "static"
	}
	if cfg.Planner.ShortThreshold == 0 {
		cfg.Planner.ShortThreshold = 60
	}
	if cfg.Planner.MediumThreshold == 0 {
		cfg.Planner.MediumThreshold = 160
	}
	if cfg.Planner.LongThreshold == 0 {
		cfg.Planner.LongThreshold = 400
	}

	if cfg.Session.SelfCorrectionThreshold == 0 {
		cfg.Session.SelfCorrectionThreshold = 0.6
	}
	if cfg.Session.MaxCorrectionRounds == 0 {
		cfg.Session.MaxCorrectionRounds = 1
	}
	if cfg.Session.TimeoutMs == 0 {
		cfg.Session.TimeoutMs = 120_000
	}

	if cfg.Iteration.MaxIterations == 0 {
		cfg.Iteration.MaxIterations = 5
	}
	if cfg.Iteration.Strategy == "" {
		cfg.Iteration.Strategy = "refine"
	}
	if cfg.Iteration.ConvergenceThreshold == 0 {
		cfg.Iteration.ConvergenceThreshold = 0.9
	}

	if cfg.Memory.MaxContextTokens == 0 {
		cfg.Memory.MaxContextTokens = 4000
	}

	if cfg.Repository.Backend == "" {
		cfg.Repository.Backend = "memory"
	}
	if cfg.Repository.KeyPrefix == "" {
		cfg.Repository.KeyPrefix = "council:session:"
	}

	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.MaxTokens == 0 {
			m.MaxTokens = 2000
		}
		if m.DefaultTemperature == 0 {
			m.DefaultTemperature = 0.7
		}
	}
}

// Validate checks the invariants the rest of the package assumes hold.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("config: at least one model is required")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("config: model entry missing id")
		}
		if seen[m.ID] {
			return fmt.Errorf("config: duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if m.ProviderKind == "" {
			return fmt.Errorf("config: model %q missing providerKind", m.ID)
		}
	}
	switch c.Planner.Mode {
	case "static", "model", "hybrid":
	default:
		return fmt.Errorf("config: unknown planner mode %q", c.Planner.Mode)
	}
	if (c.Planner.Mode == "model" || c.Planner.Mode == "hybrid") && c.Planner.PlannerModelID == "" {
		return fmt.Errorf("config: planner.mode %q requires plannerModelId", c.Planner.Mode)
	}
	if c.Repository.Backend != "memory" && c.Repository.Backend != "redis" {
		return fmt.Errorf("config: unknown repository backend %q", c.Repository.Backend)
	}
	if c.Repository.Backend == "redis" && c.Repository.RedisAddr == "" {
		return fmt.Errorf("config: repository.backend redis requires redisAddr")
	}
	return nil
}

// Timeout is a convenience accessor returning TimeoutMs as a
// time.Duration.
func (c SessionDefaults) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
