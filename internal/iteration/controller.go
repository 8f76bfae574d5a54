// Package iteration implements the per-session resource budget
// controller (spec C3): iterations, tokens, wall-clock time, and a
// confidence-improvement trend, deciding CONTINUE/STOP.
package iteration

import (
	"time"

	"github.com/vasic-digital/council/internal/models"
)

// Strategy names how an iteration should steer the next pass.
type Strategy string

const (
	StrategyRefine     Strategy = "refine"
	StrategyEscalate   Strategy = "escalate"
	StrategySpecialize Strategy = "specialize"
	StrategyDebate     Strategy = "debate"
)

// Config is the IterationConfig from spec.md §3.
type Config struct {
	Enabled               bool
	MaxIterations         int
	MaxTotalTokens        int
	MaxDurationMs         int64
	MaxDepth              int
	ConvergenceThreshold  float64
	ImprovementThreshold  float64
	Strategy              Strategy
}

// DefaultConfig is a conservative single-iteration budget.
func DefaultConfig() Config {
	return Config{
		Enabled:              false,
		MaxIterations:        1,
		MaxTotalTokens:        1_000_000,
		MaxDurationMs:         10 * 60 * 1000,
		MaxDepth:              1,
		ConvergenceThreshold:  0.9,
		ImprovementThreshold:  0.02,
		Strategy:              StrategyRefine,
	}
}

// Context is what GetContext emits to prime the next iteration's
// prompts (spec.md §4.3).
type Context struct {
	IterationIndex  int
	PreviousConfidence float64
	Trend           []float64
	Strategy        Strategy
}

// Controller tracks a single session's resource consumption.
type Controller struct {
	cfg Config

	iterationIndex    int
	tokensSoFar       int
	startedAt         time.Time
	started           bool
	confidenceHistory []float64
	improvements      []float64
}

// NewController builds a controller for the given budget config.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Reason is a human-readable stop/continue justification.
type Reason string

const (
	ReasonMaxIterations Reason = "max iterations"
	ReasonTokenBudget   Reason = "token budget"
	ReasonTimeBudget    Reason = "time budget"
	ReasonConverged     Reason = "converged"
	ReasonPlateau       Reason = "plateau"
	ReasonContinue      Reason = "continue"
)

// ShouldContinue evaluates the six checks from spec.md §4.3 in order,
// first hit wins.
func (c *Controller) ShouldContinue() (bool, Reason) {
	if c.iterationIndex >= c.cfg.MaxIterations {
		return false, ReasonMaxIterations
	}
	if c.tokensSoFar >= c.cfg.MaxTotalTokens {
		return false, ReasonTokenBudget
	}
	if c.started && c.elapsedMs() >= c.cfg.MaxDurationMs {
		return false, ReasonTimeBudget
	}
	if n := len(c.confidenceHistory); n > 0 && c.confidenceHistory[n-1] >= c.cfg.ConvergenceThreshold {
		return false, ReasonConverged
	}
	if n := len(c.improvements); n >= 1 && c.improvements[n-1] < c.cfg.ImprovementThreshold {
		return false, ReasonPlateau
	}
	return true, ReasonContinue
}

func (c *Controller) elapsedMs() int64 {
	if !c.started {
		return 0
	}
	return time.Since(c.startedAt).Milliseconds()
}

// RecordIteration appends the confidence/improvement observed in one
// completed iteration and advances the counters. tokensUsed excludes
// any memory-compressor call (spec.md §9 "compressor loop prevention").
func (c *Controller) RecordIteration(votingResultConfidence float64, tokensUsed int) {
	if !c.started {
		c.startedAt = time.Now()
		c.started = true
	}

	prev := 0.0
	if n := len(c.confidenceHistory); n > 0 {
		prev = c.confidenceHistory[n-1]
	}

	c.confidenceHistory = append(c.confidenceHistory, votingResultConfidence)
	c.improvements = append(c.improvements, votingResultConfidence-prev)
	c.tokensSoFar += tokensUsed
	c.iterationIndex++
}

// RecordIterationFromStage is a convenience wrapper pulling confidence
// out of a StageResult's VotingResult (0 if absent), per spec.md §4.3.
func (c *Controller) RecordIterationFromStage(stage models.StageResult, tokensUsed int) {
	confidence := 0.0
	if stage.VotingResult != nil {
		confidence = stage.VotingResult.ConfidenceAvg
	}
	c.RecordIteration(confidence, tokensUsed)
}

// GetContext emits the priming context for the next iteration.
func (c *Controller) GetContext() Context {
	prev := 0.0
	if n := len(c.confidenceHistory); n > 0 {
		prev = c.confidenceHistory[n-1]
	}
	return Context{
		IterationIndex:     c.iterationIndex,
		PreviousConfidence: prev,
		Trend:              append([]float64(nil), c.confidenceHistory...),
		Strategy:           c.cfg.Strategy,
	}
}

// TokensSoFar returns the running token count (excluding compressor
// calls).
func (c *Controller) TokensSoFar() int { return c.tokensSoFar }

// IterationIndex returns the number of iterations recorded so far.
func (c *Controller) IterationIndex() int { return c.iterationIndex }
