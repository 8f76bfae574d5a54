// Package adapter defines the Model Adapter contract (spec C1): the
// seam every language model provider implements so the council pipeline
// never depends on a specific SDK.
//
// Grounded on the teacher's provider implementations
// (Toolkit/providers/claude, Toolkit/providers/openrouter,
// Toolkit/providers/nvidia) and its mockable-boundary pattern from
// cmd/superagent/main.go (CommandExecutor/HealthChecker interfaces
// injected for testing instead of calling exec/http directly).
package adapter

import (
	"context"
	"time"

	"github.com/vasic-digital/council/internal/models"
)

// ResponseFormatKind selects how the model should shape its output.
type ResponseFormatKind string

const (
	ResponseFormatText       ResponseFormatKind = "text"
	ResponseFormatJSONObject ResponseFormatKind = "json_object"
	ResponseFormatJSONSchema ResponseFormatKind = "json_schema"
)

// ResponseFormat configures structured output. Schema is only consulted
// when Kind is ResponseFormatJSONSchema.
type ResponseFormat struct {
	Kind   ResponseFormatKind
	Name   string
	Strict bool
	Schema map[string]any
}

// ReasoningEffort hints at how much deliberation a reasoning model
// should spend, for providers that support it.
type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// CompletionOptions is the enumerated option set from spec.md §4.1.
// Temperature/TopP are pointers so "unset" is distinguishable from "0".
type CompletionOptions struct {
	MaxTokens       int
	Temperature     *float64
	TopP            *float64
	Stop            []string
	Seed            *int
	ResponseFormat  ResponseFormat
	ReasoningEffort ReasoningEffort
}

// FinishReason mirrors the provider's stop condition for the call.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Response is what a successful Complete call returns.
type Response struct {
	Content      string
	Usage        models.TokenUsage
	LatencyMs    int64
	FinishReason FinishReason
}

// ModelAdapter abstracts one backing language model.
type ModelAdapter interface {
	// Complete sends an ordered message list and returns the model's
	// reply, or an *Error.
	Complete(ctx context.Context, messages []models.Message, opts CompletionOptions) (*Response, error)
	// HealthCheck reports whether the backing model is currently
	// reachable and authorized.
	HealthCheck(ctx context.Context) bool
}

// Streamer is an optional capability; the core never calls Stream —
// progress comes from the event bus, not token streams (spec.md §4.1).
type Streamer interface {
	Stream(ctx context.Context, messages []models.Message, opts CompletionOptions) (<-chan string, error)
}

// PrepareRequest applies the reasoning-model rule from spec.md §4.1:
// for a reasoning model, temperature/topP/stop MUST be omitted from
// the underlying request, though reasoningEffort may still be
// forwarded. Adapters call this before building their wire payload so
// the rule lives in one place rather than once per provider.
func PrepareRequest(cfg models.ModelConfig, opts CompletionOptions) CompletionOptions {
	if !cfg.Reasoning {
		return opts
	}
	prepared := opts
	prepared.Temperature = nil
	prepared.TopP = nil
	prepared.Stop = nil
	return prepared
}

// clockNow exists so tests can measure latency deterministically
// without depending on wall-clock timing assertions.
func clockNow() time.Time { return time.Now() }
