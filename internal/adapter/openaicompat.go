// openaicompat implements the "openai-compatible" style ModelAdapter:
// a serverless chat completions endpoint (e.g. OpenRouter, Chutes)
// addressed by model name. Sampling parameters are forwarded for
// non-reasoning models; for reasoning models PrepareRequest strips
// temperature/topP/stop, exactly as in chatcompletion.go.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vasic-digital/council/internal/models"
)

const ProviderKindOpenAICompatible = "openai-compatible"

// OpenAICompatAdapter talks to an OpenAI-wire-format serverless model.
type OpenAICompatAdapter struct {
	cfg       models.ModelConfig
	endpoint  string
	apiKey    string
	transport Transport
}

// NewOpenAICompatAdapter builds an adapter for one serverless model.
func NewOpenAICompatAdapter(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) *OpenAICompatAdapter {
	if transport == nil {
		transport = NewHTTPTransport(60 * time.Second)
	}
	return &OpenAICompatAdapter{cfg: cfg, endpoint: endpoint, apiKey: apiKey, transport: transport}
}

type compatRequest struct {
	Model       string         `json:"model"`
	Messages    []wireMessage  `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Seed        *int           `json:"seed,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

// Complete implements ModelAdapter.
func (a *OpenAICompatAdapter) Complete(ctx context.Context, messages []models.Message, opts CompletionOptions) (*Response, error) {
	opts = PrepareRequest(a.cfg, opts)

	req := compatRequest{
		Model:       a.cfg.DeploymentName,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
		Seed:        opts.Seed,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{Role: string(m.Role), Content: m.Content, Name: m.Name})
	}
	switch opts.ResponseFormat.Kind {
	case ResponseFormatJSONSchema:
		if !a.cfg.SupportsSchemaJSON {
			req.ResponseFormat = map[string]any{"type": "json_object"}
		} else {
			req.ResponseFormat = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   opts.ResponseFormat.Name,
					"strict": opts.ResponseFormat.Strict,
					"schema": opts.ResponseFormat.Schema,
				},
			}
		}
	case ResponseFormatJSONObject:
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewError(a.cfg.ID, KindBadRequest, "encode request", err)
	}

	start := clockNow()
	headers := map[string]string{"Content-Type": "application/json", "Authorization": "Bearer " + a.apiKey}
	status, respBody, err := a.transport.Do(ctx, a.endpoint, headers, body)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return nil, NewError(a.cfg.ID, KindTransport, "transport failure", err)
	}
	if status < 200 || status >= 300 {
		return nil, classifyHTTPStatus(a.cfg.ID, status, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewError(a.cfg.ID, KindUpstream, "malformed response body", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, NewError(a.cfg.ID, KindUpstream, "no choices returned", nil)
	}

	content := parsed.Choices[0].Message.Content
	if opts.ResponseFormat.Kind == ResponseFormatJSONSchema && a.cfg.SupportsSchemaJSON {
		var js any
		if err := json.Unmarshal([]byte(content), &js); err != nil {
			return nil, NewError(a.cfg.ID, KindSchemaViolation, fmt.Sprintf("content is not valid JSON for schema %q", opts.ResponseFormat.Name), err)
		}
	}

	return &Response{
		Content: content,
		Usage: models.TokenUsage{
			Prompt:     parsed.Usage.PromptTokens,
			Completion: parsed.Usage.CompletionTokens,
			Total:      parsed.Usage.TotalTokens,
		},
		LatencyMs:    latency,
		FinishReason: FinishReason(parsed.Choices[0].FinishReason),
	}, nil
}

// HealthCheck implements ModelAdapter with a minimal one-token probe.
func (a *OpenAICompatAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.Complete(ctx, []models.Message{{Role: models.MessageRoleUser, Content: "ping"}}, CompletionOptions{MaxTokens: 1})
	return err == nil
}
