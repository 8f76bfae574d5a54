// chatcompletion implements the "azure-chat" style ModelAdapter: a
// deployment-name-addressed chat completions endpoint that is strict
// about reasoning models never receiving sampling parameters.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vasic-digital/council/internal/models"
)

const ProviderKindAzureChat = "azure-chat"

// ChatCompletionAdapter talks to a single Azure-style chat deployment.
type ChatCompletionAdapter struct {
	cfg       models.ModelConfig
	endpoint  string
	apiKey    string
	transport Transport
}

// NewChatCompletionAdapter builds an adapter for one model deployment.
func NewChatCompletionAdapter(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) *ChatCompletionAdapter {
	if transport == nil {
		transport = NewHTTPTransport(60 * time.Second)
	}
	return &ChatCompletionAdapter{cfg: cfg, endpoint: endpoint, apiKey: apiKey, transport: transport}
}

type chatRequest struct {
	Messages              []wireMessage  `json:"messages"`
	MaxCompletionTokens   int            `json:"max_completion_tokens,omitempty"`
	Temperature           *float64       `json:"temperature,omitempty"`
	TopP                  *float64       `json:"top_p,omitempty"`
	Stop                  []string       `json:"stop,omitempty"`
	Seed                  *int           `json:"seed,omitempty"`
	ReasoningEffort       string         `json:"reasoning_effort,omitempty"`
	ResponseFormat        map[string]any `json:"response_format,omitempty"`
}

type chatResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage chatResponseUsage `json:"usage"`
}

// Complete implements ModelAdapter.
func (a *ChatCompletionAdapter) Complete(ctx context.Context, messages []models.Message, opts CompletionOptions) (*Response, error) {
	opts = PrepareRequest(a.cfg, opts)

	req := chatRequest{
		MaxCompletionTokens: opts.MaxTokens,
		Temperature:         opts.Temperature,
		TopP:                opts.TopP,
		Stop:                opts.Stop,
		Seed:                opts.Seed,
		ReasoningEffort:     string(opts.ReasoningEffort),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{Role: string(m.Role), Content: m.Content, Name: m.Name})
	}
	if opts.ResponseFormat.Kind == ResponseFormatJSONSchema {
		req.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   opts.ResponseFormat.Name,
				"strict": opts.ResponseFormat.Strict,
				"schema": opts.ResponseFormat.Schema,
			},
		}
	} else if opts.ResponseFormat.Kind == ResponseFormatJSONObject {
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewError(a.cfg.ID, KindBadRequest, "encode request", err)
	}

	start := clockNow()
	headers := map[string]string{"Content-Type": "application/json", "api-key": a.apiKey}
	status, respBody, err := a.transport.Do(ctx, a.endpoint, headers, body)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(a.cfg.ID, KindTimeout, "request deadline exceeded", err)
		}
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
	if opts.ResponseFormat.Kind == ResponseFormatJSONSchema {
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
func (a *ChatCompletionAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.Complete(ctx, []models.Message{{Role: models.MessageRoleUser, Content: "ping"}}, CompletionOptions{MaxTokens: 1})
	return err == nil
}
