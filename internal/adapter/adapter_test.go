package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasic-digital/council/internal/models"
)

type fakeTransport struct {
	status   int
	body     []byte
	err      error
	lastBody []byte
}

func (f *fakeTransport) Do(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	f.lastBody = body
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, f.body, nil
}

func successBody(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return b
}

func floatPtr(f float64) *float64 { return &f }

func TestChatCompletionAdapter_ReasoningModelStripsSamplingParams(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody("hello")}
	cfg := models.ModelConfig{ID: "m1", ProviderKind: ProviderKindAzureChat, Reasoning: true}
	a := NewChatCompletionAdapter(cfg, "http://fake", "key", transport)

	_, err := a.Complete(context.Background(), []models.Message{{Role: models.MessageRoleUser, Content: "hi"}},
		CompletionOptions{MaxTokens: 100, Temperature: floatPtr(0.7)})
	require.NoError(t, err)

	var sent chatRequest
	require.NoError(t, json.Unmarshal(transport.lastBody, &sent))
	assert.Nil(t, sent.Temperature)
}

func TestChatCompletionAdapter_SchemaViolation(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody("not json")}
	cfg := models.ModelConfig{ID: "m1", ProviderKind: ProviderKindAzureChat, SupportsSchemaJSON: true}
	a := NewChatCompletionAdapter(cfg, "http://fake", "key", transport)

	_, err := a.Complete(context.Background(), []models.Message{{Role: models.MessageRoleUser, Content: "hi"}},
		CompletionOptions{MaxTokens: 100, ResponseFormat: ResponseFormat{Kind: ResponseFormatJSONSchema, Name: "plan"}})

	require.Error(t, err)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindSchemaViolation, aerr.Kind)
}

func TestChatCompletionAdapter_RateLimited(t *testing.T) {
	transport := &fakeTransport{status: 429, body: []byte(`{"error":{"message":"slow down"}}`)}
	cfg := models.ModelConfig{ID: "m1", ProviderKind: ProviderKindAzureChat}
	a := NewChatCompletionAdapter(cfg, "http://fake", "key", transport)

	_, err := a.Complete(context.Background(), []models.Message{{Role: models.MessageRoleUser, Content: "hi"}}, CompletionOptions{MaxTokens: 10})
	require.Error(t, err)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindRateLimited, aerr.Kind)
}

func TestOpenAICompatAdapter_ForwardsTemperatureForNonReasoning(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody("hello")}
	cfg := models.ModelConfig{ID: "m1", ProviderKind: ProviderKindOpenAICompatible, DeploymentName: "qwen"}
	a := NewOpenAICompatAdapter(cfg, "http://fake", "key", transport)

	_, err := a.Complete(context.Background(), []models.Message{{Role: models.MessageRoleUser, Content: "hi"}},
		CompletionOptions{MaxTokens: 100, Temperature: floatPtr(0.5)})
	require.NoError(t, err)

	var sent compatRequest
	require.NoError(t, json.Unmarshal(transport.lastBody, &sent))
	require.NotNil(t, sent.Temperature)
	assert.Equal(t, 0.5, *sent.Temperature)
}

func TestOpenAICompatAdapter_TokenUsage(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody("hello")}
	cfg := models.ModelConfig{ID: "m1", ProviderKind: ProviderKindOpenAICompatible}
	a := NewOpenAICompatAdapter(cfg, "http://fake", "key", transport)

	resp, err := a.Complete(context.Background(), []models.Message{{Role: models.MessageRoleUser, Content: "hi"}}, CompletionOptions{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.Usage.Total)
	assert.Equal(t, FinishStop, resp.FinishReason)
}

func TestRegistry_CreateAdapter(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.CreateAdapter(models.ModelConfig{ID: "m1", ProviderKind: ProviderKindAzureChat}, "http://fake", "key", &fakeTransport{status: 200, body: successBody("x")})
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = reg.CreateAdapter(models.ModelConfig{ID: "m2", ProviderKind: "unknown-kind"}, "", "", nil)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	good := &fakeTransport{status: 200, body: successBody("pong")}
	a := NewChatCompletionAdapter(models.ModelConfig{ID: "m1"}, "http://fake", "key", good)
	assert.True(t, a.HealthCheck(context.Background()))

	bad := &fakeTransport{status: 500, body: []byte(`{"error":{"message":"down"}}`)}
	b := NewChatCompletionAdapter(models.ModelConfig{ID: "m1"}, "http://fake", "key", bad)
	assert.False(t, b.HealthCheck(context.Background()))
}
