package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/voting"
)

type fakeCompressor struct {
	content string
	err     error
}

func (f *fakeCompressor) Complete(ctx context.Context, messages []models.Message, opts adapter.CompletionOptions) (*adapter.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &adapter.Response{Content: f.content, Usage: models.TokenUsage{Total: 50}}, nil
}

func (f *fakeCompressor) HealthCheck(ctx context.Context) bool { return true }

func votingStage(winner string, breakdown map[string]float64, confidence float64) models.StageResult {
	w := winner
	return models.StageResult{
		Stage: models.StageVoting,
		VotingResult: &voting.VotingResult{
			Winner:        &w,
			Breakdown:     breakdown,
			ConfidenceAvg: confidence,
		},
	}
}

func TestManager_UpdateFromStageResult_PersistsConsensusAndDisagreements(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	m.UpdateFromStageResult(votingStage("A", map[string]float64{"A": 2, "B": 1}, 0.9))

	prompt := m.GetContextPrompt()
	assert.Contains(t, prompt, "Prior consensus")
	assert.Contains(t, prompt, "A")
	assert.Contains(t, prompt, "Open disagreements")
	assert.Contains(t, prompt, "B")
}

func TestManager_UpdateFromStageResult_LowConfidenceFlagsOpenQuestion(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	m.UpdateFromStageResult(votingStage("A", map[string]float64{"A": 1}, 0.3))

	prompt := m.GetContextPrompt()
	assert.Contains(t, prompt, "Open questions")
}

func TestManager_Disabled_NoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := NewManager(cfg, nil)
	m.UpdateFromStageResult(votingStage("A", map[string]float64{"A": 1}, 0.9))
	assert.Empty(t, m.GetContextPrompt())
	assert.False(t, m.IsOverLimit())
}

func TestManager_IsOverLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 5
	m := NewManager(cfg, nil)
	m.UpdateFromStageResult(models.StageResult{
		Stage: models.StageOpinions,
		Responses: []models.MemberResponse{
			{MemberName: "alpha", Content: "this response is long enough to exceed a five token budget easily"},
		},
	})
	assert.True(t, m.IsOverLimit())
}

func TestManager_Compress_WithModel(t *testing.T) {
	m := NewManager(DefaultConfig(), &fakeCompressor{content: "condensed summary"})
	m.UpdateFromStageResult(models.StageResult{
		Stage: models.StageOpinions,
		Responses: []models.MemberResponse{{MemberName: "a", Content: "long exchange one"}},
	})

	before, after, err := m.Compress(context.Background())
	require.NoError(t, err)
	assert.Greater(t, before, 0)
	assert.Equal(t, estimateTokens("condensed summary"), after)
}

func TestManager_Compress_FallsBackToTruncationOnError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 3
	m := NewManager(cfg, &fakeCompressor{err: errors.New("upstream down")})

	for i := 0; i < 5; i++ {
		m.UpdateFromStageResult(models.StageResult{
			Stage:     models.StageOpinions,
			Responses: []models.MemberResponse{{MemberName: "a", Content: "exchange content that is fairly long"}},
		})
	}

	_, after, err := m.Compress(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.shortTerm, 1)
	_ = after
}

func TestManager_Compress_NilCompressorTruncates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 1
	m := NewManager(cfg, nil)
	m.UpdateFromStageResult(models.StageResult{
		Stage:     models.StageOpinions,
		Responses: []models.MemberResponse{{MemberName: "a", Content: "some content"}},
	})
	m.UpdateFromStageResult(models.StageResult{
		Stage:     models.StageOpinions,
		Responses: []models.MemberResponse{{MemberName: "b", Content: "more content here"}},
	})

	before, after, err := m.Compress(context.Background())
	require.NoError(t, err)
	assert.Greater(t, before, after)
}
