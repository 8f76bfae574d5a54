// Package memory implements the Memory Manager (spec C4): three tiers
// of context (short-term, working, long-term) carried between
// iterations, with model-assisted compression when over budget.
//
// Grounded conceptually on the teacher's reflexion/episodic-memory
// subsystem (internal/debate/reflexion — accumulated wisdom, episodic
// memory, reflection generation) collapsed to the three tiers spec.md
// §4.4 names; the compression call itself follows the same
// adapter.ModelAdapter seam as every other model call (spec.md §9:
// "allows, but does not mandate, a dedicated compressor model").
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/models"
)

// Config is the MemoryConfig from spec.md §3.
type Config struct {
	Enabled               bool
	CompressionEnabled    bool
	MaxContextTokens      int
	PersistConsensus      bool
	PersistDisagreements  bool
	PersistKeyInsights    bool
	LongTermEnabled       bool
}

// DefaultConfig is a sensible default: compression on, long-term off
// (long-term persistence is explicitly out of scope per spec.md §1).
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		CompressionEnabled:   true,
		MaxContextTokens:     4000,
		PersistConsensus:     true,
		PersistDisagreements: true,
		PersistKeyInsights:   true,
		LongTermEnabled:      false,
	}
}

// Exchange is one raw short-term record: a stage's labelled responses.
type Exchange struct {
	Stage   models.StageKind
	Summary string
}

// Working memory is the distilled cross-iteration state.
type Working struct {
	Consensus      []string
	Disagreements  []string
	OpenQuestions  []string
	KeyInsights    []string
}

// Manager accumulates and compresses context across iterations.
type Manager struct {
	cfg        Config
	compressor adapter.ModelAdapter

	shortTerm []Exchange
	working   Working
}

// NewManager builds a Manager. compressor may be nil; Compress then
// falls back to truncation (spec.md §7: "memory compression failure is
// recoverable").
func NewManager(cfg Config, compressor adapter.ModelAdapter) *Manager {
	return &Manager{cfg: cfg, compressor: compressor}
}

// UpdateFromStageResult distils winning positions and flags remaining
// low-confidence positions as open questions.
func (m *Manager) UpdateFromStageResult(stage models.StageResult) {
	if !m.cfg.Enabled {
		return
	}

	summary := summarizeStage(stage)
	m.shortTerm = append(m.shortTerm, Exchange{Stage: stage.Stage, Summary: summary})

	if stage.Stage != models.StageVoting || stage.VotingResult == nil {
		return
	}
	vr := stage.VotingResult
	if vr.Winner != nil && m.cfg.PersistConsensus {
		m.working.Consensus = append(m.working.Consensus, *vr.Winner)
	}
	if m.cfg.PersistDisagreements {
		for position, score := range vr.Breakdown {
			if vr.Winner != nil && position == *vr.Winner {
				continue
			}
			if score > 0 {
				m.working.Disagreements = append(m.working.Disagreements, position)
			}
		}
	}
	if vr.ConfidenceAvg < 0.5 && m.cfg.PersistKeyInsights {
		m.working.OpenQuestions = append(m.working.OpenQuestions,
			fmt.Sprintf("low confidence (%.2f) on: %v", vr.ConfidenceAvg, vr.Breakdown))
	}
}

func summarizeStage(stage models.StageResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", stage.Stage)
	for _, r := range stage.Responses {
		fmt.Fprintf(&b, " %s: %s", r.MemberName, truncate(r.Content, 200))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// estimateTokens approximates tokens at ~4 chars/token (spec.md §4.4).
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// IsOverLimit reports whether the estimated short-term context exceeds
// MaxContextTokens.
func (m *Manager) IsOverLimit() bool {
	total := 0
	for _, e := range m.shortTerm {
		total += estimateTokens(e.Summary)
	}
	return total > m.cfg.MaxContextTokens
}

// compressionPromptTemplate is the fixed prompt from spec.md §4.4.
const compressionPromptTemplate = `Summarize the following debate exchanges into a concise brief preserving
the winning positions, open disagreements, and key insights. Respond in
under 200 tokens.

%s`

// Compress invokes the compressor model; on success the short-term
// memory is replaced by the summary. On failure it keeps the longest
// suffix of short-term memory that fits the budget, but never less than
// the newest exchange (spec.md §4.4, §7).
// Returns the estimated tokens before and after, for the caller to
// emit a memory-compressed trace event.
func (m *Manager) Compress(ctx context.Context) (before, after int, err error) {
	before = m.currentTokens()

	if m.compressor == nil {
		m.truncateToFit()
		return before, m.currentTokens(), nil
	}

	var raw strings.Builder
	for _, e := range m.shortTerm {
		raw.WriteString(e.Summary)
		raw.WriteString("\n")
	}
	prompt := fmt.Sprintf(compressionPromptTemplate, raw.String())

	resp, cerr := m.compressor.Complete(ctx, []models.Message{
		{Role: models.MessageRoleUser, Content: prompt},
	}, adapter.CompletionOptions{MaxTokens: 200})

	if cerr != nil {
		// Recoverable: keep previous memory via truncation, per spec.md §7.
		m.truncateToFit()
		return before, m.currentTokens(), nil
	}

	m.shortTerm = []Exchange{{Stage: models.StageSynthesis, Summary: resp.Content}}
	return before, m.currentTokens(), nil
}

func (m *Manager) currentTokens() int {
	total := 0
	for _, e := range m.shortTerm {
		total += estimateTokens(e.Summary)
	}
	return total
}

// truncateToFit drops the oldest exchanges until the remainder fits
// MaxContextTokens or only the newest exchange is left; that last
// exchange is kept even when it alone exceeds the budget.
func (m *Manager) truncateToFit() {
	for len(m.shortTerm) > 1 && m.currentTokens() > m.cfg.MaxContextTokens {
		m.shortTerm = m.shortTerm[1:]
	}
}

// GetContextPrompt deterministically serializes working memory as
// markdown suitable for prepending to the next iteration's user
// message.
func (m *Manager) GetContextPrompt() string {
	var b strings.Builder
	if len(m.working.Consensus) > 0 {
		b.WriteString("## Prior consensus\n")
		for _, c := range m.working.Consensus {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if len(m.working.Disagreements) > 0 {
		b.WriteString("## Open disagreements\n")
		for _, d := range m.working.Disagreements {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if len(m.working.OpenQuestions) > 0 {
		b.WriteString("## Open questions\n")
		for _, q := range m.working.OpenQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if len(m.working.KeyInsights) > 0 {
		b.WriteString("## Key insights\n")
		for _, k := range m.working.KeyInsights {
			fmt.Fprintf(&b, "- %s\n", k)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String()
}
