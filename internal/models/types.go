// Package models holds the value-object data model shared by every
// council component: model configuration, council membership, chat
// messages, and the records a session accretes as it runs.
package models

import (
	"time"

	"github.com/vasic-digital/council/internal/voting"
)

// Role is a tagged enum of behavioral archetypes a Member can take on.
// The set is closed; the canonical system prompt per role lives in the
// planner's role prompt registry.
type Role string

const (
	RoleOpinionGiver  Role = "opinion-giver"
	RoleReviewer      Role = "reviewer"
	RoleSynthesizer   Role = "synthesizer"
	RoleBackup        Role = "backup"
	RoleArbiter       Role = "arbiter"
	RoleDevilsAdvocate Role = "devil-advocate"
	RoleFactChecker   Role = "fact-checker"
	RoleDomainExpert  Role = "domain-expert"
	RoleModerator     Role = "moderator"
	RoleSkeptic       Role = "skeptic"
	RoleCreative      Role = "creative"
	RoleCritic        Role = "critic"
)

// AllRoles lists every member of the closed Role enum.
func AllRoles() []Role {
	return []Role{
		RoleOpinionGiver, RoleReviewer, RoleSynthesizer, RoleBackup,
		RoleArbiter, RoleDevilsAdvocate, RoleFactChecker, RoleDomainExpert,
		RoleModerator, RoleSkeptic, RoleCreative, RoleCritic,
	}
}

// OpinionRoles are the roles that speak in the Opinions stage.
func OpinionRoles() map[Role]bool {
	return map[Role]bool{
		RoleOpinionGiver:   true,
		RoleDevilsAdvocate: true,
		RoleCreative:       true,
		RoleDomainExpert:   true,
		RoleSkeptic:        true,
	}
}

// ReviewRoles are the roles that speak in the Review stage.
func ReviewRoles() map[Role]bool {
	return map[Role]bool{
		RoleReviewer:    true,
		RoleFactChecker: true,
		RoleCritic:      true,
	}
}

// Domain tags a Member's area of specialization. Supplements the closed
// Role enum with a secondary axis: the planner tags plans and preset
// slots with it, and CompositeScore uses it to rank backup members.
// Model choice does not depend on it.
type Domain string

const (
	DomainGeneral      Domain = "general"
	DomainCode         Domain = "code"
	DomainSecurity     Domain = "security"
	DomainArchitecture Domain = "architecture"
	DomainDebug        Domain = "debug"
	DomainOptimization Domain = "optimization"
	DomainReasoning    Domain = "reasoning"
)

// ModelConfig identifies one backing language model and its capabilities.
type ModelConfig struct {
	ID                 string  `json:"id" yaml:"id"`
	ProviderKind       string  `json:"providerKind" yaml:"providerKind"`
	DeploymentName     string  `json:"deploymentName" yaml:"deploymentName"`
	Reasoning          bool    `json:"reasoning" yaml:"reasoning"`
	SupportsSchemaJSON bool    `json:"supportsSchemaJson" yaml:"supportsSchemaJson"`
	MaxTokens          int     `json:"maxTokens" yaml:"maxTokens"`
	DefaultTemperature float64 `json:"defaultTemperature" yaml:"defaultTemperature"`
	// PricePerMille is informational only; never consulted by the core.
	PricePerMille float64 `json:"pricePerMille,omitempty" yaml:"pricePerMille,omitempty"`
}

// Member is a council participant: an identity bound to a role, a
// model, and optional persona/weight overrides.
type Member struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Role    Role        `json:"role"`
	Model   ModelConfig `json:"model"`
	Persona string      `json:"persona,omitempty"`
	Domain  Domain      `json:"domain,omitempty"`
	// ExpertiseLevel is the member's proficiency in Domain, 0-1.
	// Feeds CompositeScore for backup-activation ranking.
	ExpertiseLevel float64 `json:"expertiseLevel,omitempty"`
	Weight         float64 `json:"weight"`
	IsActive       bool    `json:"isActive"`
	IsBackup       bool    `json:"isBackup"`
}

// MessageRole is the role tag on a chat Message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one turn of an ordered chat transcript sent to a model.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	Name    string      `json:"name,omitempty"`
}

// TokenUsage records prompt/completion/total tokens for one model call.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// MemberResponse is the immutable record of one member's answer.
type MemberResponse struct {
	MemberID   string     `json:"memberId"`
	MemberName string     `json:"memberName"`
	ModelID    string     `json:"modelId"`
	Content    string     `json:"content"`
	TokenUsage TokenUsage `json:"tokenUsage"`
	LatencyMs  int64      `json:"latencyMs"`
	Timestamp  time.Time  `json:"timestamp"`
}

// StageKind enumerates the four pipeline stages.
type StageKind string

const (
	StageOpinions  StageKind = "opinions"
	StageReview    StageKind = "review"
	StageVoting    StageKind = "voting"
	StageSynthesis StageKind = "synthesis"
)

// IterationSnapshot captures one iteration's resource/confidence state.
type IterationSnapshot struct {
	Number      int       `json:"number"`
	Confidence  float64   `json:"confidence"`
	TokensUsed  int       `json:"tokensUsed"`
	DurationMs  int64     `json:"durationMs"`
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// StageResult is the immutable outcome of one stage of one iteration.
type StageResult struct {
	Stage        StageKind           `json:"stage"`
	Responses    []MemberResponse    `json:"responses"`
	VotingResult *voting.VotingResult `json:"votingResult,omitempty"`
	StartTime    time.Time           `json:"startTime"`
	EndTime      time.Time           `json:"endTime"`
	DurationMs   int64               `json:"durationMs"`
}

// SessionRunConfig is the resolved self-correction/iteration/memory
// tunables a Session ran with. Recorded on Session so a completed
// session is self-describing without cross-referencing the config file
// that produced it, which may since have changed.
type SessionRunConfig struct {
	SelfCorrectionEnabled   bool    `json:"selfCorrectionEnabled"`
	SelfCorrectionThreshold float64 `json:"selfCorrectionThreshold"`
	MaxCorrectionRounds     int     `json:"maxCorrectionRounds"`
	ParallelExecution       bool    `json:"parallelExecution"`
	TimeoutMs               int64   `json:"timeoutMs"`
	IterationEnabled        bool    `json:"iterationEnabled"`
	MaxIterations           int     `json:"maxIterations"`
	IterationStrategy       string  `json:"iterationStrategy"`
	ConvergenceThreshold    float64 `json:"convergenceThreshold"`
	MemoryEnabled           bool    `json:"memoryEnabled"`
	CompressionEnabled      bool    `json:"compressionEnabled"`
	MaxContextTokens        int     `json:"maxContextTokens"`
}

// Session accretes history across a council deliberation. It is the
// only entity in the data model that is not immutable once emitted;
// it is created pending, becomes running, then completed or failed,
// and is append-only thereafter (spec.md §3 Lifecycles).
type Session struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Config   SessionRunConfig `json:"config"`
	// DynamicConfig is set only when the planner's per-question
	// iteration settings (picked from question complexity) diverge
	// from Config's static iteration baseline.
	DynamicConfig    *SessionRunConfig   `json:"dynamicConfig,omitempty"`
	Members          []Member            `json:"members"`
	Stages           []StageResult       `json:"stages"`
	Iterations       []IterationSnapshot `json:"iterations"`
	FinalAnswer      *string             `json:"finalAnswer"`
	FinalConfidence  *float64            `json:"finalConfidence"`
	Status           SessionStatus       `json:"status"`
	CorrectionRounds int                 `json:"correctionRounds"`
	TotalTokens      int                 `json:"totalTokens"`
	TotalDurationMs  int64               `json:"totalDurationMs"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	Error            string              `json:"error,omitempty"`
}
