// Package council implements the Council Pipeline (spec C6): the
// deliberation engine's entry point. It builds a council from a plan,
// runs the opinions→review→voting→synthesis stage sequence under the
// iteration controller's budget, applies self-correction, carries
// memory across iterations, and emits a full trace via the event bus.
//
// Grounded on the teacher's orchestration entry points
// (cmd/superagent/main.go's top-level run loop, internal/debate's
// stage sequencing implied by its topology/protocol test doubles) and
// its parallel-dispatch-with-errgroup convention
// (golang.org/x/sync/errgroup appears in the teacher's root go.mod).
package council

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/events"
	"github.com/vasic-digital/council/internal/iteration"
	"github.com/vasic-digital/council/internal/memory"
	"github.com/vasic-digital/council/internal/models"
	"github.com/vasic-digital/council/internal/planner"
	"github.com/vasic-digital/council/internal/repository"
	"github.com/vasic-digital/council/internal/voting"
)

// SessionConfig is the RunOptions.sessionOverride shape (spec.md §4.6).
type SessionConfig struct {
	SelfCorrectionEnabled   bool
	SelfCorrectionThreshold float64
	MaxCorrectionRounds     int
	ParallelExecution       bool
	TimeoutMs               int64
	DebugMode               bool
}

// DefaultSessionConfig mirrors the spec's worked examples.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SelfCorrectionEnabled:   true,
		SelfCorrectionThreshold: 0.6,
		MaxCorrectionRounds:     1,
		ParallelExecution:       true,
		TimeoutMs:               120_000,
	}
}

// RunOptions is the enumerated opts for Run (spec.md §4.6).
type RunOptions struct {
	Plan              *planner.CouncilPlan
	IterationOverride *iteration.Config
	MemoryOverride    *memory.Config
	SessionOverride   *SessionConfig
}

// AdapterResolver builds (or looks up) the ModelAdapter bound to a
// member's ModelConfig. The pipeline never constructs adapters itself.
type AdapterResolver func(models.ModelConfig) (adapter.ModelAdapter, error)

// Pipeline runs council sessions.
type Pipeline struct {
	planner   *planner.Planner
	resolver  AdapterResolver
	bus       *events.Bus
	repo      repository.Repository
	votingCfg voting.Config
	log       *logrus.Entry
}

// New builds a Pipeline. log may be nil (defaults to the standard
// logrus logger).
func New(p *planner.Planner, resolver AdapterResolver, bus *events.Bus, repo repository.Repository, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		planner:   p,
		resolver:  resolver,
		bus:       bus,
		repo:      repo,
		votingCfg: voting.DefaultConfig(),
		log:       log.WithField("component", "council.Pipeline"),
	}
}

// Run is the core's single callable (spec.md §6.1): RunCouncil.
func (p *Pipeline) Run(ctx context.Context, question string, opts RunOptions) (models.Session, error) {
	sessionCfg := DefaultSessionConfig()
	if opts.SessionOverride != nil {
		sessionCfg = *opts.SessionOverride
	}

	if sessionCfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sessionCfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	now := time.Now()
	session := models.Session{
		ID:        uuid.NewString(),
		Question:  question,
		Status:    models.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.Create(ctx, session); err != nil {
		return session, fmt.Errorf("council: create session: %w", err)
	}

	rn := &execution{
		pipeline:   p,
		ctx:        ctx,
		sessionCfg: sessionCfg,
		adapters:   make(map[string]adapter.ModelAdapter),
	}
	rn.session = session
	rn.emit(events.TypeSessionStart, "", "", nil)
	rn.session.Status = models.SessionRunning

	plan, err := rn.resolvePlan(opts, question)
	if err != nil {
		return rn.fail(err)
	}
	rn.emit(events.TypePlanReady, "", "", map[string]any{"councilSize": plan.CouncilSize, "votingMethod": string(plan.VotingMethod)})

	if err := rn.realizeMembers(plan); err != nil {
		return rn.fail(err)
	}

	rn.initBudgets(plan, opts)

	rn.session.Config = runConfig(sessionCfg, rn.iterBaseline, rn.memCfg)
	if rn.iterEffective != rn.iterBaseline {
		dyn := runConfig(sessionCfg, rn.iterEffective, rn.memCfg)
		rn.session.DynamicConfig = &dyn
	}

	iterationNumber := 0
	var lastVoting *voting.VotingResult

	for {
		if ctx.Err() != nil {
			return rn.fail(fmt.Errorf("cancelled"))
		}
		iterationNumber++
		rn.emit(events.TypeIterationStart, "", "", map[string]any{"number": iterationNumber})

		contextPrompt := ""
		if iterationNumber > 1 {
			contextPrompt = rn.memory.GetContextPrompt()
		}

		rn.emitStage(events.TypeStageStart, models.StageOpinions)
		opinionsStage, err := rn.runOpinionsStage(question, contextPrompt)
		if err != nil {
			return rn.fail(err)
		}
		rn.session.Stages = append(rn.session.Stages, opinionsStage)
		rn.emitStage(events.TypeStageEnd, models.StageOpinions)

		rn.emitStage(events.TypeStageStart, models.StageReview)
		reviewStage, err := rn.runReviewStage(opinionsStage)
		if err != nil {
			return rn.fail(err)
		}
		rn.session.Stages = append(rn.session.Stages, reviewStage)
		rn.emitStage(events.TypeStageEnd, models.StageReview)

		rn.emitStage(events.TypeStageStart, models.StageVoting)
		votingStage, err := rn.runVotingStageWithCorrection(plan)
		if err != nil {
			return rn.fail(err)
		}
		rn.session.Stages = append(rn.session.Stages, votingStage)
		rn.emitStage(events.TypeStageEnd, models.StageVoting)
		lastVoting = votingStage.VotingResult

		tokensThisIteration := stageTokens(opinionsStage) + stageTokens(reviewStage) + stageTokens(votingStage)
		rn.controller.RecordIterationFromStage(votingStage, tokensThisIteration)
		rn.memory.UpdateFromStageResult(votingStage)
		rn.session.TotalTokens += tokensThisIteration

		if rn.memory.IsOverLimit() {
			before, after, _ := rn.memory.Compress(ctx)
			rn.emit(events.TypeMemoryCompressed, "", "", map[string]any{"before": before, "after": after})
		}

		confidence := 0.0
		if lastVoting != nil {
			confidence = lastVoting.ConfidenceAvg
		}
		rn.session.Iterations = append(rn.session.Iterations, models.IterationSnapshot{
			Number:     iterationNumber,
			Confidence: confidence,
			TokensUsed: tokensThisIteration,
			DurationMs: votingStage.DurationMs,
		})
		rn.emit(events.TypeIterationEnd, "", "", map[string]any{"number": iterationNumber, "confidence": confidence})

		cont, _ := rn.controller.ShouldContinue()
		if !plan.AllowIterations || !cont {
			break
		}
	}

	rn.emitStage(events.TypeStageStart, models.StageSynthesis)
	synthesisStage, finalAnswer, err := rn.runSynthesisStage(question, plan, lastVoting)
	if err != nil {
		return rn.fail(err)
	}
	rn.session.Stages = append(rn.session.Stages, synthesisStage)
	rn.emitStage(events.TypeStageEnd, models.StageSynthesis)

	// Synthesis runs once, after the iteration loop, so its tokens are
	// attributed to the final iteration's snapshot: this keeps
	// sum(iteration.tokensUsed) equal to sum(stage.responses.tokens).
	synthesisTokens := stageTokens(synthesisStage)
	rn.session.TotalTokens += synthesisTokens
	if n := len(rn.session.Iterations); n > 0 {
		rn.session.Iterations[n-1].TokensUsed += synthesisTokens
	}

	rn.session.FinalAnswer = &finalAnswer
	if lastVoting != nil {
		conf := lastVoting.ConfidenceAvg
		rn.session.FinalConfidence = &conf
	}

	completedAt := time.Now()
	rn.session.Status = models.SessionCompleted
	rn.session.CompletedAt = &completedAt
	rn.session.UpdatedAt = completedAt
	rn.session.TotalDurationMs = completedAt.Sub(rn.session.CreatedAt).Milliseconds()

	rn.emit(events.TypeSessionEnd, "", "", nil)
	if err := p.repo.Update(ctx, rn.session); err != nil {
		return rn.session, fmt.Errorf("council: update session: %w", err)
	}
	return rn.session, nil
}

// execution carries the mutable state of one in-flight Run call.
type execution struct {
	pipeline         *Pipeline
	ctx              context.Context
	session          models.Session
	sessionCfg       SessionConfig
	members          []models.Member
	adapters         map[string]adapter.ModelAdapter
	controller       *iteration.Controller
	iterBaseline     iteration.Config
	iterEffective    iteration.Config
	memory           *memory.Manager
	memCfg           memory.Config
	correctionRounds int
}

// runConfig renders an iteration.Config/memory.Config pair as the
// SessionRunConfig shape recorded on Session.
func runConfig(sessionCfg SessionConfig, iterCfg iteration.Config, memCfg memory.Config) models.SessionRunConfig {
	return models.SessionRunConfig{
		SelfCorrectionEnabled:   sessionCfg.SelfCorrectionEnabled,
		SelfCorrectionThreshold: sessionCfg.SelfCorrectionThreshold,
		MaxCorrectionRounds:     sessionCfg.MaxCorrectionRounds,
		ParallelExecution:       sessionCfg.ParallelExecution,
		TimeoutMs:               sessionCfg.TimeoutMs,
		IterationEnabled:        iterCfg.Enabled,
		MaxIterations:           iterCfg.MaxIterations,
		IterationStrategy:       string(iterCfg.Strategy),
		ConvergenceThreshold:    iterCfg.ConvergenceThreshold,
		MemoryEnabled:           memCfg.Enabled,
		CompressionEnabled:      memCfg.CompressionEnabled,
		MaxContextTokens:        memCfg.MaxContextTokens,
	}
}

func (r *execution) emit(t events.Type, memberID, memberName string, data map[string]any) {
	ev := events.NewTraceEvent(r.session.ID, t, time.Now())
	ev.MemberID = memberID
	ev.MemberName = memberName
	if data != nil {
		ev.Data = data
	}
	r.pipeline.bus.Publish(ev)
	_ = r.pipeline.repo.Append(r.ctx, r.session.ID, ev)
}

// emitStage emits a stage-start/stage-end TraceEvent tagged with the
// stage it brackets, so WS subscribers and the trace log can tell
// which of the four stages is running.
func (r *execution) emitStage(t events.Type, stage models.StageKind) {
	ev := events.NewTraceEvent(r.session.ID, t, time.Now())
	ev.Stage = string(stage)
	r.pipeline.bus.Publish(ev)
	_ = r.pipeline.repo.Append(r.ctx, r.session.ID, ev)
}

func (r *execution) fail(cause error) (models.Session, error) {
	r.session.Status = models.SessionFailed
	r.session.Error = cause.Error()
	now := time.Now()
	r.session.CompletedAt = &now
	r.session.UpdatedAt = now
	r.emit(events.TypeError, "", "", map[string]any{"message": cause.Error()})
	_ = r.pipeline.repo.Update(r.ctx, r.session)
	return r.session, cause
}

func (r *execution) resolvePlan(opts RunOptions, question string) (planner.CouncilPlan, error) {
	if opts.Plan != nil {
		return *opts.Plan, nil
	}
	return r.pipeline.planner.Plan(r.ctx, question)
}

func (r *execution) realizeMembers(plan planner.CouncilPlan) error {
	members := make([]models.Member, 0, len(plan.Members))
	for i, pm := range plan.Members {
		m := models.Member{
			ID:             uuid.NewString(),
			Name:           fmt.Sprintf("%s-%d", pm.Role, i+1),
			Role:           pm.Role,
			Model:          pm.Model,
			Persona:        planner.PromptFor(pm.Role, pm.Persona),
			Domain:         pm.Domain,
			ExpertiseLevel: pm.ExpertiseLevel,
			Weight:         pm.Weight,
			IsActive:       pm.Role != models.RoleBackup,
			IsBackup:       pm.Role == models.RoleBackup,
		}
		if m.Weight == 0 {
			m.Weight = 1.0
		}
		if m.Domain == "" {
			m.Domain = plan.Domain
		}
		if m.ExpertiseLevel == 0 {
			if m.Role == models.RoleDomainExpert {
				m.ExpertiseLevel = 0.8
			} else {
				m.ExpertiseLevel = 0.5
			}
		}
		members = append(members, m)

		a, err := r.pipeline.resolver(pm.Model)
		if err != nil {
			return fmt.Errorf("council: resolve adapter for member %s: %w", m.Name, err)
		}
		r.adapters[m.ID] = a
	}
	r.members = members
	r.session.Members = members
	return nil
}

// initBudgets resolves the iteration and memory configs for this run.
// The iteration baseline comes from opts.IterationOverride (falling
// back to iteration.DefaultConfig), but the plan's own
// AllowIterations/MaxIterations/IterationStrategy — chosen per question
// complexity — always take precedence for those three fields, so the
// planner stays able to turn iteration off for simple questions even
// when the static config enables it. r.iterBaseline/r.iterEffective are
// kept separately so Run can record both in Session.Config/DynamicConfig.
func (r *execution) initBudgets(plan planner.CouncilPlan, opts RunOptions) {
	baseline := iteration.DefaultConfig()
	if opts.IterationOverride != nil {
		baseline = *opts.IterationOverride
	}
	effective := baseline
	effective.Enabled = plan.AllowIterations
	effective.MaxIterations = plan.MaxIterations
	effective.Strategy = plan.IterationStrategy

	r.iterBaseline = baseline
	r.iterEffective = effective
	r.controller = iteration.NewController(effective)

	memCfg := memory.DefaultConfig()
	if opts.MemoryOverride != nil {
		memCfg = *opts.MemoryOverride
	}
	r.memCfg = memCfg
	var compressor adapter.ModelAdapter
	if len(r.members) > 0 {
		compressor = r.adapters[r.members[0].ID]
	}
	r.memory = memory.NewManager(memCfg, compressor)
}

func stageTokens(stage models.StageResult) int {
	total := 0
	for _, resp := range stage.Responses {
		total += resp.TokenUsage.Total
	}
	return total
}

func activeMembersInRoles(members []models.Member, roles map[models.Role]bool) []models.Member {
	out := make([]models.Member, 0)
	for _, m := range members {
		if m.IsActive && roles[m.Role] {
			out = append(out, m)
		}
	}
	return out
}

// dispatch runs buildMessages/complete for each member, in parallel
// when parallel is true, otherwise in insertion order. Responses are
// appended to the returned slice in completion order, matching
// spec.md §5's ordering guarantee for parallel stages.
func (r *execution) dispatch(stage models.StageKind, members []models.Member, parallel bool, buildMessages func(models.Member) []models.Message) []models.MemberResponse {
	type outcome struct {
		resp *models.MemberResponse
	}

	results := make(chan outcome, len(members))

	runOne := func(m models.Member) {
		r.emit(events.TypeMemberRequest, m.ID, m.Name, map[string]any{"stage": string(stage)})
		start := time.Now()
		messages := buildMessages(m)
		a := r.adapters[m.ID]
		resp, err := a.Complete(r.ctx, messages, adapter.CompletionOptions{MaxTokens: m.Model.MaxTokens})
		latency := time.Since(start).Milliseconds()
		if err != nil {
			r.emit(events.TypeError, m.ID, m.Name, map[string]any{"stage": string(stage), "message": err.Error()})
			results <- outcome{}
			return
		}
		mr := models.MemberResponse{
			MemberID:   m.ID,
			MemberName: m.Name,
			ModelID:    m.Model.ID,
			Content:    resp.Content,
			TokenUsage: resp.Usage,
			LatencyMs:  latency,
			Timestamp:  time.Now(),
		}
		r.emit(events.TypeMemberResponse, m.ID, m.Name, map[string]any{"stage": string(stage), "latencyMs": latency})
		results <- outcome{resp: &mr}
	}

	if parallel {
		var g errgroup.Group
		for _, m := range members {
			m := m
			g.Go(func() error {
				runOne(m)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, m := range members {
			runOne(m)
		}
	}
	close(results)

	responses := make([]models.MemberResponse, 0, len(members))
	for o := range results {
		if o.resp != nil {
			responses = append(responses, *o.resp)
		}
	}
	return responses
}

func (r *execution) runOpinionsStage(question, contextPrompt string) (models.StageResult, error) {
	members := activeMembersInRoles(r.members, models.OpinionRoles())
	start := time.Now()
	responses := r.dispatch(models.StageOpinions, members, r.sessionCfg.ParallelExecution, func(m models.Member) []models.Message {
		return []models.Message{
			{Role: models.MessageRoleSystem, Content: m.Persona},
			{Role: models.MessageRoleUser, Content: contextPrompt + question},
		}
	})
	end := time.Now()
	if len(members) > 0 && len(responses) == 0 {
		return models.StageResult{}, fmt.Errorf("council: opinions stage: every member failed")
	}
	return models.StageResult{Stage: models.StageOpinions, Responses: responses, StartTime: start, EndTime: end, DurationMs: end.Sub(start).Milliseconds()}, nil
}

func (r *execution) runReviewStage(opinions models.StageResult) (models.StageResult, error) {
	members := activeMembersInRoles(r.members, models.ReviewRoles())
	if len(members) == 0 {
		now := time.Now()
		return models.StageResult{Stage: models.StageReview, StartTime: now, EndTime: now}, nil
	}

	digest := labelResponses(opinions.Responses, 0)
	start := time.Now()
	responses := r.dispatch(models.StageReview, members, r.sessionCfg.ParallelExecution, func(m models.Member) []models.Message {
		return []models.Message{
			{Role: models.MessageRoleSystem, Content: m.Persona},
			{Role: models.MessageRoleUser, Content: "Review the following opinions:\n\n" + digest},
		}
	})
	end := time.Now()
	if len(responses) == 0 {
		return models.StageResult{}, fmt.Errorf("council: review stage: every member failed")
	}
	return models.StageResult{Stage: models.StageReview, Responses: responses, StartTime: start, EndTime: end, DurationMs: end.Sub(start).Milliseconds()}, nil
}

var (
	positionLineRe   = regexp.MustCompile(`(?i)POSITION:\s*(.+)`)
	confidenceLineRe = regexp.MustCompile(`(?i)CONFIDENCE:\s*([0-9.]+)`)
	reasoningLineRe  = regexp.MustCompile(`(?i)REASONING:\s*(.+)`)
)

// parseVote implements the tolerant extraction rules of spec.md §4.6.e
// / §6.6.
func parseVote(resp models.MemberResponse, weight float64) voting.Vote {
	position := ""
	if m := positionLineRe.FindStringSubmatch(resp.Content); m != nil {
		position = strings.TrimSpace(m[1])
	} else {
		position = firstNChars(resp.Content, 100)
	}

	confidence := 0.7
	if m := confidenceLineRe.FindStringSubmatch(resp.Content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			confidence = v
		}
	}

	reasoning := ""
	if m := reasoningLineRe.FindStringSubmatch(resp.Content); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}

	return voting.Vote{
		MemberID:   resp.MemberID,
		MemberName: resp.MemberName,
		Position:   position,
		Confidence: confidence,
		Reasoning:  reasoning,
		Weight:     weight,
		Timestamp:  resp.Timestamp,
	}
}

func firstNChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const votingPromptTemplate = `Cast your vote on the council's position so far. Respond with exactly
these lines:

POSITION: <your position, one sentence>
CONFIDENCE: <a number between 0 and 1>
REASONING: <your reasoning>`

var nonVotingRoles = map[models.Role]bool{
	models.RoleSynthesizer: true,
	models.RoleModerator:   true,
}

func (r *execution) runVotingStageOnce(plan planner.CouncilPlan) (models.StageResult, error) {
	voters := make([]models.Member, 0, len(r.members))
	for _, m := range r.members {
		if m.IsActive && !nonVotingRoles[m.Role] {
			voters = append(voters, m)
		}
	}

	start := time.Now()
	responses := r.dispatch(models.StageVoting, voters, r.sessionCfg.ParallelExecution, func(m models.Member) []models.Message {
		return []models.Message{
			{Role: models.MessageRoleSystem, Content: m.Persona},
			{Role: models.MessageRoleUser, Content: votingPromptTemplate},
		}
	})
	end := time.Now()

	if len(responses) == 0 {
		return models.StageResult{}, fmt.Errorf("council: voting stage: no parseable vote")
	}

	weightByMember := make(map[string]float64, len(voters))
	for _, m := range voters {
		weightByMember[m.ID] = m.Weight
	}
	votes := make([]voting.Vote, 0, len(responses))
	for _, resp := range responses {
		r.emit(events.TypeVoteCast, resp.MemberID, resp.MemberName, nil)
		votes = append(votes, parseVote(resp, weightByMember[resp.MemberID]))
	}

	result := voting.Tally(plan.VotingMethod, votes, r.pipeline.votingCfg)
	r.emit(events.TypeVotingComplete, "", "", map[string]any{"winner": result.Winner, "confidenceAvg": result.ConfidenceAvg})

	return models.StageResult{Stage: models.StageVoting, Responses: responses, VotingResult: &result, StartTime: start, EndTime: end, DurationMs: end.Sub(start).Milliseconds()}, nil
}

// runVotingStageWithCorrection implements spec.md §4.6.f: self-
// correction activates one backup member at a time, re-running the
// full voting stage, up to maxCorrectionRounds times per iteration.
func (r *execution) runVotingStageWithCorrection(plan planner.CouncilPlan) (models.StageResult, error) {
	stage, err := r.runVotingStageOnce(plan)
	if err != nil {
		return stage, err
	}

	for r.sessionCfg.SelfCorrectionEnabled &&
		stage.VotingResult != nil &&
		stage.VotingResult.ConfidenceAvg < r.sessionCfg.SelfCorrectionThreshold &&
		r.correctionRounds < r.sessionCfg.MaxCorrectionRounds {

		// When several backups are eligible, activate the one with the
		// highest composite score for the plan's domain first.
		backupIdx := models.SelectBestBackup(r.members, plan.Domain)
		if backupIdx == -1 {
			break
		}

		r.members[backupIdx].IsActive = true
		backup := r.members[backupIdx]
		if _, ok := r.adapters[backup.ID]; !ok {
			a, err := r.pipeline.resolver(backup.Model)
			if err != nil {
				r.members[backupIdx].IsActive = false
				break
			}
			r.adapters[backup.ID] = a
		}

		r.correctionRounds++
		r.emit(events.TypeBackupActivated, backup.ID, backup.Name, nil)
		r.emit(events.TypeCorrectionTriggered, "", "", map[string]any{"round": r.correctionRounds})
		r.session.CorrectionRounds = r.correctionRounds

		stage, err = r.runVotingStageOnce(plan)
		if err != nil {
			return stage, err
		}
	}

	return stage, nil
}

func labelResponses(responses []models.MemberResponse, truncateAt int) string {
	var b strings.Builder
	for _, resp := range responses {
		content := resp.Content
		if truncateAt > 0 && len(content) > truncateAt {
			content = content[:truncateAt] + "..."
		}
		fmt.Fprintf(&b, "[%s]: %s\n\n", resp.MemberName, content)
	}
	return b.String()
}

const synthesisPromptTemplate = `You are synthesizing the council's final answer to:

%s

Debate digest (most recent stages, each response truncated):
%s

Final vote: winner=%q confidenceAvg=%.2f
Iteration confidence trend: %s

Produce the final answer now.`

// runSynthesisStage implements spec.md §4.6 step 7.
func (r *execution) runSynthesisStage(question string, plan planner.CouncilPlan, finalVoting *voting.VotingResult) (models.StageResult, string, error) {
	synthIdx := -1
	for i, m := range r.members {
		if m.Role == models.RoleSynthesizer {
			synthIdx = i
			break
		}
	}
	if synthIdx == -1 && len(r.members) > 0 {
		synthIdx = 0
	}
	if synthIdx == -1 {
		return models.StageResult{}, "", fmt.Errorf("council: synthesis stage: no members available")
	}
	synthesizer := r.members[synthIdx]

	stages := r.session.Stages
	if len(stages) > 6 {
		stages = stages[len(stages)-6:]
	}
	var digest strings.Builder
	for _, s := range stages {
		digest.WriteString(string(s.Stage))
		digest.WriteString(":\n")
		digest.WriteString(labelResponses(s.Responses, 300))
	}

	winner := ""
	confidenceAvg := 0.0
	if finalVoting != nil {
		if finalVoting.Winner != nil {
			winner = *finalVoting.Winner
		}
		confidenceAvg = finalVoting.ConfidenceAvg
	}

	trend := make([]string, 0, len(r.session.Iterations))
	for _, it := range r.session.Iterations {
		trend = append(trend, strconv.FormatFloat(it.Confidence, 'f', 2, 64))
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, question, digest.String(), winner, confidenceAvg, strings.Join(trend, " -> "))

	start := time.Now()
	r.emit(events.TypeMemberRequest, synthesizer.ID, synthesizer.Name, map[string]any{"stage": string(models.StageSynthesis)})
	a := r.adapters[synthesizer.ID]
	resp, err := a.Complete(r.ctx, []models.Message{
		{Role: models.MessageRoleSystem, Content: synthesizer.Persona},
		{Role: models.MessageRoleUser, Content: prompt},
	}, adapter.CompletionOptions{MaxTokens: synthesizer.Model.MaxTokens})
	end := time.Now()
	if err != nil {
		return models.StageResult{}, "", fmt.Errorf("council: synthesis stage: %w", err)
	}
	r.emit(events.TypeMemberResponse, synthesizer.ID, synthesizer.Name, map[string]any{"stage": string(models.StageSynthesis)})

	mr := models.MemberResponse{
		MemberID:   synthesizer.ID,
		MemberName: synthesizer.Name,
		ModelID:    synthesizer.Model.ID,
		Content:    resp.Content,
		TokenUsage: resp.Usage,
		LatencyMs:  time.Since(start).Milliseconds(),
		Timestamp:  end,
	}
	stage := models.StageResult{Stage: models.StageSynthesis, Responses: []models.MemberResponse{mr}, StartTime: start, EndTime: end, DurationMs: end.Sub(start).Milliseconds()}
	return stage, resp.Content, nil
}

