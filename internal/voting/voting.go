// Package voting implements the pluggable voting tally (spec C2): a
// pure, deterministic function from a set of votes to a VotingResult.
//
// Grounded on the teacher's weighted voting system
// (internal/debate/voting/weighted_voting_test.go): per-vote validation,
// a VoteCount/duplicate-replaces-existing store, and a config struct
// carrying tie-break and diversity knobs. The tally itself stays a pure
// function per spec.md §4.2 rather than the teacher's stateful system —
// statefulness (vote accumulation) lives in the pipeline, not here.
package voting

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Method names the pluggable tally algorithm.
type Method string

const (
	MethodMajority      Method = "majority"
	MethodSuperMajority Method = "super-majority"
	MethodUnanimous     Method = "unanimous"
	MethodWeighted      Method = "weighted"
	MethodConfidence    Method = "confidence"
	MethodRankedChoice  Method = "ranked-choice"
	MethodVeto          Method = "veto"
)

// Vote is one member's ballot in the voting stage.
type Vote struct {
	MemberID   string    `json:"memberId"`
	MemberName string    `json:"memberName"`
	Position   string    `json:"position"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Rank       []string  `json:"rank,omitempty"`
	Veto       bool      `json:"veto,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	// Weight is the member's voting weight (0..2, spec.md §3 Member).
	// Supplied by the caller; the tally never looks it up itself.
	Weight float64 `json:"-"`
	// HistoricalWeight is an optional extra multiplicative factor for
	// the weighted method (SPEC_FULL.md §3 EXPANSION). 0 means "unset",
	// treated as 1.
	HistoricalWeight float64 `json:"-"`
}

// VotingResult is the immutable outcome of one tally.
type VotingResult struct {
	Method            Method             `json:"method"`
	Winner            *string            `json:"winner"`
	Votes             []Vote             `json:"votes"`
	Breakdown         map[string]float64 `json:"breakdown"`
	ConfidenceAvg     float64            `json:"confidenceAvg"`
	ConsensusReached  bool               `json:"consensusReached"`
	RoundsNeeded      int                `json:"roundsNeeded"`
	Metadata          map[string]any     `json:"metadata,omitempty"`
}

// Config carries tunables that are otherwise fixed in the method table.
type Config struct {
	// SuperMajorityThreshold is tau in ceil(n*tau); default 2/3.
	SuperMajorityThreshold float64
	// EnableDiversityBonus rewards minority positions slightly to avoid
	// premature groupthool (SPEC_FULL.md §3 EXPANSION). Off by default.
	EnableDiversityBonus bool
	DiversityWeight      float64
}

// DefaultConfig returns the spec's default tunables.
func DefaultConfig() Config {
	return Config{
		SuperMajorityThreshold: 2.0 / 3.0,
		EnableDiversityBonus:   false,
		DiversityWeight:        0.1,
	}
}

// Tally is the pure entry point: given a method, a vote set, and a
// config, returns the VotingResult. The caller is responsible for
// sorting votes by MemberID for determinism; Tally sorts defensively.
func Tally(method Method, votes []Vote, cfg Config) VotingResult {
	sorted := make([]Vote, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MemberID < sorted[j].MemberID })

	result := VotingResult{
		Method:    method,
		Votes:     sorted,
		Breakdown: breakdown(sorted),
		Metadata:  map[string]any{},
	}
	result.ConfidenceAvg = avgConfidence(sorted)

	if len(sorted) == 0 {
		return result
	}

	switch method {
	case MethodMajority:
		tallyMajority(&result, sorted, float64(len(sorted))/2.0, cfg)
	case MethodSuperMajority:
		threshold := cfg.SuperMajorityThreshold
		if threshold <= 0 {
			threshold = 2.0 / 3.0
		}
		need := math.Ceil(float64(len(sorted)) * threshold)
		tallyMajority(&result, sorted, need-1, cfg) // win condition: score >= need
	case MethodUnanimous:
		tallyMajority(&result, sorted, float64(len(sorted))-1, cfg)
	case MethodWeighted:
		tallyWeighted(&result, sorted, cfg)
	case MethodConfidence:
		tallyConfidence(&result, sorted, cfg)
	case MethodRankedChoice:
		tallyRankedChoice(&result, sorted)
	case MethodVeto:
		tallyVeto(&result, sorted, cfg)
	default:
		result.Metadata["error"] = fmt.Sprintf("unknown voting method: %s", method)
	}

	return result
}

func breakdown(votes []Vote) map[string]float64 {
	b := make(map[string]float64)
	for _, v := range votes {
		if _, ok := b[v.Position]; !ok {
			b[v.Position] = 0
		}
	}
	return b
}

func avgConfidence(votes []Vote) float64 {
	if len(votes) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range votes {
		sum += v.Confidence
	}
	return sum / float64(len(votes))
}

// positionConfidenceAvg returns the mean confidence of votes for a
// given position, used for deterministic tie-breaking.
func positionConfidenceAvg(votes []Vote, position string) float64 {
	sum, n := 0.0, 0
	for _, v := range votes {
		if v.Position == position {
			sum += v.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// pickWinner applies the deterministic tie-break: higher average
// confidence for the position, then lexicographic position string.
func pickWinner(scores map[string]float64, votes []Vote) (string, bool) {
	if len(scores) == 0 {
		return "", false
	}

	positions := make([]string, 0, len(scores))
	for p := range scores {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		si, sj := scores[positions[i]], scores[positions[j]]
		if si != sj {
			return si > sj
		}
		ci, cj := positionConfidenceAvg(votes, positions[i]), positionConfidenceAvg(votes, positions[j])
		if ci != cj {
			return ci > cj
		}
		return positions[i] < positions[j]
	})

	return positions[0], true
}

func tallyMajority(result *VotingResult, votes []Vote, strictlyGreaterThan float64, cfg Config) {
	scores := make(map[string]float64)
	for _, v := range votes {
		scores[v.Position]++
	}
	applyDiversityBonus(scores, votes, cfg)
	result.Breakdown = scores

	winner, ok := pickWinner(scores, votes)
	if !ok || scores[winner] <= strictlyGreaterThan {
		result.Winner = nil
		result.ConsensusReached = false
		return
	}
	result.Winner = &winner
	result.ConsensusReached = true
}

func tallyWeighted(result *VotingResult, votes []Vote, cfg Config) {
	scores := make(map[string]float64)
	for _, v := range votes {
		w := v.Weight
		if w == 0 {
			w = 1
		}
		h := v.HistoricalWeight
		if h == 0 {
			h = 1
		}
		scores[v.Position] += w * h * v.Confidence
	}
	applyDiversityBonus(scores, votes, cfg)
	result.Breakdown = scores

	winner, ok := pickWinner(scores, votes)
	if !ok || scores[winner] <= 0 {
		result.Winner = nil
		result.ConsensusReached = false
		return
	}
	result.Winner = &winner
	result.ConsensusReached = true
}

func tallyConfidence(result *VotingResult, votes []Vote, cfg Config) {
	scores := make(map[string]float64)
	for _, v := range votes {
		scores[v.Position] += v.Confidence
	}
	applyDiversityBonus(scores, votes, cfg)
	result.Breakdown = scores

	winner, ok := pickWinner(scores, votes)
	if !ok || scores[winner] <= 0 {
		result.Winner = nil
		result.ConsensusReached = false
		return
	}
	result.Winner = &winner
	result.ConsensusReached = true
}

func applyDiversityBonus(scores map[string]float64, votes []Vote, cfg Config) {
	if !cfg.EnableDiversityBonus || len(scores) < 2 {
		return
	}
	total := 0.0
	for _, v := range votes {
		total++
		_ = v
	}
	for pos, score := range scores {
		count := 0.0
		for _, v := range votes {
			if v.Position == pos {
				count++
			}
		}
		share := count / total
		// Minority positions (share < 0.5) get a small bump proportional
		// to how minor they are.
		if share < 0.5 {
			scores[pos] = score + (0.5-share)*cfg.DiversityWeight
		}
	}
}

func tallyVeto(result *VotingResult, votes []Vote, cfg Config) {
	var vetoers []map[string]string
	for _, v := range votes {
		if v.Veto {
			vetoers = append(vetoers, map[string]string{
				"memberId":  v.MemberID,
				"reasoning": v.Reasoning,
			})
		}
	}
	tallyMajority(result, votes, float64(len(votes))/2.0, cfg)
	if len(vetoers) > 0 {
		result.Winner = nil
		result.ConsensusReached = false
		result.Metadata["vetoers"] = vetoers
	}
}

// tallyRankedChoice runs instant-runoff voting. Degrades gracefully
// (null winner, rounds=0) if no vote carries a Rank.
func tallyRankedChoice(result *VotingResult, votes []Vote) {
	hasRanks := false
	for _, v := range votes {
		if len(v.Rank) > 0 {
			hasRanks = true
			break
		}
	}
	if !hasRanks {
		result.Winner = nil
		result.ConsensusReached = false
		result.RoundsNeeded = 0
		return
	}

	// ballots: each voter's ranked list, mutated as candidates are
	// eliminated.
	ballots := make([][]string, 0, len(votes))
	for _, v := range votes {
		ranked := v.Rank
		if len(ranked) == 0 {
			ranked = []string{v.Position}
		}
		ballots = append(ballots, append([]string{}, ranked...))
	}

	eliminated := make(map[string]bool)
	rounds := 0
	for rounds < 100 {
		rounds++
		counts := make(map[string]int)
		remaining := 0
		for _, ballot := range ballots {
			choice := firstRemaining(ballot, eliminated)
			if choice == "" {
				continue
			}
			counts[choice]++
			remaining++
		}
		if remaining == 0 {
			result.Winner = nil
			result.ConsensusReached = false
			result.RoundsNeeded = rounds
			result.Breakdown = toFloatMap(counts)
			return
		}

		// Check for a majority winner.
		positions := make([]string, 0, len(counts))
		for p := range counts {
			positions = append(positions, p)
		}
		sort.Strings(positions)
		var top string
		topCount := -1
		for _, p := range positions {
			if counts[p] > topCount {
				top = p
				topCount = counts[p]
			}
		}
		if float64(topCount) > float64(remaining)/2.0 {
			result.Winner = &top
			result.ConsensusReached = true
			result.RoundsNeeded = rounds
			result.Breakdown = toFloatMap(counts)
			return
		}

		// Eliminate the minimum. Deterministic tie-break: lexicographic.
		minCount := topCount
		var minPos string
		for _, p := range positions {
			if counts[p] < minCount || minPos == "" {
				if counts[p] < minCount {
					minCount = counts[p]
					minPos = p
				} else if minPos == "" {
					minCount = counts[p]
					minPos = p
				}
			}
		}
		for _, p := range positions {
			if counts[p] == minCount && p < minPos {
				minPos = p
			}
		}
		eliminated[minPos] = true
	}

	result.Winner = nil
	result.ConsensusReached = false
	result.RoundsNeeded = rounds
}

func firstRemaining(ballot []string, eliminated map[string]bool) string {
	for _, c := range ballot {
		if !eliminated[c] {
			return c
		}
	}
	return ""
}

func toFloatMap(m map[string]int) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}
