package voting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vote(id, position string, confidence float64) Vote {
	return Vote{MemberID: id, Position: position, Confidence: confidence, Timestamp: time.Now()}
}

// S2 — Majority voting tie.
func TestTally_MajorityTie(t *testing.T) {
	votes := []Vote{
		vote("m1", "A", 0.8),
		vote("m2", "B", 0.8),
		vote("m3", "A", 0.8),
		vote("m4", "B", 0.8),
	}

	result := Tally(MethodMajority, votes, DefaultConfig())

	assert.Nil(t, result.Winner)
	assert.False(t, result.ConsensusReached)
	assert.InDelta(t, 0.8, result.ConfidenceAvg, 1e-9)
	assert.Equal(t, float64(2), result.Breakdown["A"])
	assert.Equal(t, float64(2), result.Breakdown["B"])
}

func TestTally_MajorityWins(t *testing.T) {
	votes := []Vote{
		vote("m1", "A", 0.8),
		vote("m2", "A", 0.8),
		vote("m3", "B", 0.8),
	}

	result := Tally(MethodMajority, votes, DefaultConfig())

	require.NotNil(t, result.Winner)
	assert.Equal(t, "A", *result.Winner)
	assert.True(t, result.ConsensusReached)
}

// S3 — Weighted voting with weights.
func TestTally_Weighted(t *testing.T) {
	votes := []Vote{
		{MemberID: "m1", Position: "A", Confidence: 0.9, Weight: 0.5},
		{MemberID: "m2", Position: "B", Confidence: 0.8, Weight: 1.0},
		{MemberID: "m3", Position: "A", Confidence: 0.6, Weight: 1.5},
	}

	result := Tally(MethodWeighted, votes, DefaultConfig())

	require.NotNil(t, result.Winner)
	assert.Equal(t, "A", *result.Winner)
	assert.InDelta(t, 1.35, result.Breakdown["A"], 1e-9)
	assert.InDelta(t, 0.8, result.Breakdown["B"], 1e-9)
}

// S4 — Veto short-circuit.
func TestTally_Veto(t *testing.T) {
	votes := []Vote{
		vote("m1", "A", 0.8),
		vote("m2", "A", 0.8),
		vote("m3", "B", 0.8),
		{MemberID: "m4", Position: "B", Confidence: 0.8, Veto: true, Reasoning: "unsafe"},
	}

	result := Tally(MethodVeto, votes, DefaultConfig())

	assert.Nil(t, result.Winner)
	assert.False(t, result.ConsensusReached)
	vetoers, ok := result.Metadata["vetoers"].([]map[string]string)
	require.True(t, ok)
	require.Len(t, vetoers, 1)
	assert.Equal(t, "m4", vetoers[0]["memberId"])
}

func TestTally_SuperMajority(t *testing.T) {
	votes := []Vote{
		vote("m1", "A", 0.9), vote("m2", "A", 0.9), vote("m3", "A", 0.9),
		vote("m4", "B", 0.9),
	}
	result := Tally(MethodSuperMajority, votes, DefaultConfig())
	require.NotNil(t, result.Winner)
	assert.Equal(t, "A", *result.Winner)
}

func TestTally_Unanimous_NotUnanimous(t *testing.T) {
	votes := []Vote{
		vote("m1", "A", 0.9), vote("m2", "A", 0.9), vote("m3", "B", 0.9),
	}
	result := Tally(MethodUnanimous, votes, DefaultConfig())
	assert.Nil(t, result.Winner)
}

func TestTally_RankedChoice_NoRanksDegrades(t *testing.T) {
	votes := []Vote{vote("m1", "A", 0.9), vote("m2", "B", 0.9)}
	result := Tally(MethodRankedChoice, votes, DefaultConfig())
	assert.Nil(t, result.Winner)
	assert.Equal(t, 0, result.RoundsNeeded)
}

func TestTally_RankedChoice_EliminatesToMajority(t *testing.T) {
	votes := []Vote{
		{MemberID: "m1", Position: "A", Confidence: 0.9, Rank: []string{"A", "B", "C"}},
		{MemberID: "m2", Position: "A", Confidence: 0.9, Rank: []string{"A", "C", "B"}},
		{MemberID: "m3", Position: "B", Confidence: 0.9, Rank: []string{"B", "A", "C"}},
		{MemberID: "m4", Position: "C", Confidence: 0.9, Rank: []string{"C", "B", "A"}},
		{MemberID: "m5", Position: "B", Confidence: 0.9, Rank: []string{"B", "C", "A"}},
	}
	result := Tally(MethodRankedChoice, votes, DefaultConfig())
	require.NotNil(t, result.Winner)
	assert.GreaterOrEqual(t, result.RoundsNeeded, 1)
}

func TestTally_Idempotent(t *testing.T) {
	votes := []Vote{vote("m1", "A", 0.9), vote("m2", "B", 0.5)}
	r1 := Tally(MethodConfidence, votes, DefaultConfig())
	r2 := Tally(MethodConfidence, votes, DefaultConfig())
	assert.Equal(t, r1.Winner, r2.Winner)
	assert.Equal(t, r1.Breakdown, r2.Breakdown)
}

func TestTally_Empty(t *testing.T) {
	result := Tally(MethodMajority, nil, DefaultConfig())
	assert.Nil(t, result.Winner)
	assert.False(t, result.ConsensusReached)
	assert.Equal(t, float64(0), result.ConfidenceAvg)
}
