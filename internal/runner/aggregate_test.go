package runner

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleResults() []CaseResult {
	var out []CaseResult
	for i := 0; i < 37; i++ {
		r := CaseResult{
			CaseID: fmt.Sprintf("case-%02d", i),
			Passed: i%3 != 0,
			Tags:   []string{fmt.Sprintf("t%d", i%5)},
		}
		if !r.Passed && i%2 == 0 {
			r.IsNewFailure = true
		}
		if i%7 == 0 {
			r.IsFlaky = true
		}
		out = append(out, r)
	}
	return out
}

func TestAggregatePermutationInvariant(t *testing.T) {
	weights := map[string]float64{"t1": 0.3, "t2": 1.7, "t4": 0.1}
	base := sampleResults()
	want := Aggregate(base, 0.72, weights)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]CaseResult(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled, 0.72, weights)
		if got.WeightedPassRate != want.WeightedPassRate || got.NewFailRatio != want.NewFailRatio ||
			got.FlakyRate != want.FlakyRate || fmt.Sprint(got.RootCauseTags) != fmt.Sprint(want.RootCauseTags) {
			t.Fatalf("permutation %d changed the snapshot: %+v vs %+v", i, got, want)
		}
	}
}

func TestAggregateTagWeights(t *testing.T) {
	results := []CaseResult{
		{CaseID: "a", Passed: true, Tags: []string{"critical", "minor"}},
		{CaseID: "b", Passed: false, Tags: []string{"minor"}},
	}
	weights := map[string]float64{"critical": 3, "minor": 0.5}

	snap := Aggregate(results, 0.7, weights)

	// a weighs 3 (max of its tags), b weighs 0.5
	assert.InDelta(t, 3/3.5*100, snap.WeightedPassRate, 1e-9)
	assert.Equal(t, 1, snap.PassedCount)
	assert.Equal(t, 0.0, snap.NewFailRatio)
	assert.Equal(t, []string{"minor"}, snap.RootCauseTags)
}

func TestAggregateDefaultWeightIsOne(t *testing.T) {
	results := []CaseResult{
		{CaseID: "a", Passed: true},
		{CaseID: "b", Passed: false, Tags: []string{"x"}},
		{CaseID: "c", Passed: false, IsNewFailure: true},
		{CaseID: "d", Passed: true, IsFlaky: true},
	}
	snap := Aggregate(results, 0.7, nil)

	assert.Equal(t, 50.0, snap.WeightedPassRate)
	assert.Equal(t, 50.0, snap.NewFailRatio)
	assert.Equal(t, 25.0, snap.FlakyRate)
	assert.Equal(t, 0.7, snap.Threshold)
}

func TestAggregateEmpty(t *testing.T) {
	snap := Aggregate(nil, 0.7, nil)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.WeightedPassRate)
	assert.NotNil(t, snap.RootCauseTags)
}

func TestTopTagsOrdering(t *testing.T) {
	got := topTags(map[string]int{"x": 2, "a": 2, "b": 1, "c": 1, "z": 5}, 3)
	assert.Equal(t, []string{"z", "a", "x"}, got)
}

func TestBaselineFrom(t *testing.T) {
	b := BaselineFrom([]CaseResult{{CaseID: "a", Passed: true}, {CaseID: "b"}})
	assert.True(t, b["a"])
	assert.False(t, b["b"])
	assert.False(t, b["missing"])
}
