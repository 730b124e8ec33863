package eval

import (
	"math"
	"sort"
	"unicode/utf8"
)

// #region evaluator
// Evaluator scores predictions against references. It is immutable after
// construction and safe for concurrent use by the runner's workers.
type Evaluator struct {
	config     MatchConfig
	normalizer *Normalizer
}

// NewEvaluator creates an evaluator with the given tolerances.
func NewEvaluator(config MatchConfig) *Evaluator {
	n := defaultNormalizer
	if len(config.Synonyms) > 0 {
		n = NewNormalizer(config.Synonyms)
	}
	return &Evaluator{config: config, normalizer: n}
}

var defaultEvaluator = NewEvaluator(DefaultMatchConfig())

// Match scores prediction against reference with the default tolerances.
func Match(reference, prediction string) MatchResult {
	return defaultEvaluator.Match(reference, prediction)
}

// Normalize canonicalizes text with this evaluator's synonym table.
func (e *Evaluator) Normalize(text string) string {
	return e.normalizer.Normalize(text)
}

// Match compares the normalized token sets of reference and prediction.
// Tokens pair up in three passes: exact text, numbers within tolerance, then
// near-miss spellings (renames, partial credit only). The score is the
// Jaccard ratio over the paired sets.
func (e *Evaluator) Match(reference, prediction string) MatchResult {
	if !utf8.ValidString(reference) {
		return failed("reference is not valid UTF-8")
	}
	if !utf8.ValidString(prediction) {
		return failed("prediction is not valid UTF-8")
	}

	ref := tokenize(e.normalizer.Normalize(reference))
	pred := tokenize(e.normalizer.Normalize(prediction))

	switch {
	case len(ref) == 0 && len(pred) == 0:
		return MatchResult{Score: 1, Missing: []string{}, Extra: []string{}}
	case len(ref) == 0:
		res := failed("reference is empty after normalization")
		res.Extra = texts(pred, nil)
		return res
	}

	refUsed := make([]bool, len(ref))
	predUsed := make([]bool, len(pred))

	exact := e.pairExact(ref, pred, refUsed, predUsed)
	numeric := e.pairNumeric(ref, pred, refUsed, predUsed)
	renames := e.pairRenames(ref, pred, refUsed, predUsed)

	matched := exact + numeric
	union := len(ref) + len(pred) - matched - len(renames)
	score := (float64(matched) + e.config.RenameCredit*float64(len(renames))) / float64(union)

	return MatchResult{
		Score:          clamp01(score),
		Missing:        texts(ref, refUsed),
		Extra:          texts(pred, predUsed),
		Renames:        renames,
		ExactMatches:   exact,
		NumericMatches: numeric,
	}
}

// #endregion evaluator

// #region pairing
func (e *Evaluator) pairExact(ref, pred []token, refUsed, predUsed []bool) int {
	index := make(map[string]int, len(pred))
	for j, p := range pred {
		index[p.text] = j
	}
	count := 0
	for i, r := range ref {
		j, ok := index[r.text]
		if !ok || predUsed[j] {
			continue
		}
		refUsed[i], predUsed[j] = true, true
		count++
	}
	return count
}

// pairNumeric pairs each remaining reference number, in order, with the
// closest unused predicted number inside tolerance. Ties go to the earlier one.
func (e *Evaluator) pairNumeric(ref, pred []token, refUsed, predUsed []bool) int {
	count := 0
	for i, r := range ref {
		if refUsed[i] || !r.numeric {
			continue
		}
		best, bestDiff := -1, math.Inf(1)
		for j, p := range pred {
			if predUsed[j] || !p.numeric || !e.withinTolerance(r.value, p.value) {
				continue
			}
			if d := math.Abs(r.value - p.value); d < bestDiff {
				best, bestDiff = j, d
			}
		}
		if best < 0 {
			continue
		}
		refUsed[i], predUsed[best] = true, true
		count++
	}
	return count
}

func (e *Evaluator) withinTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= e.config.AbsoluteTolerance {
		return true
	}
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), e.config.Epsilon)
	return diff/denom <= e.config.RelativeTolerance
}

// pairRenames pairs leftover non-numeric tokens whose spelling similarity
// clears the rename threshold, best pairs first.
func (e *Evaluator) pairRenames(ref, pred []token, refUsed, predUsed []bool) []Rename {
	type candidate struct {
		i, j int
		sim  float64
	}
	var candidates []candidate
	for i, r := range ref {
		if refUsed[i] || r.numeric {
			continue
		}
		for j, p := range pred {
			if predUsed[j] || p.numeric {
				continue
			}
			if sim := similarity(r.text, p.text); sim >= e.config.RenameSimilarity {
				candidates = append(candidates, candidate{i: i, j: j, sim: sim})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].sim != candidates[b].sim {
			return candidates[a].sim > candidates[b].sim
		}
		if candidates[a].i != candidates[b].i {
			return candidates[a].i < candidates[b].i
		}
		return candidates[a].j < candidates[b].j
	})

	renames := []Rename{}
	for _, c := range candidates {
		if refUsed[c.i] || predUsed[c.j] {
			continue
		}
		refUsed[c.i], predUsed[c.j] = true, true
		renames = append(renames, Rename{Missing: ref[c.i].text, Extra: pred[c.j].text, Similarity: c.sim})
	}
	if len(renames) == 0 {
		return nil
	}
	return renames
}

// #endregion pairing

// #region helpers
func failed(reason string) MatchResult {
	return MatchResult{Score: 0, Missing: []string{}, Extra: []string{}, Error: reason}
}

// texts lists the tokens not marked used, in order.
func texts(tokens []token, used []bool) []string {
	out := []string{}
	for i, t := range tokens {
		if used != nil && used[i] {
			continue
		}
		out = append(out, t.text)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
