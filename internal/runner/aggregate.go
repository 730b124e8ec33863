package runner

import (
	"sort"
)

// maxRootCauseTags caps the tag summary attached to a snapshot.
const maxRootCauseTags = 3

// #region aggregate
// Aggregate reduces case results into a snapshot. Results are sorted by case
// ID before summation, so any permutation of the same results yields the
// identical snapshot. SnapshotID and Timestamp are left for the caller.
func Aggregate(results []CaseResult, threshold float64, tagWeights map[string]float64) RunSnapshot {
	sorted := sortedByID(results)

	snap := RunSnapshot{
		Threshold:     threshold,
		Total:         len(sorted),
		RootCauseTags: []string{},
	}
	if len(sorted) == 0 {
		return snap
	}

	var weightSum, passedWeight float64
	failures, newFailures, flaky := 0, 0, 0
	tagCounts := make(map[string]int)

	for _, r := range sorted {
		w := caseWeight(r.Tags, tagWeights)
		weightSum += w
		if r.Passed {
			snap.PassedCount++
			passedWeight += w
		} else {
			failures++
			if r.IsNewFailure {
				newFailures++
			}
			for _, tag := range uniqueTags(r.Tags) {
				tagCounts[tag]++
			}
		}
		if r.IsFlaky {
			flaky++
		}
	}

	if weightSum > 0 {
		snap.WeightedPassRate = passedWeight / weightSum * 100
	}
	if failures > 0 {
		snap.NewFailRatio = float64(newFailures) / float64(failures) * 100
	}
	snap.FlakyRate = float64(flaky) / float64(len(sorted)) * 100
	snap.RootCauseTags = topTags(tagCounts, maxRootCauseTags)
	return snap
}

// caseWeight is the largest configured weight among the case's tags, or 1.
func caseWeight(tags []string, weights map[string]float64) float64 {
	best, found := 0.0, false
	for _, tag := range tags {
		if w, ok := weights[tag]; ok && (!found || w > best) {
			best, found = w, true
		}
	}
	if !found {
		return 1
	}
	return best
}

// topTags orders tags by count descending, then name ascending.
func topTags(counts map[string]int, limit int) []string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortedByID(results []CaseResult) []CaseResult {
	sorted := append([]CaseResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CaseID < sorted[j].CaseID })
	return sorted
}

// BaselineFrom builds the new-failure baseline from a committed run's results.
func BaselineFrom(results []CaseResult) Baseline {
	b := make(Baseline, len(results))
	for _, r := range results {
		b[r.CaseID] = r.Passed
	}
	return b
}

// #endregion aggregate
