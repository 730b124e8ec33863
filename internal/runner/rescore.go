package runner

import (
	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
)

// #region rescore
// Drift is a case whose stored verdict differs from a fresh evaluation of the
// stored prediction.
type Drift struct {
	CaseID       string  `json:"case_id"`
	StoredScore  float64 `json:"stored_score"`
	StoredPassed bool    `json:"stored_passed"`
	Score        float64 `json:"score"`
	Passed       bool    `json:"passed"`
	Reason       string  `json:"reason"`
}

// RescoreReport compares stored results with recomputed ones.
type RescoreReport struct {
	Threshold float64 `json:"threshold"`
	Checked   int     `json:"checked"`
	Drifts    []Drift `json:"drifts"`
}

// Rescore re-evaluates stored predictions against the current fixtures. The
// stored prediction is the repeat that agreed with the majority, so its fresh
// verdict must equal the stored one unless scoring or the reference changed.
// Results that failed at generation are skipped; results whose case is gone
// from the fixtures are reported as drift.
func Rescore(evaluator *eval.Evaluator, cases []golden.TestCase, stored []CaseResult, threshold float64) RescoreReport {
	refs := make(map[string]string, len(cases))
	for _, c := range cases {
		refs[c.ID] = c.Reference
	}

	report := RescoreReport{Threshold: threshold, Drifts: []Drift{}}
	for _, r := range sortedByID(stored) {
		ref, ok := refs[r.CaseID]
		if !ok {
			report.Drifts = append(report.Drifts, Drift{
				CaseID: r.CaseID, StoredScore: r.Score, StoredPassed: r.Passed,
				Reason: "case missing from fixtures",
			})
			continue
		}
		if r.Prediction == "" && r.Error != "" {
			continue
		}
		report.Checked++

		m := evaluator.Match(ref, r.Prediction)
		passed := m.Error == "" && m.Score >= threshold
		if passed == r.Passed {
			continue
		}
		reason := "verdict changed"
		if m.Error != "" {
			reason = m.Error
		}
		report.Drifts = append(report.Drifts, Drift{
			CaseID: r.CaseID, StoredScore: r.Score, StoredPassed: r.Passed,
			Score: m.Score, Passed: passed, Reason: reason,
		})
	}
	return report
}

// #endregion rescore
