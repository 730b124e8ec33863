package canary

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
)

// #region evaluate
// Evaluate aggregates the observations inside the window ending at now and
// decides whether the candidate threshold can be promoted. When candidate is
// set, only observations taken at that threshold count. Shadow metrics, when
// present, are averaged together with the per-observation flaky and
// new-failure values.
func Evaluate(observations []WindowObservation, now time.Time, criteria Criteria, candidate *float64, shadow *ShadowMetrics) (WindowEvaluation, error) {
	days := criteria.WindowDays
	if days <= 0 {
		days = DefaultCriteria().WindowDays
	}
	from := now.AddDate(0, 0, -days)

	var window []WindowObservation
	for _, o := range observations {
		if !o.Date.After(from) || o.Date.After(now) {
			continue
		}
		if candidate != nil && basisPoints(o.Threshold) != basisPoints(*candidate) {
			continue
		}
		if err := checkFinite(o); err != nil {
			return WindowEvaluation{}, err
		}
		window = append(window, o)
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date.Before(window[j].Date) })

	if shadow != nil && (!finite(shadow.FlakyRate) || !finite(shadow.NewFailRatio)) {
		return WindowEvaluation{}, apperr.DataErrorf("shadow metrics are not finite")
	}

	m, err := computeMetrics(window, shadow)
	if err != nil {
		return WindowEvaluation{}, err
	}

	ev := Decide(m, len(window), criteria)
	ev.Period = Period{From: from, To: now, Days: days, Observations: len(window)}
	if len(window) > 0 {
		latest := window[len(window)-1].Date
		ev.Period.Latest = &latest
	}
	if candidate != nil {
		c := *candidate
		ev.Candidate = &c
	}
	return ev, nil
}

// Decide applies the promotion conditions to window metrics. Fewer
// observations than the configured minimum is always insufficient_data,
// whatever the metrics say.
func Decide(m Metrics, observations int, criteria Criteria) WindowEvaluation {
	ev := WindowEvaluation{
		Period:           Period{Observations: observations},
		Metrics:          m,
		FailedConditions: []string{},
	}

	minObs := criteria.MinObservations
	if minObs <= 0 {
		minObs = DefaultCriteria().MinObservations
	}
	if observations < minObs {
		ev.Decision = DecisionInsufficientData
		ev.DecisionReason = fmt.Sprintf("observations %d < minimum %d", observations, minObs)
		return ev
	}

	ev.Conditions = Conditions{
		AvgPassRateOK:     m.AvgPassRate >= criteria.MinAvgPassRate,
		MinPassRateOK:     m.MinPassRate >= criteria.MinPassRate,
		AvgFlakyRateOK:    m.AvgFlakyRate < criteria.MaxAvgFlakyRate,
		AvgNewFailRatioOK: m.AvgNewFailRatio <= criteria.MaxAvgNewFailRatio,
	}

	// Fixed order keeps the reason string identical for identical inputs.
	var reasons []string
	if !ev.Conditions.AvgPassRateOK {
		ev.FailedConditions = append(ev.FailedConditions, "avg_pass_rate")
		reasons = append(reasons, fmt.Sprintf("avg_pass_rate %.1f < %.1f", m.AvgPassRate, criteria.MinAvgPassRate))
	}
	if !ev.Conditions.AvgFlakyRateOK {
		ev.FailedConditions = append(ev.FailedConditions, "avg_flaky_rate")
		reasons = append(reasons, fmt.Sprintf("avg_flaky_rate %.1f >= %.1f", m.AvgFlakyRate, criteria.MaxAvgFlakyRate))
	}
	if !ev.Conditions.AvgNewFailRatioOK {
		ev.FailedConditions = append(ev.FailedConditions, "avg_new_fail_ratio")
		reasons = append(reasons, fmt.Sprintf("avg_new_fail_ratio %.1f > %.1f", m.AvgNewFailRatio, criteria.MaxAvgNewFailRatio))
	}
	if !ev.Conditions.MinPassRateOK {
		ev.FailedConditions = append(ev.FailedConditions, "min_pass_rate")
		reasons = append(reasons, fmt.Sprintf("min_pass_rate %.1f < %.1f", m.MinPassRate, criteria.MinPassRate))
	}

	if len(reasons) == 0 {
		ev.Decision = DecisionPromote
		ev.DecisionReason = "all conditions met"
		return ev
	}
	ev.Decision = DecisionContinueCanary
	ev.DecisionReason = strings.Join(reasons, "; ")
	return ev
}

// #endregion evaluate

// #region metrics
func computeMetrics(window []WindowObservation, shadow *ShadowMetrics) (Metrics, error) {
	var m Metrics
	if len(window) == 0 {
		return m, nil
	}

	passRates := make([]float64, 0, len(window))
	var flaky, newFail []float64
	for _, o := range window {
		passRates = append(passRates, o.PassRate)
		if o.FlakyRate != nil {
			flaky = append(flaky, *o.FlakyRate)
		}
		if o.NewFailRatio != nil {
			newFail = append(newFail, *o.NewFailRatio)
		}
	}
	if shadow != nil {
		flaky = append(flaky, shadow.FlakyRate)
		newFail = append(newFail, shadow.NewFailRatio)
	}

	var err error
	if m.AvgPassRate, err = stats.Mean(passRates); err != nil {
		return Metrics{}, fmt.Errorf("avg pass rate: %w", err)
	}
	if m.MinPassRate, err = stats.Min(passRates); err != nil {
		return Metrics{}, fmt.Errorf("min pass rate: %w", err)
	}
	if m.AvgFlakyRate, err = meanOrZero(flaky); err != nil {
		return Metrics{}, fmt.Errorf("avg flaky rate: %w", err)
	}
	if m.AvgNewFailRatio, err = meanOrZero(newFail); err != nil {
		return Metrics{}, fmt.Errorf("avg new fail ratio: %w", err)
	}
	m.FlakySamples = len(flaky)
	m.NewFailRatioSamples = len(newFail)
	return m, nil
}

func meanOrZero(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	return stats.Mean(values)
}

// #endregion metrics

// #region load
// LoadObservations reads and validates an observation log.
func LoadObservations(path string) (*ObservationLog, error) {
	var log ObservationLog
	if err := golden.DecodeFile(path, &log); err != nil {
		return nil, err
	}
	if err := golden.Validate(&log); err != nil {
		return nil, fmt.Errorf("observations %s: %w", path, err)
	}
	return &log, nil
}

// #endregion load

// #region helpers
func basisPoints(v float64) int64 {
	return int64(math.Round(v * 10000))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkFinite(o WindowObservation) error {
	if !finite(o.PassRate) || !finite(o.Threshold) ||
		(o.FlakyRate != nil && !finite(*o.FlakyRate)) ||
		(o.NewFailRatio != nil && !finite(*o.NewFailRatio)) {
		return apperr.DataErrorf("observation %s has non-finite values", o.Date.Format(time.RFC3339))
	}
	return nil
}

// #endregion helpers
