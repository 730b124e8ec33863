package promotion

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
)

// All threshold arithmetic runs on integer basis points so grid checks are exact.
const bpScale = 10000

func toBP(v float64) int64 {
	return int64(math.Round(v * bpScale))
}

func fromBP(bp int64) float64 {
	return float64(bp) / bpScale
}

// ceilToGrid rounds up to the next multiple of grid.
func ceilToGrid(bp, grid int64) int64 {
	q := bp / grid
	if bp%grid != 0 && bp > 0 {
		q++
	}
	return q * grid
}

// #region validate-policy
// Validate checks that the policy itself is coherent.
func (p Policy) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"min_step", p.MinStep}, {"max_step", p.MaxStep}, {"grid", p.Grid},
		{"ceiling", p.Ceiling}, {"divergence_tolerance", p.DivergenceTolerance},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("promotion policy: %s is not finite", f.name)
		}
	}
	switch {
	case toBP(p.Grid) <= 0:
		return fmt.Errorf("promotion policy: grid must be positive, got %v", p.Grid)
	case toBP(p.MinStep) <= 0:
		return fmt.Errorf("promotion policy: min_step must be positive, got %v", p.MinStep)
	case p.MaxStep < p.MinStep:
		return fmt.Errorf("promotion policy: max_step %v below min_step %v", p.MaxStep, p.MinStep)
	case p.Ceiling <= 0 || p.Ceiling > 1:
		return fmt.Errorf("promotion policy: ceiling must be in (0,1], got %v", p.Ceiling)
	case p.DivergenceTolerance < 0:
		return fmt.Errorf("promotion policy: divergence_tolerance must be >= 0, got %v", p.DivergenceTolerance)
	}
	for _, pt := range p.Preferred {
		if pt.From < 0 || pt.From > p.Ceiling || math.IsNaN(pt.To) || math.IsInf(pt.To, 0) {
			return fmt.Errorf("promotion policy: preferred entry %v -> %v out of range", pt.From, pt.To)
		}
	}
	return nil
}

// #endregion validate-policy

// #region decide
// Decide proposes the next threshold from the authoritative current value,
// clamps the step into policy bounds and validates the result. Only a corrupt
// current value or naive target is an error; policy violations come back as
// Valid=false with every violation listed.
func Decide(policy Policy, req Request) (PromotionDecision, error) {
	if err := checkThreshold("current", req.Current, policy.Ceiling); err != nil {
		return PromotionDecision{}, err
	}
	cur := toBP(req.Current)
	minStep, maxStep := toBP(policy.MinStep), toBP(policy.MaxStep)

	d := PromotionDecision{
		Current:    fromBP(cur),
		ActualUsed: fromBP(cur),
	}

	// The config value always wins; a diverging shadow value is only reported.
	if req.ShadowValue != nil {
		shadow := *req.ShadowValue
		if math.IsNaN(shadow) || math.IsInf(shadow, 0) {
			return PromotionDecision{}, apperr.DataErrorf("shadow value is not finite")
		}
		d.ShadowValue = &shadow
		if abs64(toBP(shadow)-cur) > toBP(policy.DivergenceTolerance) {
			d.DivergenceDetected = true
		}
	}

	naive := ceilToGrid(cur+minStep, toBP(policy.Grid))
	if req.NaiveTarget != nil {
		if math.IsNaN(*req.NaiveTarget) || math.IsInf(*req.NaiveTarget, 0) {
			return PromotionDecision{}, apperr.DataErrorf("naive target is not finite")
		}
		naive = toBP(*req.NaiveTarget)
	}
	d.NaiveTarget = fromBP(naive)

	step := naive - cur
	clamped := min(max(step, minStep), maxStep)
	d.ClampingApplied = clamped != step
	target := cur + clamped

	d.Target = fromBP(target)
	d.Step = fromBP(clamped)
	d.Violations = violations(policy, cur, target)
	if pref, ok := preferredTarget(policy, cur); ok {
		p := fromBP(pref)
		d.PreferredTarget = &p
	}
	d.Valid = len(d.Violations) == 0
	d.Reason = ReasonOK
	if !d.Valid {
		d.Reason = d.Violations[0]
	}
	return d, nil
}

// Validate checks an explicit target against the policy without clamping.
// It returns the violations in fixed order; an empty slice means valid.
func Validate(policy Policy, current, target float64) ([]string, error) {
	if err := checkThreshold("current", current, policy.Ceiling); err != nil {
		return nil, err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return nil, apperr.DataErrorf("target is not finite")
	}
	return violations(policy, toBP(current), toBP(target)), nil
}

// #endregion decide

// #region helpers
func violations(policy Policy, cur, target int64) []string {
	out := []string{}
	step := target - cur
	if step > toBP(policy.MaxStep) {
		out = append(out, ReasonOvershoot)
	}
	if step < toBP(policy.MinStep) {
		out = append(out, ReasonUnderstep)
	}
	if target%toBP(policy.Grid) != 0 {
		out = append(out, ReasonOffGrid)
	}
	if pref, ok := preferredTarget(policy, cur); ok && target != pref {
		out = append(out, ReasonPreferredIgnored)
	}
	if target > toBP(policy.Ceiling) {
		out = append(out, ReasonCeilingExceeded)
	}
	return out
}

// preferredTarget is the policy table entry for cur, else the next grid point
// at least one minimum step away. It is ignored when above the ceiling.
func preferredTarget(policy Policy, cur int64) (int64, bool) {
	pref := ceilToGrid(cur+toBP(policy.MinStep), toBP(policy.Grid))
	for _, pt := range policy.Preferred {
		if toBP(pt.From) == cur {
			pref = toBP(pt.To)
			break
		}
	}
	if pref > toBP(policy.Ceiling) {
		return 0, false
	}
	return pref, true
}

func checkThreshold(name string, v, ceiling float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > ceiling {
		return apperr.DataErrorf("%s threshold %v outside [0, %v]", name, v, ceiling)
	}
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion helpers
