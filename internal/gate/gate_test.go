package gate

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

func TestGuardAbortsOnLowPassRate(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	v := g.Evaluate(Metrics{PassRate: 60, NewFailRatio: 50})

	if !v.Abort {
		t.Fatalf("expected abort, got %s", v.Reason)
	}
	if v.Reason != "Pass Rate 60.0% < 65%" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
	if len(v.Signals) != 1 || v.Signals[0].Type != SignalPassRateFloor {
		t.Fatalf("expected one pass rate signal, got %+v", v.Signals)
	}
}

func TestGuardPassesHealthyRun(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	v := g.Evaluate(Metrics{PassRate: 90, NewFailRatio: 30})

	if v.Abort {
		t.Fatalf("expected no abort, got %s", v.Reason)
	}
	if len(v.Signals) != 0 {
		t.Fatalf("expected no signals, got %+v", v.Signals)
	}
}

func TestGuardAbortsOnNewFailures(t *testing.T) {
	v := Check(Metrics{PassRate: 80, NewFailRatio: 75}, DefaultGuardConfig())

	if !v.Abort {
		t.Fatal("expected abort")
	}
	if v.Reason != "New Fail Ratio 75.0% > 70%" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestGuardBoundariesDoNotAbort(t *testing.T) {
	v := Check(Metrics{PassRate: 65, NewFailRatio: 70}, DefaultGuardConfig())
	if v.Abort {
		t.Fatalf("limits are inclusive: %s", v.Reason)
	}
}

func TestGuardListsAllSignalsInOrder(t *testing.T) {
	v := Check(Metrics{PassRate: 10, NewFailRatio: 90}, DefaultGuardConfig())

	if len(v.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(v.Signals))
	}
	if v.Signals[0].Type != SignalPassRateFloor || v.Signals[1].Type != SignalNewFailCeiling {
		t.Fatalf("unexpected order: %+v", v.Signals)
	}
	if v.Reason != "Pass Rate 10.0% < 65%; New Fail Ratio 90.0% > 70%" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestGuardNonFiniteAborts(t *testing.T) {
	for _, m := range []Metrics{
		{PassRate: math.NaN(), NewFailRatio: 0},
		{PassRate: 90, NewFailRatio: math.Inf(1)},
	} {
		v := Check(m, DefaultGuardConfig())
		if !v.Abort {
			t.Fatalf("non-finite metrics must abort: %+v", m)
		}
		if v.Signals[0].Type != SignalNonFinite {
			t.Fatalf("expected non-finite signal first, got %+v", v.Signals)
		}
	}
}

func TestMetricsFromSnapshot(t *testing.T) {
	m := MetricsFromSnapshot(runner.RunSnapshot{WeightedPassRate: 72.5, NewFailRatio: 12})
	if m.PassRate != 72.5 || m.NewFailRatio != 12 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}
