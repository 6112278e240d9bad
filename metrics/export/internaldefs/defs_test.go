package internaldefs

import (
	"testing"

	"github.com/MrEthical07/passport"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	if len(CounterDefs) != len(passport.MetricIDs())-1 {
		t.Fatalf("expected one def per counter, got %d", len(CounterDefs))
	}
	seen := map[string]bool{}
	for _, def := range CounterDefs {
		if def.Help == "" {
			t.Fatalf("missing help for %s", def.Name)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		seen[def.Name] = true
	}
	if !seen["passport_login_success_total"] {
		t.Fatalf("expected passport_login_success_total, got %v", seen)
	}
}

func TestHistogramLabels(t *testing.T) {
	if HistogramBounds[0] != "0.005" || HistogramBounds[len(HistogramBounds)-1] != "+Inf" {
		t.Fatalf("unexpected bounds %v", HistogramBounds)
	}
	if HistogramBoundSuffix[0] != "0_005" || HistogramBoundSuffix[len(HistogramBoundSuffix)-1] != "inf" {
		t.Fatalf("unexpected suffixes %v", HistogramBoundSuffix)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	if got[2] != 6 || got[BucketCount-1] != 6 {
		t.Fatalf("unexpected cumulative buckets %v", got)
	}
}
