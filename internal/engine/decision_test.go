package engine

import (
	"testing"

	"trustpay/internal/model"
)

func TestDecisionBands(t *testing.T) {
	cases := []struct {
		score int
		want  model.Decision
	}{
		{0, model.DecisionApprove},
		{24, model.DecisionApprove},
		{25, model.DecisionFlag},
		{49, model.DecisionFlag},
		{50, model.DecisionFlag},
		{79, model.DecisionFlag},
		{80, model.DecisionBlock},
		{100, model.DecisionBlock},
	}
	for _, tc := range cases {
		if got := Decide(tc.score); got != tc.want {
			t.Fatalf("Decide(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestRiskLevels(t *testing.T) {
	cases := []struct {
		score int
		want  model.Severity
	}{
		{0, model.SeverityLow},
		{24, model.SeverityLow},
		{25, model.SeverityMedium},
		{49, model.SeverityMedium},
		{50, model.SeverityHigh},
		{79, model.SeverityHigh},
		{80, model.SeverityCritical},
		{100, model.SeverityCritical},
	}
	for _, tc := range cases {
		if got := RiskLevel(tc.score); got != tc.want {
			t.Fatalf("RiskLevel(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestElevatedFlagBand(t *testing.T) {
	for _, score := range []int{50, 65, 79} {
		if !Elevated(score) {
			t.Fatalf("Elevated(%d) = false, want true", score)
		}
	}
	for _, score := range []int{0, 25, 49, 80, 100} {
		if Elevated(score) {
			t.Fatalf("Elevated(%d) = true, want false", score)
		}
	}
}
