package models

import "testing"

func TestClassifyRisk_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		failed   int
		max      int
		expected RiskLevel
	}{
		{"no failures", 0, 5, RiskLow},
		{"one of five", 1, 5, RiskLow},
		{"two of five", 2, 5, RiskMedium},
		{"three of five is the 0.6 boundary", 3, 5, RiskHigh},
		{"four of five", 4, 5, RiskHigh},
		{"at threshold", 5, 5, RiskCritical},
		{"above threshold", 7, 5, RiskCritical},
		{"ip scale low", 4, 15, RiskLow},
		{"ip scale high", 14, 15, RiskCritical},
	}

	for _, tt := range tests {
		if got := ClassifyRisk(tt.failed, tt.max); got != tt.expected {
			t.Errorf("%s: ClassifyRisk(%d, %d) = %s, want %s", tt.name, tt.failed, tt.max, got, tt.expected)
		}
	}
}

func TestClassifyRisk_ZeroThreshold(t *testing.T) {
	// A misconfigured threshold must not divide by zero or report safety
	if got := ClassifyRisk(0, 0); got != RiskCritical {
		t.Errorf("ClassifyRisk(0, 0) = %s, want CRITICAL", got)
	}
}

func TestAttemptType_Valid(t *testing.T) {
	if !AttemptTypeIP.Valid() || !AttemptTypeUser.Valid() {
		t.Error("expected ip and user to be valid attempt types")
	}
	if AttemptType("email").Valid() {
		t.Error("expected unknown attempt type to be invalid")
	}
}
