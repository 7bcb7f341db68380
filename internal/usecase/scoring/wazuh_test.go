package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreWazuhRuleMaxedOut(t *testing.T) {
	rule := WazuhRule{
		Level:     15,
		Groups:    []string{"malware"},
		Frequency: 100,
	}
	assert.InDelta(t, 1.0, ScoreWazuhRule(rule), 1e-9)
}

func TestScoreWazuhRuleWebBlend(t *testing.T) {
	// Web-group rules blend the level score with the response-code class.
	// Level 10 => 10/15; a 200 response scores 1.0, so severity = (1.0 + 10/15)/2.
	rule := WazuhRule{
		Level:        10,
		Groups:       []string{"web", "sql_injection"},
		Frequency:    1,
		ResponseCode: 200,
	}

	severity := (1.0 + 10.0/15.0) / 2
	frequency := math.Min(math.Log1p(1)/math.Log1p(100), 1.0)
	groups := 0.7 // sql_injection alone; "web" has no group weight
	weightSum := 0.6 + 0.2 + 0.3
	want := round2((severity*0.6 + frequency*0.2 + groups*0.3) / weightSum)

	assert.InDelta(t, want, ScoreWazuhRule(rule), 1e-9)
}

func TestWazuhSeverityIgnoresResponseCodeForNonWeb(t *testing.T) {
	rule := WazuhRule{Level: 9, Groups: []string{"bruteforce"}, ResponseCode: 200}
	assert.InDelta(t, 9.0/15.0, wazuhSeverityScore(rule), 1e-9)
}

func TestResponseCodeScore(t *testing.T) {
	tests := []struct {
		code int
		want float64
	}{
		{200, 1.0},
		{204, 1.0},
		{301, 0.5},
		{304, 0.5},
		{500, 0.8},
		{504, 0.8},
		{403, 0.3},
		{404, 0.3},
		{418, 0},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, responseCodeScore(tt.code), 1e-9, "code=%d", tt.code)
	}
}

func TestWazuhFrequencyScoreSaturates(t *testing.T) {
	assert.InDelta(t, math.Log1p(1)/math.Log1p(100), wazuhFrequencyScore(1), 1e-9)
	assert.InDelta(t, math.Log1p(1)/math.Log1p(100), wazuhFrequencyScore(0), 1e-9)
	assert.InDelta(t, 1.0, wazuhFrequencyScore(100), 1e-9)
	assert.InDelta(t, 1.0, wazuhFrequencyScore(5000), 1e-9)
}

func TestWazuhGroupScoreFoldsRecon(t *testing.T) {
	// path_traversal and web_scan both fold into recon; the fold dedupes, so
	// the average is over {recon, webshell} = (0.5 + 0.8)/2 rounded to 0.7.
	got := wazuhGroupScore([]string{"path_traversal", "web_scan", "webshell"})
	assert.InDelta(t, 0.7, got, 1e-9)
}

func TestWazuhGroupScoreUnknownGroups(t *testing.T) {
	assert.Zero(t, wazuhGroupScore([]string{"syslog", "sshd"}))
	assert.Zero(t, wazuhGroupScore(nil))
}

func TestWazuhGroupScoreRoundsToOneDecimal(t *testing.T) {
	// (1.0 + 0.6)/2 = 0.8 exactly; (0.9 + 0.8)/2 = 0.85 rounds to 0.9.
	assert.InDelta(t, 0.8, wazuhGroupScore([]string{"malware", "bruteforce"}), 1e-9)
	assert.InDelta(t, 0.9, wazuhGroupScore([]string{"authentication_success", "webshell"}), 1e-9)
}
