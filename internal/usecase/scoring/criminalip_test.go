package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCriminalIPWorstCase(t *testing.T) {
	raw := json.RawMessage(`{
		"status": 200,
		"tags": ["scanner", "vpn"],
		"ip_scoring": {"inbound": "Critical", "outbound": "Critical", "is_malicious": true},
		"current_open_ports": {"TCP": [
			{"has_vulnerability": true}, {"has_vulnerability": false}, {"has_vulnerability": false},
			{"has_vulnerability": false}, {"has_vulnerability": false}, {"has_vulnerability": false},
			{"has_vulnerability": false}, {"has_vulnerability": false}, {"has_vulnerability": false},
			{"has_vulnerability": false}, {"has_vulnerability": false}
		]},
		"summary": {"security": {"vulnerabilities": 12, "exploit_db": 3, "policy_violation": 1}}
	}`)

	sub, err := ScoreCriminalIP(raw)
	require.NoError(t, err)
	assert.True(t, sub.Contributed)
	assert.InDelta(t, 100.0, sub.Score, 1e-9)

	var tags []string
	require.NoError(t, json.Unmarshal(sub.Classification, &tags))
	assert.Equal(t, []string{"scanner", "vpn"}, tags)
}

func TestScoreCriminalIPQuietHost(t *testing.T) {
	// A host with nothing open beyond the baseline still collects the
	// minimum open-port exposure factor: 0.2 * 0.08 = 1.6 on the 100 scale.
	raw := json.RawMessage(`{
		"status": 200,
		"ip_scoring": {"inbound": "Low", "outbound": "Low", "is_malicious": false},
		"current_open_ports": {"TCP": []},
		"summary": {"security": {"vulnerabilities": 0, "exploit_db": 0, "policy_violation": 0}}
	}`)

	sub, err := ScoreCriminalIP(raw)
	require.NoError(t, err)
	// inbound Low 0.17*0.23 + outbound Low 0.25*0.15 + ports 0.2*0.08
	want := round2((0.17*0.23 + 0.25*0.15 + 0.2*0.08) * 100)
	assert.InDelta(t, want, sub.Score, 1e-9)
	assert.Nil(t, sub.Classification)
}

func TestScoreCriminalIPMidBuckets(t *testing.T) {
	raw := json.RawMessage(`{
		"status": 200,
		"ip_scoring": {"inbound": "High", "outbound": "Moderate", "is_malicious": false},
		"current_open_ports": {"TCP": [
			{"has_vulnerability": false}, {"has_vulnerability": false}, {"has_vulnerability": false},
			{"has_vulnerability": false}, {"has_vulnerability": false}
		]},
		"summary": {"security": {"vulnerabilities": 7, "exploit_db": 1, "policy_violation": 0}}
	}`)

	sub, err := ScoreCriminalIP(raw)
	require.NoError(t, err)
	want := round2((0.67*0.23 + 0.5*0.15 + 0.5*0.08 + 0.67*0.12 + 0.5*0.08) * 100)
	assert.InDelta(t, want, sub.Score, 1e-9)
}

func TestScoreCriminalIPRejectsNon200(t *testing.T) {
	_, err := ScoreCriminalIP(json.RawMessage(`{"status": 403}`))
	assert.Error(t, err)
}

func TestCriminalIPRiskLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "Critical"},
		{81, "Critical"},
		{80.9, "High"},
		{61, "High"},
		{60, "Medium"},
		{31, "Medium"},
		{30, "Low"},
		{0, "Low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CriminalIPRiskLevel(tt.score), "score=%v", tt.score)
	}
}
