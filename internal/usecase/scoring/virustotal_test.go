package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vtPayload(t *testing.T, stats map[string]int, reputation int, verdicts map[string]sandboxVerdict, tags []string) json.RawMessage {
	t.Helper()

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"attributes": map[string]interface{}{
				"last_analysis_stats": stats,
				"reputation":          reputation,
				"sandbox_verdicts":    verdicts,
				"type_tags":           tags,
			},
		},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return b
}

func TestScoreVirusTotalDetectionOnly(t *testing.T) {
	// 12/100 malicious lands in the top detection bucket; with neutral
	// reputation and no sandbox data the score is the detection weight alone.
	raw := vtPayload(t, map[string]int{"malicious": 12, "harmless": 88}, 0, nil, nil)

	sub, err := ScoreVirusTotal(raw)
	require.NoError(t, err)
	assert.True(t, sub.Contributed)
	assert.InDelta(t, 40.0, sub.Score, 1e-9)
}

func TestScoreVirusTotalExcludesNonRunningEngines(t *testing.T) {
	// 5 malicious out of 50 engines that actually ran is a 10% rate even
	// though another 50 engines reported type-unsupported or timeouts.
	stats := map[string]int{
		"malicious":         5,
		"harmless":          45,
		"type-unsupported":  30,
		"timeout":           10,
		"confirmed-timeout": 5,
		"failure":           5,
	}
	raw := vtPayload(t, stats, 0, nil, nil)

	sub, err := ScoreVirusTotal(raw)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, sub.Score, 1e-9)
}

func TestScoreVirusTotalAllComponents(t *testing.T) {
	verdicts := map[string]sandboxVerdict{
		"Zenbox":    {Category: "malicious", MalwareClassification: []string{"trojan"}},
		"C2AE":      {Category: "malicious"},
		"OS X Sand": {Category: "harmless"},
	}
	raw := vtPayload(t, map[string]int{"malicious": 40, "harmless": 30}, -20, verdicts, nil)

	sub, err := ScoreVirusTotal(raw)
	require.NoError(t, err)
	// Every bucket maxed: 1.0*0.40 + 1.0*0.25 + (2/3 malicious < 0.7 so 0.7)*0.35
	assert.InDelta(t, 40+25+0.7*35, sub.Score, 1e-9)

	var labels []string
	require.NoError(t, json.Unmarshal(sub.Classification, &labels))
	assert.Equal(t, []string{"trojan"}, labels)
}

func TestScoreVirusTotalCleanObject(t *testing.T) {
	raw := vtPayload(t, map[string]int{"malicious": 0, "harmless": 70}, 12, nil, []string{"peexe"})

	sub, err := ScoreVirusTotal(raw)
	require.NoError(t, err)
	assert.Zero(t, sub.Score)
	assert.True(t, sub.Contributed)

	var tags []string
	require.NoError(t, json.Unmarshal(sub.Classification, &tags))
	assert.Equal(t, []string{"peexe"}, tags)
}

func TestScoreVirusTotalMissingStats(t *testing.T) {
	_, err := ScoreVirusTotal(json.RawMessage(`{"data":{"attributes":{}}}`))
	assert.Error(t, err)
}

func TestScoreVirusTotalMalformedPayload(t *testing.T) {
	_, err := ScoreVirusTotal(json.RawMessage(`{"data":`))
	assert.Error(t, err)
}

func TestDetectionBucket(t *testing.T) {
	tests := []struct {
		malicious, total int
		want             float64
	}{
		{12, 100, 1.0},
		{10, 100, 1.0},
		{7, 100, 0.7},
		{5, 100, 0.7},
		{1, 100, 0.4},
		{0, 100, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, detectionBucket(tt.malicious, tt.total), 1e-9,
			"malicious=%d total=%d", tt.malicious, tt.total)
	}
}
