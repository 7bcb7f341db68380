package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreYaraifyClamAVAndRules(t *testing.T) {
	raw := json.RawMessage(`{
		"query_status": "ok",
		"data": {"tasks": [{
			"clamav_results": ["Win.Trojan.Emotet-9856896-0"],
			"static_results": [
				{"rule_name": "win_emotet_auto"},
				{"rule_name": "MAL_Emotet_Jan20"}
			]
		}]}
	}`)

	sub, err := ScoreYaraify(raw)
	require.NoError(t, err)
	assert.True(t, sub.Contributed)
	// 1.0*0.65 + (2/5)*0.35 = 0.79
	assert.InDelta(t, 79.0, sub.Score, 1e-9)

	var clamav []string
	require.NoError(t, json.Unmarshal(sub.Classification, &clamav))
	assert.Equal(t, []string{"Win.Trojan.Emotet-9856896-0"}, clamav)
}

func TestScoreYaraifyRuleCountCapped(t *testing.T) {
	raw := json.RawMessage(`{
		"query_status": "ok",
		"data": {"tasks": [{
			"static_results": [
				{"rule_name": "r1"}, {"rule_name": "r2"}, {"rule_name": "r3"},
				{"rule_name": "r4"}, {"rule_name": "r5"}, {"rule_name": "r6"},
				{"rule_name": "r7"}
			]
		}]}
	}`)

	sub, err := ScoreYaraify(raw)
	require.NoError(t, err)
	// No ClamAV hit; rules cap at 5: 0*0.65 + 1.0*0.35
	assert.InDelta(t, 35.0, sub.Score, 1e-9)

	var rule string
	require.NoError(t, json.Unmarshal(sub.Classification, &rule))
	assert.Equal(t, "r1", rule)
}

func TestScoreYaraifyUnknownHash(t *testing.T) {
	_, err := ScoreYaraify(json.RawMessage(`{"query_status": "no_results"}`))
	assert.Error(t, err)
}

func TestScoreMalwareBazaarListedHash(t *testing.T) {
	raw := json.RawMessage(`{
		"query_status": "ok",
		"data": [{"signature": "AgentTesla", "tags": ["exe", "AgentTesla"]}]
	}`)

	sub, err := ScoreMalwareBazaar(raw)
	require.NoError(t, err)
	assert.True(t, sub.Contributed)
	assert.InDelta(t, 100.0, sub.Score, 1e-9)
}

func TestScoreMalwareBazaarUnlistedHash(t *testing.T) {
	_, err := ScoreMalwareBazaar(json.RawMessage(`{"query_status": "hash_not_found"}`))
	assert.Error(t, err)
}

func TestScoreMalprobe(t *testing.T) {
	raw := json.RawMessage(`{"score": 0.87, "label": "malicious", "type": "ransomware"}`)

	sub, err := ScoreMalprobe(raw)
	require.NoError(t, err)
	assert.InDelta(t, 87.0, sub.Score, 1e-9)

	var label string
	require.NoError(t, json.Unmarshal(sub.Classification, &label))
	assert.Equal(t, "malicious - ransomware", label)
}

func TestScoreMalprobeEmptyResult(t *testing.T) {
	_, err := ScoreMalprobe(json.RawMessage(`{}`))
	assert.Error(t, err)
}
