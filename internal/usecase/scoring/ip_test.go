package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCrowdSecRescales(t *testing.T) {
	raw := json.RawMessage(`{
		"scores": {"overall": {"total": 4}},
		"classifications": {"classifications": [
			{"name": "community-blocklist", "label": "Community Blocklist"}
		]}
	}`)

	sub, err := ScoreCrowdSec(raw)
	require.NoError(t, err)
	assert.True(t, sub.Contributed)
	assert.InDelta(t, 80.0, sub.Score, 1e-9)

	var labels []string
	require.NoError(t, json.Unmarshal(sub.Classification, &labels))
	assert.Equal(t, []string{"Community Blocklist"}, labels)
}

func TestScoreCrowdSecUnknownIP(t *testing.T) {
	sub, err := ScoreCrowdSec(json.RawMessage(`{"scores": {"overall": {"total": 0}}}`))
	require.NoError(t, err)
	assert.Zero(t, sub.Score)
	assert.True(t, sub.Contributed)
	assert.Nil(t, sub.Classification)
}

func TestScoreAbuseIPDBPassThrough(t *testing.T) {
	raw := json.RawMessage(`{"data": {
		"abuseConfidenceScore": 93,
		"usageType": "Data Center/Web Hosting/Transit",
		"isp": "Example Hosting BV",
		"countryName": "Netherlands",
		"isTor": true
	}}`)

	sub, err := ScoreAbuseIPDB(raw)
	require.NoError(t, err)
	assert.InDelta(t, 93.0, sub.Score, 1e-9)

	var class struct {
		Usage string `json:"usage"`
		Tor   bool   `json:"tor"`
	}
	require.NoError(t, json.Unmarshal(sub.Classification, &class))
	assert.Equal(t, "Data Center/Web Hosting/Transit", class.Usage)
	assert.True(t, class.Tor)

	isp, country := AbuseIPDBMeta(raw)
	assert.Equal(t, "Example Hosting BV", isp)
	assert.Equal(t, "Netherlands", country)
}

func TestScoreBlocklist(t *testing.T) {
	hit := ScoreBlocklist(true)
	assert.InDelta(t, 100.0, hit.Score, 1e-9)
	assert.True(t, hit.Contributed)

	miss := ScoreBlocklist(false)
	assert.Zero(t, miss.Score)
	assert.True(t, miss.Contributed)
}

func TestForProviderRegistryComplete(t *testing.T) {
	for _, name := range []string{
		ProviderVirusTotal, ProviderAbuseIPDB, ProviderCrowdSec,
		ProviderCriminalIP, ProviderThreatbook,
		ProviderMalwareBazaar, ProviderYaraify, ProviderMalprobe,
	} {
		fn, ok := ForProvider(name)
		assert.True(t, ok, "provider %s not registered", name)
		assert.NotNil(t, fn)
	}

	_, ok := ForProvider("opencti")
	assert.False(t, ok)
}
