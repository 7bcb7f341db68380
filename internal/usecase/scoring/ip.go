package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

type crowdsecResponse struct {
	Scores struct {
		Overall struct {
			Total float64 `json:"total"`
		} `json:"overall"`
	} `json:"scores"`
	Behaviours      []crowdsecLabel `json:"behaviours"`
	Classifications struct {
		Classifications []crowdsecLabel `json:"classifications"`
	} `json:"classifications"`
}

type crowdsecLabel struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ScoreCrowdSec maps a CrowdSec CTI smoke response to a SubScore.
// CrowdSec scores on a [0,5] scale; rescale to [0,100].
func ScoreCrowdSec(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderCrowdSec}

	var resp crowdsecResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("crowdsec payload: %w", err)
	}

	sub.Score = round2(resp.Scores.Overall.Total / 5 * 100)
	sub.Contributed = true

	var labels []string
	for _, c := range resp.Classifications.Classifications {
		if c.Label != "" {
			labels = append(labels, c.Label)
		} else if c.Name != "" {
			labels = append(labels, c.Name)
		}
	}
	if len(labels) > 0 {
		sub.Classification = mustJSON(labels)
	}
	return sub, nil
}

type abuseIPDBResponse struct {
	Data struct {
		AbuseConfidenceScore float64 `json:"abuseConfidenceScore"`
		UsageType            string  `json:"usageType"`
		ISP                  string  `json:"isp"`
		CountryName          string  `json:"countryName"`
		IsTor                bool    `json:"isTor"`
	} `json:"data"`
}

// ScoreAbuseIPDB maps an AbuseIPDB check response to a SubScore. The abuse
// confidence score is already on the [0,100] scale and passes through.
func ScoreAbuseIPDB(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderAbuseIPDB}

	var resp abuseIPDBResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("abuseipdb payload: %w", err)
	}

	sub.Score = round2(resp.Data.AbuseConfidenceScore)
	sub.Contributed = true
	sub.Classification = mustJSON(map[string]interface{}{
		"usage": resp.Data.UsageType,
		"tor":   resp.Data.IsTor,
	})
	return sub, nil
}

// AbuseIPDBMeta extracts the ISP/country enrichment fields Argus stores on
// the observable identity row.
func AbuseIPDBMeta(raw json.RawMessage) (isp, country string) {
	var resp abuseIPDBResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", ""
	}
	return resp.Data.ISP, resp.Data.CountryName
}

// ScoreBlocklist maps local block-set membership to a binary SubScore.
// The lookup itself always contributes: absence from the set is a real
// zero signal, not a provider failure.
func ScoreBlocklist(found bool) entity.SubScore {
	sub := entity.SubScore{Provider: ProviderBlocklist, Contributed: true}
	if found {
		sub.Score = 100
	}
	return sub
}
