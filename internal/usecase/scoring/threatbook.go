package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

// Fixed per-judgement weights on the 0-100 scale; a sum over the judgements
// present, plus the high-risk-country bonus, clamps at 100.
var threatbookJudgementWeights = map[string]float64{
	"C2":          25,
	"Botnet":      20,
	"Hijacked":    18,
	"Phishing":    22,
	"Malware":     20,
	"Exploit":     15,
	"Scanner":     12,
	"Zombie":      18,
	"Spam":        10,
	"Compromised": 15,
	"Brute Force": 16,
	"Tor":         8,
	"Dynamic IP":  5,
	"VPN":         10,
	"DDNS":        10,
}

const threatbookCountryBonus = 15

var threatbookHighRiskCountries = map[string]bool{
	"CN": true, "RU": true, "KP": true, "IR": true, "SY": true,
	"VE": true, "CU": true, "SD": true, "TH": true, "AS": true,
	"KH": true, "IN": true, "BD": true, "RO": true,
}

type threatbookResponse struct {
	ResponseCode int `json:"response_code"`
	Data         struct {
		Summary struct {
			Judgments []string `json:"judgments"`
		} `json:"summary"`
		Basic struct {
			Location struct {
				CountryCode string `json:"country_code"`
			} `json:"location"`
		} `json:"basic"`
	} `json:"data"`
}

// ScoreThreatbook maps a Threatbook IP reputation response to a SubScore.
func ScoreThreatbook(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderThreatbook}

	var resp threatbookResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("threatbook payload: %w", err)
	}
	if resp.ResponseCode != 200 {
		return sub, fmt.Errorf("threatbook payload: response_code %d", resp.ResponseCode)
	}

	score := 0.0
	for _, judgement := range resp.Data.Summary.Judgments {
		score += threatbookJudgementWeights[judgement]
	}

	if threatbookHighRiskCountries[resp.Data.Basic.Location.CountryCode] {
		score += threatbookCountryBonus
	}

	if score > 100 {
		score = 100
	}

	sub.Score = round2(score)
	sub.Contributed = true
	if len(resp.Data.Summary.Judgments) > 0 {
		sub.Classification = mustJSON(resp.Data.Summary.Judgments)
	}
	return sub, nil
}
