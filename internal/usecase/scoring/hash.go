package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

// Yaraify sub-component weights.
const (
	yaraifyClamAVWeight = 0.65
	yaraifyRulesWeight  = 0.35
	yaraifyRuleCap      = 5
)

type yaraifyResponse struct {
	QueryStatus string `json:"query_status"`
	Data        struct {
		Tasks []struct {
			ClamAVResults []string `json:"clamav_results"`
			StaticResults []struct {
				RuleName string `json:"rule_name"`
			} `json:"static_results"`
		} `json:"tasks"`
	} `json:"data"`
}

// ScoreYaraify maps a YARAify hash lookup to a SubScore: a binary
// signature-engine hit combined with a capped count of independent YARA
// rule matches.
func ScoreYaraify(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderYaraify}

	var resp yaraifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("yaraify payload: %w", err)
	}
	if resp.QueryStatus != "ok" || len(resp.Data.Tasks) == 0 {
		return sub, fmt.Errorf("yaraify payload: query_status %q", resp.QueryStatus)
	}

	task := resp.Data.Tasks[0]
	clamav := 0.0
	if len(task.ClamAVResults) > 0 {
		clamav = 1.0
	}

	hits := len(task.StaticResults)
	if hits > yaraifyRuleCap {
		hits = yaraifyRuleCap
	}
	community := float64(hits) / float64(yaraifyRuleCap)

	sub.Score = round2((clamav*yaraifyClamAVWeight + community*yaraifyRulesWeight) * 100)
	sub.Contributed = true

	switch {
	case len(task.ClamAVResults) > 0:
		sub.Classification = mustJSON(task.ClamAVResults)
	case hits > 0:
		sub.Classification = mustJSON(task.StaticResults[0].RuleName)
	}
	return sub, nil
}

type malwareBazaarResponse struct {
	QueryStatus string `json:"query_status"`
	Data        []struct {
		Signature string   `json:"signature"`
		Tags      []string `json:"tags"`
	} `json:"data"`
}

// ScoreMalwareBazaar maps a MalwareBazaar lookup to a SubScore. The corpus
// only lists confirmed malware, so a listed hash scores full confidence;
// an unlisted hash yields no contribution.
func ScoreMalwareBazaar(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderMalwareBazaar}

	var resp malwareBazaarResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("malwarebazaar payload: %w", err)
	}
	if resp.QueryStatus != "ok" || len(resp.Data) == 0 {
		return sub, fmt.Errorf("malwarebazaar payload: query_status %q", resp.QueryStatus)
	}

	sub.Score = 100
	sub.Contributed = true
	if len(resp.Data[0].Tags) > 0 {
		sub.Classification = mustJSON(resp.Data[0].Tags)
	}
	return sub, nil
}

type malprobeResponse struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
	Type  string  `json:"type"`
}

// ScoreMalprobe maps a Malprobe lookup to a SubScore. Malprobe already
// normalizes its verdict to [0,1].
func ScoreMalprobe(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderMalprobe}

	var resp malprobeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("malprobe payload: %w", err)
	}
	if resp.Label == "" && resp.Score == 0 {
		return sub, fmt.Errorf("malprobe payload: empty result")
	}

	sub.Score = round2(resp.Score * 100)
	sub.Contributed = true
	if resp.Label != "" {
		sub.Classification = mustJSON(fmt.Sprintf("%s - %s", resp.Label, resp.Type))
	}
	return sub, nil
}
