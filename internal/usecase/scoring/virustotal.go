package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

// VirusTotal sub-component weights; they sum to 1.0.
const (
	vtDetectionWeight  = 0.40
	vtReputationWeight = 0.25
	vtSandboxWeight    = 0.35
)

// virusTotalResponse mirrors the slice of the VT v3 object we score.
type virusTotalResponse struct {
	Data struct {
		Attributes virusTotalAttributes `json:"attributes"`
	} `json:"data"`
}

type virusTotalAttributes struct {
	LastAnalysisStats map[string]int            `json:"last_analysis_stats"`
	Reputation        int                       `json:"reputation"`
	SandboxVerdicts   map[string]sandboxVerdict `json:"sandbox_verdicts"`
	TypeTags          []string                  `json:"type_tags"`
}

type sandboxVerdict struct {
	Category              string   `json:"category"`
	MalwareClassification []string `json:"malware_classification"`
}

// ScoreVirusTotal maps a raw VirusTotal v3 object response to a SubScore.
// Three bucketed sub-components (detection rate, reputation, sandbox
// majority) are combined with fixed weights and scaled to [0,100].
func ScoreVirusTotal(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderVirusTotal}

	var resp virusTotalResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("virustotal payload: %w", err)
	}

	attrs := resp.Data.Attributes
	if len(attrs.LastAnalysisStats) == 0 {
		return sub, fmt.Errorf("virustotal payload: no analysis stats")
	}

	total := 0
	for category, count := range attrs.LastAnalysisStats {
		switch category {
		case "type-unsupported", "confirmed-timeout", "timeout", "failure":
			// engines that never ran don't count toward the detection base
		default:
			total += count
		}
	}

	detection := detectionBucket(attrs.LastAnalysisStats["malicious"], total)
	reputation := reputationBucket(attrs.Reputation)
	sandbox := sandboxBucket(attrs.SandboxVerdicts)

	final := detection*vtDetectionWeight + reputation*vtReputationWeight + sandbox*vtSandboxWeight

	sub.Score = round2(final * 100)
	sub.Contributed = true
	sub.Classification = vtClassification(attrs)
	return sub, nil
}

func detectionBucket(malicious, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(malicious) / float64(total)
	switch {
	case rate >= 0.1:
		return 1.0
	case rate >= 0.05:
		return 0.7
	case rate > 0:
		return 0.4
	default:
		return 0
	}
}

func reputationBucket(reputation int) float64 {
	switch {
	case reputation <= -10:
		return 1.0
	case reputation <= -5:
		return 0.7
	case reputation < 0:
		return 0.4
	default:
		return 0
	}
}

func sandboxBucket(verdicts map[string]sandboxVerdict) float64 {
	if len(verdicts) == 0 {
		return 0
	}
	malicious := 0
	for _, v := range verdicts {
		if v.Category == "malicious" {
			malicious++
		}
	}
	total := float64(len(verdicts))
	switch {
	case float64(malicious) >= total*0.7:
		return 1.0
	case float64(malicious) >= total*0.3:
		return 0.7
	case malicious > 0:
		return 0.4
	default:
		return 0
	}
}

// vtClassification prefers sandbox malware classifications, falling back to
// the object's type tags.
func vtClassification(attrs virusTotalAttributes) json.RawMessage {
	if len(attrs.SandboxVerdicts) > 0 {
		var labels []string
		for _, v := range attrs.SandboxVerdicts {
			labels = append(labels, v.MalwareClassification...)
		}
		if len(labels) > 0 {
			return mustJSON(labels)
		}
	}
	if len(attrs.TypeTags) > 0 {
		return mustJSON(attrs.TypeTags)
	}
	return nil
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
