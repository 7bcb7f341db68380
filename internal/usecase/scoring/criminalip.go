package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

// CriminalIP sub-factor weights; they sum to 1.0.
var criminalIPWeights = struct {
	inbound, outbound, malicious, openPorts, vulnPort, vulnerabilities, exploitDB, policyViolation float64
}{
	inbound:         0.23,
	outbound:        0.15,
	malicious:       0.15,
	openPorts:       0.08,
	vulnPort:        0.15,
	vulnerabilities: 0.12,
	exploitDB:       0.08,
	policyViolation: 0.04,
}

// Ordinal severity mappings for the inbound/outbound risk categories.
var (
	criminalIPInboundMap  = map[string]float64{"Critical": 1.0, "High": 0.67, "Moderate": 0.33, "Low": 0.17}
	criminalIPOutboundMap = map[string]float64{"Critical": 1.0, "High": 0.75, "Moderate": 0.5, "Low": 0.25}
)

type criminalIPResponse struct {
	Status    int      `json:"status"`
	Tags      []string `json:"tags"`
	IPScoring struct {
		Inbound     string `json:"inbound"`
		Outbound    string `json:"outbound"`
		IsMalicious bool   `json:"is_malicious"`
	} `json:"ip_scoring"`
	CurrentOpenPorts struct {
		TCP []struct {
			HasVulnerability bool `json:"has_vulnerability"`
		} `json:"TCP"`
	} `json:"current_open_ports"`
	Summary struct {
		Security struct {
			Vulnerabilities int `json:"vulnerabilities"`
			ExploitDB       int `json:"exploit_db"`
			PolicyViolation int `json:"policy_violation"`
		} `json:"security"`
	} `json:"summary"`
}

// ScoreCriminalIP maps a CriminalIP asset report to a SubScore.
// Eight independently weighted sub-factors cover inbound/outbound risk
// categories, the malicious flag, open-port exposure, vulnerable ports,
// vulnerability and exploit counts, and policy violations.
func ScoreCriminalIP(raw json.RawMessage) (entity.SubScore, error) {
	sub := entity.SubScore{Provider: ProviderCriminalIP}

	var resp criminalIPResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sub, fmt.Errorf("criminalip payload: %w", err)
	}
	if resp.Status != 200 {
		return sub, fmt.Errorf("criminalip payload: status %d", resp.Status)
	}

	w := criminalIPWeights
	score := 0.0

	score += criminalIPInboundMap[resp.IPScoring.Inbound] * w.inbound
	score += criminalIPOutboundMap[resp.IPScoring.Outbound] * w.outbound

	if resp.IPScoring.IsMalicious {
		score += w.malicious
	}

	ports := len(resp.CurrentOpenPorts.TCP)
	switch {
	case ports > 10:
		score += 1.0 * w.openPorts
	case ports >= 5:
		score += 0.5 * w.openPorts
	default:
		score += 0.2 * w.openPorts
	}

	for _, port := range resp.CurrentOpenPorts.TCP {
		if port.HasVulnerability {
			score += w.vulnPort
			break
		}
	}

	switch vuln := resp.Summary.Security.Vulnerabilities; {
	case vuln > 10:
		score += 1.0 * w.vulnerabilities
	case vuln > 5:
		score += 0.67 * w.vulnerabilities
	case vuln > 0:
		score += 0.33 * w.vulnerabilities
	}

	switch exploit := resp.Summary.Security.ExploitDB; {
	case exploit > 2:
		score += 1.0 * w.exploitDB
	case exploit > 0:
		score += 0.5 * w.exploitDB
	}

	if resp.Summary.Security.PolicyViolation > 0 {
		score += w.policyViolation
	}

	sub.Score = round2(score * 100)
	sub.Contributed = true
	if len(resp.Tags) > 0 {
		sub.Classification = mustJSON(resp.Tags)
	}
	return sub, nil
}

// CriminalIPRiskLevel derives the ordinal risk level from a normalized score.
func CriminalIPRiskLevel(score float64) string {
	switch {
	case score >= 81:
		return "Critical"
	case score >= 61:
		return "High"
	case score >= 31:
		return "Medium"
	default:
		return "Low"
	}
}
