package scoring

import "math"

// WazuhRule is the SIEM-rule signal supplied alongside an analysis request.
type WazuhRule struct {
	Level        int      `json:"level"`
	Groups       []string `json:"groups"`
	Frequency    int      `json:"frequency"`
	ResponseCode int      `json:"response_code"`
}

// Component weights for the rule score. They intentionally sum to 1.1 and
// are renormalized by their sum, matching the deployed ruleset.
const (
	wazuhSeverityWeight  = 0.60
	wazuhFrequencyWeight = 0.20
	wazuhGroupsWeight    = 0.30
)

const wazuhMaxLevel = 15

// Per-group severity weights. Reconnaissance-flavoured groups are folded
// into a single "recon" category before averaging.
var wazuhGroupScores = map[string]float64{
	"malware":                 1.0,
	"yara":                    1.0,
	"authentication_success":  0.9,
	"webshell":                0.8,
	"seo_cloaking":            0.8,
	"ssrf":                    0.8,
	"lfi":                     0.8,
	"rfi":                     0.8,
	"command_injection":       0.8,
	"dos":                     0.7,
	"content_violation":       0.7,
	"credential_breach":       0.7,
	"sql_injection":           0.7,
	"xss":                     0.7,
	"bruteforce":              0.6,
	"recon":                   0.5,
	"spam":                    0.5,
	"firewall_drop":           0.5,
	"authentication_failures": 0.5,
	"sensitive_file":          0.5,
	"file_monitoring":         0.0,
}

var wazuhReconGroups = map[string]bool{
	"recon":          true,
	"path_traversal": true,
	"web_scan":       true,
}

// ScoreWazuhRule computes the SIEM-rule severity score in [0,1] from rule
// level, fire frequency and threat-category groups.
func ScoreWazuhRule(rule WazuhRule) float64 {
	severity := wazuhSeverityScore(rule)
	frequency := wazuhFrequencyScore(rule.Frequency)
	groups := wazuhGroupScore(rule.Groups)

	weightSum := wazuhSeverityWeight + wazuhFrequencyWeight + wazuhGroupsWeight
	final := (severity*wazuhSeverityWeight + frequency*wazuhFrequencyWeight + groups*wazuhGroupsWeight) / weightSum

	return round2(final)
}

// wazuhSeverityScore normalizes the rule level to [0,1]; for web-category
// rules it is blended 50/50 with the HTTP response-code class score.
func wazuhSeverityScore(rule WazuhRule) float64 {
	severity := float64(rule.Level) / wazuhMaxLevel

	web := false
	for _, g := range rule.Groups {
		if g == "web" {
			web = true
			break
		}
	}
	if !web {
		return severity
	}
	return math.Min((responseCodeScore(rule.ResponseCode)+severity)/2, 1.0)
}

// responseCodeScore classifies an HTTP response code. A successful response
// to a flagged request is the strongest signal: the attack got through.
func responseCodeScore(code int) float64 {
	switch {
	case code >= 200 && code <= 204:
		return 1.0
	case code >= 300 && code <= 304:
		return 0.5
	case code >= 500 && code <= 504:
		return 0.8
	case code >= 400 && code <= 404:
		return 0.3
	default:
		return 0
	}
}

// wazuhFrequencyScore applies a logarithmic saturation curve capped at 100
// fires: repeat firing climbs fast early, then flattens.
func wazuhFrequencyScore(frequency int) float64 {
	if frequency < 1 {
		frequency = 1
	}
	return math.Min(math.Log1p(float64(frequency))/math.Log1p(100), 1.0)
}

func wazuhGroupScore(groups []string) float64 {
	folded := make([]string, 0, len(groups))
	reconSeen := false
	for _, g := range groups {
		if wazuhReconGroups[g] {
			if !reconSeen {
				folded = append(folded, "recon")
				reconSeen = true
			}
			continue
		}
		folded = append(folded, g)
	}

	score := 0.0
	matched := 0
	for _, g := range folded {
		if weight, ok := wazuhGroupScores[g]; ok {
			matched++
			score += weight
		}
	}
	if matched == 0 {
		return 0
	}

	avg := math.Min(score/float64(matched), 1.0)
	return math.Round(avg*10) / 10
}
