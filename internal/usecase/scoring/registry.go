// Package scoring holds the pure provider scoring functions and the
// adaptive weighting engine. Every function maps one provider's raw
// response to a normalized [0,100] SubScore; malformed or empty payloads
// come back as an error, which the caller records as a non-contributing
// provider rather than a failed analysis.
package scoring

import (
	"encoding/json"

	"github.com/noplanalderson/argus/internal/entity"
)

// Canonical provider names, shared with the collector's descriptor sets
// and the nominal weight tables.
const (
	ProviderVirusTotal    = "virustotal"
	ProviderAbuseIPDB     = "abuseipdb"
	ProviderCrowdSec      = "crowdsec"
	ProviderCriminalIP    = "criminalip"
	ProviderThreatbook    = "threatbook"
	ProviderBlocklist     = "blocklist"
	ProviderMalwareBazaar = "malware_bazaar"
	ProviderYaraify       = "yaraify"
	ProviderMalprobe      = "malprobe"
)

// Func maps one provider's raw response payload into a SubScore.
type Func func(raw json.RawMessage) (entity.SubScore, error)

var registry = map[string]Func{
	ProviderVirusTotal:    ScoreVirusTotal,
	ProviderAbuseIPDB:     ScoreAbuseIPDB,
	ProviderCrowdSec:      ScoreCrowdSec,
	ProviderCriminalIP:    ScoreCriminalIP,
	ProviderThreatbook:    ScoreThreatbook,
	ProviderMalwareBazaar: ScoreMalwareBazaar,
	ProviderYaraify:       ScoreYaraify,
	ProviderMalprobe:      ScoreMalprobe,
}

// ForProvider returns the scoring function registered for a provider name,
// or false when the provider has no score mapping (enrichment-only sources).
func ForProvider(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}
