package tip

import (
	"net/http"

	"github.com/noplanalderson/argus/internal/usecase/scoring"
)

// DefaultIPDescriptors returns the built-in IP provider set with the given
// per-provider API keys injected.
func DefaultIPDescriptors(secrets map[string]string) []Descriptor {
	descriptors := []Descriptor{
		{
			Name:    scoring.ProviderVirusTotal,
			Method:  http.MethodGet,
			URL:     "https://www.virustotal.com/api/v3/ip_addresses/{observable}",
			Headers: map[string]string{"x-apikey": "{apikey}"},
		},
		{
			Name:    scoring.ProviderAbuseIPDB,
			Method:  http.MethodGet,
			URL:     "https://api.abuseipdb.com/api/v2/check",
			Headers: map[string]string{"Key": "{apikey}"},
			Query:   map[string]string{"ipAddress": "{observable}", "maxAgeInDays": "90", "verbose": "true"},
		},
		{
			Name:    scoring.ProviderCrowdSec,
			Method:  http.MethodGet,
			URL:     "https://cti.api.crowdsec.net/v2/smoke/{observable}",
			Headers: map[string]string{"x-api-key": "{apikey}"},
		},
		{
			Name:    scoring.ProviderCriminalIP,
			Method:  http.MethodGet,
			URL:     "https://api.criminalip.io/v1/asset/ip/report",
			Headers: map[string]string{"x-api-key": "{apikey}"},
			Query:   map[string]string{"ip": "{observable}", "full": "true"},
		},
		{
			Name:   scoring.ProviderThreatbook,
			Method: http.MethodGet,
			URL:    "https://api.threatbook.io/v1/community/ip",
			Query:  map[string]string{"apikey": "{apikey}", "resource": "{observable}"},
		},
	}

	for i := range descriptors {
		descriptors[i] = descriptors[i].withSecret(secrets[descriptors[i].Name])
	}
	return descriptors
}

// DefaultHashDescriptors returns the built-in file-hash provider set.
func DefaultHashDescriptors(secrets map[string]string) []Descriptor {
	descriptors := []Descriptor{
		{
			Name:    scoring.ProviderVirusTotal,
			Method:  http.MethodGet,
			URL:     "https://www.virustotal.com/api/v3/files/{observable}",
			Headers: map[string]string{"x-apikey": "{apikey}"},
		},
		{
			Name:    scoring.ProviderMalwareBazaar,
			Method:  http.MethodPost,
			URL:     "https://mb-api.abuse.ch/api/v1/",
			Headers: map[string]string{"Auth-Key": "{apikey}"},
			Form:    map[string]string{"query": "get_info", "hash": "{observable}"},
		},
		{
			Name:    scoring.ProviderYaraify,
			Method:  http.MethodPost,
			URL:     "https://yaraify-api.abuse.ch/api/v1/",
			Headers: map[string]string{"Auth-Key": "{apikey}"},
			Body:    `{"query": "lookup_hash", "search_term": "{observable}"}`,
		},
		{
			Name:    scoring.ProviderMalprobe,
			Method:  http.MethodGet,
			URL:     "https://api.malprobe.io/v1/hash/{observable}",
			Headers: map[string]string{"Authorization": "Bearer {apikey}"},
		},
	}

	for i := range descriptors {
		descriptors[i] = descriptors[i].withSecret(secrets[descriptors[i].Name])
	}
	return descriptors
}
