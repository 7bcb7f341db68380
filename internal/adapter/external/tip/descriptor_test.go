package tip

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestExpandsPlaceholders(t *testing.T) {
	d := Descriptor{
		Name:    "virustotal",
		Method:  http.MethodGet,
		URL:     "https://example.test/api/v3/ip_addresses/{observable}",
		Headers: map[string]string{"x-apikey": "secret-123"},
		Query:   map[string]string{"extra": "{observable}"},
	}

	req, err := d.BuildRequest("185.220.101.34")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v3/ip_addresses/185.220.101.34", req.URL.Path)
	assert.Equal(t, "185.220.101.34", req.URL.Query().Get("extra"))
	assert.Equal(t, "secret-123", req.Header.Get("x-apikey"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestBuildRequestFormBody(t *testing.T) {
	d := Descriptor{
		Name:   "malware_bazaar",
		Method: http.MethodPost,
		URL:    "https://example.test/api/v1/",
		Form:   map[string]string{"query": "get_info", "hash": "{observable}"},
	}

	req, err := d.BuildRequest("d41d8cd98f00b204e9800998ecf8427e")
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hash=d41d8cd98f00b204e9800998ecf8427e")
	assert.Contains(t, string(body), "query=get_info")
}

func TestBuildRequestJSONBody(t *testing.T) {
	d := Descriptor{
		Name:   "yaraify",
		Method: http.MethodPost,
		URL:    "https://example.test/api/v1/",
		Body:   `{"query": "lookup_hash", "search_term": "{observable}"}`,
	}

	req, err := d.BuildRequest("aabbcc")
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query": "lookup_hash", "search_term": "aabbcc"}`, string(body))
}

func TestBuildRequestDefaultsToGet(t *testing.T) {
	d := Descriptor{Name: "crowdsec", URL: "https://example.test/v2/smoke/{observable}"}
	req, err := d.BuildRequest("1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
}

func TestWithSecretInjection(t *testing.T) {
	d := Descriptor{
		Name:    "threatbook",
		URL:     "https://example.test/v1/ip",
		Query:   map[string]string{"apikey": "{apikey}", "resource": "{observable}"},
		Headers: map[string]string{"Authorization": "Bearer {apikey}"},
	}

	resolved := d.withSecret("tb-key")
	assert.Equal(t, "tb-key", resolved.Query["apikey"])
	assert.Equal(t, "Bearer tb-key", resolved.Headers["Authorization"])
	// original untouched
	assert.Equal(t, "{apikey}", d.Query["apikey"])

	unresolved := d.withSecret("")
	assert.Equal(t, "{apikey}", unresolved.Query["apikey"])
}

func TestLoadDescriptors(t *testing.T) {
	content := `
ip:
  - name: virustotal
    method: GET
    url: https://example.test/ip/{observable}
    headers:
      x-apikey: "{apikey}"
hash:
  - name: malware_bazaar
    method: POST
    url: https://example.test/mb/
    form:
      query: get_info
      hash: "{observable}"
`
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ip, hash, err := LoadDescriptors(path, map[string]string{"virustotal": "vt-key"})
	require.NoError(t, err)
	require.Len(t, ip, 1)
	require.Len(t, hash, 1)

	assert.Equal(t, "vt-key", ip[0].Headers["x-apikey"])
	assert.Equal(t, "get_info", hash[0].Form["query"])
}

func TestLoadDescriptorsMissingFile(t *testing.T) {
	_, _, err := LoadDescriptors(filepath.Join(t.TempDir(), "absent.yml"), nil)
	assert.Error(t, err)
}

func TestDefaultDescriptorSets(t *testing.T) {
	secrets := map[string]string{"virustotal": "vt", "abuseipdb": "ab"}

	ip := DefaultIPDescriptors(secrets)
	require.Len(t, ip, 5)
	assert.Equal(t, "vt", ip[0].Headers["x-apikey"])
	assert.Equal(t, "ab", ip[1].Headers["Key"])

	hash := DefaultHashDescriptors(secrets)
	require.Len(t, hash, 4)
	assert.Equal(t, "vt", hash[0].Headers["x-apikey"])
}
