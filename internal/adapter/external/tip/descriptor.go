package tip

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const observablePlaceholder = "{observable}"

// Descriptor declares one provider request as plain data. URL, query, header
// and body values may carry the {observable} placeholder, expanded per run;
// secret placeholders ({apikey}) are injected once at load time so the
// descriptor set handed to the collector is fully resolved.
type Descriptor struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty"`
	Form    map[string]string `yaml:"form,omitempty"`
	Body    string            `yaml:"body,omitempty"`
}

// descriptorFile is the on-disk shape of a descriptor override file.
type descriptorFile struct {
	IP   []Descriptor `yaml:"ip"`
	Hash []Descriptor `yaml:"hash"`
}

// LoadDescriptors reads a YAML descriptor file and resolves {apikey}
// placeholders from the per-provider secret map. Providers without a secret
// keep the placeholder intact and fail at request time, which surfaces as a
// non-contributing provider rather than a startup error.
func LoadDescriptors(path string, secrets map[string]string) (ip, hash []Descriptor, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read descriptor file: %w", err)
	}

	var file descriptorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("parse descriptor file: %w", err)
	}

	for i := range file.IP {
		file.IP[i] = file.IP[i].withSecret(secrets[file.IP[i].Name])
	}
	for i := range file.Hash {
		file.Hash[i] = file.Hash[i].withSecret(secrets[file.Hash[i].Name])
	}
	return file.IP, file.Hash, nil
}

const secretPlaceholder = "{apikey}"

// withSecret returns a copy of the descriptor with the secret placeholder
// substituted everywhere it may appear.
func (d Descriptor) withSecret(secret string) Descriptor {
	if secret == "" {
		return d
	}
	sub := func(s string) string { return strings.ReplaceAll(s, secretPlaceholder, secret) }

	out := d
	out.URL = sub(d.URL)
	out.Body = sub(d.Body)
	out.Headers = subMap(d.Headers, sub)
	out.Query = subMap(d.Query, sub)
	out.Form = subMap(d.Form, sub)
	return out
}

func subMap(in map[string]string, sub func(string) string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = sub(v)
	}
	return out
}

// BuildRequest expands the {observable} placeholder and materializes an
// *http.Request for one observable.
func (d Descriptor) BuildRequest(observable string) (*http.Request, error) {
	expand := func(s string) string {
		return strings.ReplaceAll(s, observablePlaceholder, observable)
	}

	target, err := url.Parse(expand(d.URL))
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: parse url: %w", d.Name, err)
	}

	if len(d.Query) > 0 {
		q := target.Query()
		for k, v := range d.Query {
			q.Set(k, expand(v))
		}
		target.RawQuery = q.Encode()
	}

	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	var body strings.Reader
	contentType := ""
	switch {
	case len(d.Form) > 0:
		form := url.Values{}
		for k, v := range d.Form {
			form.Set(k, expand(v))
		}
		body = *strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case d.Body != "":
		body = *strings.NewReader(expand(d.Body))
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, target.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: build request: %w", d.Name, err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range d.Headers {
		req.Header.Set(k, expand(v))
	}
	return req, nil
}
