package entity

import (
	"fmt"
	"net"
	"strings"
)

// ObservableType discriminates the two kinds of observables Argus analyzes
type ObservableType string

const (
	ObservableIP   ObservableType = "ip"
	ObservableHash ObservableType = "hash"
)

// Observable is an IP address or file hash under analysis.
// It is the identity key for all scoring and history lookups.
type Observable struct {
	Value string         `json:"value"`
	Type  ObservableType `json:"type"`
}

// Accepted hash digest lengths (hex characters)
var hashLengths = map[int]string{
	32: "md5",
	40: "sha1",
	64: "sha256",
	96: "sha384",
}

// ParseObservable validates and classifies a raw observable string.
// IPs are accepted in IPv4 or IPv6 notation; hashes must be hex strings
// of MD5/SHA1/SHA256/SHA384 length. Anything else is rejected before any
// provider call is made.
func ParseObservable(raw string) (Observable, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Observable{}, fmt.Errorf("empty observable")
	}

	if ip := net.ParseIP(value); ip != nil {
		return Observable{Value: value, Type: ObservableIP}, nil
	}

	lower := strings.ToLower(value)
	if _, ok := hashLengths[len(lower)]; ok && isHex(lower) {
		return Observable{Value: lower, Type: ObservableHash}, nil
	}

	return Observable{}, fmt.Errorf("observable %q is neither an IP address nor a supported hash", raw)
}

// HashAlgorithm returns the digest algorithm implied by the hash length,
// or "" for IP observables.
func (o Observable) HashAlgorithm() string {
	if o.Type != ObservableHash {
		return ""
	}
	return hashLengths[len(o.Value)]
}

// IsPublicIP reports whether an IP observable is publicly routable.
// Private, loopback and link-local addresses carry no reputation signal
// and must never reach the enforcement hand-off.
func (o Observable) IsPublicIP() bool {
	if o.Type != ObservableIP {
		return false
	}
	ip := net.ParseIP(o.Value)
	if ip == nil {
		return false
	}
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() && !ip.IsUnspecified()
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
