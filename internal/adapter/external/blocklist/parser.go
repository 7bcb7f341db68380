package blocklist

import (
	"bufio"
	"net"
	"regexp"
	"strings"
)

// ipv4Regex matches an IPv4 address at line start (handles trailing comments)
var ipv4Regex = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// cidrRegex matches CIDR notation
var cidrRegex = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})/(\d{1,2})`)

// ParseList extracts blocklisted IPs from plaintext content, one entry per
// line. Comment lines (# or ;) and anything after the address are ignored.
// Small CIDR blocks (/24 and narrower) are expanded to member addresses;
// wider blocks are skipped because a membership index cannot hold them.
func ParseList(content string) []string {
	var ips []string
	seen := make(map[string]bool)
	add := func(ip string) {
		if !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if match := cidrRegex.FindString(line); match != "" {
			for _, ip := range expandCIDR(match) {
				add(ip)
			}
			continue
		}

		if match := ipv4Regex.FindString(line); match != "" {
			if net.ParseIP(match) != nil {
				add(match)
			}
			continue
		}

		// IPv6 entries have no leading-digit shortcut; take the first field
		if fields := strings.Fields(line); len(fields) > 0 {
			if ip := net.ParseIP(fields[0]); ip != nil {
				add(ip.String())
			}
		}
	}

	return ips
}

// expandCIDR expands /24 and narrower IPv4 blocks into member addresses.
func expandCIDR(cidr string) []string {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil
	}
	ones, bits := network.Mask.Size()
	if bits != 32 || ones < 24 {
		return nil
	}

	var ips []string
	for ip := network.IP.Mask(network.Mask); network.Contains(ip); ip = nextIP(ip) {
		ips = append(ips, ip.String())
	}
	return ips
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}
