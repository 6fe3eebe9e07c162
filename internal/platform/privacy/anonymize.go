// Package privacy provides utilities for handling personally identifiable
// information in log output.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address to remove the host-identifying portion.
//
// IPv4 addresses keep the /24 network ("192.168.1.47" -> "192.168.1.0");
// IPv6 addresses keep the /48 prefix. Returns "invalid" for unparseable
// input and "unknown" for empty strings.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	// IPv6 is 16 bytes, /48 prefix = first 6 bytes
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// MaskEmail keeps the first character of the local part and the full domain
// ("operator@example.com" -> "o***@example.com") so alert failures remain
// attributable in logs without exposing the address.
func MaskEmail(address string) string {
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return "invalid"
	}
	return address[:1] + "***" + address[at:]
}
