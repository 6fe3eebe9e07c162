// Package fingerprint derives a stable device identity from client request
// signals. Two genuinely different devices sending identical headers collide
// on the same fingerprint; this is an accepted limitation of header-based
// identification, so a fingerprint match must never be treated as strong
// authentication on its own.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Metadata is the set of client signals the fingerprint is derived from.
type Metadata struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	IPAddress      string
}

// Derive computes a deterministic fingerprint from the stable signals. The
// IP address is deliberately excluded; it is too volatile and is used only
// for contextual risk checks.
func Derive(meta Metadata) string {
	ua := useragent.New(meta.UserAgent)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		if parts := strings.Split(version, "."); len(parts) > 0 && parts[0] != "" {
			majorVersion = parts[0]
		}
	}

	os := ua.OS()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = normalize(browser)
	os = normalize(os)

	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		browser, majorVersion, os, platform,
		normalize(meta.AcceptLanguage), normalize(meta.AcceptEncoding))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// DisplayName extracts a human-readable device name from the user agent.
// Format: "Browser on OS" (e.g., "Chrome on macOS").
func DisplayName(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
