package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{"ipv4 zeroes last octet", "192.168.1.47", "192.168.1.0"},
		{"ipv4 public address", "203.0.113.200", "203.0.113.0"},
		{"ipv6 keeps 48-bit prefix", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"empty string", "", "unknown"},
		{"unknown passthrough", "unknown", "unknown"},
		{"garbage", "not-an-ip", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.ip))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"typical address", "operator@example.com", "o***@example.com"},
		{"single char local part", "a@example.com", "a***@example.com"},
		{"no at sign", "not-an-email", "invalid"},
		{"empty local part", "@example.com", "invalid"},
		{"empty string", "", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.address))
		})
	}
}
