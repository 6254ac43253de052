package classify

import (
	"testing"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

func TestIsBot(t *testing.T) {
	tests := []struct {
		userAgent string
		want      bool
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1)", true},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", true},
		{"Slackbot-LinkExpanding 1.0", true},
		{"SomeCompany-Crawler/3.1", true},
		{"spider-fetcher", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsBot(tt.userAgent); got != tt.want {
			t.Errorf("IsBot(%q) = %v, want %v", tt.userAgent, got, tt.want)
		}
	}
}

func TestIsISP(t *testing.T) {
	tests := []struct {
		org  string
		want bool
	}{
		{"Comcast Cable", true},
		{"Deutsche Telekom AG", true},
		{"Vodafone GmbH", true},
		{"Swisscom Schweiz AG", true},
		{"Virgin Media Limited", true},
		{"Calenso AG", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsISP(tt.org); got != tt.want {
			t.Errorf("IsISP(%q) = %v, want %v", tt.org, got, tt.want)
		}
	}
}

func TestIsUntrustedNetwork(t *testing.T) {
	if !IsUntrustedNetwork("Comcast Cable", visitor.Flags{}) {
		t.Error("carrier org should be untrusted")
	}
	if !IsUntrustedNetwork("Calenso AG", visitor.Flags{Datacenter: true}) {
		t.Error("datacenter flag should make the network untrusted")
	}
	if !IsUntrustedNetwork("", visitor.Flags{Tor: true}) {
		t.Error("tor flag should make the network untrusted")
	}
	if IsUntrustedNetwork("Calenso AG", visitor.Flags{}) {
		t.Error("plain business org without flags should be trusted")
	}
	if IsUntrustedNetwork("", visitor.Flags{}) {
		t.Error("absent input should yield false")
	}
	// The abuser signal is informational, not part of the trust union.
	if IsUntrustedNetwork("", visitor.Flags{Abuser: true}) {
		t.Error("abuser flag alone should not mark the network untrusted")
	}
}
