package companyname

import "testing"

func TestFromHostname(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
	}{
		{"calenso.com", "Calenso"},
		{"mail.calenso.ch", "Calenso"},
		{"acme-corp.de", "Acme Corp"},
		{"static.12.34.clients.example.com", ""},
		{"dynamic-pool.example.net", ""},
		{"ab.com", ""}, // too short after suffix stripping
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromHostname(tt.hostname); got != tt.want {
			t.Errorf("FromHostname(%q) = %q, want %q", tt.hostname, got, tt.want)
		}
	}
}

func TestFromOrg(t *testing.T) {
	tests := []struct {
		org  string
		want string
	}{
		{"AS1234 Calenso AG", "Calenso"},
		{"Acme Corp", "Acme"},
		{"Widgets Ltd", "Widgets"},
		{"Example Network", "Example"},
		{"Swisscom Schweiz AG", ""},
		{"Deutsche Telekom AG", ""},
		{"Hetzner Online GmbH", ""},
		{"Amazon Technologies Inc", ""},
		{"DigitalOcean LLC", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromOrg(tt.org); got != tt.want {
			t.Errorf("FromOrg(%q) = %q, want %q", tt.org, got, tt.want)
		}
	}
}

func TestFromReferrer(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://calenso.com/booking", "Calenso"},
		{"https://www.scalency.ai/", "Scalency"},
		{"https://app.notion.so/workspace", "Notion"},
		{"https://mail.google.com", ""},          // consumer platform
		{"https://a.b.cdn.example.com/x", ""},    // too many labels
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromReferrer(tt.url); got != tt.want {
			t.Errorf("FromReferrer(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestFromDomain_IgnoredPlatforms(t *testing.T) {
	for _, domain := range []string{"linkedin.com", "facebook.com", "shopify.com"} {
		if got := FromDomain(domain); got != "" {
			t.Errorf("FromDomain(%q) = %q, want empty", domain, got)
		}
	}
}

func TestTitleCase_HyphenAndUnderscore(t *testing.T) {
	if got := FromHostname("acme_widget-co.com"); got != "Acme Widget Co" {
		t.Errorf("got %q, want %q", got, "Acme Widget Co")
	}
}
