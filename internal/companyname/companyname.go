// Package companyname turns raw hostnames, organization strings, and referrer
// URLs into human-readable company names. All functions are pure and return ""
// when no usable name can be derived.
package companyname

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	tldSuffix   = regexp.MustCompile(`(?i)\.(com|ch|de|net|org|io|ai|co|uk|fr|eu)$`)
	asnPrefix   = regexp.MustCompile(`(?i)^AS\d+\s+`)
	legalSuffix = regexp.MustCompile(`(?i)\s+(GmbH|AG|Ltd|Limited|Inc|LLC|Corp|Corporation|SA|SRL|BV)\s*$`)
	trailingNet = regexp.MustCompile(`(?i)\s+Network\s*$`)
	trailingHst = regexp.MustCompile(`(?i)\s+Hosting\s*$`)
)

// Organization strings matching any of these fragments are infrastructure
// operators, not visiting companies.
var orgDenylist = regexp.MustCompile(`(?i)telekom|vodafone|swisscom|sunrise|hosting|server|cloud|datacenter|datacamp|amazon|google|microsoft|cloudflare|hetzner|ovh|digitalocean`)

// Consumer platforms and SaaS domains that say nothing about the visitor.
var ignoredDomains = map[string]struct{}{
	"google.com":       {},
	"facebook.com":     {},
	"linkedin.com":     {},
	"twitter.com":      {},
	"x.com":            {},
	"instagram.com":    {},
	"youtube.com":      {},
	"tiktok.com":       {},
	"reddit.com":       {},
	"pinterest.com":    {},
	"amazon.com":       {},
	"ebay.com":         {},
	"alibaba.com":      {},
	"github.com":       {},
	"stackoverflow.com": {},
	"medium.com":       {},
	"substack.com":     {},
	"wordpress.com":    {},
	"blogger.com":      {},
	"wix.com":          {},
	"squarespace.com":  {},
	"shopify.com":      {},
	"mailchimp.com":    {},
	"hubspot.com":      {},
	"salesforce.com":   {},
	"zoom.us":          {},
	"slack.com":        {},
	"discord.com":      {},
	"telegram.org":     {},
	"whatsapp.com":     {},
	"dropbox.com":      {},
	"drive.google.com": {},
	"onedrive.live.com": {},
	"icloud.com":       {},
	"apple.com":        {},
	"microsoft.com":    {},
}

// FromHostname derives a company name from a reverse-DNS hostname. Hostnames
// with generic infrastructure markers and labels shorter than three characters
// yield "".
func FromHostname(hostname string) string {
	if hostname == "" || strings.Contains(hostname, "static") || strings.Contains(hostname, "dynamic") {
		return ""
	}
	trimmed := tldSuffix.ReplaceAllString(strings.ToLower(hostname), "")
	parts := strings.Split(trimmed, ".")
	label := parts[len(parts)-1]
	if len(label) < 3 {
		return ""
	}
	return titleCase(label)
}

// FromOrg derives a company name from a provider-reported organization string.
// Strips the AS-number prefix and common legal-entity suffixes; organization
// names of known carriers, hosters, and cloud vendors yield "".
func FromOrg(org string) string {
	if org == "" {
		return ""
	}
	cleaned := legalSuffix.ReplaceAllString(org, "")
	cleaned = trailingNet.ReplaceAllString(cleaned, "")
	cleaned = trailingHst.ReplaceAllString(cleaned, "")
	cleaned = asnPrefix.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || orgDenylist.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// FromReferrer derives a company name from a referrer URL.
func FromReferrer(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return FromDomain(host)
}

// FromDomain derives a company name from a bare domain. Denylisted platforms
// and deeply nested subdomains (likely CDN noise) yield "".
func FromDomain(domain string) string {
	if domain == "" {
		return ""
	}
	if _, ok := ignoredDomains[domain]; ok {
		return ""
	}
	parts := strings.Split(domain, ".")
	if len(parts) > 3 || len(parts) < 2 {
		return ""
	}
	// Subdomains of denylisted platforms (mail.google.com) are just as useless.
	if _, ok := ignoredDomains[strings.Join(parts[len(parts)-2:], ".")]; ok {
		return ""
	}
	label := parts[len(parts)-2]
	if len(label) < 2 {
		return ""
	}
	return titleCase(label)
}

func titleCase(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
