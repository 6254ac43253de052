// Package classify holds the bot and network-trust classification rules.
package classify

import (
	"regexp"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

// Known crawler, bot, and link-preview user-agent signatures, plus the generic
// bot/crawler/spider markers.
var botPattern = regexp.MustCompile(`(?i)googlebot|bingbot|slurp|duckduckbot|baiduspider|yandexbot|facebookexternalhit|twitterbot|rogerbot|linkedinbot|embedly|quora link preview|showyoubot|outbrain|pinterest/0\.|developers\.google\.com/\+/web/snippet|slackbot|vkshare|w3c_validator|redditbot|applebot|whatsapp|flipboard|tumblr|bitlybot|skypeuripreview|nuzzel|discordbot|qwantify|pinterestbot|bot|crawler|spider`)

// Residential ISP and carrier name fragments. Trailing spaces on short brands
// (bt, sky, ee) keep them from matching inside unrelated words.
var ispPattern = regexp.MustCompile(`(?i)vodafone|telekom|comcast|verizon|at&t|charter|cox|centurylink|frontier|spectrum|optimum|mediacom|windstream|wow|altice|sprint|t-mobile|orange|bt |sky |virgin media|talktalk|ee |o2|three|swisscom|sunrise|salt|upc`)

// IsBot reports whether the user agent looks like an automated client.
// Absent input yields false.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return botPattern.MatchString(userAgent)
}

// IsISP reports whether the organization name belongs to a consumer ISP or
// carrier rather than a business.
func IsISP(org string) bool {
	if org == "" {
		return false
	}
	return ispPattern.MatchString(org)
}

// IsUntrustedNetwork reports whether traffic from this organization is likely
// carrier, datacenter, VPN, proxy, or Tor traffic rather than a genuine office
// connection. The carrier-name match and the provider flags are a single union.
func IsUntrustedNetwork(org string, f visitor.Flags) bool {
	return IsISP(org) || f.Datacenter || f.VPN || f.Proxy || f.Tor
}
