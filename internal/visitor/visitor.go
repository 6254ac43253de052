package visitor

import "time"

// Identity is the persisted record for one tracked address. The enrichment
// pipeline reads and updates it; first/last seen are owned by the ingest path.
type Identity struct {
	Key            string    `json:"key"`
	CompanyName    string    `json:"company_name,omitempty"`
	Country        string    `json:"country,omitempty"`
	City           string    `json:"city,omitempty"`
	Org            string    `json:"org,omitempty"`
	IsBot          bool      `json:"is_bot"`
	IsUntrusted    bool      `json:"is_untrusted"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	LookupCachedAt time.Time `json:"lookup_cached_at,omitempty"`
}

// Flags are the trust signals reported by a geolocation provider.
type Flags struct {
	Datacenter bool
	VPN        bool
	Proxy      bool
	Tor        bool
	Abuser     bool
}

// Union combines flags from multiple providers.
func (f Flags) Union(other Flags) Flags {
	return Flags{
		Datacenter: f.Datacenter || other.Datacenter,
		VPN:        f.VPN || other.VPN,
		Proxy:      f.Proxy || other.Proxy,
		Tor:        f.Tor || other.Tor,
		Abuser:     f.Abuser || other.Abuser,
	}
}

// Company name source ranks, lower wins. Zero means no name attached.
const (
	RankOverride = 1 + iota
	RankHostname
	RankWhois
	RankOrg
	RankReferrer
)

// Result is one enrichment outcome, possibly partial. Providers return it with
// only the fields they know; the orchestrator merges them field by field.
type Result struct {
	CompanyName string
	CompanyRank int
	Country     string
	City        string
	Org         string
	IsBot       bool
	IsUntrusted bool
	Flags       Flags
}

// Merge folds a later partial result into r. Fields already set on r win;
// the company name is decided by source rank instead of arrival order.
func (r *Result) Merge(p Result) {
	if p.CompanyName != "" {
		if r.CompanyName == "" || (p.CompanyRank > 0 && p.CompanyRank < r.CompanyRank) {
			r.CompanyName = p.CompanyName
			r.CompanyRank = p.CompanyRank
		}
	}
	if r.Country == "" {
		r.Country = p.Country
	}
	if r.City == "" {
		r.City = p.City
	}
	if r.Org == "" {
		r.Org = p.Org
	}
	r.Flags = r.Flags.Union(p.Flags)
}
