package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sightline-analytics/sightline/internal/classify"
	"github.com/sightline-analytics/sightline/internal/companyname"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// SecondaryProvider is the fallback geolocation lookup, consulted only when
// the primary provider failed outright. It has no trust flags.
type SecondaryProvider struct {
	BaseURL string
	Client  *http.Client
}

type secondaryResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	Org     string `json:"org"`
}

func (p *SecondaryProvider) Name() string { return "secondary" }

func (p *SecondaryProvider) Resolve(ctx context.Context, addr, _ string) (visitor.Result, error) {
	var data secondaryResponse
	u := fmt.Sprintf("%s/%s?fields=status,country,city,isp,org", p.BaseURL, url.PathEscape(addr))
	if err := getJSON(ctx, p.Client, u, &data); err != nil {
		return visitor.Result{}, err
	}
	if data.Status != "success" {
		return visitor.Result{}, fmt.Errorf("lookup status %q", data.Status)
	}
	org := firstNonEmpty(data.Org, data.ISP)
	res := visitor.Result{Country: data.Country, City: data.City, Org: org}
	if org != "" && !classify.IsISP(org) {
		if name := companyname.FromOrg(org); name != "" {
			res.CompanyName = name
			res.CompanyRank = visitor.RankOrg
		}
	}
	return res, nil
}
