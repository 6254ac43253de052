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

// WhoisProvider queries a WHOIS-style registry API for the organization behind
// an address. It only runs when no company name has been established yet.
type WhoisProvider struct {
	BaseURL string
	Client  *http.Client
}

type whoisResponse struct {
	Org     string `json:"org"`
	ISP     string `json:"isp"`
	Country string `json:"country"`
	ASN     struct {
		Org   string `json:"org"`
		Descr string `json:"descr"`
	} `json:"asn"`
	Message string `json:"message"`
}

func (p *WhoisProvider) Name() string { return "whois" }

func (p *WhoisProvider) Resolve(ctx context.Context, addr, _ string) (visitor.Result, error) {
	var data whoisResponse
	u := fmt.Sprintf("%s/%s", p.BaseURL, url.PathEscape(addr))
	if err := getJSON(ctx, p.Client, u, &data); err != nil {
		return visitor.Result{}, err
	}
	if data.Message != "" {
		// Rate limit or lookup error reported in-band.
		return visitor.Result{}, fmt.Errorf("registry error: %s", data.Message)
	}
	org := firstNonEmpty(data.Org, data.ISP, data.ASN.Org, data.ASN.Descr)
	res := visitor.Result{Org: org, Country: data.Country}
	if org != "" && !classify.IsISP(org) {
		if name := companyname.FromOrg(org); name != "" {
			res.CompanyName = name
			res.CompanyRank = visitor.RankWhois
		}
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
