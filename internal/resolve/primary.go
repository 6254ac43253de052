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

// PrimaryProvider is the main external geolocation/organization lookup. The
// response carries location, organization, and explicit datacenter/VPN/proxy/
// Tor/abuse signals.
type PrimaryProvider struct {
	BaseURL string
	Client  *http.Client
}

type primaryResponse struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Location struct {
		Country string `json:"country"`
		City    string `json:"city"`
	} `json:"location"`
	IsDatacenter bool   `json:"is_datacenter"`
	IsVPN        bool   `json:"is_vpn"`
	IsProxy      bool   `json:"is_proxy"`
	IsTor        bool   `json:"is_tor"`
	IsAbuser     bool   `json:"is_abuser"`
	Error        string `json:"error"`
}

func (p *PrimaryProvider) Name() string { return "primary" }

func (p *PrimaryProvider) Resolve(ctx context.Context, addr, _ string) (visitor.Result, error) {
	var data primaryResponse
	u := fmt.Sprintf("%s?q=%s", p.BaseURL, url.QueryEscape(addr))
	if err := getJSON(ctx, p.Client, u, &data); err != nil {
		return visitor.Result{}, err
	}
	if data.Error != "" {
		return visitor.Result{}, fmt.Errorf("provider error: %s", data.Error)
	}
	res := visitor.Result{
		Country: data.Location.Country,
		City:    data.Location.City,
		Org:     data.Company.Name,
		Flags: visitor.Flags{
			Datacenter: data.IsDatacenter,
			VPN:        data.IsVPN,
			Proxy:      data.IsProxy,
			Tor:        data.IsTor,
			Abuser:     data.IsAbuser,
		},
	}
	// Carrier names stay in Org for classification but are never promoted to
	// a company name.
	if res.Org != "" && !classify.IsISP(res.Org) {
		if name := companyname.FromOrg(res.Org); name != "" {
			res.CompanyName = name
			res.CompanyRank = visitor.RankOrg
		}
	}
	return res, nil
}
