package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

func TestPrimaryProvider_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "198.51.100.9" {
			t.Errorf("query address = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"company": {"name": "AS1234 Calenso AG"},
			"location": {"country": "Switzerland", "city": "Zurich"},
			"is_datacenter": false, "is_vpn": false, "is_proxy": false,
			"is_tor": false, "is_abuser": false
		}`))
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	want := visitor.Result{
		CompanyName: "Calenso", CompanyRank: visitor.RankOrg,
		Country: "Switzerland", City: "Zurich", Org: "AS1234 Calenso AG",
	}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
}

func TestPrimaryProvider_CarrierOrgNotPromoted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"company": {"name": "Comcast Cable"},
			"location": {"country": "United States", "city": "Denver"},
			"is_datacenter": false
		}`))
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyName != "" {
		t.Errorf("company = %q, carrier org must not become a company name", res.CompanyName)
	}
	if res.Org != "Comcast Cable" {
		t.Errorf("org = %q, raw org must be preserved for classification", res.Org)
	}
}

func TestPrimaryProvider_TrustFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_datacenter": true, "is_vpn": true, "is_tor": true, "is_abuser": true}`))
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	want := visitor.Flags{Datacenter: true, VPN: true, Tor: true, Abuser: true}
	if res.Flags != want {
		t.Errorf("flags = %+v, want %+v", res.Flags, want)
	}
}

func TestPrimaryProvider_NonSuccessStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("non-2xx response should be a provider failure")
	}
}

func TestPrimaryProvider_MalformedBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("malformed payload should be a provider failure")
	}
}

func TestPrimaryProvider_InBandErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "reserved range"}`))
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("in-band error should be a provider failure")
	}
}

func TestPrimaryProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := &PrimaryProvider{BaseURL: srv.URL, Client: NewHTTPClient(10 * time.Millisecond)}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("timeout should be a provider failure")
	}
}

func TestWhoisProvider_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/198.51.100.9" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"org": "Widgets GmbH", "country": "DE"}`))
	}))
	defer srv.Close()

	p := &WhoisProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyName != "Widgets" || res.CompanyRank != visitor.RankWhois {
		t.Errorf("company = %q rank %d, want Widgets at whois rank", res.CompanyName, res.CompanyRank)
	}
	if res.Country != "DE" {
		t.Errorf("country = %q, want DE", res.Country)
	}
}

func TestWhoisProvider_FallsBackThroughOrgFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"asn": {"org": "Acme SA"}}`))
	}))
	defer srv.Close()

	p := &WhoisProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Org != "Acme SA" {
		t.Errorf("org = %q, want asn.org fallback", res.Org)
	}
	if res.CompanyName != "Acme" {
		t.Errorf("company = %q, want Acme", res.CompanyName)
	}
}

func TestWhoisProvider_RateLimitMessageIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "you've hit the monthly limit"}`))
	}))
	defer srv.Close()

	p := &WhoisProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("in-band rate limit message should be a provider failure")
	}
}

func TestSecondaryProvider_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "success", "country": "Germany", "city": "Bonn", "isp": "Deutsche Telekom"}`))
	}))
	defer srv.Close()

	p := &SecondaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Country != "Germany" || res.City != "Bonn" {
		t.Errorf("location = %q/%q", res.Country, res.City)
	}
	if res.CompanyName != "" {
		t.Errorf("company = %q, carrier org must not be promoted", res.CompanyName)
	}
	if res.Org != "Deutsche Telekom" {
		t.Errorf("org = %q", res.Org)
	}
}

func TestSecondaryProvider_FailStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "fail"}`))
	}))
	defer srv.Close()

	p := &SecondaryProvider{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := p.Resolve(context.Background(), "198.51.100.9", ""); err == nil {
		t.Error("fail status should be a provider failure")
	}
}
