package resolve

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/sightline-analytics/sightline/internal/classify"
	"github.com/sightline-analytics/sightline/internal/companyname"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// GeoIPProvider answers country, city, and organization from local MaxMind
// databases. It never makes network calls and runs ahead of the external
// providers when configured. geoPath and asnPath can be "" to skip either DB.
type GeoIPProvider struct {
	mu    sync.RWMutex
	geoDB *geoip2.Reader
	asnDB *geoip2.Reader
}

// NewGeoIP opens the MaxMind City and ASN databases.
func NewGeoIP(geoPath, asnPath string) (*GeoIPProvider, error) {
	p := &GeoIPProvider{}
	if geoPath != "" {
		db, err := geoip2.Open(geoPath)
		if err != nil {
			return nil, err
		}
		p.geoDB = db
	}
	if asnPath != "" {
		db, err := geoip2.Open(asnPath)
		if err != nil {
			if p.geoDB != nil {
				_ = p.geoDB.Close()
			}
			return nil, err
		}
		p.asnDB = db
	}
	return p, nil
}

// Close closes the databases.
func (p *GeoIPProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.geoDB != nil {
		_ = p.geoDB.Close()
		p.geoDB = nil
	}
	if p.asnDB != nil {
		_ = p.asnDB.Close()
		p.asnDB = nil
	}
	return nil
}

func (p *GeoIPProvider) Name() string { return "geoip" }

func (p *GeoIPProvider) Resolve(_ context.Context, addr, _ string) (visitor.Result, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return visitor.Result{}, fmt.Errorf("not an IP address: %q", addr)
	}
	var res visitor.Result
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.geoDB != nil {
		if city, err := p.geoDB.City(ip); err == nil && city != nil {
			res.Country = city.Country.Names["en"]
			res.City = city.City.Names["en"]
		}
	}
	if p.asnDB != nil {
		if asn, err := p.asnDB.ASN(ip); err == nil && asn != nil {
			res.Org = asn.AutonomousSystemOrganization
			if res.Org != "" && !classify.IsISP(res.Org) {
				if name := companyname.FromOrg(res.Org); name != "" {
					res.CompanyName = name
					res.CompanyRank = visitor.RankOrg
				}
			}
		}
	}
	return res, nil
}
