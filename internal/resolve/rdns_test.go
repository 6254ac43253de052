package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

// newSeededRDNS returns a provider whose QPS budget is spent, so any cache
// miss short-circuits instead of reaching the network.
func newSeededRDNS(now time.Time, entries map[string]string) *ReverseDNSProvider {
	p := NewReverseDNS(5*time.Minute, 1)
	p.nowFn = func() time.Time { return now }
	p.qpsTick = now
	p.qpsCount = p.maxQPS
	for addr, name := range entries {
		p.cache[addr] = ptrEntry{name: name, exp: now.Add(p.cacheTTL)}
	}
	return p
}

func TestReverseDNS_CachedHostnameYieldsCompany(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newSeededRDNS(now, map[string]string{"198.51.100.9": "mail.calenso.ch"})

	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyName != "Calenso" || res.CompanyRank != visitor.RankHostname {
		t.Errorf("result = %+v, want Calenso at hostname rank", res)
	}
}

func TestReverseDNS_GenericHostnameYieldsNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newSeededRDNS(now, map[string]string{"198.51.100.9": "static.12.34.example.com"})

	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res != (visitor.Result{}) {
		t.Errorf("result = %+v, generic pool hostname should produce nothing", res)
	}
}

func TestReverseDNS_CachedMissSkipsLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newSeededRDNS(now, map[string]string{"198.51.100.9": ""})

	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res != (visitor.Result{}) {
		t.Errorf("result = %+v, want empty for a cached miss", res)
	}
}

func TestReverseDNS_QPSBudgetSpent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newSeededRDNS(now, nil)

	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res != (visitor.Result{}) {
		t.Errorf("result = %+v, exhausted budget must not resolve", res)
	}
	if _, ok := p.cache["198.51.100.9"]; ok {
		t.Error("a budget-denied lookup should not be cached as a miss")
	}
}

func TestReverseDNS_ExpiredEntryNotUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newSeededRDNS(now, nil)
	p.cache["198.51.100.9"] = ptrEntry{name: "mail.calenso.ch", exp: now.Add(-time.Second)}

	res, err := p.Resolve(context.Background(), "198.51.100.9", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyName != "" {
		t.Errorf("company = %q, expired cache entries must not be served", res.CompanyName)
	}
}
