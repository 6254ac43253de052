package resolve

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sightline-analytics/sightline/internal/companyname"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// ReverseDNSProvider resolves an address to its PTR name and derives a company
// name from the hostname. Lookups are cached and rate limited so bursts of
// pings from unknown addresses do not hammer the resolver.
type ReverseDNSProvider struct {
	resolver *net.Resolver
	cache    map[string]ptrEntry
	cacheTTL time.Duration
	maxQPS   int
	qpsTick  time.Time
	qpsCount int
	mu       sync.Mutex
	nowFn    func() time.Time
}

type ptrEntry struct {
	name string
	exp  time.Time
}

// NewReverseDNS creates a PTR provider. cacheTTL and maxQPS come from config.
func NewReverseDNS(cacheTTL time.Duration, maxQPS int) *ReverseDNSProvider {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if maxQPS <= 0 {
		maxQPS = 10
	}
	return &ReverseDNSProvider{
		resolver: &net.Resolver{},
		cache:    make(map[string]ptrEntry),
		cacheTTL: cacheTTL,
		maxQPS:   maxQPS,
		nowFn:    time.Now,
	}
}

func (p *ReverseDNSProvider) Name() string { return "rdns" }

func (p *ReverseDNSProvider) Resolve(ctx context.Context, addr, _ string) (visitor.Result, error) {
	host := p.lookupPTR(ctx, addr)
	if host == "" {
		return visitor.Result{}, nil
	}
	name := companyname.FromHostname(host)
	if name == "" {
		return visitor.Result{}, nil
	}
	return visitor.Result{CompanyName: name, CompanyRank: visitor.RankHostname}, nil
}

// lookupPTR returns the PTR name for addr, from cache or lookup. Empty string
// when there is no name, the QPS budget is spent, or the lookup fails; misses
// are cached too.
func (p *ReverseDNSProvider) lookupPTR(ctx context.Context, addr string) string {
	p.mu.Lock()
	if e, ok := p.cache[addr]; ok && p.nowFn().Before(e.exp) {
		p.mu.Unlock()
		return e.name
	}
	now := p.nowFn()
	if now.Sub(p.qpsTick) >= time.Second {
		p.qpsTick = now
		p.qpsCount = 0
	}
	if p.qpsCount >= p.maxQPS {
		p.mu.Unlock()
		return ""
	}
	p.qpsCount++
	p.mu.Unlock()

	names, err := p.resolver.LookupAddr(ctx, addr)
	name := ""
	if err == nil && len(names) > 0 {
		name = names[0]
		if len(name) > 0 && name[len(name)-1] == '.' {
			name = name[:len(name)-1]
		}
	}
	p.mu.Lock()
	p.cache[addr] = ptrEntry{name: name, exp: now.Add(p.cacheTTL)}
	p.mu.Unlock()
	return name
}
