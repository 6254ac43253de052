package resolve

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sightline-analytics/sightline/internal/classify"
	"github.com/sightline-analytics/sightline/internal/companyname"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// Providers names the strategies available to the orchestrator. Optional
// entries can be nil and are skipped.
type Providers struct {
	Override   Provider
	ReverseDNS Provider
	GeoIP      Provider
	Primary    Provider
	Whois      Provider
	Secondary  Provider
}

// Orchestrator runs the provider waterfall for one address and merges the
// partial results into a single outcome. It never returns an error: when every
// provider fails the caller still gets a result to stamp the lookup cache
// with, which prevents retry storms inside the TTL window.
type Orchestrator struct {
	steps   []step
	timeout time.Duration
	log     zerolog.Logger
	metrics *Metrics
}

type step struct {
	provider Provider
	// when gates conditional strategies; nil means always run.
	when      func(merged visitor.Result, primaryFailed bool) bool
	isPrimary bool
}

// NewOrchestrator builds the waterfall in its fixed confidence order:
// override, reverse DNS, local GeoIP, primary, WHOIS (only without a company
// name), secondary (only after a primary failure).
func NewOrchestrator(p Providers, timeout time.Duration, log zerolog.Logger, metrics *Metrics) *Orchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	o := &Orchestrator{timeout: timeout, log: log, metrics: metrics}
	add := func(prov Provider, when func(visitor.Result, bool) bool, isPrimary bool) {
		if prov != nil {
			o.steps = append(o.steps, step{provider: prov, when: when, isPrimary: isPrimary})
		}
	}
	add(p.Override, nil, false)
	add(p.ReverseDNS, nil, false)
	add(p.GeoIP, nil, false)
	add(p.Primary, nil, true)
	add(p.Whois, func(merged visitor.Result, _ bool) bool {
		return merged.CompanyName == ""
	}, false)
	add(p.Secondary, func(_ visitor.Result, primaryFailed bool) bool {
		return primaryFailed
	}, false)
	return o
}

// Enrich resolves addr through the waterfall. referrer is an optional hint
// used as the lowest-confidence company name source. Safe to call
// concurrently; identical provider answers yield identical results.
func (o *Orchestrator) Enrich(ctx context.Context, addr, userAgent, referrer string) visitor.Result {
	var merged visitor.Result
	merged.IsBot = classify.IsBot(userAgent)

	primaryFailed := false
	for _, st := range o.steps {
		if st.when != nil && !st.when(merged, primaryFailed) {
			continue
		}
		stepCtx, cancel := context.WithTimeout(ctx, o.timeout)
		res, err := st.provider.Resolve(stepCtx, addr, userAgent)
		cancel()
		if err != nil {
			o.metrics.IncProviderFailure(st.provider.Name())
			o.log.Debug().Err(err).
				Str("provider", st.provider.Name()).
				Str("addr", addr).
				Msg("provider failed")
			if st.isPrimary {
				primaryFailed = true
			}
			continue
		}
		merged.Merge(res)
	}

	if name := companyname.FromReferrer(referrer); name != "" {
		merged.Merge(visitor.Result{CompanyName: name, CompanyRank: visitor.RankReferrer})
	}
	merged.IsUntrusted = classify.IsUntrustedNetwork(merged.Org, merged.Flags)
	return merged
}
