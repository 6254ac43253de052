package resolve

import (
	"context"

	"github.com/sightline-analytics/sightline/internal/store"
	"github.com/sightline-analytics/sightline/internal/visitor"
)

// OverrideProvider consults the operator-maintained override table. A match is
// the highest-confidence company name in the waterfall.
type OverrideProvider struct {
	Store store.Store
}

func (p *OverrideProvider) Name() string { return "override" }

func (p *OverrideProvider) Resolve(ctx context.Context, addr, _ string) (visitor.Result, error) {
	company, err := p.Store.CheckManualOverride(ctx, addr)
	if err != nil {
		return visitor.Result{}, err
	}
	if company == "" {
		return visitor.Result{}, nil
	}
	return visitor.Result{CompanyName: company, CompanyRank: visitor.RankOverride}, nil
}
