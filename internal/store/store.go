// Package store persists visitor identities and operator-maintained company
// overrides.
package store

import (
	"context"
	"time"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

// ListFilter narrows ListVisitors results.
type ListFilter struct {
	HideNoise bool // drop bots and untrusted-network visitors
	Country   string
	Search    string // matched against company name and address
	Limit     int
}

// Store is the visitor record store consumed by the ingest path and the
// resolution pipeline.
type Store interface {
	// GetOrCreate returns the identity for addr, creating it on first sight
	// and bumping last-seen otherwise.
	GetOrCreate(ctx context.Context, addr string, ts time.Time) (visitor.Identity, error)

	// UpdateEnrichment overwrites the enrichment fields for addr in one write
	// and stamps the lookup cache time.
	UpdateEnrichment(ctx context.Context, addr string, res visitor.Result, now time.Time) error

	// CheckManualOverride returns the operator-assigned company name covering
	// addr, or "" when no override matches.
	CheckManualOverride(ctx context.Context, addr string) (string, error)

	// PutOverride inserts or updates an override for addr and immediately
	// applies the company name to an existing visitor record.
	PutOverride(ctx context.Context, addr, company, notes string, now time.Time) error

	ListVisitors(ctx context.Context, f ListFilter) ([]visitor.Identity, error)

	Close() error
}
