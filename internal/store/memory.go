package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

// MemoryStore is an in-memory Store for tests and storage-less runs.
type MemoryStore struct {
	mu        sync.Mutex
	visitors  map[string]visitor.Identity
	overrides []memOverride
}

type memOverride struct {
	start, end uint32
	company    string
	notes      string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{visitors: make(map[string]visitor.Identity)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) GetOrCreate(_ context.Context, addr string, ts time.Time) (visitor.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.visitors[addr]; ok {
		id.LastSeenAt = ts
		m.visitors[addr] = id
		return id, nil
	}
	id := visitor.Identity{Key: addr, FirstSeenAt: ts, LastSeenAt: ts}
	m.visitors[addr] = id
	return id, nil
}

func (m *MemoryStore) UpdateEnrichment(_ context.Context, addr string, res visitor.Result, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.visitors[addr]
	if !ok {
		id = visitor.Identity{Key: addr, FirstSeenAt: now, LastSeenAt: now}
	}
	id.CompanyName = res.CompanyName
	id.Country = res.Country
	id.City = res.City
	id.Org = res.Org
	id.IsBot = res.IsBot
	id.IsUntrusted = res.IsUntrusted
	id.LookupCachedAt = now
	m.visitors[addr] = id
	return nil
}

func (m *MemoryStore) CheckManualOverride(_ context.Context, addr string) (string, error) {
	n, ok := addrToUint32(addr)
	if !ok {
		return "", nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	best := ""
	bestWidth := uint32(0)
	for _, o := range m.overrides {
		if o.start <= n && n <= o.end {
			width := o.end - o.start
			if best == "" || width < bestWidth {
				best = o.company
				bestWidth = width
			}
		}
	}
	return best, nil
}

func (m *MemoryStore) PutOverride(_ context.Context, addr, company, notes string, now time.Time) error {
	n, ok := addrToUint32(addr)
	if !ok {
		return fmt.Errorf("override: %q is not an IPv4 address", addr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.overrides {
		if o.start == n && o.end == n {
			m.overrides[i].company = company
			m.overrides[i].notes = notes
			m.applyOverrideLocked(addr, company)
			return nil
		}
	}
	m.overrides = append(m.overrides, memOverride{start: n, end: n, company: company, notes: notes})
	m.applyOverrideLocked(addr, company)
	return nil
}

func (m *MemoryStore) applyOverrideLocked(addr, company string) {
	if id, ok := m.visitors[addr]; ok {
		id.CompanyName = company
		id.IsUntrusted = false
		m.visitors[addr] = id
	}
}

func (m *MemoryStore) ListVisitors(_ context.Context, f ListFilter) ([]visitor.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]visitor.Identity, 0, len(m.visitors))
	for _, id := range m.visitors {
		if f.HideNoise && (id.IsBot || id.IsUntrusted) {
			continue
		}
		if f.Country != "" && id.Country != f.Country {
			continue
		}
		if f.Search != "" &&
			!strings.Contains(id.CompanyName, f.Search) &&
			!strings.Contains(id.Key, f.Search) {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
