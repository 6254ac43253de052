package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and applies the schema.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite exec %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS visitors (
	ip_address       TEXT PRIMARY KEY,
	company_name     TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	org              TEXT NOT NULL DEFAULT '',
	is_bot           INTEGER NOT NULL DEFAULT 0,
	is_untrusted     INTEGER NOT NULL DEFAULT 0,
	first_seen       INTEGER NOT NULL,
	last_seen        INTEGER NOT NULL,
	lookup_cached_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ip_overrides (
	ip_start     INTEGER NOT NULL,
	ip_end       INTEGER NOT NULL,
	company_name TEXT NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (ip_start, ip_end)
);

CREATE INDEX IF NOT EXISTS idx_visitors_last_seen ON visitors(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_overrides_range ON ip_overrides(ip_start, ip_end);
`

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, addr string, ts time.Time) (visitor.Identity, error) {
	id, err := s.get(ctx, addr)
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE visitors SET last_seen = ? WHERE ip_address = ?`,
			ts.UnixMilli(), addr)
		if err != nil {
			return visitor.Identity{}, fmt.Errorf("sqlite touch visitor: %w", err)
		}
		id.LastSeenAt = ts
		return id, nil
	}
	if err != sql.ErrNoRows {
		return visitor.Identity{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO visitors (ip_address, first_seen, last_seen) VALUES (?, ?, ?)
		 ON CONFLICT (ip_address) DO UPDATE SET last_seen = excluded.last_seen`,
		addr, ts.UnixMilli(), ts.UnixMilli())
	if err != nil {
		return visitor.Identity{}, fmt.Errorf("sqlite insert visitor: %w", err)
	}
	return visitor.Identity{Key: addr, FirstSeenAt: ts, LastSeenAt: ts}, nil
}

func (s *SQLiteStore) UpdateEnrichment(ctx context.Context, addr string, res visitor.Result, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE visitors
		 SET company_name = ?, country = ?, city = ?, org = ?,
		     is_bot = ?, is_untrusted = ?, lookup_cached_at = ?
		 WHERE ip_address = ?`,
		res.CompanyName, res.Country, res.City, res.Org,
		boolToInt(res.IsBot), boolToInt(res.IsUntrusted), now.UnixMilli(), addr)
	if err != nil {
		return fmt.Errorf("sqlite update enrichment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CheckManualOverride(ctx context.Context, addr string) (string, error) {
	n, ok := addrToUint32(addr)
	if !ok {
		return "", nil
	}
	// Narrowest covering range wins.
	row := s.db.QueryRowContext(ctx,
		`SELECT company_name FROM ip_overrides
		 WHERE ip_start <= ? AND ip_end >= ?
		 ORDER BY (ip_end - ip_start) ASC LIMIT 1`, n, n)
	var company string
	if err := row.Scan(&company); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("sqlite check override: %w", err)
	}
	return company, nil
}

func (s *SQLiteStore) PutOverride(ctx context.Context, addr, company, notes string, now time.Time) error {
	n, ok := addrToUint32(addr)
	if !ok {
		return fmt.Errorf("override: %q is not an IPv4 address", addr)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ip_overrides (ip_start, ip_end, company_name, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (ip_start, ip_end) DO UPDATE SET
		   company_name = excluded.company_name,
		   notes        = excluded.notes,
		   updated_at   = excluded.updated_at`,
		n, n, company, notes, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite put override: %w", err)
	}
	// Apply to an existing visitor right away; future visits pick it up
	// through the waterfall.
	_, err = s.db.ExecContext(ctx,
		`UPDATE visitors SET company_name = ?, is_untrusted = 0 WHERE ip_address = ?`,
		company, addr)
	if err != nil {
		return fmt.Errorf("sqlite apply override: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListVisitors(ctx context.Context, f ListFilter) ([]visitor.Identity, error) {
	query := `SELECT ip_address, company_name, country, city, org,
	                 is_bot, is_untrusted, first_seen, last_seen, lookup_cached_at
	          FROM visitors WHERE 1=1`
	args := make([]any, 0, 4)
	if f.HideNoise {
		query += ` AND is_bot = 0 AND is_untrusted = 0`
	}
	if f.Country != "" {
		query += ` AND country = ?`
		args = append(args, f.Country)
	}
	if f.Search != "" {
		query += ` AND (company_name LIKE ? OR ip_address LIKE ?)`
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	query += ` ORDER BY last_seen DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list visitors: %w", err)
	}
	defer rows.Close()
	out := make([]visitor.Identity, 0, 64)
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) get(ctx context.Context, addr string) (visitor.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ip_address, company_name, country, city, org,
		        is_bot, is_untrusted, first_seen, last_seen, lookup_cached_at
		 FROM visitors WHERE ip_address = ?`, addr)
	return scanIdentity(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (visitor.Identity, error) {
	var (
		id                          visitor.Identity
		isBot, isUntrusted          int
		firstSeen, lastSeen, cached int64
	)
	err := row.Scan(&id.Key, &id.CompanyName, &id.Country, &id.City, &id.Org,
		&isBot, &isUntrusted, &firstSeen, &lastSeen, &cached)
	if err != nil {
		return visitor.Identity{}, err
	}
	id.IsBot = isBot != 0
	id.IsUntrusted = isUntrusted != 0
	id.FirstSeenAt = time.UnixMilli(firstSeen).UTC()
	id.LastSeenAt = time.UnixMilli(lastSeen).UTC()
	if cached != 0 {
		id.LookupCachedAt = time.UnixMilli(cached).UTC()
	}
	return id, nil
}

// addrToUint32 converts an IPv4 address to its numeric form. Override ranges
// are IPv4-only; other addresses never match an override.
func addrToUint32(addr string) (uint32, bool) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
