package telemetry

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ProviderTotals is the aggregate usage for one provider family.
type ProviderTotals struct {
	Provider  string
	Requests  int
	InTokens  int
	OutTokens int
}

// Store persists usage entries in sqlite for aggregate reporting.
type Store struct {
	db *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "usage.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		in_tokens INTEGER NOT NULL,
		out_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		estimated INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage(provider);
	CREATE INDEX IF NOT EXISTS idx_usage_ts ON usage(ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Save(e Entry) error {
	query := `
	INSERT INTO usage (ts, provider, model, in_tokens, out_tokens, latency_ms, session_id, estimated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	estimated := 0
	if e.Estimated {
		estimated = 1
	}

	_, err := s.db.Exec(query,
		e.Timestamp,
		e.Provider,
		e.Model,
		e.InTokens,
		e.OutTokens,
		e.LatencyMS,
		e.SessionID,
		estimated,
	)

	return err
}

// RecentEntries returns the newest entries, most recent first.
func (s *Store) RecentEntries(limit int) ([]Entry, error) {
	query := `
	SELECT ts, provider, model, in_tokens, out_tokens, latency_ms, session_id, estimated
	FROM usage
	ORDER BY ts DESC
	LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var estimated int
		if err := rows.Scan(&e.Timestamp, &e.Provider, &e.Model, &e.InTokens, &e.OutTokens, &e.LatencyMS, &e.SessionID, &estimated); err != nil {
			continue
		}
		e.Estimated = estimated == 1
		e.Total = e.InTokens + e.OutTokens
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// TotalsSince aggregates usage per provider for entries at or after since.
func (s *Store) TotalsSince(since time.Time) ([]ProviderTotals, error) {
	query := `
	SELECT provider, COUNT(*), COALESCE(SUM(in_tokens), 0), COALESCE(SUM(out_tokens), 0)
	FROM usage
	WHERE ts >= ?
	GROUP BY provider
	ORDER BY provider
	`

	rows, err := s.db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []ProviderTotals
	for rows.Next() {
		var t ProviderTotals
		if err := rows.Scan(&t.Provider, &t.Requests, &t.InTokens, &t.OutTokens); err != nil {
			continue
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
