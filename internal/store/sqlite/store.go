// Package sqlite stores the session blob and a trade journal in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-demov1/internal/model"
	"trading-demov1/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists the session state as a JSON blob keyed by the fixed
// storage key, plus an append-only trades journal.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer is enough for one session record.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_state (
			key        TEXT PRIMARY KEY,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id            TEXT PRIMARY KEY,
			ts            INTEGER NOT NULL,
			side          TEXT    NOT NULL,
			stake         INTEGER NOT NULL,
			outcome       TEXT    NOT NULL,
			payout        INTEGER NOT NULL,
			fee           INTEGER NOT NULL,
			balance_after INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
	`)
	return err
}

// Load reads the session blob. A missing or malformed blob falls back
// to defaults; only real storage failures return an error.
func (s *Store) Load(ctx context.Context) (*model.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM session_state WHERE key = ?`, store.StorageKey,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return model.DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load state: %w", err)
	}

	st := model.DefaultState()
	if err := json.Unmarshal([]byte(data), st); err != nil {
		log.Printf("[sqlite] malformed session blob, using defaults: %v", err)
		return model.DefaultState(), nil
	}
	st.Sanitize()
	return st, nil
}

// Save writes the full session blob (write-through).
func (s *Store) Save(ctx context.Context, st *model.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_state (key, data, updated_at) VALUES (?, ?, ?)`,
		store.StorageKey, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite save state: %w", err)
	}
	return nil
}

// RecordTrade appends one settled trade to the journal.
func (s *Store) RecordTrade(ctx context.Context, t model.ClosedTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trades (id, ts, side, stake, outcome, payout, fee, balance_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Time.Unix(), string(t.Side), t.Stake, string(t.Outcome),
		t.Payout, t.Fee, t.BalanceAfter,
	)
	return err
}

// RecentTrades returns the last limit trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]model.ClosedTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, side, stake, outcome, payout, fee, balance_after
		 FROM trades ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.ClosedTrade
	for rows.Next() {
		var t model.ClosedTrade
		var ts int64
		var side, outcome string
		if err := rows.Scan(&t.ID, &ts, &side, &t.Stake, &outcome, &t.Payout, &t.Fee, &t.BalanceAfter); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.Time = time.Unix(ts, 0).UTC()
		t.Side = model.Side(side)
		t.Outcome = model.Outcome(outcome)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
