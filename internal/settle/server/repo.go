package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"trading-demov1/internal/model"
)

// Account is one user's money state row.
type Account struct {
	UserID           string    `db:"user_id"`
	Balance          int64     `db:"balance_cents"`
	Pool             int64     `db:"pool_cents"`
	Phase            string    `db:"phase"`
	CollectRemaining int       `db:"collect_remaining"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// TradeRow is one settled trade in the audit journal.
type TradeRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Time         time.Time `db:"ts"`
	Side         string    `db:"side"`
	Stake        int64     `db:"stake_cents"`
	Outcome      string    `db:"outcome"`
	Payout       int64     `db:"payout_cents"`
	Fee          int64     `db:"fee_cents"`
	BalanceAfter int64     `db:"balance_after_cents"`
}

// Repository persists accounts and the trade journal.
type Repository interface {
	Account(ctx context.Context, userID string) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	InsertTrade(ctx context.Context, t TradeRow) error
	Trades(ctx context.Context, userID string, limit int) ([]TradeRow, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS game_accounts (
	user_id           TEXT PRIMARY KEY,
	balance_cents     BIGINT NOT NULL,
	pool_cents        BIGINT NOT NULL,
	phase             TEXT NOT NULL,
	collect_remaining INT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS game_trades (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	ts                  TIMESTAMPTZ NOT NULL,
	side                TEXT NOT NULL,
	stake_cents         BIGINT NOT NULL,
	outcome             TEXT NOT NULL,
	payout_cents        BIGINT NOT NULL,
	fee_cents           BIGINT NOT NULL,
	balance_after_cents BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_trades_user_ts ON game_trades (user_id, ts DESC);
`

// PostgresRepo is the production Repository on Postgres via sqlx.
type PostgresRepo struct {
	db *sqlx.DB
}

// NewPostgresRepo connects and ensures the schema exists.
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresRepo{db: db}, nil
}

// Account loads one user's money state, creating the default account
// on first contact.
func (r *PostgresRepo) Account(ctx context.Context, userID string) (*Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, `
		SELECT user_id, balance_cents, pool_cents, phase, collect_remaining, updated_at
		FROM game_accounts WHERE user_id = $1`, userID)
	if err == nil {
		return &a, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("load account: %w", err)
	}

	a = Account{
		UserID:           userID,
		Balance:          model.DefaultBalance,
		Phase:            string(model.PhaseCollect),
		CollectRemaining: model.CollectLossCount,
		UpdatedAt:        time.Now(),
	}
	if err := r.SaveAccount(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAccount upserts the account row.
func (r *PostgresRepo) SaveAccount(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO game_accounts (user_id, balance_cents, pool_cents, phase, collect_remaining, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			balance_cents     = EXCLUDED.balance_cents,
			pool_cents        = EXCLUDED.pool_cents,
			phase             = EXCLUDED.phase,
			collect_remaining = EXCLUDED.collect_remaining,
			updated_at        = NOW()`,
		a.UserID, a.Balance, a.Pool, a.Phase, a.CollectRemaining)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// InsertTrade appends one settled trade to the journal.
func (r *PostgresRepo) InsertTrade(ctx context.Context, t TradeRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO game_trades (id, user_id, ts, side, stake_cents, outcome, payout_cents, fee_cents, balance_after_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.UserID, t.Time, t.Side, t.Stake, t.Outcome, t.Payout, t.Fee, t.BalanceAfter)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Trades returns the user's journal, oldest first, capped at limit.
func (r *PostgresRepo) Trades(ctx context.Context, userID string, limit int) ([]TradeRow, error) {
	var rows []TradeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, ts, side, stake_cents, outcome, payout_cents, fee_cents, balance_after_cents
		FROM (
			SELECT * FROM game_trades WHERE user_id = $1 ORDER BY ts DESC LIMIT $2
		) recent
		ORDER BY ts ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return rows, nil
}

// Close releases the connection pool.
func (r *PostgresRepo) Close() error { return r.db.Close() }
