// Package store persists the demo session state. One JSON document per
// profile lives under a fixed storage key; implementations must
// tolerate missing or malformed prior versions by falling back to
// defaults.
package store

import (
	"context"

	"trading-demov1/internal/model"
)

// StorageKey is the fixed key the session blob is stored under.
const StorageKey = "demo_trading_pro_v7"

// Store loads and saves the full session state (write-through: every
// mutator saves immediately after mutation).
type Store interface {
	Load(ctx context.Context) (*model.SessionState, error)
	Save(ctx context.Context, s *model.SessionState) error
	Close() error
}

// TradeJournal is implemented by stores that additionally keep an
// append-only journal of settled trades for audit.
type TradeJournal interface {
	RecordTrade(ctx context.Context, t model.ClosedTrade) error
}
