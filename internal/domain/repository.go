package domain

import (
	"context"
	"errors"
)

var ErrSymbolNotFound = errors.New("symbol not found")

// SnapshotRepository keeps the latest published snapshot for readers.
type SnapshotRepository interface {
	Publish(snap Snapshot)
	Latest() Snapshot
	Subscribe(buffer int) (<-chan Snapshot, func())
}

// MarketDataSource is the REST collaborator used for backfill and polling.
type MarketDataSource interface {
	FetchKlines(ctx context.Context, symbol string, tf Timeframe, limit int) ([]Candle, error)
	FetchOpenInterest(ctx context.Context, symbol string) (float64, error)
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
	FetchLongShortRatio(ctx context.Context, symbol, period string) (float64, error)
}

// SignalRepository journals bias transitions.
type SignalRepository interface {
	Record(ctx context.Context, ev SignalEvent) error
	Recent(ctx context.Context, limit int) ([]SignalEvent, error)
}
