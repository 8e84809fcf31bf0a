package domain

// MarketEvent is one decoded stream message.
type MarketEvent interface {
	marketEvent()
}

// Ticker is one entry of the aggregate 24h ticker stream.
type Ticker struct {
	Symbol         string
	Price          float64
	Change24h      float64
	QuoteVolume24h float64
}

// TickerBatch carries every ticker that changed in the last push.
type TickerBatch struct {
	Tickers []Ticker
}

// KlineUpdate is one candle tick for a single symbol and timeframe.
type KlineUpdate struct {
	Symbol    string
	Timeframe Timeframe
	Candle    Candle
	Closed    bool
}

// MarkPrice is one entry of the mark-price stream.
type MarkPrice struct {
	Symbol      string
	MarkPrice   float64
	FundingRate float64
}

// MarkPriceBatch carries the mark prices and funding rates of all symbols.
type MarkPriceBatch struct {
	Prices []MarkPrice
}

func (TickerBatch) marketEvent()    {}
func (KlineUpdate) marketEvent()    {}
func (MarkPriceBatch) marketEvent() {}
