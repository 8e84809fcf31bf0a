package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hunter-backend/internal/domain"

	"github.com/bytedance/sonic"
)

var errUnknownStream = errors.New("unknown stream")

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	ID     *int64          `json:"id"`
}

// Binance reuses letters with different case for different fields (p/P, c/C,
// q/Q ...). Every sibling is declared so decoding never falls back to a
// case-insensitive match on the wrong field.

type wsTicker struct {
	EventType   string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	PriceChange string `json:"p"`
	ChangePct   string `json:"P"`
	LastPrice   string `json:"c"`
	CloseTime   int64  `json:"C"`
	OpenPrice   string `json:"o"`
	OpenTime    int64  `json:"O"`
	LowPrice    string `json:"l"`
	LastTradeID int64  `json:"L"`
	QuoteVolume string `json:"q"`
	LastQty     string `json:"Q"`
}

type wsKlineEvent struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

type wsKline struct {
	OpenTime      int64  `json:"t"`
	CloseTime     int64  `json:"T"`
	Interval      string `json:"i"`
	Open          string `json:"o"`
	Close         string `json:"c"`
	High          string `json:"h"`
	Low           string `json:"l"`
	LastTradeID   int64  `json:"L"`
	Volume        string `json:"v"`
	TakerVolume   string `json:"V"`
	QuoteVolume   string `json:"q"`
	TakerQuoteVol string `json:"Q"`
	Closed        bool   `json:"x"`
}

type wsMarkPrice struct {
	EventType   string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	MarkPrice   string `json:"p"`
	SettlePrice string `json:"P"`
	FundingRate string `json:"r"`
}

// decodeMessage turns one combined-stream frame into a market event.
// Control responses ({"result":null,"id":n}) decode to nil without error.
func decodeMessage(raw []byte) (domain.MarketEvent, error) {
	var env streamEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch {
	case env.Stream == "" && env.ID != nil:
		return nil, nil
	case env.Stream == "":
		return nil, errors.New("frame without stream name")
	case strings.HasPrefix(env.Stream, "!ticker@arr"):
		return decodeTickers(env.Data)
	case strings.HasPrefix(env.Stream, "!markPrice@arr"):
		return decodeMarkPrices(env.Data)
	case strings.Contains(env.Stream, "@kline_"):
		return decodeKline(env.Data)
	}
	return nil, fmt.Errorf("%w: %s", errUnknownStream, env.Stream)
}

func decodeTickers(data []byte) (domain.MarketEvent, error) {
	var raw []wsTicker
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}

	batch := domain.TickerBatch{Tickers: make([]domain.Ticker, 0, len(raw))}
	for _, t := range raw {
		vals, err := parseFloats(t.LastPrice, t.ChangePct, t.QuoteVolume)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", t.Symbol, err)
		}
		batch.Tickers = append(batch.Tickers, domain.Ticker{
			Symbol:         t.Symbol,
			Price:          vals[0],
			Change24h:      vals[1],
			QuoteVolume24h: vals[2],
		})
	}
	return batch, nil
}

func decodeKline(data []byte) (domain.MarketEvent, error) {
	var ev wsKlineEvent
	if err := sonic.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode kline: %w", err)
	}

	tf, ok := domain.ParseTimeframe(ev.Kline.Interval)
	if !ok {
		return nil, fmt.Errorf("kline %s: untracked interval %q", ev.Symbol, ev.Kline.Interval)
	}
	k := ev.Kline
	vals, err := parseFloats(k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return nil, fmt.Errorf("kline %s: %w", ev.Symbol, err)
	}

	return domain.KlineUpdate{
		Symbol:    strings.ToUpper(ev.Symbol),
		Timeframe: tf,
		Candle: domain.Candle{
			OpenTime: k.OpenTime,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		},
		Closed: k.Closed,
	}, nil
}

func decodeMarkPrices(data []byte) (domain.MarketEvent, error) {
	var raw []wsMarkPrice
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode mark prices: %w", err)
	}

	batch := domain.MarkPriceBatch{Prices: make([]domain.MarkPrice, 0, len(raw))}
	for _, m := range raw {
		vals, err := parseFloats(m.MarkPrice, m.FundingRate)
		if err != nil {
			return nil, fmt.Errorf("mark price %s: %w", m.Symbol, err)
		}
		batch.Prices = append(batch.Prices, domain.MarkPrice{
			Symbol:      m.Symbol,
			MarkPrice:   vals[0],
			FundingRate: vals[1],
		})
	}
	return batch, nil
}

func parseFloats(fields ...string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// eventKind labels an event for metrics and logs.
func eventKind(ev domain.MarketEvent) string {
	switch ev.(type) {
	case domain.TickerBatch:
		return "ticker"
	case domain.KlineUpdate:
		return "kline"
	case domain.MarkPriceBatch:
		return "mark_price"
	}
	return "unknown"
}
