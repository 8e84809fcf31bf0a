package view

import (
	"time"

	"hunter-backend/internal/domain"
)

// Symbol is the client view of one SymbolState. Candle series are only
// included on request since they dominate the payload.
type Symbol struct {
	Symbol         string                                    `json:"symbol"`
	Price          float64                                   `json:"price"`
	Change24h      float64                                   `json:"change24h"`
	Volume         float64                                   `json:"volume"`
	Funding        *float64                                  `json:"funding,omitempty"`
	OpenInterest   *float64                                  `json:"oi,omitempty"`
	LongShortRatio *float64                                  `json:"lsr,omitempty"`
	ScoreMode1     int                                       `json:"scoreMode1"`
	ScoreMode2     int                                       `json:"scoreMode2"`
	ScoreMode3     int                                       `json:"scoreMode3"`
	Bias           domain.Bias                               `json:"bias"`
	Note           string                                    `json:"note,omitempty"`
	Indicators     map[domain.Timeframe]domain.Indicators    `json:"indicators"`
	Klines         map[domain.Timeframe]*domain.CandleSeries `json:"klines,omitempty"`
	UpdatedAt      time.Time                                 `json:"updatedAt"`
}

type Market struct {
	Seq     uint64      `json:"seq"`
	TakenAt time.Time   `json:"takenAt"`
	Mode    domain.Mode `json:"mode"`
	Count   int         `json:"count"`
	Symbols []Symbol    `json:"symbols"`
}

// Filter narrows a market view. The zero value keeps everything.
type Filter struct {
	Bias       domain.Bias
	Limit      int
	WithKlines bool
}

func FromState(st domain.SymbolState, withKlines bool) Symbol {
	v := Symbol{
		Symbol:         st.Symbol,
		Price:          st.Price,
		Change24h:      st.Change24h,
		Volume:         st.QuoteVolume24h,
		Funding:        st.Funding,
		OpenInterest:   st.OpenInterest,
		LongShortRatio: st.LongShortRatio,
		ScoreMode1:     st.Scores.Mode1,
		ScoreMode2:     st.Scores.Mode2,
		ScoreMode3:     st.Scores.Mode3,
		Bias:           st.Bias,
		Note:           st.Note,
		Indicators:     st.Indicators,
		UpdatedAt:      st.UpdatedAt,
	}
	if withKlines {
		v.Klines = st.Series
	}
	return v
}

func FromSnapshot(snap domain.Snapshot, f Filter) Market {
	m := Market{
		Seq:     snap.Seq,
		TakenAt: snap.TakenAt,
		Mode:    snap.Mode,
		Symbols: make([]Symbol, 0, len(snap.Symbols)),
	}
	for _, st := range snap.Symbols {
		if f.Bias != "" && st.Bias != f.Bias {
			continue
		}
		m.Symbols = append(m.Symbols, FromState(st, f.WithKlines))
		if f.Limit > 0 && len(m.Symbols) == f.Limit {
			break
		}
	}
	m.Count = len(m.Symbols)
	return m
}
