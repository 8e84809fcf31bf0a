package domain

import "testing"

func candleAt(t int64, close float64) Candle {
	return Candle{OpenTime: t, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestCandleSeriesUpsert(t *testing.T) {
	s := NewCandleSeries(SeriesCapacity)
	for i := int64(1); i <= 3; i++ {
		if got := s.Upsert(candleAt(i*60000, float64(i))); got != Appended {
			t.Fatalf("upsert %d: got %v, want appended", i, got)
		}
	}

	if got := s.Upsert(candleAt(180000, 9)); got != Replaced {
		t.Fatalf("same open time: got %v, want replaced", got)
	}
	if s.Len() != 3 {
		t.Fatalf("len after replace = %d, want 3", s.Len())
	}
	if last, _ := s.Last(); last.Close != 9 {
		t.Fatalf("last close = %v, want 9", last.Close)
	}

	if got := s.Upsert(candleAt(60000, 42)); got != Rejected {
		t.Fatalf("older open time: got %v, want rejected", got)
	}
	if s.Len() != 3 || s.At(0).Close != 1 {
		t.Fatalf("series changed by a rejected write: %+v", s.Candles())
	}
}

func TestCandleSeriesEvictsOldest(t *testing.T) {
	s := NewCandleSeries(SeriesCapacity)
	total := SeriesCapacity + 25
	for i := 0; i < total; i++ {
		s.Upsert(candleAt(int64(i), float64(i)))
	}

	if s.Len() != SeriesCapacity {
		t.Fatalf("len = %d, want %d", s.Len(), SeriesCapacity)
	}
	candles := s.Candles()
	if candles[0].OpenTime != 25 {
		t.Fatalf("oldest open time = %d, want 25", candles[0].OpenTime)
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime <= candles[i-1].OpenTime {
			t.Fatalf("series not increasing at %d: %d after %d", i, candles[i].OpenTime, candles[i-1].OpenTime)
		}
	}
	if last, _ := s.Last(); last.OpenTime != int64(total-1) {
		t.Fatalf("last open time = %d, want %d", last.OpenTime, total-1)
	}
}

func TestCandleSeriesSeed(t *testing.T) {
	s := NewCandleSeries(5)
	s.Upsert(candleAt(1, 1))

	s.Seed([]Candle{
		candleAt(10, 1), candleAt(20, 2), candleAt(20, 3), candleAt(15, 4),
		candleAt(30, 5), candleAt(40, 6), candleAt(50, 7), candleAt(60, 8),
	})

	got := s.Candles()
	want := []int64{20, 30, 40, 50, 60}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].OpenTime != want[i] {
			t.Fatalf("candle %d open time = %d, want %d", i, got[i].OpenTime, want[i])
		}
	}
}

func TestCandleSeriesCloneIsIndependent(t *testing.T) {
	s := NewCandleSeries(3)
	for i := int64(0); i < 5; i++ {
		s.Upsert(candleAt(i, float64(i)))
	}

	c := s.Clone()
	s.Upsert(candleAt(5, 5))

	if c.Len() != 3 {
		t.Fatalf("clone len = %d, want 3", c.Len())
	}
	if last, _ := c.Last(); last.OpenTime != 4 {
		t.Fatalf("clone last = %d, want 4", last.OpenTime)
	}
	if c.At(0).OpenTime != 2 {
		t.Fatalf("clone first = %d, want 2", c.At(0).OpenTime)
	}
}

func TestSymbolStateCloneDeepCopies(t *testing.T) {
	st := NewSymbolState("BTCUSDT")
	st.Funding = Float(0.0001)
	st.Series[Timeframe1m].Upsert(candleAt(1, 100))
	st.Indicators[Timeframe1m] = Indicators{RSI: Float(55), ADX: &ADXValue{ADX: 30}}

	c := st.Clone()
	*st.Funding = 1
	st.Series[Timeframe1m].Upsert(candleAt(2, 101))
	*st.Indicators[Timeframe1m].RSI = 99
	st.Indicators[Timeframe1m].ADX.ADX = 1

	if *c.Funding != 0.0001 {
		t.Errorf("funding leaked into clone: %v", *c.Funding)
	}
	if c.Series[Timeframe1m].Len() != 1 {
		t.Errorf("series leaked into clone: len %d", c.Series[Timeframe1m].Len())
	}
	if *c.Indicators[Timeframe1m].RSI != 55 || c.Indicators[Timeframe1m].ADX.ADX != 30 {
		t.Errorf("indicators leaked into clone: %+v", c.Indicators[Timeframe1m])
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("intraday"); err != nil || m != ModeIntraday {
		t.Fatalf("ParseMode(intraday) = %v, %v", m, err)
	}
	if _, err := ParseMode("swing"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if ctx := NewScoringContext(ModeIntraday); ctx.Config.Timeframes.Trend != Timeframe1h {
		t.Fatalf("intraday trend timeframe = %v", ctx.Config.Timeframes.Trend)
	}
}
