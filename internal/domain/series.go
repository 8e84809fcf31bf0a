package domain

import "encoding/json"

// SeriesCapacity is the number of candles kept per (symbol, timeframe).
const SeriesCapacity = 300

// UpsertResult tells what a CandleSeries write did.
type UpsertResult int

const (
	Rejected UpsertResult = iota
	Replaced
	Appended
)

func (r UpsertResult) String() string {
	switch r {
	case Replaced:
		return "replaced"
	case Appended:
		return "appended"
	}
	return "rejected"
}

// CandleSeries is a fixed-capacity ring of candles strictly increasing by
// OpenTime. The backing array is allocated on first write and never grows.
type CandleSeries struct {
	buf   []Candle
	start int
	n     int
	cap   int
}

// NewCandleSeries returns an empty series holding at most capacity candles.
func NewCandleSeries(capacity int) *CandleSeries {
	if capacity < 1 {
		capacity = SeriesCapacity
	}
	return &CandleSeries{cap: capacity}
}

// Len returns the number of stored candles.
func (s *CandleSeries) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

// Cap returns the fixed capacity.
func (s *CandleSeries) Cap() int { return s.cap }

// At returns the i-th candle, oldest first.
func (s *CandleSeries) At(i int) Candle {
	return s.buf[(s.start+i)%s.cap]
}

// Last returns the newest candle.
func (s *CandleSeries) Last() (Candle, bool) {
	if s.Len() == 0 {
		return Candle{}, false
	}
	return s.At(s.n - 1), true
}

// Upsert applies one candle: same OpenTime as the last one replaces it,
// a later OpenTime appends (evicting the oldest when full), anything older is rejected.
func (s *CandleSeries) Upsert(c Candle) UpsertResult {
	if last, ok := s.Last(); ok {
		switch {
		case c.OpenTime == last.OpenTime:
			s.buf[(s.start+s.n-1)%s.cap] = c
			return Replaced
		case c.OpenTime < last.OpenTime:
			return Rejected
		}
	}
	s.push(c)
	return Appended
}

func (s *CandleSeries) push(c Candle) {
	if s.buf == nil {
		s.buf = make([]Candle, s.cap)
	}
	if s.n < s.cap {
		s.buf[(s.start+s.n)%s.cap] = c
		s.n++
		return
	}
	s.buf[s.start] = c
	s.start = (s.start + 1) % s.cap
}

// Seed replaces the content with a history batch. Out-of-order or duplicate
// entries are dropped and only the newest Cap() candles are kept.
func (s *CandleSeries) Seed(candles []Candle) {
	s.start, s.n = 0, 0
	for _, c := range candles {
		if last, ok := s.Last(); ok && c.OpenTime <= last.OpenTime {
			continue
		}
		s.push(c)
	}
}

// Candles returns the series as a new slice, oldest first.
func (s *CandleSeries) Candles() []Candle {
	out := make([]Candle, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Closes returns close prices, oldest first.
func (s *CandleSeries) Closes() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i).Close
	}
	return out
}

// Volumes returns base volumes, oldest first.
func (s *CandleSeries) Volumes() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i).Volume
	}
	return out
}

// Clone returns an independent copy compacted to start at index zero.
func (s *CandleSeries) Clone() *CandleSeries {
	if s == nil {
		return nil
	}
	out := &CandleSeries{cap: s.cap, n: s.n}
	if s.n > 0 {
		out.buf = make([]Candle, s.cap)
		for i := 0; i < s.n; i++ {
			out.buf[i] = s.At(i)
		}
	}
	return out
}

// MarshalJSON encodes the series as an ordered candle array.
func (s *CandleSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Candles())
}
