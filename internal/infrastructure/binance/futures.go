package binance

import (
	"context"
	"fmt"
	"strconv"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/metrics"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/opentracing/opentracing-go"
)

// FuturesSource reads market data straight from fapi.binance.com, for
// deployments without the REST proxy.
type FuturesSource struct {
	client *futures.Client
}

func NewFuturesSource(apiKey, secretKey, baseURL string) *FuturesSource {
	client := futures.NewClient(apiKey, secretKey)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &FuturesSource{client: client}
}

func observe(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RESTFetchesTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (s *FuturesSource) FetchKlines(ctx context.Context, symbol string, tf domain.Timeframe, limit int) (candles []domain.Candle, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.futures.klines")
	defer span.Finish()
	defer func() { observe("klines", err) }()

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(klines) == 0 {
		return nil, ErrNoData
	}

	candles = make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		c := domain.Candle{OpenTime: k.OpenTime}
		fields := []struct {
			dst *float64
			src string
		}{
			{&c.Open, k.Open},
			{&c.High, k.High},
			{&c.Low, k.Low},
			{&c.Close, k.Close},
			{&c.Volume, k.Volume},
		}
		for _, f := range fields {
			if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
				return nil, fmt.Errorf("parse kline %s@%d: %w", symbol, k.OpenTime, err)
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (s *FuturesSource) FetchOpenInterest(ctx context.Context, symbol string) (oi float64, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.futures.oi")
	defer span.Finish()
	defer func() { observe("oi", err) }()

	res, err := s.client.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(res.OpenInterest, 64)
}

func (s *FuturesSource) FetchFundingRate(ctx context.Context, symbol string) (rate float64, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.futures.funding")
	defer span.Finish()
	defer func() { observe("funding", err) }()

	res, err := s.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, ErrNoData
	}
	return strconv.ParseFloat(res[0].LastFundingRate, 64)
}

func (s *FuturesSource) FetchLongShortRatio(ctx context.Context, symbol, period string) (ratio float64, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.futures.lsr")
	defer span.Finish()
	defer func() { observe("lsr", err) }()

	if period == "" {
		period = "5m"
	}
	res, err := s.client.NewLongShortRatioService().
		Symbol(symbol).
		Period(period).
		Limit(1).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, ErrNoData
	}
	return strconv.ParseFloat(res[len(res)-1].LongShortRatio, 64)
}
