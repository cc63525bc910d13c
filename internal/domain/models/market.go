package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataKind is a category of market data served by some subset of sources.
type DataKind string

const (
	KindQuote  DataKind = "quote"
	KindSeries DataKind = "series"
)

// Quote is a single observed price point. Immutable once produced; a newer
// Quote supersedes it, nothing mutates it.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Volume     int64           `json:"volume"`
	AvgVolume  int64           `json:"avg_volume,omitempty"`
	High52W    decimal.Decimal `json:"high_52w,omitempty"`
	Low52W     decimal.Decimal `json:"low_52w,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
	Source     string          `json:"source"`
}

// Candle is one OHLCV bar of a series. Timestamp is unix seconds, matching
// the upstream chart APIs.
type Candle struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    int64   `json:"v"`
}

// Series is an ordered, append-only (within a session) sequence of candles
// for one symbol.
type Series struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
	Source  string   `json:"source"`
}

// Closes returns the close prices in series order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volumes in series order.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = float64(c.Volume)
	}
	return out
}

// Highs returns the high prices in series order.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices in series order.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// MarketData is the aggregator's resolution result: exactly one of Quote or
// Series is set, depending on the requested kind. Stale marks a degraded read
// served from an expired cache entry; callers that did not opt into degraded
// reads never see Stale=true.
type MarketData struct {
	Kind   DataKind  `json:"kind"`
	Quote  *Quote    `json:"quote,omitempty"`
	Series *Series   `json:"series,omitempty"`
	Stale  bool      `json:"stale"`
	AsOf   time.Time `json:"as_of"`
}
