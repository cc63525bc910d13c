package models

import "time"

// SignalKind is a scanner-detected technical condition.
type SignalKind string

const (
	SignalRsiOversold    SignalKind = "rsi_oversold"
	SignalRsiOverbought  SignalKind = "rsi_overbought"
	SignalMacdBullish    SignalKind = "macd_bullish"
	SignalMacdBearish    SignalKind = "macd_bearish"
	SignalVolumeSpike    SignalKind = "volume_spike"
	SignalSqueeze        SignalKind = "bollinger_squeeze"
	SignalNear52WeekHigh SignalKind = "near_52w_high"
	SignalNear52WeekLow  SignalKind = "near_52w_low"
)

// Signal records one detector firing on one symbol at a point in time.
// Created by the scanner, immutable, handed to the signal sink.
type Signal struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Kind        SignalKind `json:"kind"`
	Value       float64    `json:"value"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	DetectedAt  time.Time  `json:"detected_at"`
}
