package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind is the condition an alert watches.
type AlertKind string

const (
	PriceAbove  AlertKind = "price_above"
	PriceBelow  AlertKind = "price_below"
	RsiAbove    AlertKind = "rsi_above"
	RsiBelow    AlertKind = "rsi_below"
	VolumeSpike AlertKind = "volume_spike"
)

// ParseAlertKind validates a wire-format alert kind.
func ParseAlertKind(s string) (AlertKind, error) {
	switch AlertKind(s) {
	case PriceAbove, PriceBelow, RsiAbove, RsiBelow, VolumeSpike:
		return AlertKind(s), nil
	}
	return "", fmt.Errorf("unknown alert kind %q", s)
}

// DataKind returns the market data the kind's condition is evaluated against.
func (k AlertKind) DataKind() DataKind {
	switch k {
	case RsiAbove, RsiBelow, VolumeSpike:
		return KindSeries
	default:
		return KindQuote
	}
}

// AlertStatus is the alert lifecycle state. Triggered and Disabled are
// terminal: no transition leads back to Active.
type AlertStatus string

const (
	StatusActive    AlertStatus = "active"
	StatusTriggered AlertStatus = "triggered"
	StatusDisabled  AlertStatus = "disabled"
)

// Alert is a user-defined condition that fires exactly once. Owned by its
// owner; only the evaluator transitions status, and only along
// Active → Triggered → Disabled or Active → Disabled (cancel).
type Alert struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Symbol      string          `json:"symbol"`
	Kind        AlertKind       `json:"kind"`
	Threshold   decimal.Decimal `json:"threshold"`
	Status      AlertStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
}
