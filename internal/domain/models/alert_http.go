package models

// CreateAlertRequest is the POST /api/alerts body.
type CreateAlertRequest struct {
	OwnerID   string  `json:"owner_id" validate:"required"`
	Symbol    string  `json:"symbol" validate:"required"`
	Kind      string  `json:"kind" validate:"required,oneof=price_above price_below rsi_above rsi_below volume_spike"`
	Threshold float64 `json:"threshold" validate:"required,gt=0"`
}

// ListAlertsRequest filters GET /api/alerts.
type ListAlertsRequest struct {
	OwnerID string `query:"owner_id" validate:"required"`
}

// QuoteRequest is the GET /api/quotes/:symbol query.
type QuoteRequest struct {
	AllowStale bool `query:"allow_stale"`
}
