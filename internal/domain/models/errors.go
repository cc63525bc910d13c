package models

import "errors"

// Error taxonomy for the data-fetch path. Adapter-level errors are absorbed
// by the aggregator's fallback loop and never surface past it except as
// ErrDataUnavailable.
var (
	// ErrUnsupported: the adapter cannot serve this data-kind. Non-retryable
	// for that adapter; the aggregator moves to the next candidate.
	ErrUnsupported = errors.New("source: data kind not supported")

	// ErrUnavailable: transient upstream failure (timeout, 5xx, bad payload).
	// Retryable via fallback or next cycle.
	ErrUnavailable = errors.New("source: temporarily unavailable")

	// ErrQuotaExhausted: no candidate had call budget left in its window.
	ErrQuotaExhausted = errors.New("quota: exhausted")

	// ErrDataUnavailable: every candidate failed or was refused. Callers skip
	// the symbol for this cycle and retry next period.
	ErrDataUnavailable = errors.New("aggregator: data unavailable")
)

// Alert store errors.
var (
	ErrAlertNotFound = errors.New("alert: not found")

	// ErrOwnerLimitReached: the owner already holds the maximum number of
	// alerts and must delete one before creating another.
	ErrOwnerLimitReached = errors.New("alert: owner limit reached")
)
