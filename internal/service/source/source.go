// Package source holds the market data source adapters. Each adapter wraps
// one upstream provider behind the repository.Source interface so the
// aggregator can treat them uniformly and fall back by priority.
package source

import (
	"context"
	"errors"
	"fmt"

	"MarketWatch/internal/domain/models"

	httpx "MarketWatch/pkg/http"
)

// classifyErr maps transport failures onto the domain sentinels. Timeouts,
// cancellations and upstream 5xx/429 all mean "try the next source".
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	var se *httpx.StatusError
	if errors.As(err, &se) {
		if se.Code == 429 || se.Code >= 500 {
			return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
		}
		if se.Code == 404 {
			return fmt.Errorf("%w: %v", models.ErrUnsupported, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}

	// net errors (refused, DNS, reset) surface as plain errors from the
	// http client; treat anything transport-shaped as unavailable.
	return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
}
