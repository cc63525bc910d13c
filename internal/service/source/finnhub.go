package source

import (
	"context"
	"fmt"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	httpx "MarketWatch/pkg/http"

	"github.com/shopspring/decimal"
)

const finnhubDefaultBaseURL = "https://finnhub.io/api/v1"

// Finnhub adapts the Finnhub REST quote endpoint. Candle history is not on
// the free tier, so this source serves quotes only.
type Finnhub struct {
	client   *httpx.Client
	baseURL  string
	apiKey   string
	priority int
}

// NewFinnhub creates a Finnhub REST source adapter.
func NewFinnhub(client *httpx.Client, baseURL, apiKey string, priority int) repository.Source {
	if baseURL == "" {
		baseURL = finnhubDefaultBaseURL
	}
	return &Finnhub{client: client, baseURL: baseURL, apiKey: apiKey, priority: priority}
}

func (f *Finnhub) Name() string  { return "finnhub" }
func (f *Finnhub) Priority() int { return f.priority }

func (f *Finnhub) Supports(kind models.DataKind) bool {
	return kind == models.KindQuote
}

type fhQuote struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	PrevClose float64 `json:"pc"`
	Time      int64   `json:"t"`
}

// FetchQuote calls /quote.
func (f *Finnhub) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var out fhQuote
	err := f.client.GetJSON(ctx, &httpx.RequestOptions{
		URL: f.baseURL + "/quote",
		QueryParams: map[string]string{
			"symbol": symbol,
			"token":  f.apiKey,
		},
	}, &out)
	if err != nil {
		return nil, classifyErr(err)
	}

	// Finnhub answers unknown symbols with an all-zero quote.
	if out.Current == 0 && out.Time == 0 {
		return nil, fmt.Errorf("%w: finnhub: no quote for %s", models.ErrUnavailable, symbol)
	}

	observed := time.Now()
	if out.Time > 0 {
		observed = time.Unix(out.Time, 0)
	}

	return &models.Quote{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(out.Current),
		ObservedAt: observed,
		Source:     f.Name(),
	}, nil
}

// FetchSeries is not offered by this adapter.
func (f *Finnhub) FetchSeries(ctx context.Context, symbol string) (*models.Series, error) {
	return nil, fmt.Errorf("%w: finnhub: series not supported", models.ErrUnsupported)
}
