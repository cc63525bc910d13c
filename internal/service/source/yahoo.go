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

const yahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// Yahoo adapts the unauthenticated Yahoo Finance chart API. It serves both
// quotes and daily candle history from the same endpoint.
type Yahoo struct {
	client   *httpx.Client
	baseURL  string
	priority int
}

// NewYahoo creates a Yahoo source adapter.
func NewYahoo(client *httpx.Client, baseURL string, priority int) repository.Source {
	if baseURL == "" {
		baseURL = yahooDefaultBaseURL
	}
	return &Yahoo{client: client, baseURL: baseURL, priority: priority}
}

func (y *Yahoo) Name() string  { return "yahoo" }
func (y *Yahoo) Priority() int { return y.priority }

func (y *Yahoo) Supports(kind models.DataKind) bool {
	return kind == models.KindQuote || kind == models.KindSeries
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
				FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
				RegularMarketTime   int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, rng, interval string) (*yahooChart, error) {
	var out yahooChart
	err := y.client.GetJSON(ctx, &httpx.RequestOptions{
		URL: fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, symbol),
		QueryParams: map[string]string{
			"range":    rng,
			"interval": interval,
		},
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0",
		},
	}, &out)
	if err != nil {
		return nil, classifyErr(err)
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo: %s", models.ErrUnavailable, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo: empty result for %s", models.ErrUnavailable, symbol)
	}
	return &out, nil
}

// FetchQuote returns the latest quote from chart metadata.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	chart, err := y.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("%w: yahoo: no price for %s", models.ErrUnavailable, symbol)
	}

	observed := time.Now()
	if meta.RegularMarketTime > 0 {
		observed = time.Unix(meta.RegularMarketTime, 0)
	}

	return &models.Quote{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(meta.RegularMarketPrice),
		Volume:     meta.RegularMarketVolume,
		High52W:    decimal.NewFromFloat(meta.FiftyTwoWeekHigh),
		Low52W:     decimal.NewFromFloat(meta.FiftyTwoWeekLow),
		ObservedAt: observed,
		Source:     y.Name(),
	}, nil
}

// FetchSeries returns a year of daily candles.
func (y *Yahoo) FetchSeries(ctx context.Context, symbol string) (*models.Series, error) {
	chart, err := y.fetchChart(ctx, symbol, "1y", "1d")
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no candles for %s", models.ErrUnavailable, symbol)
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == 0 {
			// null bars (holidays, partial sessions) come through as zeros
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      q.Open[i],
			High:      q.High[i],
			Low:       q.Low[i],
			Close:     q.Close[i],
			Volume:    q.Volume[i],
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no usable candles for %s", models.ErrUnavailable, symbol)
	}

	return &models.Series{Symbol: symbol, Candles: candles, Source: y.Name()}, nil
}
