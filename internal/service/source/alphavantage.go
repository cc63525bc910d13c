package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	httpx "MarketWatch/pkg/http"

	"github.com/shopspring/decimal"
)

const alphaDefaultBaseURL = "https://www.alphavantage.co"

// AlphaVantage adapts the Alpha Vantage REST API. The free tier allows a
// handful of calls per day, so this source normally sits behind a tight
// quota and only serves as a fallback.
type AlphaVantage struct {
	client   *httpx.Client
	baseURL  string
	apiKey   string
	priority int
}

// NewAlphaVantage creates an Alpha Vantage source adapter.
func NewAlphaVantage(client *httpx.Client, baseURL, apiKey string, priority int) repository.Source {
	if baseURL == "" {
		baseURL = alphaDefaultBaseURL
	}
	return &AlphaVantage{client: client, baseURL: baseURL, apiKey: apiKey, priority: priority}
}

func (a *AlphaVantage) Name() string  { return "alpha_vantage" }
func (a *AlphaVantage) Priority() int { return a.priority }

func (a *AlphaVantage) Supports(kind models.DataKind) bool {
	return kind == models.KindQuote || kind == models.KindSeries
}

// avThrottle covers the soft-throttle responses Alpha Vantage returns with
// HTTP 200 once the daily budget runs out.
type avThrottle struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
	ErrMsg      string `json:"Error Message"`
}

func (t *avThrottle) err() error {
	switch {
	case t.Note != "":
		return fmt.Errorf("%w: alpha_vantage: %s", models.ErrUnavailable, t.Note)
	case t.Information != "":
		return fmt.Errorf("%w: alpha_vantage: %s", models.ErrUnavailable, t.Information)
	case t.ErrMsg != "":
		return fmt.Errorf("%w: alpha_vantage: %s", models.ErrUnsupported, t.ErrMsg)
	}
	return nil
}

type avGlobalQuote struct {
	avThrottle
	GlobalQuote struct {
		Price  string `json:"05. price"`
		Volume string `json:"06. volume"`
		Day    string `json:"07. latest trading day"`
	} `json:"Global Quote"`
}

// FetchQuote calls the GLOBAL_QUOTE function.
func (a *AlphaVantage) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var out avGlobalQuote
	err := a.client.GetJSON(ctx, &httpx.RequestOptions{
		URL: a.baseURL + "/query",
		QueryParams: map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		},
	}, &out)
	if err != nil {
		return nil, classifyErr(err)
	}
	if err := out.err(); err != nil {
		return nil, err
	}
	if out.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("%w: alpha_vantage: empty quote for %s", models.ErrUnavailable, symbol)
	}

	price, err := decimal.NewFromString(out.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("alpha_vantage: parse price %q: %w", out.GlobalQuote.Price, err)
	}
	volume, _ := strconv.ParseInt(out.GlobalQuote.Volume, 10, 64)

	return &models.Quote{
		Symbol:     symbol,
		Price:      price,
		Volume:     volume,
		ObservedAt: time.Now(),
		Source:     a.Name(),
	}, nil
}

type avDaily struct {
	avThrottle
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

// FetchSeries calls TIME_SERIES_DAILY and returns candles oldest-first.
func (a *AlphaVantage) FetchSeries(ctx context.Context, symbol string) (*models.Series, error) {
	var out avDaily
	err := a.client.GetJSON(ctx, &httpx.RequestOptions{
		URL: a.baseURL + "/query",
		QueryParams: map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"outputsize": "compact",
			"apikey":     a.apiKey,
		},
	}, &out)
	if err != nil {
		return nil, classifyErr(err)
	}
	if err := out.err(); err != nil {
		return nil, err
	}
	if len(out.Series) == 0 {
		return nil, fmt.Errorf("%w: alpha_vantage: empty series for %s", models.ErrUnavailable, symbol)
	}

	dates := make([]string, 0, len(out.Series))
	for d := range out.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	candles := make([]models.Candle, 0, len(dates))
	for _, d := range dates {
		bar := out.Series[d]
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(bar.Open, 64)
		h, _ := strconv.ParseFloat(bar.High, 64)
		l, _ := strconv.ParseFloat(bar.Low, 64)
		c, err := strconv.ParseFloat(bar.Close, 64)
		if err != nil || c == 0 {
			continue
		}
		v, _ := strconv.ParseInt(bar.Volume, 10, 64)
		candles = append(candles, models.Candle{
			Timestamp: ts.Unix(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: alpha_vantage: no usable candles for %s", models.ErrUnavailable, symbol)
	}

	return &models.Series{Symbol: symbol, Candles: candles, Source: a.Name()}, nil
}
