package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"

	httpx "MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
)

func TestFinnhubFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"c":189.5,"h":191.0,"l":188.2,"o":190.0,"pc":189.9,"t":1717250400}`))
	}))
	defer srv.Close()

	f := NewFinnhub(httpx.NewClient(), srv.URL, "test-key", 3)
	quote, err := f.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if got := quote.Price.String(); got != "189.5" {
		t.Fatalf("price = %s, want 189.5", got)
	}
	if quote.Source != "finnhub" {
		t.Fatalf("source = %q", quote.Source)
	}
}

func TestFinnhubUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	}))
	defer srv.Close()

	f := NewFinnhub(httpx.NewClient(), srv.URL, "k", 3)
	if _, err := f.FetchQuote(context.Background(), "NOPE"); !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFinnhubSeriesUnsupported(t *testing.T) {
	f := NewFinnhub(httpx.NewClient(), "http://localhost:0", "k", 3)
	if _, err := f.FetchSeries(context.Background(), "AAPL"); !errors.Is(err, models.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestYahooFetchSeriesSkipsNullBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":101.0,"regularMarketTime":1717250400},
			"timestamp":[1717164000,1717250400,1717336800],
			"indicators":{"quote":[{
				"open":[100,0,101],
				"high":[102,0,103],
				"low":[99,0,100],
				"close":[101,0,102],
				"volume":[1000,0,1200]
			}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	y := NewYahoo(httpx.NewClient(), srv.URL, 1)
	series, err := y.FetchSeries(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(series.Candles) != 2 {
		t.Fatalf("candles = %d, want 2 (zero bar dropped)", len(series.Candles))
	}
	if series.Candles[1].Close != 102 {
		t.Fatalf("last close = %v, want 102", series.Candles[1].Close)
	}
}

func TestAlphaVantageThrottleNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note":"API call frequency exceeded"}`))
	}))
	defer srv.Close()

	a := NewAlphaVantage(httpx.NewClient(), srv.URL, "k", 2)
	if _, err := a.FetchQuote(context.Background(), "AAPL"); !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestAlphaVantageSeriesOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Time Series (Daily)":{
			"2024-06-03":{"1. open":"102","2. high":"104","3. low":"101","4. close":"103","5. volume":"900"},
			"2024-06-01":{"1. open":"100","2. high":"101","3. low":"99","4. close":"100.5","5. volume":"800"}
		}}`))
	}))
	defer srv.Close()

	a := NewAlphaVantage(httpx.NewClient(), srv.URL, "k", 2)
	series, err := a.FetchSeries(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(series.Candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(series.Candles))
	}
	if series.Candles[0].Close != 100.5 || series.Candles[1].Close != 103 {
		t.Fatalf("candles not oldest-first: %+v", series.Candles)
	}
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFinnhub(httpx.NewClient(), srv.URL, "k", 3)
	if _, err := f.FetchQuote(context.Background(), "AAPL"); !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestStreamBookFreshness(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s := NewStream(StreamOptions{MaxAge: time.Minute}, logger.Nop())
	s.now = func() time.Time { return now }

	if _, err := s.FetchQuote(context.Background(), "AAPL"); !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("empty book: err = %v, want ErrUnavailable", err)
	}

	s.book["AAPL"] = bookEntry{price: 190.25, volume: 100, observedAt: now.Add(-30 * time.Second)}
	quote, err := s.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fresh entry: %v", err)
	}
	if got := quote.Price.String(); got != "190.25" {
		t.Fatalf("price = %s, want 190.25", got)
	}

	s.book["AAPL"] = bookEntry{price: 190.25, observedAt: now.Add(-2 * time.Minute)}
	if _, err := s.FetchQuote(context.Background(), "AAPL"); !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("stale entry: err = %v, want ErrUnavailable", err)
	}
}
