package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// StreamOptions configures the websocket stream source.
type StreamOptions struct {
	URL            string
	APIKey         string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	// MaxAge bounds how old a book entry may be and still serve a quote.
	MaxAge time.Duration
}

type bookEntry struct {
	price      float64
	volume     int64
	observedAt time.Time
}

// Stream keeps a last-trade book fed by the Finnhub websocket feed and
// serves quotes out of it with zero upstream cost. It is the highest
// priority source; when the book has no fresh entry for a symbol the
// aggregator falls through to the REST sources.
type Stream struct {
	opts StreamOptions
	log  *logger.Logger

	mu   sync.RWMutex
	book map[string]bookEntry
	conn *websocket.Conn

	now func() time.Time
}

// NewStream creates the stream source. Run must be called for the book to
// fill; until then every FetchQuote reports unavailable.
func NewStream(opts StreamOptions, log *logger.Logger) *Stream {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Minute
	}
	return &Stream{
		opts: opts,
		log:  log,
		book: make(map[string]bookEntry),
		now:  time.Now,
	}
}

var _ repository.Source = (*Stream)(nil)

func (s *Stream) Name() string  { return "finnhub_stream" }
func (s *Stream) Priority() int { return 0 }

func (s *Stream) Supports(kind models.DataKind) bool {
	return kind == models.KindQuote
}

// FetchQuote serves the symbol's last trade if it is recent enough.
func (s *Stream) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.mu.RLock()
	entry, ok := s.book[symbol]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: stream: no trades for %s", models.ErrUnavailable, symbol)
	}
	if s.now().Sub(entry.observedAt) > s.opts.MaxAge {
		return nil, fmt.Errorf("%w: stream: last trade for %s too old", models.ErrUnavailable, symbol)
	}

	return &models.Quote{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(entry.price),
		Volume:     entry.volume,
		ObservedAt: entry.observedAt,
		Source:     s.Name(),
	}, nil
}

// FetchSeries is not offered by this adapter.
func (s *Stream) FetchSeries(ctx context.Context, symbol string) (*models.Series, error) {
	return nil, fmt.Errorf("%w: stream: series not supported", models.ErrUnsupported)
}

type streamTrade struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

// Run connects, subscribes and pumps trades into the book until ctx is
// cancelled, reconnecting on failure.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.connect(ctx); err != nil {
			s.log.Warn("stream connect failed", logger.Error(err))
		} else {
			s.pump(ctx)
		}

		select {
		case <-ctx.Done():
			s.close()
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.opts.URL, s.opts.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream dial: %w", err)
	}

	for _, sym := range s.opts.Symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.log.Info("stream connected", logger.Int("symbols", len(s.opts.Symbols)))
	return nil
}

func (s *Stream) pump(ctx context.Context) {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()

	go func() {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				s.mu.RLock()
				conn := s.conn
				s.mu.RUnlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("stream read failed", logger.Error(err))
			}
			s.close()
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "trade" {
			continue
		}

		s.mu.Lock()
		for _, t := range msg.Data {
			s.book[t.Symbol] = bookEntry{
				price:      t.Price,
				volume:     int64(t.Volume),
				observedAt: time.Unix(0, t.Time*int64(time.Millisecond)),
			}
		}
		s.mu.Unlock()
	}
}

func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
