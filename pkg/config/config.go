package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Cache struct {
		QuoteTTL  time.Duration `yaml:"quote_ttl" default:"60s"`
		SeriesTTL time.Duration `yaml:"series_ttl" default:"5m"`
		// StaleFactor multiplies the logical TTL to get the physical retention
		// used for degraded reads. 1 disables stale fallback entirely.
		StaleFactor int `yaml:"stale_factor" default:"10" validate:"gte=1"`
		MaxEntries  int `yaml:"max_entries" default:"2000"`
		Redis       struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sources struct {
		Timeout time.Duration `yaml:"timeout" default:"8s"`
		Yahoo   SourceConfig  `yaml:"yahoo"`
		Finnhub FinnhubConfig `yaml:"finnhub"`
		Alpha   AlphaConfig   `yaml:"alpha_vantage"`
		Stream  StreamConfig  `yaml:"stream"`
	} `yaml:"sources"`
	Evaluator struct {
		Period      time.Duration `yaml:"period" default:"30s"`
		Concurrency int           `yaml:"concurrency" default:"4" validate:"gte=1"`
	} `yaml:"evaluator"`
	Scanner struct {
		Period      time.Duration `yaml:"period" default:"1h"`
		Concurrency int           `yaml:"concurrency" default:"4" validate:"gte=1"`
		Universe    []string      `yaml:"universe"`
		MarketHours struct {
			Enabled  bool   `yaml:"enabled"`
			Open     string `yaml:"open" default:"09:15"`
			Close    string `yaml:"close" default:"15:30"`
			Timezone string `yaml:"timezone" default:"Asia/Kolkata"`
		} `yaml:"market_hours"`
	} `yaml:"scanner"`
	Indicators struct {
		RsiLookback      int     `yaml:"rsi_lookback" default:"14" validate:"gte=2"`
		RsiOversold      float64 `yaml:"rsi_oversold" default:"30"`
		RsiOverbought    float64 `yaml:"rsi_overbought" default:"70"`
		MacdFast         int     `yaml:"macd_fast" default:"12"`
		MacdSlow         int     `yaml:"macd_slow" default:"26"`
		MacdSignal       int     `yaml:"macd_signal" default:"9"`
		BollingerPeriod  int     `yaml:"bollinger_period" default:"20"`
		BollingerStdDev  float64 `yaml:"bollinger_std_dev" default:"2.0"`
		SqueezeFraction  float64 `yaml:"squeeze_fraction" default:"0.5"`
		VolumeLookback   int     `yaml:"volume_lookback" default:"20"`
		VolumeMultiplier float64 `yaml:"volume_multiplier" default:"2.0"`
		BreakoutBandPct  float64 `yaml:"breakout_band_pct" default:"0.5"`
	} `yaml:"indicators"`
	Notify struct {
		Workers   int `yaml:"workers" default:"2" validate:"gte=1"`
		QueueSize int `yaml:"queue_size" default:"256"`
	} `yaml:"notify"`
	Sink struct {
		// Type routes scanner signals: "log", "kafka" or "clickhouse".
		Type  string `yaml:"type" default:"log" validate:"oneof=log kafka clickhouse"`
		Kafka struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"marketwatch.signals"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host        string        `yaml:"host"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"marketwatch"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		} `yaml:"clickhouse"`
	} `yaml:"sink"`
	Alerts struct {
		MaxPerOwner int `yaml:"max_per_owner" default:"100" validate:"gte=1"`
	} `yaml:"alerts"`
}

// SourceConfig is the common per-source quota surface.
type SourceConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	Priority int           `yaml:"priority" default:"1"`
	Limit    int           `yaml:"limit" default:"1000"`
	Window   time.Duration `yaml:"window" default:"1m"`
	BaseURL  string        `yaml:"base_url"`
}

type FinnhubConfig struct {
	SourceConfig `yaml:",inline"`
	APIKey       string `yaml:"api_key"`
}

type AlphaConfig struct {
	SourceConfig `yaml:",inline"`
	APIKey       string `yaml:"api_key"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url" default:"wss://ws.finnhub.io"`
	APIKey         string        `yaml:"api_key"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	// MaxAge bounds how old a streamed trade may be before the book refuses
	// to serve it as a quote.
	MaxAge time.Duration `yaml:"max_age" default:"60s"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and addresses
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Sources.Finnhub.APIKey = v
		c.Sources.Stream.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.Sources.Alpha.APIKey = v
	}
	if v := os.Getenv("UNIVERSE"); v != "" {
		c.Scanner.Universe = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Sink.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Scanner.Universe) == 0 {
		return fmt.Errorf("scanner.universe cannot be empty")
	}
	if c.Sources.Finnhub.Enabled && c.Sources.Finnhub.APIKey == "" {
		return fmt.Errorf("sources.finnhub: api_key required when enabled")
	}
	if c.Sources.Alpha.Enabled && c.Sources.Alpha.APIKey == "" {
		return fmt.Errorf("sources.alpha_vantage: api_key required when enabled")
	}
	if c.Sink.Type == "kafka" && len(c.Sink.Kafka.Brokers) == 0 {
		return fmt.Errorf("sink.kafka.brokers required for kafka sink")
	}
	if c.Sink.Type == "clickhouse" && c.Sink.ClickHouse.Host == "" {
		return fmt.Errorf("sink.clickhouse.host required for clickhouse sink")
	}
	return nil
}
