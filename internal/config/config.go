package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hunter-backend/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "HUNTER_CONFIG"
	defaultConfigFile = "config.yaml"

	SourceProxy  = "proxy"
	SourceDirect = "direct"
)

// Duration reads Go duration strings ("500ms", "1m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type App struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type Binance struct {
	Source       string   `yaml:"source"`
	RESTBaseURL  string   `yaml:"rest_base_url"`
	FuturesURL   string   `yaml:"futures_url"`
	StreamURL    string   `yaml:"stream_url"`
	APIKey       string   `yaml:"api_key"`
	APISecret    string   `yaml:"api_secret"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

type Engine struct {
	QuoteAsset    string   `yaml:"quote_asset"`
	FlushInterval Duration `yaml:"flush_interval"`
	InboxSize     int      `yaml:"inbox_size"`
	Mode          string   `yaml:"mode"`
}

type Stream struct {
	ReconnectMin  Duration `yaml:"reconnect_min"`
	ReconnectMax  Duration `yaml:"reconnect_max"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	BroadChannels []string `yaml:"broad_channels"`
}

type Subscription struct {
	Interval            Duration `yaml:"interval"`
	TopN                int      `yaml:"top_n"`
	BackfillLimit       int      `yaml:"backfill_limit"`
	BackfillConcurrency int      `yaml:"backfill_concurrency"`
}

type OpenInterest struct {
	Interval   Duration `yaml:"interval"`
	Candidates int      `yaml:"candidates"`
	Polled     int      `yaml:"polled"`
}

type Notify struct {
	Cooldown                Duration `yaml:"cooldown"`
	TelegramToken           string   `yaml:"telegram_token"`
	TelegramChatID          int64    `yaml:"telegram_chat_id"`
	FirebaseCredentialsPath string   `yaml:"firebase_credentials_path"`
	FirebaseCredentialsJSON string   `yaml:"firebase_credentials_json"`
	SignalCapacity          int      `yaml:"signal_capacity"`
}

type Database struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
}

// Config ...
type Config struct {
	App          App          `yaml:"app"`
	Binance      Binance      `yaml:"binance"`
	Engine       Engine       `yaml:"engine"`
	Stream       Stream       `yaml:"stream"`
	Subscription Subscription `yaml:"subscription"`
	OpenInterest OpenInterest `yaml:"open_interest"`
	Notify       Notify       `yaml:"notify"`
	Database     Database     `yaml:"database"`
	Tracing      Tracing      `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App: App{
			LogLevel:  "info",
			LogFormat: "json",
			HTTPAddr:  ":8080",
		},
		Binance: Binance{
			Source:       SourceProxy,
			RESTBaseURL:  "http://localhost:3000/api/binance",
			StreamURL:    "wss://fstream.binance.com",
			FetchTimeout: Duration(10 * time.Second),
		},
		Engine: Engine{
			QuoteAsset:    "USDT",
			FlushInterval: Duration(500 * time.Millisecond),
			InboxSize:     4096,
			Mode:          string(domain.ModeScalping),
		},
		Stream: Stream{
			ReconnectMin: Duration(500 * time.Millisecond),
			ReconnectMax: Duration(15 * time.Second),
			ReadTimeout:  Duration(60 * time.Second),
		},
		Subscription: Subscription{
			Interval:            Duration(5 * time.Second),
			TopN:                30,
			BackfillLimit:       100,
			BackfillConcurrency: 5,
		},
		OpenInterest: OpenInterest{
			Interval:   Duration(60 * time.Second),
			Candidates: 15,
			Polled:     5,
		},
		Notify: Notify{
			Cooldown:       Duration(5 * time.Minute),
			SignalCapacity: 500,
		},
		Database: Database{
			MaxConns: 5,
			MinConns: 1,
		},
		Tracing: Tracing{
			ServiceName: "hunter-backend",
			Host:        "localhost",
			Port:        6831,
		},
	}
}

// Load reads .env, the YAML file named by HUNTER_CONFIG (config.yaml by
// default, optional) and the environment, in that order of precedence
// from lowest to highest.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := getenvDefault(configFilePathENV, defaultConfigFile)
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.App.LogLevel = getenvDefault("LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getenvDefault("LOG_FORMAT", c.App.LogFormat)
	c.App.HTTPAddr = getenvDefault("HTTP_ADDR", c.App.HTTPAddr)
	if port := os.Getenv("PORT"); port != "" {
		c.App.HTTPAddr = ":" + port
	}
	c.App.MetricsAddr = getenvDefault("METRICS_ADDR", c.App.MetricsAddr)

	c.Binance.Source = getenvDefault("BINANCE_SOURCE", c.Binance.Source)
	c.Binance.RESTBaseURL = getenvDefault("BINANCE_BASE_URL", c.Binance.RESTBaseURL)
	c.Binance.FuturesURL = getenvDefault("BINANCE_FUTURES_URL", c.Binance.FuturesURL)
	c.Binance.StreamURL = getenvDefault("BINANCE_STREAM_URL", c.Binance.StreamURL)
	c.Binance.APIKey = getenvDefault("BINANCE_API_KEY", c.Binance.APIKey)
	c.Binance.APISecret = getenvDefault("BINANCE_API_SECRET", c.Binance.APISecret)
	c.Binance.FetchTimeout = durationFromEnv("BINANCE_FETCH_TIMEOUT", c.Binance.FetchTimeout)

	c.Engine.QuoteAsset = getenvDefault("QUOTE_ASSET", c.Engine.QuoteAsset)
	c.Engine.Mode = getenvDefault("HUNTER_MODE", c.Engine.Mode)
	c.Engine.FlushInterval = durationFromEnv("FLUSH_INTERVAL", c.Engine.FlushInterval)
	c.Engine.InboxSize = intFromEnv("ENGINE_INBOX_SIZE", c.Engine.InboxSize)

	c.Stream.ReconnectMin = durationFromEnv("STREAM_RECONNECT_MIN", c.Stream.ReconnectMin)
	c.Stream.ReconnectMax = durationFromEnv("STREAM_RECONNECT_MAX", c.Stream.ReconnectMax)

	c.Subscription.Interval = durationFromEnv("SUBSCRIPTION_INTERVAL", c.Subscription.Interval)
	c.Subscription.TopN = intFromEnv("SUBSCRIPTION_TOP_N", c.Subscription.TopN)
	c.OpenInterest.Interval = durationFromEnv("OPEN_INTEREST_INTERVAL", c.OpenInterest.Interval)

	c.Notify.Cooldown = durationFromEnv("ALERT_COOLDOWN", c.Notify.Cooldown)
	c.Notify.TelegramToken = getenvDefault("TELEGRAM_TOKEN", c.Notify.TelegramToken)
	c.Notify.TelegramChatID = int64FromEnv("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
	c.Notify.FirebaseCredentialsPath = getenvDefault("FIREBASE_CREDENTIALS_PATH", c.Notify.FirebaseCredentialsPath)
	c.Notify.FirebaseCredentialsJSON = getenvDefault("FIREBASE_CREDENTIALS_JSON", c.Notify.FirebaseCredentialsJSON)

	c.Database.URL = getenvDefault("DATABASE_URL", c.Database.URL)
	c.Database.MaxConns = int32(intFromEnv("DB_MAX_CONNS", int(c.Database.MaxConns)))
	c.Database.MinConns = int32(intFromEnv("DB_MIN_CONNS", int(c.Database.MinConns)))

	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Host = getenvDefault("JAEGER_HOST", c.Tracing.Host)
	c.Tracing.Port = intFromEnv("JAEGER_PORT", c.Tracing.Port)
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := domain.ParseMode(c.Engine.Mode); err != nil {
		errs = append(errs, fmt.Errorf("engine.mode: %w", err))
	}
	switch c.Binance.Source {
	case SourceProxy:
		if c.Binance.RESTBaseURL == "" {
			errs = append(errs, errors.New("binance.rest_base_url is required for the proxy source"))
		}
	case SourceDirect:
	default:
		errs = append(errs, fmt.Errorf("binance.source %q: want %s or %s", c.Binance.Source, SourceProxy, SourceDirect))
	}
	if c.Engine.QuoteAsset == "" {
		errs = append(errs, errors.New("engine.quote_asset is empty"))
	}
	if c.Stream.ReconnectMin <= 0 || c.Stream.ReconnectMax < c.Stream.ReconnectMin {
		errs = append(errs, fmt.Errorf("stream reconnect window %v..%v is invalid", c.Stream.ReconnectMin.D(), c.Stream.ReconnectMax.D()))
	}
	if c.Subscription.TopN < 1 || c.OpenInterest.Candidates < 1 || c.OpenInterest.Polled < 1 {
		errs = append(errs, errors.New("subscription.top_n, open_interest.candidates and open_interest.polled must be positive"))
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		errs = append(errs, errors.New("notify.telegram_chat_id is required with a telegram token"))
	}

	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func durationFromEnv(key string, def Duration) Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return Duration(d)
		}
	}
	return def
}
