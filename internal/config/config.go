package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is the one configuration failure the dashboard refuses to degrade around.
var ErrMissingCredentials = errors.New("alpaca API credentials not configured")

// ConfigFileEnv points at an optional YAML file applied before environment overrides.
const ConfigFileEnv = "DASHBOARD_CONFIG"

type Config struct {
	Alpaca       AlpacaConfig       `yaml:"alpaca"`
	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage"`
	Bars         BarsConfig         `yaml:"bars"`
	Cache        CacheConfig        `yaml:"cache"`
	Series       SeriesConfig       `yaml:"series"`
	Data         DataConfig         `yaml:"data"`
	Reasoning    ReasoningConfig    `yaml:"reasoning"`
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`

	RefreshInterval time.Duration `yaml:"refresh_interval" default:"5m" validate:"gt=0"`
}

type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url" default:"https://paper-api.alpaca.markets" validate:"url"`
}

type AlphaVantageConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url" default:"https://www.alphavantage.co/query" validate:"url"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

// BarsConfig selects which upstream serves hourly bars.
type BarsConfig struct {
	Provider   string   `yaml:"provider" default:"alphavantage" validate:"oneof=alphavantage alpaca"`
	Benchmarks []string `yaml:"benchmarks" default:"[\"SPY\",\"QQQ\"]" validate:"min=1,dive,required"`
}

type CacheConfig struct {
	BarsTTL    time.Duration `yaml:"bars_ttl" default:"168h" validate:"gt=0"`
	DefaultTTL time.Duration `yaml:"default_ttl" default:"5m" validate:"gt=0"`
}

type SeriesConfig struct {
	StartingCash    float64       `yaml:"starting_cash" default:"100000" validate:"gt=0"`
	MinTrustedValue float64       `yaml:"min_trusted_value" default:"1000" validate:"gte=0"`
	StaleAfter      time.Duration `yaml:"stale_after" default:"6h"`
	MaxExtendHours  int           `yaml:"max_extend_hours" default:"72" validate:"gte=0"`
	RangeBuffer     time.Duration `yaml:"range_buffer" default:"24h"`
}

// DataConfig names the local JSON files used as fallbacks and corrections.
type DataConfig struct {
	Dir             string `yaml:"dir" default:"data"`
	DateMappings    string `yaml:"date_mappings" default:"user_log_date_mappings.json"`
	InjectedTrades  string `yaml:"injected_trades" default:"reconstructed_trades.json"`
	SnapshotPattern string `yaml:"snapshot_pattern" default:"%s_fallback.json"`
}

type ReasoningConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	File       string `yaml:"file" default:"dashboard.log"`
	MaxSizeMB  int64  `yaml:"max_size_mb" default:"10" validate:"gt=0"`
	MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
	Console    bool   `yaml:"console" default:"true"`
}

var secretVars = map[string]bool{
	"APCA_API_KEY_ID":       true,
	"APCA_API_SECRET_KEY":   true,
	"ALPHA_VANTAGE_API_KEY": true,
}

// Load builds the configuration: struct defaults, then the optional YAML file,
// then .env and process environment, then validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}
	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		return cfg, ErrMissingCredentials
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Alpaca.APIKey = getEnv("APCA_API_KEY_ID", cfg.Alpaca.APIKey)
	cfg.Alpaca.APISecret = getEnv("APCA_API_SECRET_KEY", cfg.Alpaca.APISecret)
	cfg.Alpaca.BaseURL = getEnv("APCA_API_BASE_URL", cfg.Alpaca.BaseURL)
	cfg.AlphaVantage.APIKey = getEnv("ALPHA_VANTAGE_API_KEY", cfg.AlphaVantage.APIKey)
	cfg.Bars.Provider = getEnv("BARS_PROVIDER", cfg.Bars.Provider)
	if v := getEnv("BENCHMARK_SYMBOLS", ""); v != "" {
		cfg.Bars.Benchmarks = strings.Split(v, ",")
	}

	cfg.Series.StartingCash = getEnvAsFloat64("STARTING_CASH", cfg.Series.StartingCash)
	cfg.Series.MinTrustedValue = getEnvAsFloat64("MIN_TRUSTED_EQUITY", cfg.Series.MinTrustedValue)
	cfg.RefreshInterval = getEnvAsDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.Cache.BarsTTL = getEnvAsDuration("CACHE_BARS_TTL", cfg.Cache.BarsTTL)
	cfg.Cache.DefaultTTL = getEnvAsDuration("CACHE_DEFAULT_TTL", cfg.Cache.DefaultTTL)

	cfg.Data.Dir = getEnv("DASHBOARD_DATA_DIR", cfg.Data.Dir)
	cfg.Reasoning.URL = getEnv("REASONING_FEED_URL", cfg.Reasoning.URL)
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvAsInt64("MAX_LOG_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = int(getEnvAsInt64("MAX_LOG_BACKUPS", int64(cfg.Log.MaxBackups)))
}

// LogEnv prints the .env file contents with secrets masked to their last 4 chars.
func LogEnv() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	for key, val := range envMap {
		if secretVars[key] {
			log.Info().Str(key, mask(val)).Msg(".env")
			continue
		}
		log.Info().Str(key, val).Msg(".env")
	}
}

func mask(val string) string {
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}
