// Package config loads service settings from the environment, an optional
// .env file and an optional YAML file of per-provider overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Candle providers.
const (
	Coinbase  = "COINBASE"
	Binance   = "BINANCE"
	BinanceWS = "BINANCE_WS"
	Gemini    = "GEMINI"
	Kraken    = "KRAKEN"
	OKX       = "OKX"
	Bybit     = "BYBIT"
	Aggregate = "AGGREGATE"
)

// Signers.
const (
	SignerAzure  = "AZURE"
	SignerRemote = "REMOTE"
	SignerLocal  = "LOCAL"
)

var providers = []string{Coinbase, Binance, BinanceWS, Gemini, Kraken, OKX, Bybit, Aggregate}

// Config is the decoded service configuration.
type Config struct {
	// Assets is the raw comma-separated list; use AssetNames.
	Assets           string `env:"ASSETS,required"`
	CandleProvider   string `env:"CANDLE_PROVIDER,default=COINBASE"`
	AggregateSources string `env:"AGGREGATE_SOURCES"`

	Coinbase struct {
		KeyID      string `env:"COINBASE_API_KEY_ID"`
		Secret     string `env:"COINBASE_API_KEY_SECRET"`
		Passphrase string `env:"COINBASE_API_KEY_PASSPHRASE"`
	}

	Signer string `env:"SIGNER,default=AZURE"`
	Azure  struct {
		VaultURL   string `env:"AZURE_KEYVAULT_URL"`
		KeyName    string `env:"AZURE_KEY_NAME"`
		KeyVersion string `env:"AZURE_KEY_VERSION"`
	}
	Remote struct {
		URL       string `env:"REMOTE_SIGNER_URL"`
		ServiceID string `env:"REMOTE_SIGNER_SERVICE_ID,default=oracle"`
	}
	LocalSecretKey string `env:"LOCAL_SIGNER_SECRET_KEY"`

	HTTPAddr  string `env:"HTTP_ADDR,default=:8080"`
	GRPCAddr  string `env:"GRPC_ADDR,default=:50051"` // "off" disables gRPC
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`
	UpstreamRPS      float64       `env:"UPSTREAM_RPS,default=0"`
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS,default=10"`
	RetryBackoff     time.Duration `env:"RETRY_BACKOFF,default=1s"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY,default=0"`

	ConfigFile string `env:"CONFIG_FILE"`

	// File holds the YAML overrides, if ConfigFile is set.
	File File

	// AssetNames is the parsed, sorted Assets list.
	AssetNames []string
	// Sources is the parsed provider list used when CandleProvider is AGGREGATE.
	Sources []string
}

// File is the YAML override document.
type File struct {
	Providers        map[string]ProviderOverride `yaml:"providers"`
	AggregateSources []string                    `yaml:"aggregate_sources"`
}

// ProviderOverride tunes one candle provider. Zero values keep the defaults.
type ProviderOverride struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Retry             *RetryConfig  `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Var    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Var, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// numericVars are parsed again from the raw environment after decoding:
// envdecode leaves a field at its zero value when the text does not parse.
var numericVars = map[string]func(string) error{
	"UPSTREAM_TIMEOUT":   parseDuration,
	"RETRY_BACKOFF":      parseDuration,
	"UPSTREAM_RPS":       parseFloat,
	"RETRY_MAX_ATTEMPTS": parseInt,
	"FETCH_CONCURRENCY":  parseInt,
}

func parseDuration(s string) error {
	_, err := time.ParseDuration(s)
	return err
}

func parseFloat(s string) error {
	_, err := strconv.ParseFloat(s, 64)
	return err
}

func parseInt(s string) error {
	_, err := strconv.Atoi(s)
	return err
}

func checkNumeric() error {
	for _, name := range slices.Sorted(maps.Keys(numericVars)) {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if err := numericVars[name](v); err != nil {
			return &ConfigurationError{Var: name, Reason: fmt.Sprintf("cannot parse %q", v)}
		}
	}
	return nil
}

// Load reads envFile (when it exists) into the process environment, decodes
// the environment and the optional YAML file, and validates the result.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Var: envFile, Reason: err.Error()}
		}
	}

	if err := checkNumeric(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, &ConfigurationError{Var: "environment", Reason: err.Error()}
	}

	if cfg.ConfigFile != "" {
		b, err := os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, &ConfigurationError{Var: "CONFIG_FILE", Reason: err.Error()}
		}
		if err := yaml.Unmarshal(b, &cfg.File); err != nil {
			return nil, &ConfigurationError{Var: "CONFIG_FILE", Reason: err.Error()}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field rules and fills AssetNames and Sources.
func (c *Config) Validate() error {
	names, err := splitList(c.Assets)
	if err != nil {
		return &ConfigurationError{Var: "ASSETS", Reason: err.Error()}
	}
	if len(names) == 0 {
		return &ConfigurationError{Var: "ASSETS", Reason: "no assets given"}
	}
	slices.Sort(names)
	c.AssetNames = names

	c.CandleProvider = strings.ToUpper(strings.TrimSpace(c.CandleProvider))
	if !slices.Contains(providers, c.CandleProvider) {
		return &ConfigurationError{Var: "CANDLE_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.CandleProvider)}
	}

	used := []string{c.CandleProvider}
	if c.CandleProvider == Aggregate {
		if err := c.parseSources(); err != nil {
			return err
		}
		used = c.Sources
	}
	if slices.Contains(used, Coinbase) {
		if c.Coinbase.KeyID == "" || c.Coinbase.Secret == "" || c.Coinbase.Passphrase == "" {
			return &ConfigurationError{Var: "COINBASE_API_KEY_*", Reason: "key id, secret and passphrase are required"}
		}
	}

	c.Signer = strings.ToUpper(strings.TrimSpace(c.Signer))
	switch c.Signer {
	case SignerAzure:
		if c.Azure.VaultURL == "" || c.Azure.KeyName == "" {
			return &ConfigurationError{Var: "AZURE_KEYVAULT_URL", Reason: "vault url and key name are required"}
		}
	case SignerRemote:
		if c.Remote.URL == "" {
			return &ConfigurationError{Var: "REMOTE_SIGNER_URL", Reason: "required"}
		}
	case SignerLocal:
		if c.LocalSecretKey == "" {
			return &ConfigurationError{Var: "LOCAL_SIGNER_SECRET_KEY", Reason: "required"}
		}
	default:
		return &ConfigurationError{Var: "SIGNER", Reason: fmt.Sprintf("unknown signer %q", c.Signer)}
	}

	if strings.EqualFold(c.GRPCAddr, "off") {
		c.GRPCAddr = ""
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &ConfigurationError{Var: "LOG_LEVEL", Reason: err.Error()}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ConfigurationError{Var: "LOG_FORMAT", Reason: fmt.Sprintf("want text or json, got %q", c.LogFormat)}
	}
	if c.RetryMaxAttempts < 1 {
		return &ConfigurationError{Var: "RETRY_MAX_ATTEMPTS", Reason: "must be at least 1"}
	}
	if c.UpstreamTimeout <= 0 {
		return &ConfigurationError{Var: "UPSTREAM_TIMEOUT", Reason: "must be positive"}
	}
	if c.RetryBackoff < 0 {
		return &ConfigurationError{Var: "RETRY_BACKOFF", Reason: "must not be negative"}
	}
	if c.UpstreamRPS < 0 {
		return &ConfigurationError{Var: "UPSTREAM_RPS", Reason: "must not be negative"}
	}
	if c.FetchConcurrency < 0 {
		return &ConfigurationError{Var: "FETCH_CONCURRENCY", Reason: "must not be negative"}
	}
	return nil
}

// Override returns the YAML override for provider, if any.
func (c *Config) Override(provider string) ProviderOverride {
	return c.File.Providers[strings.ToLower(provider)]
}

func (c *Config) parseSources() error {
	var sources []string
	if c.AggregateSources != "" {
		list, err := splitList(c.AggregateSources)
		if err != nil {
			return &ConfigurationError{Var: "AGGREGATE_SOURCES", Reason: err.Error()}
		}
		sources = list
	} else {
		sources = c.File.AggregateSources
	}
	if len(sources) == 0 {
		return &ConfigurationError{Var: "AGGREGATE_SOURCES", Reason: "at least one source is required"}
	}
	for i, s := range sources {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == Aggregate || !slices.Contains(providers, s) {
			return &ConfigurationError{Var: "AGGREGATE_SOURCES", Reason: fmt.Sprintf("unknown source %q", s)}
		}
		sources[i] = s
	}
	c.Sources = sources
	return nil
}

// splitList splits a comma-separated list, rejecting blank entries.
func splitList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("entry %d is blank", i)
		}
		parts[i] = p
	}
	return parts, nil
}
