package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/peer-health-adapter/internal/acceptance"
	"github.com/angeloszaimis/peer-health-adapter/internal/probe"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Peer keys. The metric for site A reports on peer B and vice versa.
const (
	PeerA = "a"
	PeerB = "b"
)

const (
	MethodGet  = "GET"
	MethodHead = "HEAD"
)

var headerTokenRe = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

type Config struct {
	SiteAHealthURL    string  `mapstructure:"site_a_health_url"`
	SiteBHealthURL    string  `mapstructure:"site_b_health_url"`
	ProbeMethod       string  `mapstructure:"probe_method"`
	ProbeTimeoutSec   float64 `mapstructure:"probe_timeout_sec"`
	VerifyTLS         bool    `mapstructure:"verify_tls"`
	ExtraHeaderKey    string  `mapstructure:"extra_header_key"`
	ExtraHeaderVal    string  `mapstructure:"extra_header_val"`
	AcceptStatusRegex string  `mapstructure:"accept_status_regex"`
	CacheTTLSec       float64 `mapstructure:"cache_ttl_sec"`
	Port              int     `mapstructure:"port"`
	LogLevel          string  `mapstructure:"log_level"`
	Environment       string  `mapstructure:"environment"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		return nil, err
	}

	v := viper.New()

	v.SetDefault("site_a_health_url", "")
	v.SetDefault("site_b_health_url", "")
	v.SetDefault("probe_method", MethodGet)
	v.SetDefault("probe_timeout_sec", 3.0)
	v.SetDefault("verify_tls", true)
	v.SetDefault("extra_header_key", "")
	v.SetDefault("extra_header_val", "")
	v.SetDefault("accept_status_regex", acceptance.DefaultPattern)
	v.SetDefault("cache_ttl_sec", 5.0)
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", LogLevelInfo)
	v.SetDefault("environment", EnvDev)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.SiteAHealthURL = strings.TrimSpace(c.SiteAHealthURL)
	c.SiteBHealthURL = strings.TrimSpace(c.SiteBHealthURL)
	c.ProbeMethod = strings.ToUpper(strings.TrimSpace(c.ProbeMethod))
	c.ExtraHeaderKey = strings.TrimSpace(c.ExtraHeaderKey)
	c.ExtraHeaderVal = strings.TrimSpace(c.ExtraHeaderVal)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SiteAHealthURL, validation.By(validatePeerURL)),
		validation.Field(&c.SiteBHealthURL, validation.By(validatePeerURL)),
		validation.Field(&c.ProbeMethod,
			validation.Required,
			validation.In(MethodGet, MethodHead),
		),
		validation.Field(&c.ProbeTimeoutSec, validation.By(validatePositiveSeconds)),
		validation.Field(&c.ExtraHeaderKey,
			validation.Match(headerTokenRe).Error("must be a valid HTTP header name"),
		),
		validation.Field(&c.AcceptStatusRegex,
			validation.Required,
			validation.By(validatePattern),
		),
		validation.Field(&c.CacheTTLSec, validation.Min(0.0)),
		validation.Field(&c.Port,
			validation.Required,
			validation.Min(1),
			validation.Max(65535),
		),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
	)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.ProbeTimeoutSec)
}

func (c *Config) CacheTTL() time.Duration {
	return seconds(c.CacheTTLSec)
}

// Peers maps each peer key to its health URL.
func (c *Config) Peers() map[string]string {
	return map[string]string{
		PeerA: c.SiteAHealthURL,
		PeerB: c.SiteBHealthURL,
	}
}

// ProbeConfig builds the probe settings. It only fails if the acceptance
// pattern does not compile, which Validate already rules out.
func (c *Config) ProbeConfig() (probe.Config, error) {
	eval, err := acceptance.New(c.AcceptStatusRegex)
	if err != nil {
		return probe.Config{}, err
	}

	return probe.Config{
		Method:      c.ProbeMethod,
		Timeout:     c.ProbeTimeout(),
		VerifyTLS:   c.VerifyTLS,
		HeaderKey:   c.ExtraHeaderKey,
		HeaderValue: c.ExtraHeaderVal,
		Acceptance:  eval,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func validatePattern(value interface{}) error {
	pattern, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := acceptance.New(pattern); err != nil {
		return validation.NewError("validation_invalid_pattern", "must be a valid regular expression")
	}

	return nil
}

func validatePositiveSeconds(value interface{}) error {
	sec, ok := value.(float64)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a number")
	}

	if sec <= 0 {
		return validation.NewError("validation_invalid_timeout", "must be greater than zero")
	}

	return nil
}

// validatePeerURL accepts an empty URL; an unconfigured peer is reported down.
func validatePeerURL(value interface{}) error {
	peerURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if peerURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(peerURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if err := is.Host.Validate(parsedURL.Hostname()); err != nil {
		return validation.NewError("validation_invalid_host", "invalid host")
	}

	return nil
}
