package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Agent     AgentConfig     `yaml:"agent"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port      string `envconfig:"PORT" yaml:"port"`
	Host      string `envconfig:"HOST" yaml:"host"`
	APIPrefix string `envconfig:"API_PREFIX" yaml:"api_prefix"`
	Gzip      bool   `envconfig:"GZIP" yaml:"gzip"`
}

// ProviderConfig holds the remote computer provider settings.
type ProviderConfig struct {
	BaseURL              string        `envconfig:"SCRAPYBARA_API_URL" yaml:"base_url"`
	APIKey               string        `envconfig:"SCRAPYBARA_API_KEY" yaml:"api_key"`
	Timeout              time.Duration `envconfig:"PROVIDER_TIMEOUT" yaml:"timeout"`
	Retries              int           `envconfig:"PROVIDER_RETRIES" yaml:"retries"`
	RequestsPerSecond    float64       `envconfig:"PROVIDER_RPS" yaml:"requests_per_second"`
	ReadyTimeout         time.Duration `envconfig:"PROVIDER_READY_TIMEOUT" yaml:"ready_timeout"`
	InstanceTimeoutHours float64       `envconfig:"INSTANCE_TIMEOUT_HOURS" yaml:"instance_timeout_hours"`
}

// AgentConfig holds the agent model API settings.
type AgentConfig struct {
	BaseURL       string        `envconfig:"AGENT_API_URL" yaml:"base_url"`
	APIKey        string        `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	Model         string        `envconfig:"AGENT_MODEL" yaml:"model"`
	MaxSteps      int           `envconfig:"AGENT_MAX_STEPS" yaml:"max_steps"`
	TurnTimeout   time.Duration `envconfig:"AGENT_TURN_TIMEOUT" yaml:"turn_timeout"`
	DisplayWidth  int           `envconfig:"DISPLAY_WIDTH" yaml:"display_width"`
	DisplayHeight int           `envconfig:"DISPLAY_HEIGHT" yaml:"display_height"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	DefaultStartURL string        `envconfig:"DEFAULT_START_URL" yaml:"default_start_url"`
	CallTimeout     time.Duration `envconfig:"SESSION_CALL_TIMEOUT" yaml:"call_timeout"`
	SettleDelay     time.Duration `envconfig:"SESSION_SETTLE_DELAY" yaml:"settle_delay"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled"`
}

// Load loads configuration from environment variables on top of the
// defaults. When CONFIG_FILE is set, that file is applied first.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return LoadFile(path)
	}

	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults, then the YAML file at path, then environment
// overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "5000",
			Host:      "0.0.0.0",
			APIPrefix: "/api",
			Gzip:      true,
		},
		Provider: ProviderConfig{
			BaseURL:              "https://api.scrapybara.com/v1",
			Timeout:              60 * time.Second,
			Retries:              3,
			ReadyTimeout:         60 * time.Second,
			InstanceTimeoutHours: 1,
		},
		Agent: AgentConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "computer-use-preview",
			MaxSteps:      25,
			TurnTimeout:   10 * time.Minute,
			DisplayWidth:  1024,
			DisplayHeight: 768,
		},
		Session: SessionConfig{
			DefaultStartURL: "https://bing.com",
			CallTimeout:     60 * time.Second,
			SettleDelay:     2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.ParseUint(c.Server.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("server port %q is not a valid port", c.Server.Port))
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider base url is required"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider timeout must be positive"))
	}
	if c.Provider.Retries < 0 {
		errs = append(errs, errors.New("provider retries must not be negative"))
	}
	if c.Provider.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("provider rps must not be negative"))
	}
	if c.Agent.BaseURL == "" {
		errs = append(errs, errors.New("agent base url is required"))
	}
	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, errors.New("agent max steps must be positive"))
	}
	if c.Agent.TurnTimeout <= 0 {
		errs = append(errs, errors.New("agent turn timeout must be positive"))
	}
	if c.Agent.DisplayWidth <= 0 || c.Agent.DisplayHeight <= 0 {
		errs = append(errs, errors.New("display dimensions must be positive"))
	}
	if c.Session.CallTimeout <= 0 {
		errs = append(errs, errors.New("session call timeout must be positive"))
	}
	if c.Session.SettleDelay < 0 {
		errs = append(errs, errors.New("session settle delay must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.Logging.Level, err))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit rps and burst must be positive when enabled"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
