// Package server provides configuration helpers that define runtime
// defaults, sanitization, and overrides for the Parlor chat service.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig defines the parameters for per-connection message rate
// limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// GatewayConfig configures the optional WebSocket gateway. The gateway is
// disabled while Addr is empty.
type GatewayConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Config holds the server configuration settings.
type Config struct {
	// Addr is the TCP listen address for the stream protocol.
	Addr string
	// BlocklistPath is the plain-text word list file, one word per line.
	BlocklistPath string
	// MaxMessageSize bounds a single wire record in bytes.
	MaxMessageSize int
	RateLimit      RateLimitConfig
	Gateway        GatewayConfig
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Addr:           "localhost:9999",
		BlocklistPath:  "blocked_words.txt",
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		Gateway: GatewayConfig{
			AllowedOrigins: []string{"http://localhost:9998"},
		},
	}
}

func (c *Config) sanitize() {
	def := NewConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.BlocklistPath == "" {
		c.BlocklistPath = def.BlocklistPath
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
}

// fileConfig mirrors Config for YAML decoding; durations are expressed in
// whole seconds.
type fileConfig struct {
	Addr           string `yaml:"addr"`
	BlocklistPath  string `yaml:"blocklist_path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	RateLimit      struct {
		Burst                 int `yaml:"burst"`
		RefillIntervalSeconds int `yaml:"refill_interval_seconds"`
	} `yaml:"rate_limit"`
	Gateway struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"gateway"`
}

// NewConfigFromFile loads a YAML config file over the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("server: parse config file: %w", err)
	}

	cfg := NewConfig()
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.BlocklistPath != "" {
		cfg.BlocklistPath = fc.BlocklistPath
	}
	if fc.MaxMessageSize > 0 {
		cfg.MaxMessageSize = fc.MaxMessageSize
	}
	if fc.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = fc.RateLimit.Burst
	}
	if fc.RateLimit.RefillIntervalSeconds > 0 {
		cfg.RateLimit.RefillInterval = time.Duration(fc.RateLimit.RefillIntervalSeconds) * time.Second
	}
	if fc.Gateway.Addr != "" {
		cfg.Gateway.Addr = fc.Gateway.Addr
	}
	if len(fc.Gateway.AllowedOrigins) > 0 {
		cfg.Gateway.AllowedOrigins = fc.Gateway.AllowedOrigins
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Unset variables
// leave the existing values alone.
func (c *Config) applyEnv() {
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		c.Addr = addr
	}
	if path := os.Getenv("BLOCKLIST_PATH"); path != "" {
		c.BlocklistPath = path
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		c.MaxMessageSize = parseIntValue(maxSize, c.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		c.RateLimit.Burst = parseIntValue(burst, c.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		c.RateLimit.RefillInterval = parseSecondsValue(interval, c.RateLimit.RefillInterval)
	}
	if addr := os.Getenv("GATEWAY_ADDR"); addr != "" {
		c.Gateway.Addr = addr
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Gateway.AllowedOrigins = parseOrigins(origins)
	}
}

// LoadConfig builds the effective configuration: defaults, then the YAML file
// named by CONFIG_FILE if set, then individual environment overrides.
func LoadConfig() (*Config, error) {
	cfg := NewConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := NewConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	cfg.applyEnv()
	cfg.sanitize()
	return cfg, nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSecondsValue(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
