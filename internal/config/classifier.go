package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvClassifierEndpoint        = "SMARTWASTE_CLASSIFIER_ENDPOINT"
	EnvClassifierTimeout         = "SMARTWASTE_CLASSIFIER_TIMEOUT"
	EnvClassifierAttemptTimeout  = "SMARTWASTE_CLASSIFIER_ATTEMPT_TIMEOUT"
	EnvClassifierMaxRetries      = "SMARTWASTE_CLASSIFIER_MAX_RETRIES"
	EnvClassifierInitialBackoff  = "SMARTWASTE_CLASSIFIER_INITIAL_BACKOFF"
	EnvClassifierBreakerFailures = "SMARTWASTE_CLASSIFIER_BREAKER_FAILURES"
	EnvClassifierBreakerCooldown = "SMARTWASTE_CLASSIFIER_BREAKER_COOLDOWN"
	EnvClassifierRateLimit       = "SMARTWASTE_CLASSIFIER_RATE_LIMIT"
	EnvClassifierRateBurst       = "SMARTWASTE_CLASSIFIER_RATE_BURST"
)

// ClassifierConfig configures the text classification client.
// Timeout bounds the whole call including retries; AttemptTimeout bounds
// each HTTP round trip. RateLimit is requests per second; zero disables
// limiting.
type ClassifierConfig struct {
	Endpoint        string  `toml:"endpoint"`
	Timeout         string  `toml:"timeout"`
	AttemptTimeout  string  `toml:"attempt_timeout"`
	MaxRetries      *int    `toml:"max_retries"`
	InitialBackoff  string  `toml:"initial_backoff"`
	BreakerFailures int     `toml:"breaker_failures"`
	BreakerCooldown string  `toml:"breaker_cooldown"`
	RateLimit       float64 `toml:"rate_limit"`
	RateBurst       int     `toml:"rate_burst"`
}

// Retries returns the number of retries after the first attempt.
func (c *ClassifierConfig) Retries() int {
	if c.MaxRetries == nil {
		return 0
	}
	return *c.MaxRetries
}

func (c *ClassifierConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *ClassifierConfig) AttemptTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.AttemptTimeout)
	return d
}

func (c *ClassifierConfig) InitialBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.InitialBackoff)
	return d
}

func (c *ClassifierConfig) BreakerCooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerCooldown)
	return d
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ClassifierConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ClassifierConfig) Merge(overlay *ClassifierConfig) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.AttemptTimeout != "" {
		c.AttemptTimeout = overlay.AttemptTimeout
	}
	if overlay.MaxRetries != nil {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.InitialBackoff != "" {
		c.InitialBackoff = overlay.InitialBackoff
	}
	if overlay.BreakerFailures != 0 {
		c.BreakerFailures = overlay.BreakerFailures
	}
	if overlay.BreakerCooldown != "" {
		c.BreakerCooldown = overlay.BreakerCooldown
	}
	if overlay.RateLimit != 0 {
		c.RateLimit = overlay.RateLimit
	}
	if overlay.RateBurst != 0 {
		c.RateBurst = overlay.RateBurst
	}
}

func (c *ClassifierConfig) loadDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "http://127.0.0.1:8000/predict"
	}
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.AttemptTimeout == "" {
		c.AttemptTimeout = "2s"
	}
	if c.MaxRetries == nil {
		n := 2
		c.MaxRetries = &n
	}
	if c.InitialBackoff == "" {
		c.InitialBackoff = "200ms"
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == "" {
		c.BreakerCooldown = "30s"
	}
}

func (c *ClassifierConfig) loadEnv() {
	if v := os.Getenv(EnvClassifierEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvClassifierTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvClassifierAttemptTimeout); v != "" {
		c.AttemptTimeout = v
	}
	if v := os.Getenv(EnvClassifierMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = &n
		}
	}
	if v := os.Getenv(EnvClassifierInitialBackoff); v != "" {
		c.InitialBackoff = v
	}
	if v := os.Getenv(EnvClassifierBreakerFailures); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BreakerFailures = n
		}
	}
	if v := os.Getenv(EnvClassifierBreakerCooldown); v != "" {
		c.BreakerCooldown = v
	}
	if v := os.Getenv(EnvClassifierRateLimit); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit = f
		}
	}
	if v := os.Getenv(EnvClassifierRateBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
}

func (c *ClassifierConfig) validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
	}
	if c.Retries() < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.BreakerFailures < 1 {
		return fmt.Errorf("breaker_failures must be positive")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate_limit and rate_burst must not be negative")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"timeout", c.Timeout},
		{"attempt_timeout", c.AttemptTimeout},
		{"initial_backoff", c.InitialBackoff},
		{"breaker_cooldown", c.BreakerCooldown},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if c.AttemptTimeoutDuration() > c.TimeoutDuration() {
		return fmt.Errorf("attempt_timeout (%s) exceeds timeout (%s)", c.AttemptTimeout, c.Timeout)
	}
	return nil
}
