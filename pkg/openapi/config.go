package openapi

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds the document metadata published with the API description.
// ServerURL is the public origin clients reach the API through; when empty
// the document lists the base path alone.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	ServerURL   string `toml:"server_url"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
	ServerURL   string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for _, f := range []struct{ dst, src *string }{
		{&c.Title, &overlay.Title},
		{&c.Description, &overlay.Description},
		{&c.ServerURL, &overlay.ServerURL},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

// Server returns the server entry for an API mounted at basePath.
func (c *Config) Server(basePath string) string {
	return strings.TrimSuffix(c.ServerURL, "/") + basePath
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Smart Waste API"
	}
	if c.Description == "" {
		c.Description = "Waste report submission, collector claims, and verified completion."
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	for _, f := range []struct {
		key string
		dst *string
	}{
		{env.Title, &c.Title},
		{env.Description, &c.Description},
		{env.ServerURL, &c.ServerURL},
	} {
		if f.key == "" {
			continue
		}
		if v := os.Getenv(f.key); v != "" {
			*f.dst = v
		}
	}
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return nil
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid openapi server_url: %q", c.ServerURL)
	}
	return nil
}
