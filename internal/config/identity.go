package config

import (
	"errors"
	"os"
)

const (
	EnvIdentityIssuer     = "SMARTWASTE_IDENTITY_ISSUER"
	EnvIdentityAudience   = "SMARTWASTE_IDENTITY_AUDIENCE"
	EnvIdentityHMACSecret = "SMARTWASTE_IDENTITY_HMAC_SECRET"
	EnvIdentityRoleClaim  = "SMARTWASTE_IDENTITY_ROLE_CLAIM"
)

// IdentityConfig selects how bearer tokens are verified. When Issuer is set
// tokens are verified through OIDC discovery; otherwise HMACSecret signs
// HS256 tokens.
type IdentityConfig struct {
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
	HMACSecret string `toml:"hmac_secret"`
	RoleClaim  string `toml:"role_claim"`
}

// UsesOIDC reports whether tokens are verified against an OIDC issuer.
func (c *IdentityConfig) UsesOIDC() bool {
	return c.Issuer != ""
}

// Finalize applies defaults, environment overrides, and validation.
func (c *IdentityConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *IdentityConfig) Merge(overlay *IdentityConfig) {
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.HMACSecret != "" {
		c.HMACSecret = overlay.HMACSecret
	}
	if overlay.RoleClaim != "" {
		c.RoleClaim = overlay.RoleClaim
	}
}

func (c *IdentityConfig) loadDefaults() {
	if c.RoleClaim == "" {
		c.RoleClaim = "role"
	}
}

func (c *IdentityConfig) loadEnv() {
	if v := os.Getenv(EnvIdentityIssuer); v != "" {
		c.Issuer = v
	}
	if v := os.Getenv(EnvIdentityAudience); v != "" {
		c.Audience = v
	}
	if v := os.Getenv(EnvIdentityHMACSecret); v != "" {
		c.HMACSecret = v
	}
	if v := os.Getenv(EnvIdentityRoleClaim); v != "" {
		c.RoleClaim = v
	}
}

func (c *IdentityConfig) validate() error {
	if c.UsesOIDC() {
		if c.Audience == "" {
			return errors.New("audience required with issuer")
		}
		return nil
	}
	if c.HMACSecret == "" {
		return errors.New("issuer or hmac_secret required")
	}
	if len(c.HMACSecret) < 32 {
		return errors.New("hmac_secret must be at least 32 bytes")
	}
	return nil
}
