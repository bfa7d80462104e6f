package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/smartwaste/pkg/formatting"
	"github.com/JaimeStill/smartwaste/pkg/middleware"
	"github.com/JaimeStill/smartwaste/pkg/openapi"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

const (
	defaultMaxPhotoSize = 4 << 20
	defaultMaxBodySize  = 64 << 10
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SMARTWASTE_CORS_ENABLED",
	Origins:          "SMARTWASTE_CORS_ORIGINS",
	AllowedMethods:   "SMARTWASTE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SMARTWASTE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SMARTWASTE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SMARTWASTE_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "SMARTWASTE_OPENAPI_TITLE",
	Description: "SMARTWASTE_OPENAPI_DESCRIPTION",
	ServerURL:   "SMARTWASTE_OPENAPI_SERVER_URL",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SMARTWASTE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SMARTWASTE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, request limits, CORS, and pagination settings.
type APIConfig struct {
	BasePath     string                `toml:"base_path"`
	MaxPhotoSize string                `toml:"max_photo_size"`
	MaxBodySize  string                `toml:"max_body_size"`
	CORS         middleware.CORSConfig `toml:"cors"`
	Pagination   pagination.Config     `toml:"pagination"`
	OpenAPI      openapi.Config        `toml:"openapi"`
}

// MaxPhotoSizeBytes returns the photo upload limit, 4MB when unparseable.
func (c *APIConfig) MaxPhotoSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxPhotoSize)
	if err != nil {
		return defaultMaxPhotoSize
	}
	return size
}

// MaxBodySizeBytes returns the JSON body limit, 64KB when unparseable.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return defaultMaxBodySize
	}
	return size
}

// Finalize applies defaults, environment overrides, and validation for the
// API config and its nested CORS, pagination, and OpenAPI configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxPhotoSize != "" {
		c.MaxPhotoSize = overlay.MaxPhotoSize
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxPhotoSize == "" {
		c.MaxPhotoSize = "4MB"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64KB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("SMARTWASTE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("SMARTWASTE_API_MAX_PHOTO_SIZE"); v != "" {
		c.MaxPhotoSize = v
	}
	if v := os.Getenv("SMARTWASTE_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxPhotoSize); err != nil {
		return fmt.Errorf("invalid max_photo_size: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	return nil
}
