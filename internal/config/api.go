package config

import (
	"fmt"
	"os"

	"github.com/stillharbor/anchorage/pkg/formatting"
	"github.com/stillharbor/anchorage/pkg/middleware"
	"github.com/stillharbor/anchorage/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "ANCHORAGE_CORS_ENABLED",
	Origins:          "ANCHORAGE_CORS_ORIGINS",
	AllowedMethods:   "ANCHORAGE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "ANCHORAGE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "ANCHORAGE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "ANCHORAGE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ANCHORAGE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "ANCHORAGE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath           string                `toml:"base_path"`
	MaxUploadSize      string                `toml:"max_upload_size"`
	MaxStorageListSize int32                 `toml:"max_storage_list_size"`
	CORS               middleware.CORSConfig `toml:"cors"`
	Pagination         pagination.Config     `toml:"pagination"`
}

func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024 // 50MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.MaxStorageListSize != 0 {
		c.MaxStorageListSize = overlay.MaxStorageListSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
	if c.MaxStorageListSize == 0 {
		c.MaxStorageListSize = 100
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("ANCHORAGE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("ANCHORAGE_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
