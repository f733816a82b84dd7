package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/veranemoloko/image-downloader/internal/errors"
)

// DefaultFormats is the accepted-format set used when none is configured.
var DefaultFormats = []string{"jpg", "jpeg", "png", "bmp", "webp"}

const (
	// DefaultUserAgent mimics a desktop browser; some image hosts refuse bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/54.0.2840.99 Safari/537.36"
	DefaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// Config holds all settings for a download batch. A Config is treated as
// read-only once a batch starts; workers receive it by value.
type Config struct {
	DownloadDir string `envconfig:"DOWNLOAD_DIR" default:"./download_images" validate:"required"`
	FilePrefix  string `envconfig:"FILE_PREFIX"`

	Concurrency   int           `envconfig:"CONCURRENCY" default:"50" validate:"min=1"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"20s" validate:"gt=0"`
	RetryLimit    int           `envconfig:"RETRY_LIMIT" default:"3" validate:"min=1"`
	BatchDeadline time.Duration `envconfig:"BATCH_DEADLINE" default:"180s" validate:"gt=0"`
	MaxFileSize   int64         `envconfig:"MAX_FILE_SIZE" default:"104857600" validate:"min=1"`

	ProxyType string `envconfig:"PROXY_TYPE" validate:"omitempty,oneof=http https socks5"`
	ProxyAddr string `envconfig:"PROXY_ADDR"`

	Formats   []string `envconfig:"FORMATS" default:"jpg,jpeg,png,bmp,webp" validate:"min=1,dive,oneof=jpg jpeg png bmp webp gif tiff"`
	MinWidth  int      `envconfig:"MIN_WIDTH" default:"0" validate:"min=0"`
	MinHeight int      `envconfig:"MIN_HEIGHT" default:"0" validate:"min=0"`

	UserAgent string `envconfig:"USER_AGENT"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

var validate = validator.New()

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		DownloadDir:   "./download_images",
		Concurrency:   50,
		Timeout:       20 * time.Second,
		RetryLimit:    3,
		BatchDeadline: 180 * time.Second,
		MaxFileSize:   100 << 20,
		Formats:       append([]string(nil), DefaultFormats...),
		UserAgent:     DefaultUserAgent,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	if (c.ProxyType == "") != (c.ProxyAddr == "") {
		return fmt.Errorf("%w: proxy type and address must be set together", apperrors.ErrInvalidConfig)
	}
	return nil
}

// SizeFilterEnabled reports whether decoded dimensions must be checked.
func (c Config) SizeFilterEnabled() bool {
	return c.MinWidth > 0 && c.MinHeight > 0
}

// ProxyURL returns the proxy URL applied to both http and https traffic,
// or "" when no proxy is configured.
func (c Config) ProxyURL() string {
	if c.ProxyType == "" || c.ProxyAddr == "" {
		return ""
	}
	return c.ProxyType + "://" + c.ProxyAddr
}
