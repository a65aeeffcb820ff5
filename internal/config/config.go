// Package config provides centralized configuration management for the BOM
// wizard. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Display modes for the result table.
const (
	ModeShort = "short"
	ModeFull  = "full"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Gateway  GatewayConfig
	Quote    QuoteConfig
	Upload   UploadConfig
	Wizard   WizardConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, unbounded)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds how long a handler waits before answering.
	// A gateway call still running at that point keeps going in the background.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// GatewayConfig holds settings for the external pricing service.
type GatewayConfig struct {
	// BaseURL is the pricing service host (required).
	// BASE_URL is accepted for compatibility with the old frontend build variable.
	BaseURL string `env:"GATEWAY_BASE_URL" envAlt:"BASE_URL" required:"true"`

	// Path is appended to BaseURL (default: /api/process)
	Path string `env:"GATEWAY_PATH" default:"/api/process"`

	// Timeout for a single call; 0 waits until the service answers (default: 0s)
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" default:"0s"`

	// MaxConcurrent caps outstanding calls across all sessions (default: 10)
	MaxConcurrent int `env:"GATEWAY_MAX_CONCURRENT" default:"10"`

	// MaxWait is how long a call waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"GATEWAY_MAX_WAIT" default:"30s"`
}

// QuoteConfig holds settings for the quote request endpoint.
// The quote flow is disabled when BaseURL is empty.
type QuoteConfig struct {
	BaseURL string        `env:"QUOTE_BASE_URL"`
	Path    string        `env:"QUOTE_PATH" default:"/local/ajax/send_offer.php"`
	Timeout time.Duration `env:"QUOTE_TIMEOUT" default:"0s"`
}

// UploadConfig holds file import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// PreviewRows is how many rows the mapping step shows (default: 5)
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"5"`
}

// WizardConfig holds wizard behaviour settings.
type WizardConfig struct {
	// DisplayMode selects the result columns: short or full (default: short)
	DisplayMode string `env:"DISPLAY_MODE" envAlt:"BOM_USER_MODE" default:"short"`

	// AutoSubmit processes as soon as a part number column is mapped (default: false)
	AutoSubmit bool `env:"WIZARD_AUTO_SUBMIT" default:"false"`

	// AutoSubmitDelay is the debounce window for AutoSubmit (default: 200ms)
	AutoSubmitDelay time.Duration `env:"WIZARD_AUTO_SUBMIT_DELAY" default:"200ms"`

	// SessionTTL is how long an idle wizard session is kept (default: 2h)
	SessionTTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// DefaultPageSize for the result table (default: 10)
	DefaultPageSize int `env:"WIZARD_PAGE_SIZE" default:"10"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// SecureCookies marks the session cookie Secure (default: false)
	SecureCookies bool `env:"SECURITY_SECURE_COOKIES" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Endpoint returns the full gateway URL.
func (c *GatewayConfig) Endpoint() string {
	return joinURL(c.BaseURL, c.Path)
}

// Enabled reports whether quote requests can be sent.
func (c *QuoteConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Endpoint returns the full quote URL.
func (c *QuoteConfig) Endpoint() string {
	return joinURL(c.BaseURL, c.Path)
}

func joinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
