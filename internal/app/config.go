package app

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config is the storefront API configuration, loadable from STOREFRONT_
// environment variables, flags or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; catalog and receipts stay local when empty" flag:"database-url"`
	Receipts    ReceiptsConfig
	Session     SessionConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// ReceiptsConfig controls the text receipt files.
type ReceiptsConfig struct {
	Dir      string `default:"purchases" usage:"Directory for purchase and saved cart receipts"`
	Compress bool   `default:"false" usage:"Gzip receipt files"`
}

// SessionConfig controls API cart sessions.
type SessionConfig struct {
	IdleTTL         time.Duration `default:"30m" usage:"Idle time after which a cart is discarded"`
	CleanupInterval time.Duration `default:"1m" usage:"How often idle carts are discarded"`
	MaxSessions     int           `default:"10000" usage:"Maximum number of open carts, 0 for no limit"`
}

// AuthConfig enables API key authentication when APIKeyHashes is set.
type AuthConfig struct {
	APIKeyPepper string   `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	APIKeyHashes []string `usage:"Accepted hex HMAC-SHA256 API key digests" flag:"api-key-hashes"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables the limiter"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads the configuration from the environment, command line
// flags, config.yaml and /etc/storefront/config.yaml.
func LoadConfig() (*Config, error) {
	return loadConfig(
		[]string{"config.yaml", "/etc/storefront/config.yaml"},
		os.Args[1:],
	)
}

func loadConfig(files, args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     files,
		Args:      args,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the DATABASE_URL and PORT variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.Receipts.Dir == "":
		return errors.New("receipts dir is required")
	case c.Session.IdleTTL <= 0:
		return errors.Errorf("session idle TTL must be positive, got %s", c.Session.IdleTTL)
	case c.Session.CleanupInterval <= 0:
		return errors.Errorf("session cleanup interval must be positive, got %s", c.Session.CleanupInterval)
	case c.Session.MaxSessions < 0:
		return errors.Errorf("max sessions must not be negative, got %d", c.Session.MaxSessions)
	case len(c.Auth.APIKeyHashes) > 0 && c.Auth.APIKeyPepper == "":
		return errors.New("api key pepper is required when api key hashes are set")
	}
	for i, h := range c.Auth.APIKeyHashes {
		if b, err := hex.DecodeString(h); err != nil || len(b) != sha256.Size {
			return errors.Errorf("api key hash #%d is not a hex HMAC-SHA256 digest", i+1)
		}
	}
	return nil
}
