// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Backend    BackendConfig    `json:"backend"`
	Profile    ProfileConfig    `json:"profile"`
	Photo      PhotoConfig      `json:"photo"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Session    SessionConfig    `json:"session"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
}

type ServerConfig struct {
	Host              string        `json:"host" env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port              int           `json:"port" env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout    time.Duration `json:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
	BodyLimit         int           `json:"body_limit" env:"SERVER_BODY_LIMIT" envDefault:"10485760"` // 10MB
	EnableCompression bool          `json:"enable_compression" env:"SERVER_ENABLE_COMPRESSION" envDefault:"true"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://pick.social,https://www.pick.social"`
	AllowCredentials bool     `json:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit" env:"GLOBAL_RATE_LIMIT" envDefault:"600"` // requests per window
	IntroRateLimit  int           `json:"intro_rate_limit" env:"INTRO_RATE_LIMIT" envDefault:"30"`
	RateLimitWindow time.Duration `json:"rate_limit_window" env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Content Security
	CSPPolicy      string `json:"csp_policy" env:"CSP_POLICY" envDefault:"default-src 'self'; img-src 'self' data: https:; frame-ancestors 'none';"`
	ReferrerPolicy string `json:"referrer_policy" env:"REFERRER_POLICY" envDefault:"strict-origin-when-cross-origin"`
}

// JWTConfig verifies bearer tokens issued by the identity provider. Issuance is external.
type JWTConfig struct {
	SecretKey string `json:"secret_key" env:"JWT_SECRET_KEY"`
	Issuer    string `json:"issuer" env:"JWT_ISSUER" envDefault:"pick-auth"`
	Audience  string `json:"audience" env:"JWT_AUDIENCE" envDefault:"pick-api"`
}

// BackendConfig points at the Pick API that owns profiles, interests and matches.
type BackendConfig struct {
	APIURL  string        `json:"api_url" env:"BACKEND_API_URL"`
	Timeout time.Duration `json:"timeout" env:"BACKEND_TIMEOUT" envDefault:"15s"`
	// Provider selects "http" or "mock" collaborators
	Provider string `json:"provider" env:"BACKEND_PROVIDER" envDefault:"http"`
}

type ProfileConfig struct {
	WhatsAppRequired  bool          `json:"whatsapp_required" env:"PROFILE_WHATSAPP_REQUIRED" envDefault:"true"`
	WhatsAppMinDigits int           `json:"whatsapp_min_digits" env:"PROFILE_WHATSAPP_MIN_DIGITS" envDefault:"8"`
	WhatsAppMaxDigits int           `json:"whatsapp_max_digits" env:"PROFILE_WHATSAPP_MAX_DIGITS" envDefault:"15"`
	WhatsAppMaxLength int           `json:"whatsapp_max_length" env:"PROFILE_WHATSAPP_MAX_LENGTH" envDefault:"24"`
	CitiesMax         int           `json:"cities_max" env:"PROFILE_CITIES_MAX" envDefault:"3"`
	InterestsMax      int           `json:"interests_max" env:"PROFILE_INTERESTS_MAX" envDefault:"3"`
	SavedStatusWindow time.Duration `json:"saved_status_window" env:"PROFILE_SAVED_STATUS_WINDOW" envDefault:"2500ms"`
}

type PhotoConfig struct {
	MaxBytes     int64 `json:"max_bytes" env:"PHOTO_MAX_BYTES" envDefault:"8388608"` // 8MB
	MaxDimension int   `json:"max_dimension" env:"PHOTO_MAX_DIMENSION" envDefault:"1024"`
	MaxPixels    int64 `json:"max_pixels" env:"PHOTO_MAX_PIXELS" envDefault:"40000000"` // decoded width x height
	JPEGQuality  int   `json:"jpeg_quality" env:"PHOTO_JPEG_QUALITY" envDefault:"85"`
}

type WhatsAppConfig struct {
	DebounceWindow  time.Duration `json:"debounce_window" env:"WHATSAPP_DEBOUNCE_WINDOW" envDefault:"1s"`
	DesktopEndpoint string        `json:"desktop_endpoint" env:"WHATSAPP_DESKTOP_ENDPOINT" envDefault:"https://web.whatsapp.com/send"`
	Hosts           []string      `json:"hosts" env:"WHATSAPP_HOSTS" envSeparator:"," envDefault:"wa.me,api.whatsapp.com,web.whatsapp.com,whatsapp.com,www.whatsapp.com"`
	// Ledger selects where the last dispatch is recorded: "memory" or "redis"
	Ledger string `json:"ledger" env:"WHATSAPP_LEDGER" envDefault:"memory"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `json:"idle_ttl" env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `json:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL" envDefault:"info"`     // debug, info, warn, error
	Format     string `json:"format" env:"LOG_FORMAT" envDefault:"json"`   // json, text
	Output     string `json:"output" env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file, both
	FilePath   string `json:"file_path" env:"LOG_FILE_PATH" envDefault:"/var/log/pick/app.log"`
	MaxSize    int    `json:"max_size" env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int    `json:"max_backups" env:"LOG_MAX_BACKUPS" envDefault:"10"`
	MaxAge     int    `json:"max_age" env:"LOG_MAX_AGE" envDefault:"30"` // days
	Compress   bool   `json:"compress" env:"LOG_COMPRESS" envDefault:"true"`

	EnableCaller bool `json:"enable_caller" env:"LOG_ENABLE_CALLER" envDefault:"false"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `json:"path" env:"METRICS_PATH" envDefault:"/metrics"`
}

type CacheConfig struct {
	Enabled        bool          `json:"enabled" env:"CACHE_ENABLED" envDefault:"false"`
	Provider       string        `json:"provider" env:"CACHE_PROVIDER" envDefault:"redis"` // redis, memory
	RedisURL       string        `json:"redis_url" env:"CACHE_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisDB        int           `json:"redis_db" env:"CACHE_REDIS_DB" envDefault:"0"`
	RedisPrefix    string        `json:"redis_prefix" env:"CACHE_REDIS_PREFIX" envDefault:"pick:"`
	InterestTTL    time.Duration `json:"interest_ttl" env:"CACHE_INTEREST_TTL" envDefault:"10m"`
	HealthInterval time.Duration `json:"health_interval" env:"CACHE_HEALTH_INTERVAL" envDefault:"30s"`
}

type DeploymentConfig struct {
	Environment string `json:"environment" env:"APP_ENV" envDefault:"production"`
	Version     string `json:"version" env:"VERSION" envDefault:"1.0.0"`
	CommitHash  string `json:"commit_hash" env:"COMMIT_HASH" envDefault:"unknown"`
	BuildTime   string `json:"build_time" env:"BUILD_TIME" envDefault:"unknown"`
}

// IsDevelopment reports whether the service runs in a local or development environment
func (d DeploymentConfig) IsDevelopment() bool {
	return d.Environment == "development" || d.Environment == "local"
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Variables already present in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := ParseProductionConfig()
	if err != nil {
		return nil, err
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseProductionConfig reads the environment into a config without validating it
func ParseProductionConfig() (*ProductionConfig, error) {
	cfg := &ProductionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate JWT configuration
	if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}

	// Validate backend configuration
	switch cfg.Backend.Provider {
	case "http":
		if cfg.Backend.APIURL == "" {
			errs = append(errs, "BACKEND_API_URL is required for http provider")
		} else if !strings.HasPrefix(cfg.Backend.APIURL, "http://") && !strings.HasPrefix(cfg.Backend.APIURL, "https://") {
			errs = append(errs, "BACKEND_API_URL must be an http(s) URL")
		}
	case "mock":
	default:
		errs = append(errs, "BACKEND_PROVIDER must be one of: [http mock]")
	}
	if cfg.Backend.Timeout <= 0 {
		errs = append(errs, "BACKEND_TIMEOUT must be positive")
	}

	// Validate profile limits
	if cfg.Profile.WhatsAppMinDigits <= 0 || cfg.Profile.WhatsAppMinDigits > cfg.Profile.WhatsAppMaxDigits {
		errs = append(errs, "PROFILE_WHATSAPP_MIN_DIGITS must be positive and not above PROFILE_WHATSAPP_MAX_DIGITS")
	}
	if cfg.Profile.WhatsAppMaxLength < cfg.Profile.WhatsAppMaxDigits {
		errs = append(errs, "PROFILE_WHATSAPP_MAX_LENGTH must be at least PROFILE_WHATSAPP_MAX_DIGITS")
	}
	if cfg.Profile.CitiesMax < 1 {
		errs = append(errs, "PROFILE_CITIES_MAX must be at least 1")
	}
	if cfg.Profile.InterestsMax < 1 {
		errs = append(errs, "PROFILE_INTERESTS_MAX must be at least 1")
	}
	if cfg.Profile.SavedStatusWindow <= 0 {
		errs = append(errs, "PROFILE_SAVED_STATUS_WINDOW must be positive")
	}

	// Validate photo configuration
	if cfg.Photo.MaxBytes <= 0 {
		errs = append(errs, "PHOTO_MAX_BYTES must be positive")
	}
	if cfg.Photo.MaxDimension < 64 {
		errs = append(errs, "PHOTO_MAX_DIMENSION must be at least 64")
	}
	if cfg.Photo.MaxPixels < int64(cfg.Photo.MaxDimension)*int64(cfg.Photo.MaxDimension) {
		errs = append(errs, "PHOTO_MAX_PIXELS must cover PHOTO_MAX_DIMENSION squared")
	}
	if cfg.Photo.JPEGQuality < 1 || cfg.Photo.JPEGQuality > 100 {
		errs = append(errs, "PHOTO_JPEG_QUALITY must be between 1 and 100")
	}

	// Validate WhatsApp configuration
	if cfg.WhatsApp.DebounceWindow < 0 {
		errs = append(errs, "WHATSAPP_DEBOUNCE_WINDOW must not be negative")
	}
	if !strings.HasPrefix(cfg.WhatsApp.DesktopEndpoint, "https://") {
		errs = append(errs, "WHATSAPP_DESKTOP_ENDPOINT must be an https URL")
	}
	if len(cfg.WhatsApp.Hosts) == 0 {
		errs = append(errs, "WHATSAPP_HOSTS must list at least one host")
	}
	switch cfg.WhatsApp.Ledger {
	case "memory":
	case "redis":
		if !cfg.Cache.Enabled {
			errs = append(errs, "WHATSAPP_LEDGER=redis requires CACHE_ENABLED")
		}
	default:
		errs = append(errs, "WHATSAPP_LEDGER must be one of: [memory redis]")
	}

	// Validate session configuration
	if cfg.Session.IdleTTL <= 0 {
		errs = append(errs, "SESSION_IDLE_TTL must be positive")
	}
	if cfg.Session.SweepInterval <= 0 {
		errs = append(errs, "SESSION_SWEEP_INTERVAL must be positive")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errs = append(errs, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
