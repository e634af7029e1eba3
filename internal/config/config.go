package config

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultBackground = "https://images.pexels.com/photos/4966406/pexels-photo-4966406.jpeg"

var schemaPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	WarehouseSchema    string   `mapstructure:"WAREHOUSE_SCHEMA"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	AuthMode           string   `mapstructure:"AUTH_MODE"`
	AuthSigningKey     string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer         string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience       string   `mapstructure:"AUTH_AUDIENCE"`
	CompletionProvider string   `mapstructure:"COMPLETION_PROVIDER"`
	CompletionModel    string   `mapstructure:"COMPLETION_MODEL"`
	CompletionEndpoint string   `mapstructure:"COMPLETION_ENDPOINT"`
	CompletionAPIKey   string   `mapstructure:"COMPLETION_API_KEY"`
	BackgroundImageURL string   `mapstructure:"BACKGROUND_IMAGE_URL"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	AskRatePerSec  float64       `mapstructure:"ASK_RATE_PER_SEC"`
	AskBurst       int           `mapstructure:"ASK_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("COMPLETION_PROVIDER", "cortex")
	v.SetDefault("COMPLETION_MODEL", "mistral-large")
	v.SetDefault("BACKGROUND_IMAGE_URL", defaultBackground)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("ASK_RATE_PER_SEC", 0.5)
	v.SetDefault("ASK_BURST", 5)

	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"WAREHOUSE_SCHEMA", "CORS_ORIGINS", "AUTH_MODE", "AUTH_SIGNING_KEY",
		"AUTH_ISSUER", "AUTH_AUDIENCE", "COMPLETION_PROVIDER", "COMPLETION_MODEL",
		"COMPLETION_ENDPOINT", "COMPLETION_API_KEY", "BACKGROUND_IMAGE_URL",
		"REQUEST_TIMEOUT", "BODY_LIMIT", "ASK_RATE_PER_SEC", "ASK_BURST",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.ResolvedAuthMode() == "development" {
		log.Println("WARNING: dashboard API is running without authentication (ENV=development).")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise "development" for
// ENV=development and "jwt" for everything else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Validate checks the combinations Load cannot express with defaults alone.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case "development":
	case "jwt":
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when AUTH_MODE is \"jwt\" (current ENV=%q)", c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	switch c.CompletionProvider {
	case "cortex":
		if c.CompletionEndpoint == "" {
			return fmt.Errorf("COMPLETION_ENDPOINT is required for the cortex completion provider")
		}
	case "genai":
		if c.CompletionAPIKey == "" {
			return fmt.Errorf("COMPLETION_API_KEY is required for the genai completion provider")
		}
	default:
		return fmt.Errorf("COMPLETION_PROVIDER must be \"cortex\" or \"genai\", got %q", c.CompletionProvider)
	}

	if c.WarehouseSchema != "" && !schemaPattern.MatchString(c.WarehouseSchema) {
		return fmt.Errorf("WAREHOUSE_SCHEMA %q is not a plain identifier", c.WarehouseSchema)
	}

	if c.AskRatePerSec <= 0 || c.AskBurst <= 0 {
		return fmt.Errorf("ASK_RATE_PER_SEC and ASK_BURST must be positive")
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	return nil
}
