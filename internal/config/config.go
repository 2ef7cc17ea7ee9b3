package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/deen_api/pkg/config"
)

const (
	AuthModeLocal     = "local"
	AuthModeFederated = "federated"

	defaultIDPBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultJWKSURL    = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	minSecretLen      = 32
)

type Config struct {
	AppEnv      string
	Port        string
	LogLevel    string
	DatabaseURL string

	AuthMode    string
	JWTSecret   []byte
	TokenTTL    time.Duration
	TokenIssuer string

	IDPBaseURL   string
	IDPAPIKey    string
	IDPProjectID string
	IDPIssuer    string
	IDPJWKSURL   string
	IDPTimeout   time.Duration

	KafkaBrokers   []string
	KafkaUserTopic string

	ESURL        string
	ESUser       string
	ESPassword   string
	ESVideoIndex string

	AuthRateLimit int
}

// Load reads .env when present, then the process environment, and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_not_loaded", "error", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() *Config {
	project := os.Getenv("IDP_PROJECT_ID")
	issuer := os.Getenv("IDP_ISSUER")
	if issuer == "" && project != "" {
		issuer = "https://securetoken.google.com/" + project
	}

	return &Config{
		AppEnv:      pkgcfg.EnvDefault("APP_ENV", "development"),
		Port:        pkgcfg.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AuthMode:    strings.ToLower(pkgcfg.EnvDefault("AUTH_MODE", AuthModeLocal)),
		JWTSecret:   []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:    pkgcfg.EnvDurationDefault("TOKEN_TTL", 7*24*time.Hour),
		TokenIssuer: pkgcfg.EnvDefault("TOKEN_ISSUER", "deen-api"),

		IDPBaseURL:   pkgcfg.EnvDefault("IDP_BASE_URL", defaultIDPBaseURL),
		IDPAPIKey:    os.Getenv("IDP_API_KEY"),
		IDPProjectID: project,
		IDPIssuer:    issuer,
		IDPJWKSURL:   pkgcfg.EnvDefault("IDP_JWKS_URL", defaultJWKSURL),
		IDPTimeout:   pkgcfg.EnvDurationDefault("IDP_TIMEOUT", 5*time.Second),

		KafkaBrokers:   pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaUserTopic: pkgcfg.EnvDefault("KAFKA_USER_TOPIC", "user_events"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ESVideoIndex: pkgcfg.EnvDefault("ES_VIDEO_INDEX", "videos"),

		AuthRateLimit: pkgcfg.EnvIntDefault("AUTH_RATE_LIMIT", 20),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, pkgcfg.NonEmpty(c.DatabaseURL, "DATABASE_URL"))

	switch c.AuthMode {
	case AuthModeLocal:
		if err := pkgcfg.NonEmptyBytes(c.JWTSecret, "JWT_SECRET"); err != nil {
			errs = append(errs, err)
		} else if c.IsProduction() && len(c.JWTSecret) < minSecretLen {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minSecretLen))
		}
	case AuthModeFederated:
		errs = append(errs,
			pkgcfg.NonEmpty(c.IDPAPIKey, "IDP_API_KEY"),
			pkgcfg.NonEmpty(c.IDPProjectID, "IDP_PROJECT_ID"),
			pkgcfg.NonEmpty(c.IDPJWKSURL, "IDP_JWKS_URL"),
		)
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}

	if c.IDPTimeout > 5*time.Second {
		c.IDPTimeout = 5 * time.Second
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}
