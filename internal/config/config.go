package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// AuthMode selects how the PI Web API client authenticates. Exactly one mode
// is active per client.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBasic  AuthMode = "basic"
	AuthNTLM   AuthMode = "ntlm"
	AuthBearer AuthMode = "bearer"
)

// PIConfig holds the connection settings of one PI Web API client.
type PIConfig struct {
	BaseURL     string
	AuthMode    AuthMode
	Username    string // DOMAIN\user for NTLM
	Password    string
	BearerToken string
	VerifySSL   bool
	Timeout     time.Duration
}

// Auth0Config stores necessary Auth0 details for token validation
type Auth0Config struct {
	JWKSURL     string
	JWTIssuer   string
	JWTAudience string
}

// Enabled reports whether JWT validation should guard the API.
func (c Auth0Config) Enabled() bool {
	return c.JWTIssuer != "" && c.JWTAudience != ""
}

// RedisConfig configures the optional result store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// InfluxConfig configures the optional InfluxDB export sink.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

func (c InfluxConfig) Enabled() bool {
	return c.URL != "" && c.Token != "" && c.Org != "" && c.Bucket != ""
}

// Config holds the application's configuration.
type Config struct {
	PI             PIConfig
	Auth0          Auth0Config
	Redis          RedisConfig
	Influx         InfluxConfig
	Port           string
	AllowedOrigins []string
	CacheDir       string
	CatalogPath    string
	LogLevel       string
	LogFormat      string
}

// LoadConfig loads the configuration from environment variables, reading a
// .env file first when one exists.
func LoadConfig(logger *zap.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Debug("No .env file found, relying on system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	timeoutSec, err := intOr(getenv("PI_TIMEOUT_SECONDS"), 30)
	if err != nil {
		return Config{}, fmt.Errorf("PI_TIMEOUT_SECONDS: %w", err)
	}
	verify, err := boolOr(getenv("PI_VERIFY_SSL"), true)
	if err != nil {
		return Config{}, fmt.Errorf("PI_VERIFY_SSL: %w", err)
	}
	redisDB, err := intOr(getenv("REDIS_DB"), 0)
	if err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	redisTTL, err := intOr(getenv("REDIS_TTL_MINUTES"), 60)
	if err != nil {
		return Config{}, fmt.Errorf("REDIS_TTL_MINUTES: %w", err)
	}

	cfg := Config{
		PI: PIConfig{
			BaseURL:     strings.TrimRight(strings.TrimSpace(getenv("PI_BASE_URL")), "/"),
			AuthMode:    AuthMode(strings.ToLower(strings.TrimSpace(getenv("PI_AUTH_MODE")))),
			Username:    getenv("PI_USERNAME"),
			Password:    getenv("PI_PASSWORD"),
			BearerToken: getenv("PI_BEARER_TOKEN"),
			VerifySSL:   verify,
			Timeout:     time.Duration(timeoutSec) * time.Second,
		},
		Auth0: Auth0Config{
			JWKSURL:     getenv("AUTH0_JWKS_URL"),
			JWTIssuer:   getenv("AUTH0_ISSUER"),
			JWTAudience: getenv("AUTH0_AUDIENCE"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR"),
			Password: getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			TTL:      time.Duration(redisTTL) * time.Minute,
		},
		Influx: InfluxConfig{
			URL:    getenv("INFLUXDB_URL"),
			Token:  getenv("INFLUXDB_TOKEN"),
			Org:    getenv("INFLUXDB_ORG"),
			Bucket: getenv("INFLUXDB_BUCKET"),
		},
		Port:           stringOr(getenv("PORT"), "8000"),
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		CacheDir:       stringOr(getenv("DATALINK_CACHE_DIR"), os.TempDir()),
		CatalogPath:    getenv("DATALINK_CATALOG"),
		LogLevel:       stringOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:      stringOr(getenv("LOG_FORMAT"), "json"),
	}
	if cfg.PI.AuthMode == "" {
		cfg.PI.AuthMode = inferAuthMode(cfg.PI)
	}

	if err := cfg.PI.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func inferAuthMode(c PIConfig) AuthMode {
	switch {
	case c.BearerToken != "":
		return AuthBearer
	case c.Username != "" && c.Password != "":
		return AuthBasic
	default:
		return AuthNone
	}
}

// Validate checks that the base URL is set and the auth mode has the
// credentials it needs.
func (c PIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("PI Web API configuration is incomplete. Please set PI_BASE_URL")
	}
	switch c.AuthMode {
	case AuthNone:
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("basic auth requires PI_USERNAME and PI_PASSWORD")
		}
	case AuthNTLM:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf(`NTLM requires PI_USERNAME (DOMAIN\user) and PI_PASSWORD`)
		}
	case AuthBearer:
		if c.BearerToken == "" {
			return fmt.Errorf("bearer auth requires PI_BEARER_TOKEN")
		}
	default:
		return fmt.Errorf("unknown PI_AUTH_MODE %q (want none, basic, ntlm or bearer)", c.AuthMode)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("PI_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func intOr(v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func boolOr(v string, def bool) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
