package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"dealbrief-backend/internal/shared/storage/db"
)

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	CORSAllowOrigins []string
	LogLevel         string
	LogFormat        string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	DB          db.Options

	GeneratorProvider string
	GeneratorModel    string
	GeneratorTimeout  time.Duration
	GeminiAPIKey      string
	OpenAIAPIKey      string
	AnthropicAPIKey   string

	RateLimitRPS   float64
	RateLimitBurst int

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string
}

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Generator providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStub      = "stub"
)

// Archive backends.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Load reads configuration from an optional .env file, environment variables
// and defaults, in increasing order of precedence: defaults, .env, env.
func Load() (Config, error) {
	return load(".env", "cmd/.env")
}

func load(envFiles ...string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	defaults := db.DefaultServerOptions()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "./data/deals.db")
	v.SetDefault("GENERATOR_PROVIDER", ProviderGemini)
	v.SetDefault("GENERATOR_MODEL", "")
	v.SetDefault("GENERATOR_TIMEOUT", "120s")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("ARCHIVE_STORE", ArchiveNone)
	v.SetDefault("LOCAL_STORE_DIR", "./data/archive")
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("SSE_KMS_KEY_ID", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", defaults.MaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", defaults.MaxIdleConns)
	v.SetDefault("DB_CONN_MAX_LIFETIME", defaults.ConnMaxLifetime.String())
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", defaults.ConnMaxIdleTime.String())
	v.SetDefault("DB_PING_TIMEOUT", defaults.PingTimeout.String())

	// Best-effort load of a local env file for dev convenience.
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return Config{}, eris.Wrapf(err, "config: read %s", path)
		}
		break
	}

	timeout, err := parseDuration(v, "GENERATOR_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	dbOpts := db.Options{
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}
	if dbOpts.ConnMaxLifetime, err = parseDuration(v, "DB_CONN_MAX_LIFETIME"); err != nil {
		return Config{}, err
	}
	if dbOpts.ConnMaxIdleTime, err = parseDuration(v, "DB_CONN_MAX_IDLE_TIME"); err != nil {
		return Config{}, err
	}
	if dbOpts.PingTimeout, err = parseDuration(v, "DB_PING_TIMEOUT"); err != nil {
		return Config{}, err
	}

	databaseURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	cfg := Config{
		Port:              strings.TrimSpace(v.GetString("PORT")),
		Env:               normalizeEnv(v.GetString("ENV")),
		CORSAllowOrigins:  splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		LogLevel:          strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:         strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		StoreDriver:       normalizeStoreDriver(v.GetString("STORE_DRIVER"), databaseURL),
		DatabaseURL:       databaseURL,
		SQLitePath:        strings.TrimSpace(v.GetString("SQLITE_PATH")),
		DB:                dbOpts,
		GeneratorProvider: strings.ToLower(strings.TrimSpace(v.GetString("GENERATOR_PROVIDER"))),
		GeneratorModel:    strings.TrimSpace(v.GetString("GENERATOR_MODEL")),
		GeneratorTimeout:  timeout,
		GeminiAPIKey:      strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		OpenAIAPIKey:      strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		AnthropicAPIKey:   strings.TrimSpace(v.GetString("ANTHROPIC_API_KEY")),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		ArchiveStore:      normalizeArchiveStore(v.GetString("ARCHIVE_STORE")),
		LocalStoreDir:     strings.TrimSpace(v.GetString("LOCAL_STORE_DIR")),
		AWSRegion:         strings.TrimSpace(v.GetString("AWS_REGION")),
		S3Bucket:          strings.TrimSpace(v.GetString("S3_BUCKET")),
		S3Prefix:          strings.TrimSpace(v.GetString("S3_PREFIX")),
		SSEKMSKeyID:       strings.TrimSpace(v.GetString("SSE_KMS_KEY_ID")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot start the service.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return eris.New("config: DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return eris.New("config: SQLITE_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return eris.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.GeneratorProvider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderStub:
	default:
		return eris.Errorf("config: unknown GENERATOR_PROVIDER %q", c.GeneratorProvider)
	}

	switch c.ArchiveStore {
	case ArchiveS3:
		if c.S3Bucket == "" {
			return eris.New("config: S3_BUCKET is required for the s3 archive")
		}
	case ArchiveNone, ArchiveLocal:
	default:
		return eris.Errorf("config: unknown ARCHIVE_STORE %q", c.ArchiveStore)
	}

	if c.Env == "production" && c.StoreDriver == StoreMemory {
		return eris.New("config: the memory store is not allowed in production")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "config: %s invalid duration", key)
	}
	return d, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreDriver(raw, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return StorePostgres
	case "sqlite", "sqlite3":
		return StoreSQLite
	case "memory", "mem":
		return StoreMemory
	case "":
		if databaseURL != "" {
			return StorePostgres
		}
		return StoreMemory
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

func normalizeArchiveStore(raw string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "none", "off":
		return ArchiveNone
	default:
		return v
	}
}
