package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog sources.
const (
	CatalogSourceDatabase = "database"
	CatalogSourceFile     = "file"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	LogLevel      string
	CORSOrigins   string
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	NATSURL       string
	JWTSecret     string
	EventsChannel string

	NotifierInterval   time.Duration
	CheckpointTTL      time.Duration
	DashboardCacheTTL  time.Duration
	InquiryDedupeTTL   time.Duration
	InquiryRateLimit   int
	StatementMinLength int
	StatementMaxLength int

	CatalogSource   string
	CatalogSeedFile string
	SeedEnabled     bool
	SeedToken       string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from GLOBALPATH_* environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GLOBALPATH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	durations := map[string]time.Duration{}
	for _, key := range []string{"notifier.interval", "notifier.checkpoint_ttl", "dashboard.cache_ttl", "inquiry.dedupe_ttl"} {
		raw := strings.TrimSpace(v.GetString(key))
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		LogLevel:      strings.ToLower(v.GetString("log.level")),
		CORSOrigins:   v.GetString("cors.origins"),
		DatabaseURL:   v.GetString("database.url"),
		SQLitePath:    v.GetString("database.sqlite_path"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		JWTSecret:     v.GetString("jwt.secret"),
		EventsChannel: v.GetString("events.channel"),

		NotifierInterval:   durations["notifier.interval"],
		CheckpointTTL:      durations["notifier.checkpoint_ttl"],
		DashboardCacheTTL:  durations["dashboard.cache_ttl"],
		InquiryDedupeTTL:   durations["inquiry.dedupe_ttl"],
		InquiryRateLimit:   v.GetInt("inquiry.rate_limit"),
		StatementMinLength: v.GetInt("statement.min_length"),
		StatementMaxLength: v.GetInt("statement.max_length"),

		CatalogSource:   strings.ToLower(v.GetString("catalog.source")),
		CatalogSeedFile: v.GetString("catalog.seed_file"),
		SeedEnabled:     v.GetBool("seed.enabled"),
		SeedToken:       v.GetString("seed.token"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.StatementMinLength < 0 || cfg.StatementMaxLength <= cfg.StatementMinLength {
		return Config{}, fmt.Errorf("statement length bounds must satisfy 0 <= min < max, got %d..%d", cfg.StatementMinLength, cfg.StatementMaxLength)
	}
	if cfg.NotifierInterval <= 0 {
		return Config{}, fmt.Errorf("notifier interval must be positive")
	}
	switch cfg.CatalogSource {
	case CatalogSourceDatabase:
	case CatalogSourceFile:
		if cfg.CatalogSeedFile == "" {
			return Config{}, fmt.Errorf("catalog.seed_file must be set when the catalog is served from a file")
		}
	default:
		return Config{}, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
	if cfg.SeedEnabled && cfg.SeedToken == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "GlobalPath API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.sqlite_path", "globalpath.db")
	v.SetDefault("events.channel", "globalpath")
	v.SetDefault("notifier.interval", "5s")
	v.SetDefault("notifier.checkpoint_ttl", "0s")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("inquiry.dedupe_ttl", "10m")
	v.SetDefault("inquiry.rate_limit", 5)
	v.SetDefault("statement.min_length", 100)
	v.SetDefault("statement.max_length", 5000)
	v.SetDefault("catalog.source", CatalogSourceDatabase)
	v.SetDefault("seed.enabled", false)
}
