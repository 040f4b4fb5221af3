package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process level configuration, resolved once at startup.
// Accounting behaviour is not stored here; it is read at call time through Settings.
type Config struct {
	DatabaseURL        string
	Port               string
	IsProduction       bool
	EnableDBCheck      bool
	JWTSecret          string
	JWTIssuer          string
	LogLevel           string
	MigrationsPath     string
	RateLimit          string
	CORSAllowedOrigins []string
	PosthogAPIKey      string
	AuditSpoolPath     string
	AuditBufferSize    int
	PolicyCacheTTL     time.Duration
	PostingMaxRetries  int

	Settings SettingsProvider
}

// LoadConfig loads configuration from environment variables, an optional ledger.yaml
// and a .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", true)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "erp-ledger")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("AUDIT_SPOOL_PATH", "audit_spool.db")
	viper.SetDefault("AUDIT_BUFFER_SIZE", 1024)
	viper.SetDefault("POLICY_CACHE_TTL", "30s")
	viper.SetDefault("POSTING_MAX_RETRIES", 3)
	setAccountingDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// ledger.yaml is optional; its values sit between defaults and the environment.
	viper.SetConfigName("ledger")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		// accounting settings are read per call, so edits apply without a restart
		viper.WatchConfig()
	}

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.PolicyCacheTTL = viper.GetDuration("POLICY_CACHE_TTL")
	if cfg.PolicyCacheTTL < 0 {
		log.Printf("Warning: negative POLICY_CACHE_TTL, disabling the policy cache.\n")
		cfg.PolicyCacheTTL = 0
	}

	cfg.PostingMaxRetries = viper.GetInt("POSTING_MAX_RETRIES")
	if cfg.PostingMaxRetries < 0 {
		cfg.PostingMaxRetries = 0
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.AuditSpoolPath = viper.GetString("AUDIT_SPOOL_PATH")
	cfg.AuditBufferSize = viper.GetInt("AUDIT_BUFFER_SIZE")
	cfg.Settings = NewViperSettings(viper.GetViper())

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
