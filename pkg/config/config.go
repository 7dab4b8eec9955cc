package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application settings
type Config struct {
	Environment string
	Port        string

	// database
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	// JWTSecret verifies Supabase access tokens when the backend has no auth API
	JWTSecret string

	// object storage (Cloudflare R2)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	// R2Endpoint overrides https://<account>.r2.cloudflarestorage.com
	R2Endpoint     string
	SignedURLTTL   time.Duration
	MaxUploadBytes int64

	// HTTP
	AllowedOrigins []string
	RequestTimeout time.Duration
	AdminRole      string
	// ProtectWrites requires an admin token on every mutating endpoint
	ProtectWrites bool

	// logging
	LogLevel  string
	LogFormat string
	Debug     bool
}

// LoadConfig reads the environment, after loading the dotenv file for the environment
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}
	loadEnvFile(".env")

	config := &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		Port:        getEnvWithDefault("PORT", "3000"),
		UseLocalDB:  getEnvBool("USE_LOCAL_DB", false),
		LocalDBPath: getEnvWithDefault("LOCAL_DB_PATH", "./data/spaces.db"),
		Debug:       getEnvBool("DEBUG", false),
	}

	// trim: values pasted into hosting dashboards often carry a trailing newline
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.SupabaseURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	config.SupabaseKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	config.JWTSecret = strings.TrimSpace(os.Getenv("SUPABASE_JWT_SECRET"))

	config.R2AccountID = strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID"))
	config.R2AccessKeyID = strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCESS_KEY_ID"))
	config.R2SecretAccessKey = strings.TrimSpace(os.Getenv("CLOUDFLARE_SECRET_ACCESS_KEY"))
	config.R2BucketName = strings.TrimSpace(os.Getenv("CLOUDFLARE_BUCKET_NAME"))
	config.R2Endpoint = strings.TrimSpace(os.Getenv("CLOUDFLARE_R2_ENDPOINT"))
	config.SignedURLTTL = getEnvDuration("SIGNED_URL_TTL", 24*time.Hour)
	config.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20))

	config.AllowedOrigins = getEnvSlice("ALLOWED_ORIGINS", []string{"*"})
	config.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 25*time.Second)
	config.AdminRole = getEnvWithDefault("ADMIN_ROLE", "admin")
	config.ProtectWrites = getEnvBool("PROTECT_WRITES", false)

	config.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	config.LogFormat = getEnvWithDefault("LOG_FORMAT", "")
	if config.LogFormat == "" {
		if config.Environment == "production" {
			config.LogFormat = "json"
		} else {
			config.LogFormat = "console"
		}
	}

	if config.Environment == "production" {
		config.Debug = false
	}
	if config.Debug {
		config.LogLevel = "debug"
	}

	return config
}

var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide Config, loaded once per cold start
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	var missing []string

	if c.Port == "" {
		missing = append(missing, "PORT")
	}
	if c.R2AccountID == "" {
		missing = append(missing, "CLOUDFLARE_ACCOUNT_ID")
	}
	if c.R2AccessKeyID == "" {
		missing = append(missing, "CLOUDFLARE_ACCESS_KEY_ID")
	}
	if c.R2SecretAccessKey == "" {
		missing = append(missing, "CLOUDFLARE_SECRET_ACCESS_KEY")
	}
	if c.R2BucketName == "" {
		missing = append(missing, "CLOUDFLARE_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if !c.UseLocalDB && c.PostgresDSN == "" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return errors.New("database configuration incomplete: set USE_LOCAL_DB, POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
	}
	if c.SignedURLTTL <= 0 {
		return errors.New("SIGNED_URL_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether ENVIRONMENT is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("24h") or plain seconds ("86400")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// loadEnvFile loads filename if present without overriding variables already set
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	_ = godotenv.Load(filename)
}
