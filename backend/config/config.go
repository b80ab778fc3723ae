package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	ServerPort  string
	CORSOrigins string
	LogFormat   string
	LogLevel    string

	ShutdownTimeout time.Duration

	// DatabaseURL wins over the DB_* parts when both are set.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool
	SeedCatalog bool

	JWTSecret string
	JWTTTL    time.Duration

	// Empty RedisURL keeps the in-flight guard and the revocation list in memory.
	RedisURL string

	InstructorEmail string

	Chat    ChatConfig
	Payment PaymentConfig
}

type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PaymentConfig is read so deployments can carry it, but no gateway client
// exists yet.
type PaymentConfig struct {
	APIURL     string
	MerchantID string
	SecretKey  string
	AppURL     string
}

func (p PaymentConfig) CallbackURL() string { return p.AppURL + "/api/payments/webhook" }
func (p PaymentConfig) SuccessURL() string  { return p.AppURL + "/payment/success" }
func (p PaymentConfig) CancelURL() string   { return p.AppURL + "/payment/cancel" }

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	chatTimeout, err := time.ParseDuration(getEnv("ANTHROPIC_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("ANTHROPIC_TIMEOUT: %w", err)
	}

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ShutdownTimeout: shutdownTimeout,

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "bakustack"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getBool("DB_AUTO_MIGRATE", true),
		SeedCatalog: getBool("SEED_CATALOG", false),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    jwtTTL,

		RedisURL: getEnv("REDIS_URL", ""),

		InstructorEmail: getEnv("INSTRUCTOR_EMAIL", "mentor@bakustack.az"),

		Chat: ChatConfig{
			APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL: strings.TrimRight(getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"), "/"),
			Model:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
			Timeout: chatTimeout,
		},
		Payment: PaymentConfig{
			APIURL:     getEnv("EPOINT_API_URL", "https://api.epoint.az"),
			MerchantID: getEnv("EPOINT_MERCHANT_ID", ""),
			SecretKey:  getEnv("EPOINT_SECRET_KEY", ""),
			AppURL:     strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that makes the server unusable. A missing
// chat key is not one of them: only the chat endpoint fails without it.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			log.Println("JWT_SECRET not set, using an insecure development secret")
			c.JWTSecret = "dev-secret"
		}
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}
