package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-only-secret-change-in-prod"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Email    EmailConfig
	Storage  StorageConfig
	LogLevel string
}

type ServerConfig struct {
	Port         string
	Mode         string // gin mode: debug, release, test
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver      string // postgres or sqlite
	Host        string
	User        string
	Password    string
	Name        string
	Port        string
	SSLMode     string
	SQLitePath  string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
}

// DSN renders the postgres connection string the same way the API always has.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type RedisConfig struct {
	URL string // empty disables rate limiting and pub/sub
}

type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
	Header     string
}

type OTPConfig struct {
	Length      int
	TTL         time.Duration
	PhoneRegion string
	RateLimit   int
	RateWindow  time.Duration
}

type EmailConfig struct {
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPass        string
	SMTPUseTLS      bool
	From            string
	FromName        string
	MailerSendKey   string
	DeliveryTimeout time.Duration
}

type StorageConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	S3Bucket     string
	UploadDir    string
	BaseURL      string
}

// UseS3 reports whether enough AWS settings are present to store images in S3.
func (s StorageConfig) UseS3() bool {
	return s.AWSRegion != "" && s.AWSAccessKey != "" && s.AWSSecretKey != "" && s.S3Bucket != ""
}

// Load reads .env when present and builds the configuration from the
// environment. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			CORSOrigins:  getList("CORS_ORIGINS", []string{"*"}),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", "postgres"),
			Host:        getEnv("DB_HOST", "localhost"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", "railparcel"),
			Port:        getEnv("DB_PORT", "5432"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SQLitePath:  getEnv("SQLITE_PATH", "data/railparcel.sqlite"),
			MaxIdle:     getInt("DB_MAX_IDLE", 10),
			MaxOpen:     getInt("DB_MAX_OPEN", 100),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", devJWTSecret),
			SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),
			Header:     getEnv("AUTH_HEADER", "x-auth-token"),
		},
		OTP: OTPConfig{
			Length:      getInt("OTP_LENGTH", 6),
			TTL:         getDuration("OTP_TTL", 10*time.Minute),
			PhoneRegion: getEnv("OTP_PHONE_REGION", "US"),
			RateLimit:   getInt("OTP_RATE_LIMIT", 5),
			RateWindow:  getDuration("OTP_RATE_WINDOW", 10*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getInt("SMTP_PORT", 587),
			SMTPUser:        getEnv("SMTP_USER", ""),
			SMTPPass:        getEnv("SMTP_PASS", ""),
			SMTPUseTLS:      getBool("SMTP_USE_TLS", false),
			From:            getEnv("MAIL_FROM", "noreply@railparcel.local"),
			FromName:        getEnv("MAIL_FROM_NAME", "Railway Parcel Service"),
			MailerSendKey:   getEnv("MAILERSEND_API_KEY", ""),
			DeliveryTimeout: getDuration("DELIVERY_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			AWSRegion:    getEnv("AWS_REGION", ""),
			AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:     getEnv("AWS_S3_BUCKET", ""),
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
			BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Auth.JWTSecret == devJWTSecret && c.Server.Mode == "release" {
		errs = append(errs, errors.New("JWT_SECRET must be set in release mode"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if strings.TrimSpace(c.Auth.Header) == "" {
		errs = append(errs, errors.New("AUTH_HEADER must not be empty"))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTP.Length))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
