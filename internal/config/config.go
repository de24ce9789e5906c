package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

// Header constants.
const (
	HEADER_KEY_X_CLIENT_ID = "X-Client-Id"
	HEADER_KEY_X_UID       = "X-Uid"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_STORAGE_DRIVER     = "STORAGE_DRIVER"
	ENV_KEY_STORAGE_ROOT       = "STORAGE_ROOT"
	ENV_KEY_MAX_UPLOAD_BYTES   = "MAX_UPLOAD_BYTES"
	ENV_KEY_ALLOWED_EXTENSIONS = "ALLOWED_EXTENSIONS"
	ENV_KEY_IMAGE_QUALITY      = "IMAGE_QUALITY"
	ENV_KEY_RETIRE_PARTITIONS  = "RETIRE_PARTITIONS"
	ENV_KEY_EXTRACT_COLORS     = "EXTRACT_COLORS"

	ENV_KEY_MINIO_ENDPOINT   = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY = "MINIO_SECRET_KEY"
	ENV_KEY_MINIO_BUCKET     = "MINIO_BUCKET"
	ENV_KEY_MINIO_PREFIX     = "MINIO_PREFIX"
	ENV_KEY_MINIO_SECURE     = "MINIO_SECURE"

	ENV_KEY_S3_BUCKET = "S3_BUCKET"
	ENV_KEY_S3_PREFIX = "S3_PREFIX"

	ENV_KEY_REDIS_HOST     = "REDIS_HOST"
	ENV_KEY_REDIS_PORT     = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD = "REDIS_PASSWORD"
	ENV_KEY_CACHE_TTL      = "CACHE_TTL"

	ENV_KEY_CLIENT_ID                         = "CLIENT_ID"
	ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH = "FIREBASE_SERVICE_ACCOUNT_KEY_PATH"
	ENV_KEY_DELETE_AUTH                       = "DELETE_AUTH"
	ENV_KEY_RATE_LIMIT_RPS                    = "RATE_LIMIT_RPS"

	ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

const (
	STORAGE_DRIVER_LOCAL = "local"
	STORAGE_DRIVER_MINIO = "minio"
	STORAGE_DRIVER_S3    = "s3"

	DELETE_AUTH_REQUIRED = "required"
	DELETE_AUTH_OPTIONAL = "optional"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	AppEnv   string
	Port     int `validate:"gte=1,lte=65535"`
	LogLevel string

	StorageDriver     string   `validate:"oneof=local minio s3"`
	StorageRoot       string   `validate:"required_if=StorageDriver local"`
	MaxUploadBytes    int64    `validate:"gt=0"`
	AllowedExtensions []string `validate:"min=1,dive,startswith=."`
	ImageQuality      int      `validate:"gte=1,lte=100"`
	RetirePartitions  []string `validate:"dive,oneof=candidate employer company job"`
	ExtractColors     bool

	MinioEndpoint  string `validate:"required_if=StorageDriver minio"`
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string `validate:"required_if=StorageDriver minio"`
	MinioPrefix    string
	MinioSecure    bool

	S3Bucket string `validate:"required_if=StorageDriver s3"`
	S3Prefix string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	CacheTTL      time.Duration

	ClientID        string
	FirebaseKeyPath string
	DeleteAuth      string  `validate:"oneof=required optional"`
	RateLimitRPS    float64 `validate:"gte=0"`
	OTLPEndpoint    string
}

func (c Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var (
		c   Config
		err error
	)

	c.AppEnv = os.Getenv(ENV_KEY_APP_ENV)
	c.LogLevel = envOr(ENV_KEY_LOG_LEVEL, "INFO")
	if c.Port, err = strconv.Atoi(envOr(ENV_KEY_PORT, "8000")); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_PORT, err)
	}

	c.StorageDriver = envOr(ENV_KEY_STORAGE_DRIVER, STORAGE_DRIVER_LOCAL)
	c.StorageRoot = envOr(ENV_KEY_STORAGE_ROOT, "uploads")
	if c.MaxUploadBytes, err = strconv.ParseInt(envOr(ENV_KEY_MAX_UPLOAD_BYTES, "5242880"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_MAX_UPLOAD_BYTES, err)
	}
	c.AllowedExtensions = splitList(envOr(ENV_KEY_ALLOWED_EXTENSIONS, ".png,.jpg,.jpeg,.jfif,.webp"))
	for i, ext := range c.AllowedExtensions {
		c.AllowedExtensions[i] = strings.ToLower(ext)
	}
	if c.ImageQuality, err = strconv.Atoi(envOr(ENV_KEY_IMAGE_QUALITY, "85")); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_IMAGE_QUALITY, err)
	}
	c.RetirePartitions = parseRetire(envOr(ENV_KEY_RETIRE_PARTITIONS, "all"))
	if c.ExtractColors, err = strconv.ParseBool(envOr(ENV_KEY_EXTRACT_COLORS, "true")); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_EXTRACT_COLORS, err)
	}

	c.MinioEndpoint = os.Getenv(ENV_KEY_MINIO_ENDPOINT)
	c.MinioAccessKey = os.Getenv(ENV_KEY_MINIO_ACCESS_KEY)
	c.MinioSecretKey = os.Getenv(ENV_KEY_MINIO_SECRET_KEY)
	c.MinioBucket = os.Getenv(ENV_KEY_MINIO_BUCKET)
	c.MinioPrefix = os.Getenv(ENV_KEY_MINIO_PREFIX)
	if c.MinioSecure, err = strconv.ParseBool(envOr(ENV_KEY_MINIO_SECURE, "true")); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_MINIO_SECURE, err)
	}

	c.S3Bucket = os.Getenv(ENV_KEY_S3_BUCKET)
	c.S3Prefix = os.Getenv(ENV_KEY_S3_PREFIX)

	c.RedisHost = os.Getenv(ENV_KEY_REDIS_HOST)
	c.RedisPort = envOr(ENV_KEY_REDIS_PORT, "6379")
	c.RedisPassword = os.Getenv(ENV_KEY_REDIS_PASSWORD)
	if c.CacheTTL, err = time.ParseDuration(envOr(ENV_KEY_CACHE_TTL, "10m")); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_CACHE_TTL, err)
	}

	c.ClientID = os.Getenv(ENV_KEY_CLIENT_ID)
	c.FirebaseKeyPath = os.Getenv(ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH)
	c.DeleteAuth = envOr(ENV_KEY_DELETE_AUTH, DELETE_AUTH_REQUIRED)
	if c.RateLimitRPS, err = strconv.ParseFloat(envOr(ENV_KEY_RATE_LIMIT_RPS, "0"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_RATE_LIMIT_RPS, err)
	}
	c.OTLPEndpoint = os.Getenv(ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT)

	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRetire expands "all" and "none" into the owner kinds whose
// partitions are removed once their last asset is deleted.
func parseRetire(s string) []string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return []string{"candidate", "employer", "company", "job"}
	case "none", "":
		return nil
	}
	return splitList(strings.ToLower(s))
}
