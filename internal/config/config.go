// config реализует конфигурацию video-hub: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища аккаунтов.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
	Media    MediaConfig    `yaml:"media"`
	Redis    RedisConfig    `yaml:"redis"`
	Limits   LimitsConfig   `yaml:"limits"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig — ключи и сроки жизни учётных данных.
// Access и refresh подписываются разными секретами.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"240h"`
	Issuer          string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"video-hub"`
	// CookieInsecure снимает флаг Secure с cookie; только для локальной разработки по http.
	CookieInsecure bool `yaml:"cookie_insecure" env:"AUTH_COOKIE_INSECURE"`
}

// StorageConfig — выбор драйвера для аккаунтов. Видео всегда хранятся в MongoDB.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
}

// MongoConfig — настройки подключения к MongoDB.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// PostgresConfig — настройки подключения к PostgreSQL (driver=postgres).
type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// S3Config — объектное хранилище для медиафайлов.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser     string `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket       string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	// PublicBaseURL — префикс публичных ссылок; пустой означает endpoint/bucket.
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// MediaConfig — ограничения на загружаемые файлы.
type MediaConfig struct {
	MaxImageBytes     int64    `yaml:"max_image_bytes" env:"MEDIA_MAX_IMAGE_BYTES" env-default:"5242880"`
	MaxVideoBytes     int64    `yaml:"max_video_bytes" env:"MEDIA_MAX_VIDEO_BYTES" env-default:"536870912"`
	ImageContentTypes []string `yaml:"image_content_types" env:"MEDIA_IMAGE_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp"`
	VideoContentTypes []string `yaml:"video_content_types" env:"MEDIA_VIDEO_CONTENT_TYPES" env-separator:"," env-default:"video/mp4,video/webm,video/quicktime"`
}

// RedisConfig — опциональный Redis для лимита неудачных входов.
// Пустой URL отключает лимитер.
type RedisConfig struct {
	URL           string        `yaml:"url" env:"REDIS_URL"`
	LoginAttempts int64         `yaml:"login_attempts" env:"REDIS_LOGIN_ATTEMPTS" env-default:"5"`
	LoginWindow   time.Duration `yaml:"login_window" env:"REDIS_LOGIN_WINDOW" env-default:"15m"`
}

// LimitsConfig — пагинация списка видео.
type LimitsConfig struct {
	Default int `yaml:"default" env:"DEFAULT_LIMIT" env-default:"10"`
	Max     int `yaml:"max" env:"MAX_LIMIT" env-default:"100"`
}

// TimeoutConfig — сервисные таймауты.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
	Upload   time.Duration `yaml:"upload" env:"UPLOAD_TIMEOUT" env-default:"5m"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path == "" {
		if _, err := os.Stat("local.yaml"); err == nil {
			path = "local.yaml"
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}

		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to overlay env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("auth.access_secret and auth.refresh_secret are required")
	}

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth.access_secret must differ from auth.refresh_secret")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("auth.access_token_ttl must be > 0")
	}

	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return errors.New("auth.access_token_ttl must be less than auth.refresh_token_ttl")
	}

	switch c.Storage.Driver {
	case DriverMongo:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres.url is required for storage.driver=postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	// Видео живут в MongoDB при любом драйвере аккаунтов.
	if c.Mongo.URL == "" {
		return errors.New("mongo.url is required")
	}

	if c.S3.Endpoint == "" || c.S3.RootUser == "" || c.S3.RootPassword == "" || c.S3.Bucket == "" {
		return errors.New("s3.endpoint, s3.root_user, s3.root_password and s3.bucket are required")
	}

	if c.Media.MaxImageBytes <= 0 || c.Media.MaxVideoBytes <= 0 {
		return errors.New("media size limits must be > 0")
	}

	if len(c.Media.ImageContentTypes) == 0 || len(c.Media.VideoContentTypes) == 0 {
		return errors.New("media content types must not be empty")
	}

	if c.Redis.URL != "" && (c.Redis.LoginAttempts <= 0 || c.Redis.LoginWindow <= 0) {
		return errors.New("redis.login_attempts and redis.login_window must be > 0")
	}

	if c.Limits.Default <= 0 || c.Limits.Max <= 0 {
		return errors.New("limits.default and limits.max must be > 0")
	}

	if c.Limits.Default > c.Limits.Max {
		return errors.New("limits.default must be <= limits.max")
	}

	return nil
}
