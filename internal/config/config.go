package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Ledger   LedgerConfig
	RabbitMQ RabbitMQConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type AuthConfig struct {
	// Namespace is the fixed tag prepended to every signed message.
	// Signer and verifier must agree on it byte for byte.
	Namespace string `envconfig:"AUTH_NAMESPACE" default:"livebridge"`
	// MaxAge bounds |now - timestamp| for signed requests in both directions.
	MaxAge time.Duration `envconfig:"AUTH_MAX_AGE" default:"5m"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CacheConfig struct {
	RoomTTL      time.Duration `envconfig:"CACHE_ROOM_TTL" default:"60s"`
	GiftTTL      time.Duration `envconfig:"CACHE_GIFT_TTL" default:"10m"`
	BlacklistTTL time.Duration `envconfig:"CACHE_BLACKLIST_TTL" default:"30s"`
	CoHostTTL    time.Duration `envconfig:"CACHE_COHOST_TTL" default:"30s"`
}

type LedgerConfig struct {
	URL          string        `envconfig:"LEDGER_WS_URL" default:"ws://localhost:9944"`
	CallTimeout  time.Duration `envconfig:"LEDGER_CALL_TIMEOUT" default:"3s"`
	DialTimeout  time.Duration `envconfig:"LEDGER_DIAL_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEDGER_WRITE_TIMEOUT" default:"3s"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"livebridge"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"livebridge"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"livebridge"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"livebridge"`
	DBName   string `envconfig:"POSTGRES_DB" default:"livebridge"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint   string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey  string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey  string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket     string        `envconfig:"MINIO_BUCKET" default:"gift-assets"`
	UseSSL     bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	IconExpiry time.Duration `envconfig:"MINIO_ICON_EXPIRY" default:"1h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
