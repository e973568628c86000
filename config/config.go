package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/postgres"
	"github.com/cwrk-planet/chat-relay/internal/redislog"
	"github.com/cwrk-planet/chat-relay/internal/security"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath = "./config/config.yaml"
	envPrefix   = "CHAT"
)

type HTTP struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true" validate:"gt=0"`
	CORSOrigins     []string      `yaml:"corsOrigins" envconfig:"cors_origins"`
}

type GRPC struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Logging struct {
	Env       string `yaml:"env" validate:"omitempty,oneof=dev stage prod"`
	Service   string `yaml:"service"`
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend" validate:"omitempty,oneof=std zap"`
	AddSource bool   `yaml:"addSource" split_words:"true"`
	Debug     bool   `yaml:"debug"`
}

type Storage struct {
	Backend      string `yaml:"backend" validate:"oneof=postgres memory"`
	EnsureSchema bool   `yaml:"ensureSchema" split_words:"true"`
}

type MessageLog struct {
	Backend       string        `yaml:"backend" validate:"oneof=postgres redis memory"`
	AppendTimeout time.Duration `yaml:"appendTimeout" split_words:"true" validate:"gt=0"`
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns" split_words:"true" validate:"gte=0"`
	MinConns          int32         `yaml:"minConns" split_words:"true" validate:"gte=0"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime" split_words:"true"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime" split_words:"true"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" split_words:"true"`
	ApplicationName   string        `yaml:"applicationName" split_words:"true"`
}

type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	KeyPrefix string        `yaml:"keyPrefix" split_words:"true"`
	MaxLen    int64         `yaml:"maxLen" split_words:"true" validate:"gte=0"`
	DedupTTL  time.Duration `yaml:"dedupTTL" envconfig:"dedup_ttl"`
}

type Chat struct {
	SendQueueSize  int           `yaml:"sendQueueSize" split_words:"true" validate:"gte=1"`
	MaxMessageSize int64         `yaml:"maxMessageSize" split_words:"true" validate:"gte=128"`
	PingInterval   time.Duration `yaml:"pingInterval" split_words:"true" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" split_words:"true" validate:"gt=0"`
	SelfLabel      string        `yaml:"selfLabel" split_words:"true" validate:"required"`
}

type Security struct {
	BcryptCost        int `yaml:"bcryptCost" split_words:"true" validate:"omitempty,min=4,max=18"`
	MinPasswordLength int `yaml:"minPasswordLength" split_words:"true" validate:"gte=6"`
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	GRPC       GRPC       `yaml:"grpc"`
	Logging    Logging    `yaml:"logging"`
	Storage    Storage    `yaml:"storage"`
	MessageLog MessageLog `yaml:"messageLog" envconfig:"message_log"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Chat       Chat       `yaml:"chat"`
	Security   Security   `yaml:"security"`
}

// Default is the configuration used for anything the file and the
// environment leave unset.
func Default() Config {
	return Config{
		HTTP:       HTTP{Addr: ":8080", ShutdownTimeout: 10 * time.Second, CORSOrigins: []string{"*"}},
		GRPC:       GRPC{Addr: ":9090"},
		Logging:    Logging{Service: "chat-relay", Version: "v0.1.0"},
		Storage:    Storage{Backend: "memory"},
		MessageLog: MessageLog{Backend: "memory", AppendTimeout: 2 * time.Second},
		Redis:      Redis{KeyPrefix: "chat", MaxLen: 10000, DedupTTL: 24 * time.Hour},
		Chat: Chat{
			SendQueueSize:  64,
			MaxMessageSize: 1 << 16,
			PingInterval:   30 * time.Second,
			WriteTimeout:   10 * time.Second,
			SelfLabel:      "me",
		},
		Security: Security{MinPasswordLength: 6},
	}
}

// LoadConfig reads .env, then the YAML file at CONFIG_PATH, then CHAT_*
// environment overrides, and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultPath
	}
	return Load(path, explicit)
}

// Load is LoadConfig without the .env step. A missing file is an error only
// when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	needPostgres := c.Storage.Backend == "postgres" || c.MessageLog.Backend == "postgres"
	if needPostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for the postgres backend")
	}
	if c.MessageLog.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis message log")
	}
	if c.Postgres.MinConns > 0 && c.Postgres.MaxConns > 0 && c.Postgres.MinConns > c.Postgres.MaxConns {
		return errors.New("postgres.minConns must not exceed maxConns")
	}
	return nil
}

func (c *Config) PostgresConfig() postgres.Config {
	p := c.Postgres
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

func (c *Config) RedisConfig() redislog.Config {
	r := c.Redis
	return redislog.Config{
		Addr:      r.Addr,
		Password:  r.Password,
		DB:        r.DB,
		KeyPrefix: r.KeyPrefix,
		MaxLen:    r.MaxLen,
		DedupTTL:  r.DedupTTL,
	}
}

func (c *Config) BcryptConfig() *security.BcryptConfig {
	return &security.BcryptConfig{Cost: c.Security.BcryptCost, MinLength: c.Security.MinPasswordLength}
}

func (c *Config) LoggerConfig() logger.Config {
	l := c.Logging
	lc := logger.Config{
		Service:   l.Service,
		Version:   l.Version,
		Env:       logger.Env(l.Env),
		Backend:   logger.Backend(l.Backend),
		Debug:     l.Debug,
		AddSource: l.AddSource,
	}
	if l.Debug {
		lc.Level = slog.LevelDebug
	}
	return lc
}
