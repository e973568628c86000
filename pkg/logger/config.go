package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std" // slog text handler
	BackendZap Backend = "zap" // zap JSON core behind slog
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // empty: std in dev, zap otherwise
	Debug   bool

	// zap sampling, per second
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

// DetectEnv reads APP_ENV and falls back to dev.
func DetectEnv() Env {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}

func (c Config) withDefaults() Config {
	if c.Env == "" {
		c.Env = DetectEnv()
	}
	if c.Service == "" {
		c.Service = "chat-relay"
	}
	if c.Backend == "" {
		if c.Env == EnvDev {
			c.Backend = BackendStd
		} else {
			c.Backend = BackendZap
		}
	}
	if c.SampleInitial <= 0 {
		c.SampleInitial = 100
	}
	if c.SampleThereafter <= 0 {
		c.SampleThereafter = 10
	}
	c.InstanceID = ensureInstanceID(c.InstanceID)
	return c
}
