package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	PublicURL      string `envconfig:"PUBLIC_URL" default:"http://localhost:5173/"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CanvasWidth    int    `envconfig:"CANVAS_WIDTH" default:"800"`
	CanvasHeight   int    `envconfig:"CANVAS_HEIGHT" default:"600"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	MDNSEnabled    bool   `envconfig:"MDNS_ENABLED" default:"false"`
	MDNSInstance   string `envconfig:"MDNS_INSTANCE" default:"spline"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
