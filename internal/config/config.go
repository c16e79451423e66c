package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server is the relay server's environment configuration.
type Server struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" default:"sqlite:./data/portrait.db"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"localhost:5173,localhost:3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"0"`
	AppendTimeout  time.Duration `envconfig:"APPEND_TIMEOUT" default:"5s"`
	DevTokens      bool          `envconfig:"DEV_TOKENS" default:"false"`
	MDNSEnabled    bool          `envconfig:"MDNS_ENABLED" default:"false"`
	MDNSInstance   string        `envconfig:"MDNS_INSTANCE" default:"portrait"`
}

func Load() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit < 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", cfg.HistoryLimit)
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into WebSocket origin patterns.
func (c *Server) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(strings.TrimPrefix(o, "http://"), "https://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Server) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
