package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LIVE"

const (
	KeyPort            = "port"
	KeyDBPath          = "db_path"
	KeyAllowedOrigins  = "allowed_origins"
	KeyActivityTimeout = "activity_timeout"
	KeySendBuffer      = "send_buffer"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

type Config struct {
	Port            int
	DBPath          string
	AllowedOrigins  []string
	ActivityTimeout time.Duration
	SendBuffer      int
	LogLevel        slog.Level
	LogFormat       string
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SetDefaults registers default values and binds LIVE_* environment variables.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 3001)
	v.SetDefault(KeyDBPath, "./data/live.db")
	v.SetDefault(KeyAllowedOrigins, "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault(KeyActivityTimeout, "0s")
	v.SetDefault(KeySendBuffer, 64)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads a .env file into the process environment when one exists.
// Variables already set take precedence.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:       v.GetInt(KeyPort),
		DBPath:     strings.TrimSpace(v.GetString(KeyDBPath)),
		SendBuffer: v.GetInt(KeySendBuffer),
		LogFormat:  strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid %s %d: must be between 1 and 65535", KeyPort, cfg.Port)
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("%s is required", KeyDBPath)
	}
	if cfg.SendBuffer < 1 {
		return Config{}, fmt.Errorf("invalid %s %d: must be positive", KeySendBuffer, cfg.SendBuffer)
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(KeyActivityTimeout)))
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", KeyActivityTimeout, err)
	}
	if timeout < 0 {
		return Config{}, fmt.Errorf("invalid %s %s: must not be negative", KeyActivityTimeout, timeout)
	}
	cfg.ActivityTimeout = timeout

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", KeyLogLevel, err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("invalid %s %q: want text or json", KeyLogFormat, cfg.LogFormat)
	}

	for _, o := range v.GetStringSlice(KeyAllowedOrigins) {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, part)
			}
		}
	}
	return cfg, nil
}

// NewLogger builds the process logger for cfg.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
