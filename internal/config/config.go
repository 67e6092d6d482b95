// Package config loads pocketdeck settings from defaults, an optional YAML
// file, POCKETDECK_* environment variables and command-line flags, in that
// order of precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are
// separated by a double underscore: POCKETDECK_DATABASE__DSN.
const EnvPrefix = "POCKETDECK_"

type Config struct {
	Database Database `koanf:"database"`
	Server   Server   `koanf:"server"`
	Catalog  Catalog  `koanf:"catalog"`
	Sync     Sync     `koanf:"sync"`
	Log      Log      `koanf:"log"`
}

type Database struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type Server struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type Catalog struct {
	URL string `koanf:"url" validate:"omitempty,url"`
	// Refresh is how often serve re-imports the catalog; zero disables it.
	Refresh time.Duration `koanf:"refresh" validate:"gte=0"`
}

type Sync struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// Interval is how often serve syncs sources; zero disables it.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite", DSN: "pocketdeck.db"},
		Server:   Server{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		Catalog:  Catalog{URL: "https://kunwarjaspal84.github.io/flashcard-decks/decks.json"},
		Sync:     Sync{ReposDir: "repos"},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"db":          "database.dsn",
	"driver":      "database.driver",
	"addr":        "server.addr",
	"catalog-url": "catalog.url",
	"repos-dir":   "sync.repos_dir",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// Load builds the configuration. path may be empty; a missing file at an
// explicit path is an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		flagProvider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds the slog logger described by the log settings.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
