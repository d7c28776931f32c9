// Package config resolves ledger runtime configuration.
//
// Sources, lowest precedence first:
//  1. Built-in defaults
//  2. A .env file (optional; never overrides variables already set)
//  3. A CUE config file, validated against the embedded #Config schema
//  4. LEDGER_* environment variables
//  5. Command-line flags (applied by the cli package)
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalidConfig is returned when the resolved configuration is unusable.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved runtime configuration.
type Config struct {
	Driver    string `json:"driver,omitempty" env:"LEDGER_DRIVER"`
	DSN       string `json:"dsn,omitempty" env:"LEDGER_DSN"`
	LogLevel  string `json:"log_level,omitempty" env:"LEDGER_LOG_LEVEL"`
	LogFormat string `json:"log_format,omitempty" env:"LEDGER_LOG_FORMAT"`
}

// Default returns the built-in configuration: a local SQLite file.
func Default() Config {
	return Config{
		Driver:    "sqlite3",
		DSN:       "ledger.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Sources names the optional files Load reads.
type Sources struct {
	DotEnv string // .env path; a missing file is ignored
	File   string // CUE config path; a missing file is an error
}

// Load resolves configuration from defaults, src and the environment.
// The result is not validated; callers apply their own overrides and then
// call Validate.
func Load(src Sources) (Config, error) {
	cfg := Default()

	if src.DotEnv != "" {
		if err := godotenv.Load(src.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", src.DotEnv, err)
		}
	}

	if src.File != "" {
		if err := LoadFile(src.File, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the settings in a CUE file onto cfg. The file is
// unified with #Config, so unknown keys and out-of-range values are
// rejected with their source position.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, cueerrors.Details(err, nil))
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(cueerrors.Details(err, nil)))
	}

	var file Config
	if err := unified.Decode(&file); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	cfg.overlay(file)
	return nil
}

// overlay copies every non-empty field of o onto c.
func (c *Config) overlay(o Config) {
	if o.Driver != "" {
		c.Driver = o.Driver
	}
	if o.DSN != "" {
		c.DSN = o.DSN
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
}

// Validate checks the values that CUE cannot see: those from the
// environment and from flags.
func (c Config) Validate() error {
	switch c.Driver {
	case "sqlite3", "pgx", "postgres":
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn is empty", ErrInvalidConfig)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return lvl, nil
}

// Logger builds the structured logger described by c, writing to w.
// An unparsable level falls back to info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
