package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ledger/internal/config"
	"github.com/roach88/ledger/internal/engine"
	"github.com/roach88/ledger/internal/store"
)

// resolveConfig loads configuration and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(config.Sources{DotEnv: opts.EnvFile, File: opts.ConfigFile})
	if err != nil {
		return config.Config{}, err
	}
	if opts.Driver != "" {
		cfg.Driver = opts.Driver
	}
	if opts.DSN != "" {
		cfg.DSN = opts.DSN
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openStore resolves configuration and opens the store it names.
func openStore(opts *RootOptions, cmd *cobra.Command) (*store.Store, *slog.Logger, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	st, err := store.OpenDriver(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("store opened", "driver", st.Driver())
	return st, logger, nil
}

// withEngine opens the store, starts an engine on it, runs fn and shuts
// the engine down again.
func withEngine(ctx context.Context, opts *RootOptions, cmd *cobra.Command, fn func(*engine.Engine) error) error {
	st, logger, err := openStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := engine.Open(ctx, st, engine.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load ledger", err)
	}

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	fnErr := fn(eng)

	eng.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "engine stopped", err)
	}
	return fnErr
}

// failMutation reports a rejected or failed mutation. Durable commit
// failures are infrastructure errors; everything else is a rejection.
func failMutation(out *OutputFormatter, err error) error {
	code := engine.ErrorCode(err)
	if engine.IsCommitError(err) {
		return out.Fail(ExitCommandError, code, err)
	}
	return out.Fail(ExitFailure, code, err)
}
