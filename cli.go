package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/kexbuild/pkg/config"
	"github.com/chazu/kexbuild/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// defaultConfigFile is read from the working directory when present and
// no --config flag is given.
const defaultConfigFile = "kexbuild.yaml"

// setup parses flags, loads configuration and builds the logger. The
// returned closer releases the session log file, if one was opened.
func setup(fs *pflag.FlagSet, args []string) (config.Config, zerolog.Logger, func(), error) {
	nop := func() {}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, zerolog.Nop(), nop, err
	}
	path := ""
	if _, err := os.Stat(defaultConfigFile); err == nil {
		path = defaultConfigFile
	}
	cfg, err := config.Load(path, fs)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nop, err
	}

	var file io.Writer
	closer := nop
	if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
			return cfg, zerolog.Nop(), nop, fmt.Errorf("logs dir: %w", err)
		}
		f, err := os.Create(logging.LogFilePath(cfg.LogsDir, "kexbuild", time.Now()))
		if err != nil {
			return cfg, zerolog.Nop(), nop, fmt.Errorf("log file: %w", err)
		}
		file = f
		closer = func() { f.Close() }
	}

	log := logging.ForFormat(cfg.LogFormat, cfg.LogLevel, os.Stderr, file)
	log.Info().Str("loglevel", log.GetLevel().String()).Msg("logging set up")
	return cfg, log, closer, nil
}

// newAppFromConfig creates the App and loads the configured catalog.
func newAppFromConfig(cfg config.Config, log zerolog.Logger) (*App, error) {
	app := NewApp(cfg, log)
	if cfg.Catalog != "" {
		res := app.LoadCatalogFile(cfg.Catalog)
		if len(res.Errors) > 0 {
			return nil, fmt.Errorf("catalog %s: %s", cfg.Catalog, res.Errors[0].Message)
		}
	}
	return app, nil
}
