package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/config"
	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/log"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/builtin"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/ffprobe"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/local"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what every command shares once setup has run.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

var current *app

// setup loads the configuration, builds the logger and opens the operation
// journal for the running command.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := log.NewLogger(level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	log.Initialize(cfg.LogDir, cfg.EnableLogging, cfg.LogRetentionDays)
	if err := log.StartSession(cmd.CommandPath(), os.Args[1:]); err != nil {
		logger.WithError(err).Warn("failed to start operation journal")
	}

	current = &app{cfg: cfg, logger: logger}
	return nil
}

// services is the wired refresh stack for one command run.
type services struct {
	store     *cache.Store
	backends  *builtin.Backends
	refresher *core.Refresher
}

// newServices builds the cache store, backends and refresher from the
// loaded configuration.
func (a *app) newServices(ctx context.Context) (*services, error) {
	store := cache.New(a.cfg.CacheDir)

	backends, err := builtin.Load(ctx, builtin.Options{
		Store:         store,
		Backend:       a.cfg.Backend,
		PluginsDir:    a.cfg.PluginsDir,
		YtdlpPath:     a.cfg.YtdlpPath,
		FetchTimeout:  a.cfg.FetchTimeout,
		APIKey:        a.cfg.APIKey,
		CourtesyDelay: a.cfg.APICourtesyDelay,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, err
	}

	var prober core.RuntimeProber
	if a.cfg.ProbeRuntime {
		prober = ffprobe.New()
	}

	refresher, err := core.NewRefresher(core.RefresherConfig{
		Store:                store,
		Fetcher:              backends.Fetcher,
		Searcher:             backends.Searcher,
		Local:                local.New(a.logger),
		Prober:               prober,
		Logger:               a.logger,
		DisableLocalMetadata: a.cfg.DisableLocalMetadata,
		ProbeRuntime:         a.cfg.ProbeRuntime,
		FetchTimeout:         a.cfg.FetchTimeout,
	})
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"backend": backends.Fetcher.Name(),
		"cache":   store.Root(),
	}).Debug("refresh stack ready")

	return &services{store: store, backends: backends, refresher: refresher}, nil
}
