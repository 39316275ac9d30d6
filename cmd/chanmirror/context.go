package main

import (
	"log/slog"
	"strings"
	"sync"

	"chanmirror/internal/blobcache"
	"chanmirror/internal/config"
	"chanmirror/internal/filters"
	"chanmirror/internal/fourchan"
	"chanmirror/internal/history"
	"chanmirror/internal/logging"
	"chanmirror/internal/metastore"
	"chanmirror/internal/mirror"
	"chanmirror/internal/settings"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger builds a quiet console logger for one-shot commands. The daemon
// builds its own from config instead.
func cliLogger() *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// buildService assembles the mirror service for direct use by a command.
// The returned closer releases the metadata store.
func (c *commandContext) buildService(logger *slog.Logger) (*mirror.Service, func() error, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := fourchan.New(cfg.Remote, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := metastore.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := blobcache.New(cfg, client, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc := mirror.New(cfg, client, store, blobs,
		filters.NewManager(cfg.FiltersPath(), logger),
		history.NewManager(cfg.HistoryPath(), cfg.History.MaxEntries, logger),
		settings.NewManager(cfg.SettingsPath(), logger),
		logger)
	return svc, store.Close, nil
}

// withService runs fn against an assembled service, closing it afterwards.
func (c *commandContext) withService(fn func(*mirror.Service) error) error {
	svc, closer, err := c.buildService(cliLogger())
	if err != nil {
		return err
	}
	defer func() {
		svc.Flush()
		_ = closer()
	}()
	return fn(svc)
}
