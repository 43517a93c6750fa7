package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cd2md/internal/cddb"
	"cd2md/internal/config"
	"cd2md/internal/history"
	"cd2md/internal/logging"
	"cd2md/internal/netmd"
	"cd2md/internal/subprocess"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
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
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the application logger once. It falls back to a
// no-op logger when the log file cannot be opened.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) netmdClient(cfg *config.Config) (*netmd.Client, error) {
	logger := c.ensureLogger()
	return netmd.New(cfg.Tools.TransferBinary,
		netmd.WithRunner(subprocess.NewExec(logger)),
		netmd.WithVerbose(cfg.Tools.Verbose),
		netmd.WithLogger(logger),
	)
}

func (c *commandContext) titleCache(cfg *config.Config) *cddb.Cache {
	if !cfg.Lookup.CacheEnabled {
		return nil
	}
	return cddb.NewCache(cfg.Paths.TitleCache, c.ensureLogger())
}

func (c *commandContext) resolver(cfg *config.Config, chooser cddb.Chooser) (*cddb.Resolver, error) {
	client, err := cddb.New(cfg.Lookup.BaseURL, cfg.Lookup.Hello, cddb.WithTimeout(cfg.LookupTimeout()))
	if err != nil {
		return nil, err
	}
	opts := []cddb.ResolverOption{
		cddb.WithChooser(chooser),
		cddb.WithLogger(c.ensureLogger()),
	}
	if cache := c.titleCache(cfg); cache != nil {
		opts = append(opts, cddb.WithCache(cache))
	}
	return cddb.NewResolver(client, opts...), nil
}

func (c *commandContext) openHistory(cfg *config.Config) (*history.Store, error) {
	return history.Open(cfg.Paths.HistoryDB)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
