// Package cli implements the intervis command-line interface.
package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/intervis/pkg/artifact"
	"github.com/matzehuels/intervis/pkg/buildinfo"
	"github.com/matzehuels/intervis/pkg/cache"
	"github.com/matzehuels/intervis/pkg/config"
	"github.com/matzehuels/intervis/pkg/engine"
	"github.com/matzehuels/intervis/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "intervis"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Intervis computes inter-island visibility networks",
		Long: `Intervis decodes batched multi-observer viewshed rasters into per-observer
viewsheds and folds island intersection tables into a weighted directed
visibility network.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.viewshedsCommand())
	root.AddCommand(c.networkCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig reads the workspace configuration.
func loadConfig(workspace string) (config.Config, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(abs)
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func newArtifacts(ctx context.Context, cfg config.Config) (artifact.Store, error) {
	if cfg.Artifacts.Driver == config.ArtifactsS3 {
		return artifact.NewS3(ctx, cfg.Artifacts.S3)
	}
	return artifact.NewFS(cfg.Artifacts.Dir)
}

// newCache returns the configured cache. A file cache that cannot be
// created degrades to no caching.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Driver {
	case config.CacheNull:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.Redis)
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// newKeyer scopes cache keys to the workspace so several workspaces can
// share a cache.
func newKeyer(cfg config.Config) cache.Keyer {
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), "ws:"+cache.Hash([]byte(cfg.Workspace))[:12]+":")
}

func (c *CLI) newEngine(cfg config.Config) engine.Engine {
	if cfg.Engine.Driver == config.EngineCommand {
		return engine.NewCommand(cfg.Engine.Path, cfg.Engine.Args, cfg.Engine.Timeout, c.Logger)
	}
	return engine.Horizon{CellSize: cfg.Engine.CellSize, MaxCells: engine.DefaultMaxCells}
}
