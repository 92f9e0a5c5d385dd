// Package cli implements the dynsvg command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dynsvg/pkg/buildinfo"
	"github.com/matzehuels/dynsvg/pkg/cache"
	"github.com/matzehuels/dynsvg/pkg/config"
	"github.com/matzehuels/dynsvg/pkg/loader"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "dynsvg"

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; Config is loaded from it before any
	// subcommand runs.
	configPath string
	verbose    bool
	Config     config.Config
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "dynsvg embeds SVG images in zoomable, highlightable viewports",
		Long:          `dynsvg loads SVG documents into pan-and-zoom containers. It fits content to the viewport, keeps a navigation stack of zoom levels, applies undoable highlights and serves the result to the terminal, to files or over HTTP.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cfg, err := config.LoadDefault(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.toml or .yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.attachCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Loader Factory
// =============================================================================

// newLoader creates a content loader for CLI use. The returned cache must be
// closed by the caller.
func (c *CLI) newLoader(ctx context.Context, noCache bool) (*loader.Fetcher, cache.Cache, error) {
	cfg := c.Config
	if noCache {
		cfg.Loader.Cache = config.CacheNone
	}
	if cfg.Loader.Cache == config.CacheFile && cfg.Loader.CacheDir == "" {
		if dir, err := cache.DefaultDir(); err == nil {
			cfg.Loader.CacheDir = dir
		}
	}
	return cfg.NewLoader(ctx, c.Logger)
}
