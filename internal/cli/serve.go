package cli

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/observability"
	"github.com/matzehuels/dynsvg/pkg/registry"
	"github.com/matzehuels/dynsvg/pkg/server"
	"github.com/matzehuels/dynsvg/pkg/session"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	page    string // optional HTML page whose markers are hosted at startup
	base    string
	noCache bool
}

// serveCommand creates the serve command, which exposes hosts over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve image hosts over a JSON HTTP API",
		Long: `Serve starts the host API. Hosts come from --page, an HTML page with
dynamic-svg markers, or are created with POST /api/v1/hosts. Viewport and
visibility state is stored in the configured session backend and restored
on the next start.`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("addr") {
				opts.addr = c.Config.Server.Addr
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.page, "page", "", "HTML page whose dynamic-svg elements are hosted")
	cmd.Flags().StringVar(&opts.base, "base", "", "base URL or path for relative data-url values")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the content cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg := c.Config

	metrics := observability.NewCounters()
	observability.Register(metrics.Hooks())
	defer observability.Reset()

	sessions, err := session.Open(ctx, cfg.Store.Config)
	if err != nil {
		return err
	}
	defer sessions.Close()
	if err := sessions.Cleanup(ctx); err != nil {
		logger.Warn("session cleanup failed", "err", err)
	}

	ld, ch, err := c.newLoader(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()
	hostOpts := cfg.HostOptions(ld, logger)

	reg := registry.New(logger)
	if opts.page != "" {
		f, err := os.Open(opts.page)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "open %s", opts.page)
		}
		base := opts.base
		if base == "" {
			base = opts.page
		}
		reg, err = c.runAttach(ctx, ld, f, attachOpts{base: base, concurrency: cfg.Server.Concurrency})
		f.Close()
		if reg == nil {
			return err
		}
		if err != nil {
			logger.Warn("some hosts failed to load", "err", err)
		}
	}

	srv := server.New(server.Options{
		Registry:    reg,
		Sessions:    sessions,
		SessionTTL:  cfg.Store.TTL.D(),
		HostOptions: hostOpts,
		Container:   cfg.Container(""),
		Tick:        cfg.Server.Tick.D(),
		Logger:      logger,
		Metrics:     metrics,
	})
	if err := srv.Restore(ctx); err != nil {
		logger.Warn("some sessions could not be restored", "err", err)
	}

	printSuccess("Serving %d hosts on %s", reg.Len(), StyleHighlight.Render(opts.addr))
	printDetail("Sessions: %s", cfg.Store.Backend)
	printDetail("API: %s", StyleLink.Render(apiURL(opts.addr)))
	err = srv.Serve(ctx, opts.addr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// apiURL returns the host list URL for a listen address.
func apiURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/api/v1/hosts"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/v1/hosts"
}
