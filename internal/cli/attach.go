package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/registry"
)

// attachOpts holds the command-line flags for the attach command.
type attachOpts struct {
	base        string // base for relative data-url values, default the page path
	outDir      string // write one <id>.svg per loaded host when set
	concurrency int
	noCache     bool
}

// attachCommand creates the attach command, which hosts every marked element
// of an HTML page.
func (c *CLI) attachCommand() *cobra.Command {
	var opts attachOpts

	cmd := &cobra.Command{
		Use:   "attach [page.html]",
		Short: "Load every marked SVG container of an HTML page",
		Long: `Attach scans an HTML page for elements with class "dynamic-svg" and a
data-url attribute, loads each referenced SVG into a container of the
element's size and prints a summary. With --out the fitted container
documents are written as <id>.svg.`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("concurrency") {
				opts.concurrency = c.Config.Server.Concurrency
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ld, ch, err := c.newLoader(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "open %s", args[0])
			}
			defer f.Close()

			if opts.base == "" {
				opts.base = args[0]
			}
			reg, err := c.runAttach(ctx, ld, f, opts)
			if reg != nil && reg.Len() > 0 {
				printNewline()
				fmt.Fprintln(stdout, hostTable(hostRows(reg)))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.base, "base", "", "base URL or path for relative data-url values")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "directory for the fitted container documents")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", registry.DefaultConcurrency, "parallel loads")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the content cache")

	return cmd
}

// runAttach registers and loads the hosts of page. The registry is returned
// even when some loads fail.
func (c *CLI) runAttach(ctx context.Context, ld loader.Loader, page io.Reader, opts attachOpts) (*registry.Registry, error) {
	logger := loggerFromContext(ctx)

	reg := registry.New(logger)
	hosts, err := reg.Attach(page, opts.base, c.Config.HostOptions(ld, logger))
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		printWarning("No dynamic-svg elements found")
		return reg, nil
	}

	prog := newProgress(logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Loading %d images...", len(hosts)))
	spinner.Start()
	loadErr := reg.LoadAll(ctx, opts.concurrency)
	spinner.Stop()
	if spinner.Cancelled() {
		return reg, ctx.Err()
	}
	prog.done("Loaded %d images", len(hosts))

	if opts.outDir != "" {
		if err := writeHosts(reg, opts.outDir); err != nil {
			return reg, err
		}
		logger.Infof("Wrote container documents to %s", opts.outDir)
	}
	return reg, loadErr
}

// writeHosts writes every loaded host of reg to dir/<id>.svg.
func writeHosts(reg *registry.Registry, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "create %s", dir)
	}
	for _, h := range reg.Hosts() {
		err := h.Do(func(h *host.Host) error {
			if !h.Loaded() {
				return nil
			}
			h.Settle()
			return writeHostFile(h, filepath.Join(dir, h.ID()+".svg"))
		})
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write host %s", h.ID())
		}
	}
	return nil
}

// hostRows summarizes every host of reg for hostTable.
func hostRows(reg *registry.Registry) []hostRow {
	hosts := reg.Hosts()
	rows := make([]hostRow, 0, len(hosts))
	for _, h := range hosts {
		_ = h.Do(func(h *host.Host) error {
			row := hostRow{ID: h.ID(), Name: h.Name()}
			if h.Loaded() {
				row.BBox = h.BBox()
				row.Fit = h.Viewport().Default()
				row.Hidden = len(h.Hidden())
			} else {
				row.Err = apperrors.New(apperrors.ErrCodeNotLoaded, "%s not loaded", h.URL())
			}
			rows = append(rows, row)
			return nil
		})
	}
	return rows
}
