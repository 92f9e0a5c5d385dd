package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/snapshot"
	"github.com/matzehuels/dynsvg/pkg/transform"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file path, "-" for stdout
	width      float64  // container width in pixels
	height     float64  // container height in pixels
	hide       []string // selectors hidden after load
	zoom       string   // transform pushed onto the navigation stack
	highlights []string // selector:category.name=value
	noCache    bool
}

// renderCommand creates the render command, which loads one SVG into a
// container and writes the resulting document.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [url|file]",
		Short: "Embed an SVG in a fitted viewport and write the result",
		Long: `Render loads an SVG, fits it into a container of the given size and writes
the container document. Zoom and highlight flags are applied in order and
all transitions are settled before writing.`,
		Example: `  dynsvg render diagram.svg -o out.svg
  dynsvg render https://example.com/map.svg --zoom "translate(-100,-50) scale(2)"
  dynsvg render chart.svg --highlight "#bar3:style.fill=red" --hide .legend`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("width") {
				opts.width = c.Config.Viewport.Width
			}
			if !cmd.Flags().Changed("height") {
				opts.height = c.Config.Viewport.Height
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ld, ch, err := c.newLoader(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer ch.Close()
			return c.runRender(ctx, ld, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <name>.view.svg, - for stdout)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "container width")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "container height")
	cmd.Flags().StringArrayVar(&opts.hide, "hide", nil, "hide elements matching a selector (repeatable)")
	cmd.Flags().StringVar(&opts.zoom, "zoom", "", "zoom transform, e.g. \"translate(10,20) scale(2)\"")
	cmd.Flags().StringArrayVar(&opts.highlights, "highlight", nil, "selector:category.name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the content cache")

	return cmd
}

// runRender loads src, applies opts and writes the container document to the
// output file, or to w when the output is "-".
func (c *CLI) runRender(ctx context.Context, ld loader.Loader, src string, opts renderOpts, w io.Writer) error {
	logger := loggerFromContext(ctx)

	reqs, err := parseHighlights(opts.highlights)
	if err != nil {
		return err
	}
	var zoom *transform.Transform
	if opts.zoom != "" {
		t, err := transform.Parse(opts.zoom)
		if err != nil {
			return err
		}
		zoom = &t
	}

	cfg := c.Config
	cfg.Viewport.Width, cfg.Viewport.Height = opts.width, opts.height
	hostOpts := cfg.HostOptions(ld, logger)
	hostOpts.Hide = opts.hide
	h := host.New(cfg.Container("render"), src, hostOpts)

	spinner := newSpinner(ctx, "Loading "+h.Name()+"...")
	spinner.Start()
	err = h.Load(ctx)
	spinner.Stop()
	if err != nil {
		return err
	}
	logger.Infof("Loaded %s into %s×%s", h.Name(), num(opts.width), num(opts.height))

	if zoom != nil {
		h.Viewport().PushZoom(*zoom, 0)
	}
	if len(reqs) > 0 {
		report, err := h.Extend(reqs, 0)
		if err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			logger.Warn("highlight incomplete", "err", err)
		}
	}
	h.Settle()

	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(h.Name(), filepath.Ext(h.Name())) + ".view.svg"
	}
	if out == "-" {
		_, err := h.WriteSVG(w)
		return err
	}

	if err := writeHostFile(h, out); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write %s", out)
	}

	printSuccess("Rendered %s", h.Name())
	printFile(out)
	printHostStats(h.BBox(), h.Viewport().Default(), h.Undo().Len())
	printNewline()
	printNextStep("Explore it interactively", "dynsvg view "+src)
	return nil
}

// parseHighlights turns selector:category.name=value flags into requests,
// merging flags that share a selector into one request.
func parseHighlights(flags []string) ([]host.Request, error) {
	var reqs []host.Request
	index := make(map[string]int)
	for _, f := range flags {
		sel, cat, name, value, err := parseHighlight(f)
		if err != nil {
			return nil, err
		}
		i, ok := index[sel]
		if !ok {
			i = len(reqs)
			index[sel] = i
			reqs = append(reqs, host.Request{Selector: sel, Values: snapshot.Values{}})
		}
		vals := reqs[i].Values
		if vals[cat] == nil {
			vals[cat] = make(map[string]string)
		}
		vals[cat][name] = value
	}
	return reqs, nil
}

// parseHighlight splits one highlight flag. The selector may itself contain
// colons, so the split happens at the last colon followed by a known
// category.
func parseHighlight(s string) (sel string, cat snapshot.Category, name, value string, err error) {
	bad := func() error {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid highlight %q (want selector:category.name=value)", s)
	}
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ':' {
			continue
		}
		rest := s[i+1:]
		catStr, nv, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		c, perr := snapshot.ParseCategory(catStr)
		if perr != nil {
			continue
		}
		n, v, ok := strings.Cut(nv, "=")
		if !ok || n == "" {
			return "", "", "", "", bad()
		}
		return s[:i], c, n, v, nil
	}
	return "", "", "", "", bad()
}

// formatHighlight is the inverse of parseHighlight, used in status lines.
func formatHighlight(r host.Request) string {
	var parts []string
	for _, cat := range snapshot.Categories {
		names := snapshot.Names(r.Values)[cat]
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s.%s=%s", cat, n, r.Values[cat][n]))
		}
	}
	return r.Selector + ":" + strings.Join(parts, ",")
}
