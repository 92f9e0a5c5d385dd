package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/transform"
)

const (
	panStep    = 40  // container pixels per arrow key
	zoomFactor = 1.25 // scale factor per +/- key
)

var (
	viewKeyStyle   = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	viewBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	viewHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	viewStatusLine = lipgloss.NewStyle().Foreground(colorAccent)
)

// viewOpts holds the command-line flags for the view command.
type viewOpts struct {
	output     string
	hide       []string
	highlights []string
	noCache    bool
}

// viewCommand creates the interactive viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view [url|file]",
		Short: "Pan, zoom and highlight an SVG interactively",
		Long: `View loads an SVG into a container of the configured size and lets you
drive it from the keyboard. Highlights given with --highlight are applied
one at a time with "h" and undone with "u".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reqs, err := parseHighlights(opts.highlights)
			if err != nil {
				return err
			}
			ld, ch, err := c.newLoader(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			hostOpts := c.Config.HostOptions(ld, loggerFromContext(ctx))
			hostOpts.Hide = opts.hide
			h := host.New(c.Config.Container("view"), args[0], hostOpts)

			spinner := newSpinner(ctx, "Loading "+h.Name()+"...")
			spinner.Start()
			err = h.Load(ctx)
			spinner.Stop()
			if err != nil {
				return err
			}

			m := newViewModel(h, reqs, opts.output)
			final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(viewModel); ok && fm.written != "" {
				printSuccess("Saved view")
				printFile(fm.written)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file written by the w key (default <name>.view.svg)")
	cmd.Flags().StringArrayVar(&opts.hide, "hide", nil, "hide elements matching a selector (repeatable)")
	cmd.Flags().StringArrayVar(&opts.highlights, "highlight", nil, "selector:category.name=value, applied in order by h (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the content cache")

	return cmd
}

// =============================================================================
// viewModel - Interactive host viewer
// =============================================================================

type frameMsg time.Time

// viewModel is the bubbletea model driving one host. Transitions advance on
// frame messages.
type viewModel struct {
	h          *host.Host
	highlights []host.Request
	applied    int // highlights pushed and not yet undone
	output     string
	written    string
	status     string
	frame      time.Duration
}

func newViewModel(h *host.Host, highlights []host.Request, output string) viewModel {
	if output == "" {
		output = strings.TrimSuffix(h.Name(), filepath.Ext(h.Name())) + ".view.svg"
	}
	return viewModel{
		h:          h,
		highlights: highlights,
		output:     output,
		frame:      16 * time.Millisecond,
	}
}

func (m viewModel) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m viewModel) Init() tea.Cmd {
	return m.tick()
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.h.Scheduler().Tick()
		return m, m.tick()
	case tea.KeyMsg:
		return m.key(msg.String())
	}
	return m, nil
}

func (m viewModel) key(k string) (tea.Model, tea.Cmd) {
	h := m.h
	opts := h.Options()
	center := h.Container().Size().Center()

	switch k {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left":
		h.Gestures().Pan(transform.Point{X: panStep})
	case "right":
		h.Gestures().Pan(transform.Point{X: -panStep})
	case "up":
		h.Gestures().Pan(transform.Point{Y: panStep})
	case "down":
		h.Gestures().Pan(transform.Point{Y: -panStep})
	case "+", "=":
		h.Gestures().ZoomBy(zoomFactor, center)
	case "-":
		h.Gestures().ZoomBy(1/zoomFactor, center)
	case "f":
		if _, err := h.Viewport().ZoomToFitSmooth(opts.ResetDuration); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "fit"
	case "r":
		h.Viewport().ResetZoom()
		m.status = "reset"
	case "[":
		cur := h.Viewport().Transform()
		anchor := cur.Invert(center)
		scale := h.Viewport().Extent().Clamp(cur.Scale * 2)
		h.Viewport().PushZoom(transform.Transform{
			Scale:     scale,
			Translate: center.Sub(anchor.Mul(scale)),
		}, opts.SmoothDuration)
		m.status = fmt.Sprintf("pushed zoom, depth %d", h.Viewport().Depth())
	case "]":
		h.Viewport().PopZoom(opts.SmoothDuration)
		m.status = fmt.Sprintf("popped zoom, depth %d", h.Viewport().Depth())
	case "h":
		if m.applied >= len(m.highlights) {
			m.status = "no more highlights"
			return m, nil
		}
		req := m.highlights[m.applied]
		report, err := h.Extend([]host.Request{req}, opts.UndoDuration)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.applied++
		m.status = "highlight " + formatHighlight(req)
		if len(report.Stale) > 0 {
			m.status += fmt.Sprintf(" (%d stale)", len(report.Stale))
		}
	case "u":
		if _, ok := h.Pop(opts.UndoDuration); !ok {
			m.status = "nothing to undo"
			return m, nil
		}
		if m.applied > 0 {
			m.applied--
		}
		m.status = "undone"
	case "w":
		h.Settle()
		if err := writeHostFile(h, m.output); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.written = m.output
		m.status = "wrote " + m.output
	}
	return m, nil
}

func (m viewModel) View() string {
	h := m.h
	vp := h.Viewport()
	bbox := h.BBox()

	var b strings.Builder
	b.WriteString(StyleTitle.Render(h.Name()))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Content", fmt.Sprintf("%s,%s %s×%s", num(bbox.X), num(bbox.Y), num(bbox.Width), num(bbox.Height))},
		{"Container", fmt.Sprintf("%s×%s", num(h.Container().Width), num(h.Container().Height))},
		{"Transform", vp.Transform().String()},
		{"Fit", vp.Default().String()},
		{"Depth", fmt.Sprint(vp.Depth())},
		{"Undo", fmt.Sprint(h.Undo().Len())},
		{"Hidden", strings.Join(h.Hidden(), " ")},
		{"Animating", fmt.Sprint(h.Scheduler().Active())},
	}
	var box strings.Builder
	for i, r := range rows {
		if i > 0 {
			box.WriteString("\n")
		}
		box.WriteString(viewKeyStyle.Render(r[0]) + " " + StyleValue.Render(r[1]))
	}
	b.WriteString(viewBoxStyle.Render(box.String()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(viewStatusLine.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(viewHelpStyle.Render("←↑↓→ pan  +/- zoom  f fit  r reset  [ push  ] pop  h highlight  u undo  w write  q quit"))
	b.WriteString("\n")
	return b.String()
}

// writeHostFile writes the container document of h to path.
func writeHostFile(h *host.Host, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := h.WriteSVG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
