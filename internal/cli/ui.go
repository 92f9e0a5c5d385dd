package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dynsvg/pkg/transform"
)

// stdout receives all human-facing output. Logs go to the logger's writer.
var stdout io.Writer = os.Stdout

var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorLink   = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleLink      = lipgloss.NewStyle().Foreground(colorLink).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)

	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleLabel   = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand = lipgloss.NewStyle().Foreground(colorLink)
)

// mark is the leading glyph of a status line.
type mark struct {
	glyph string
	style lipgloss.Style
	// body styles the message; the zero style leaves it plain.
	body lipgloss.Style
}

var (
	markOK   = mark{"✓", lipgloss.NewStyle().Foreground(colorOK), lipgloss.NewStyle()}
	markWarn = mark{"!", lipgloss.NewStyle().Foreground(colorWarn), lipgloss.NewStyle().Foreground(colorWarn)}
	markInfo = mark{"›", lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()}
)

func (m mark) print(format string, args ...any) {
	fmt.Fprintln(stdout, m.style.Render(m.glyph)+" "+m.body.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { markOK.print(format, args...) }
func printWarning(format string, args ...any) { markWarn.print(format, args...) }
func printInfo(format string, args ...any)    { markInfo.print(format, args...) }

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleLabel.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

// printHostStats prints content size, fit transform and highlight count as
// one dotted line.
func printHostStats(bbox transform.Rect, fit transform.Transform, highlights int) {
	parts := []string{size(bbox), "fit " + fit.String()}
	if highlights > 0 {
		parts = append(parts, fmt.Sprintf("%d highlight", highlights))
	}
	fmt.Fprintln(stdout, "  "+StyleDim.Render(strings.Join(parts, " · ")))
}

// hostRow is one line of the host table. A non-nil Err marks a host that
// did not load.
type hostRow struct {
	ID     string
	Name   string
	BBox   transform.Rect
	Fit    transform.Transform
	Hidden int
	Err    error
}

func (r hostRow) cells() []string {
	if r.Err != nil {
		return []string{markFail, r.ID, r.Name, "—", "—", "—"}
	}
	bbox := num(r.BBox.X) + "," + num(r.BBox.Y) + " " + size(r.BBox)
	return []string{markOK.glyph, r.ID, r.Name, bbox, r.Fit.String(), strconv.Itoa(r.Hidden)}
}

const markFail = "✗"

// hostTable renders rows as a bordered table. Failed hosts are red.
func hostTable(rows []hostRow) string {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.cells()
	}
	header := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "ID", "Name", "BBox", "Fit", "Hidden").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return header
			case row < 0 || row >= len(rows):
				return lipgloss.NewStyle()
			case rows[row].Err != nil:
				return lipgloss.NewStyle().Foreground(colorFail)
			case col == 0:
				return markOK.style
			}
			return StyleValue
		}).
		Render()
}

func size(r transform.Rect) string { return num(r.Width) + "×" + num(r.Height) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
