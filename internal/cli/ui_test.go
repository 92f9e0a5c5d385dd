package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/dynsvg/pkg/transform"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPrintHostStats(t *testing.T) {
	buf := captureStdout(t)
	fit := transform.Transform{Scale: 2, Translate: transform.Point{Y: 50}}
	printHostStats(transform.Rect{Width: 200, Height: 100}, fit, 3)

	out := buf.String()
	for _, want := range []string{"200×100", "fit " + fit.String(), "3 highlight"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestHostTable(t *testing.T) {
	rows := []hostRow{
		{ID: "fig", Name: "fig.svg", BBox: transform.Rect{X: 1, Y: 2, Width: 30, Height: 40}, Fit: transform.Identity, Hidden: 2},
		{ID: "map", Name: "map.svg", Err: errors.New("not loaded")},
	}
	out := hostTable(rows)
	for _, want := range []string{"ID", "fig.svg", "1,2 30×40", "map.svg", "✗"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestStatusLines(t *testing.T) {
	buf := captureStdout(t)
	printSuccess("Rendered %s", "fig")
	printWarning("No dynamic-svg elements found")
	printFile("fig.view.svg")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "✓") || !strings.Contains(lines[0], "Rendered fig") {
		t.Errorf("success line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "fig.view.svg") {
		t.Errorf("file line = %q", lines[2])
	}
}
