// Package cli implements the dynsvg command-line interface.
//
// The commands load SVG documents into image hosts and drive them: render
// writes a fitted, optionally highlighted document; attach loads every
// marked element of an HTML page; view opens an interactive terminal viewer;
// serve exposes the hosts over HTTP. The CLI is built using cobra and logs
// through charmbracelet/log.
//
// # Commands
//
//   - render: Load one SVG, fit it and write the container document
//   - attach: Scan an HTML page for dynamic-svg elements and load them all
//   - view: Pan, zoom and highlight an SVG from the terminal
//   - serve: Serve hosts over a JSON HTTP API
//   - config: Print the effective configuration
//   - cache: Inspect and clear the fetched-content cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so that long-running loads can report
// progress.
//
// # Example
//
//	import "github.com/matzehuels/dynsvg/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, log.InfoLevel)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// logTimeFormat is centisecond wall-clock time, e.g. "14:32:01.45".
const logTimeFormat = "15:04:05.00"

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// progress logs the wall time of one operation. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs the formatted message followed by the elapsed time, rounded to
// the millisecond: "Loaded 3 images (1.234s)".
func (p *progress) done(format string, args ...any) {
	p.logger.Info(fmt.Sprintf(format, args...) + " (" + time.Since(p.start).Round(time.Millisecond).String() + ")")
}

type loggerKey struct{}

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() for contexts built outside the root command (tests, mostly).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
