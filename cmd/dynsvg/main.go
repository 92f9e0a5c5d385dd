// Command dynsvg embeds SVG images in zoomable viewports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dynsvg/internal/cli"
	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

// Exit statuses.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.New(os.Stderr, log.InfoLevel).RootCommand()
	root.SetArgs(args)
	return exitStatus(os.Stderr, root.ExecuteContext(ctx))
}

// exitStatus reports err on w and maps it to a process exit status.
func exitStatus(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	fmt.Fprintln(w, "Error:", apperrors.UserMessage(err))
	if strings.HasPrefix(string(apperrors.GetCode(err)), "INVALID") {
		return exitUsage
	}
	return exitError
}
