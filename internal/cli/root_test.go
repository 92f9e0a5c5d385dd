package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestCLI() *CLI {
	return New(io.Discard, log.InfoLevel)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := newTestCLI().RootCommand()

	want := []string{"render", "attach", "view", "serve", "config", "cache", "completion"}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%q) error: %v", name, err)
			}
			if cmd.Name() != name {
				t.Errorf("Find(%q) = %q", name, cmd.Name())
			}
		})
	}
}

func TestRootCommandLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[viewport]\nwidth = 1024\nheight = 768\n\n[server]\naddr = \":9090\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCLI()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "config", "show"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if c.Config.Viewport.Width != 1024 || c.Config.Viewport.Height != 768 {
		t.Errorf("viewport = %vx%v, want 1024x768", c.Config.Viewport.Width, c.Config.Viewport.Height)
	}
	if !strings.Contains(out.String(), ":9090") {
		t.Errorf("config show output missing addr:\n%s", out.String())
	}
}

func TestRootCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[viewport]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newTestCLI().RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", path, "config", "show"})
	if err := root.Execute(); err == nil {
		t.Error("Execute() with unknown config key should fail")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig() error: %v", err)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("second writeDefaultConfig() without force should fail")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("writeDefaultConfig(force) error: %v", err)
	}

	if err := writeDefaultConfig(filepath.Join(t.TempDir(), "config.json"), false); err == nil {
		t.Error("writeDefaultConfig() with unknown extension should fail")
	}
}

func TestAPIURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/api/v1/hosts"},
		{"0.0.0.0:9000", "http://localhost:9000/api/v1/hosts"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/api/v1/hosts"},
		{"[::1]:8080", "http://[::1]:8080/api/v1/hosts"},
	}
	for _, tt := range tests {
		if got := apiURL(tt.addr); got != tt.want {
			t.Errorf("apiURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			root := newTestCLI().RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s error: %v", shell, err)
			}
			if !strings.Contains(out.String(), appName) {
				t.Errorf("completion %s output does not mention %s", shell, appName)
			}
		})
	}
}

func TestVerboseFlag(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for _, verbose := range []bool{false, true} {
		c := newTestCLI()
		root := c.RootCommand()
		root.SetOut(io.Discard)
		args := []string{"config", "path"}
		if verbose {
			args = append(args, "-v")
		}
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			t.Fatalf("Execute(%v) error: %v", args, err)
		}
		want := log.InfoLevel
		if verbose {
			want = log.DebugLevel
		}
		if got := c.Logger.GetLevel(); got != want {
			t.Errorf("verbose=%v: level = %v, want %v", verbose, got, want)
		}
	}
}
