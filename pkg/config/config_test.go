package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/dynsvg/pkg/cache"
	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/session"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Viewport.ZoomDuration.D() != 750*time.Millisecond {
		t.Errorf("zoom duration = %v", cfg.Viewport.ZoomDuration.D())
	}
	if e := cfg.Viewport.Extent(); e.Min != 0.1 || e.Max != 8 {
		t.Errorf("extent = %+v", e)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"TOML", "dynsvg.toml", `
[viewport]
width = 400
height = 300
max_scale = 4.0
zoom_duration = "1s"

[undo]
duration = "250ms"

[store]
backend = "sqlite"
sqlite_path = "/tmp/s.db"
ttl = "1h"
`},
		{"YAML", "dynsvg.yaml", `
viewport:
  width: 400
  height: 300
  max_scale: 4
  zoom_duration: 1s
undo:
  duration: 250ms
store:
  backend: sqlite
  sqlite_path: /tmp/s.db
  ttl: 1h
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(write(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Viewport.Width != 400 || cfg.Viewport.Height != 300 || cfg.Viewport.MaxScale != 4 {
				t.Errorf("viewport = %+v", cfg.Viewport)
			}
			if cfg.Viewport.MinScale != 0.1 {
				t.Errorf("min_scale = %v, want default 0.1", cfg.Viewport.MinScale)
			}
			if cfg.Viewport.ZoomDuration.D() != time.Second || cfg.Undo.Duration.D() != 250*time.Millisecond {
				t.Errorf("durations = %v, %v", cfg.Viewport.ZoomDuration.D(), cfg.Undo.Duration.D())
			}
			if cfg.Store.Backend != session.BackendSQLite || cfg.Store.SQLitePath != "/tmp/s.db" || cfg.Store.TTL.D() != time.Hour {
				t.Errorf("store = %+v", cfg.Store)
			}
			if cfg.Server.Addr != ":8080" {
				t.Errorf("server addr = %q, want default", cfg.Server.Addr)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		code apperrors.Code
	}{
		{"UnknownKeyTOML", "c.toml", "[viewport]\nwidht = 3\n", apperrors.ErrCodeInvalidConfig},
		{"UnknownKeyYAML", "c.yaml", "viewport:\n  widht: 3\n", apperrors.ErrCodeInvalidConfig},
		{"BadDuration", "c.toml", "[undo]\nduration = \"soon\"\n", apperrors.ErrCodeInvalidConfig},
		{"BadExtent", "c.toml", "[viewport]\nmin_scale = 5.0\nmax_scale = 2.0\n", apperrors.ErrCodeInvalidConfig},
		{"BadBackend", "c.yml", "store:\n  backend: etcd\n", apperrors.ErrCodeInvalidConfig},
		{"BadCache", "c.toml", "[loader]\ncache = \"s3\"\n", apperrors.ErrCodeInvalidConfig},
		{"BadExtension", "c.json", "{}", apperrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.body))
			if !apperrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
			t.Errorf("err = %v, want FILE_NOT_FOUND", err)
		}
	})
}

func TestLoadDefaultMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Viewport != Default().Viewport {
		t.Errorf("viewport = %+v, want defaults", cfg.Viewport)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, format := range []string{FormatTOML, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			want := Default()
			want.Viewport.Width = 123
			want.Store.RedisAddr = "cache:6379"

			var buf bytes.Buffer
			if err := want.Encode(&buf, format); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !strings.Contains(buf.String(), "zoom_duration") {
				t.Errorf("encoded config lacks zoom_duration:\n%s", buf.String())
			}
			got, err := Load(write(t, "c."+format, buf.String()))
			if err != nil {
				t.Fatalf("Load: %v\n%s", err, buf.String())
			}
			if got != want {
				t.Errorf("round trip = %+v, want %+v", got, want)
			}
		})
	}
}

func TestOpenCache(t *testing.T) {
	cfg := Default()
	cfg.Loader.Cache = CacheNone
	c, err := cfg.OpenCache(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("cache = %T, want NullCache", c)
	}

	cfg.Loader.Cache = CacheFile
	cfg.Loader.CacheDir = t.TempDir()
	c, err = cfg.OpenCache(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := c.(*cache.FileCache); !ok || fc.Dir() != cfg.Loader.CacheDir {
		t.Errorf("cache = %T", c)
	}
}

func TestHostOptions(t *testing.T) {
	cfg := Default()
	cfg.Viewport.ResetDuration = Duration(time.Second)
	opts := cfg.HostOptions(nil, nil)
	if opts.ResetDuration != time.Second || opts.Extent != cfg.Viewport.Extent() {
		t.Errorf("opts = %+v", opts)
	}
	if c := cfg.Container("a"); c.ID != "a" || c.Width != 800 || c.Height != 600 {
		t.Errorf("container = %+v", c)
	}
}
