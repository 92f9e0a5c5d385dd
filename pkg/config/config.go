// Package config loads dynsvg settings from TOML or YAML files.
//
// The file format is chosen by extension: ".toml" is decoded with
// BurntSushi/toml, ".yaml" and ".yml" with yaml.v3. Values missing from the
// file keep their [Default]. Unknown keys are rejected so that typos do not
// silently fall back to defaults.
//
//	cfg, err := config.Load("dynsvg.toml")
//	if err != nil {
//	    return err
//	}
//	opts := cfg.HostOptions(ld, logger)
package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/dynsvg/pkg/cache"
	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/httputil"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/session"
	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/undo"
	"github.com/matzehuels/dynsvg/pkg/viewport"
)

// Supported file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Content cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Duration is a time.Duration that reads and writes Go duration strings
// such as "750ms" or "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "invalid duration %q", text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config is the complete dynsvg configuration.
type Config struct {
	Viewport ViewportConfig `toml:"viewport" yaml:"viewport"`
	Undo     UndoConfig     `toml:"undo" yaml:"undo"`
	Loader   LoaderConfig   `toml:"loader" yaml:"loader"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Store    StoreConfig    `toml:"store" yaml:"store"`
}

// ViewportConfig sizes containers and bounds zooming.
type ViewportConfig struct {
	Width         float64  `toml:"width" yaml:"width"`
	Height        float64  `toml:"height" yaml:"height"`
	MinScale      float64  `toml:"min_scale" yaml:"min_scale"`
	MaxScale      float64  `toml:"max_scale" yaml:"max_scale"`
	ZoomDuration  Duration `toml:"zoom_duration" yaml:"zoom_duration"`
	ResetDuration Duration `toml:"reset_duration" yaml:"reset_duration"`
}

// Extent returns the configured scale range.
func (v ViewportConfig) Extent() transform.Extent {
	return transform.Extent{Min: v.MinScale, Max: v.MaxScale}
}

// UndoConfig controls highlight transitions.
type UndoConfig struct {
	Duration Duration `toml:"duration" yaml:"duration"`
}

// LoaderConfig controls content fetching.
type LoaderConfig struct {
	// Cache is one of "file", "redis" or "none".
	Cache     string   `toml:"cache" yaml:"cache"`
	CacheDir  string   `toml:"cache_dir" yaml:"cache_dir"`
	RedisAddr string   `toml:"redis_addr" yaml:"redis_addr"`
	TTL       Duration `toml:"ttl" yaml:"ttl"`
	Timeout   Duration `toml:"timeout" yaml:"timeout"`
	Attempts  int      `toml:"attempts" yaml:"attempts"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	// Tick is the transition frame interval.
	Tick        Duration `toml:"tick" yaml:"tick"`
	Concurrency int      `toml:"concurrency" yaml:"concurrency"`
}

// StoreConfig selects the session backend.
type StoreConfig struct {
	session.Config `yaml:",inline"`
	TTL            Duration `toml:"ttl" yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Viewport: ViewportConfig{
			Width:         800,
			Height:        600,
			MinScale:      transform.DefaultExtent.Min,
			MaxScale:      transform.DefaultExtent.Max,
			ZoomDuration:  Duration(viewport.DefaultSmoothDuration),
			ResetDuration: Duration(host.DefaultResetDuration),
		},
		Undo: UndoConfig{Duration: Duration(undo.DefaultDuration)},
		Loader: LoaderConfig{
			Cache:    CacheFile,
			TTL:      Duration(loader.DefaultTTL),
			Timeout:  Duration(30 * time.Second),
			Attempts: 3,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			Tick:        Duration(16 * time.Millisecond),
			Concurrency: 4,
		},
		Store: StoreConfig{
			Config: session.Config{Backend: session.BackendFile},
			TTL:    Duration(session.DefaultTTL),
		},
	}
}

// Format returns the file format implied by path's extension.
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidConfig, "unsupported config format: %s", path)
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	format, err := Format(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "config file not found: %s", path)
		}
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := cfg.decode(data, format); err != nil {
		return Default(), apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// LoadDefault loads path, or the file at DefaultPath when path is empty.
// A missing default file yields Default.
func LoadDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	p, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(p)
	if apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// DefaultPath returns $XDG_CONFIG_HOME/dynsvg/config.toml, falling back to
// ~/.config/dynsvg/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "dynsvg", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dynsvg", "config.toml"), nil
}

func (c *Config) decode(data []byte, format string) error {
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown key %q", keys[0].String())
		}
		return nil
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return apperrors.New(apperrors.ErrCodeInvalidConfig, "unsupported format %q", format)
}

// Encode writes c to w in the given format.
func (c Config) Encode(w io.Writer, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	return apperrors.New(apperrors.ErrCodeInvalidConfig, "unsupported format %q", format)
}

var backends = []string{
	"", session.BackendMemory, session.BackendFile, session.BackendSQLite,
	session.BackendRedis, session.BackendMongo,
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	v := c.Viewport
	if v.Width <= 0 || v.Height <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "viewport size must be positive, got %vx%v", v.Width, v.Height)
	}
	if !v.Extent().Valid() {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "invalid scale range [%v, %v]", v.MinScale, v.MaxScale)
	}
	for name, d := range map[string]Duration{
		"viewport.zoom_duration":  v.ZoomDuration,
		"viewport.reset_duration": v.ResetDuration,
		"undo.duration":           c.Undo.Duration,
		"loader.ttl":              c.Loader.TTL,
		"loader.timeout":          c.Loader.Timeout,
		"store.ttl":               c.Store.TTL,
	} {
		if d < 0 {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "%s must not be negative", name)
		}
	}
	switch c.Loader.Cache {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown loader cache %q", c.Loader.Cache)
	}
	if c.Loader.Attempts < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "loader.attempts must be at least 1")
	}
	if c.Server.Tick <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "server.tick must be positive")
	}
	if c.Server.Concurrency < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "server.concurrency must be at least 1")
	}
	if !slices.Contains(backends, c.Store.Backend) {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown session backend %q", c.Store.Backend)
	}
	return nil
}

// Container returns a container of the configured size.
func (c Config) Container(id string) host.Container {
	return host.Container{ID: id, Width: c.Viewport.Width, Height: c.Viewport.Height}
}

// HostOptions returns host options carrying the configured extent and
// durations.
func (c Config) HostOptions(ld loader.Loader, logger *log.Logger) host.Options {
	return host.Options{
		Loader:         ld,
		Extent:         c.Viewport.Extent(),
		SmoothDuration: c.Viewport.ZoomDuration.D(),
		ResetDuration:  c.Viewport.ResetDuration.D(),
		UndoDuration:   c.Undo.Duration.D(),
		Logger:         logger,
	}
}

// OpenCache opens the configured content cache. The "redis" cache dials
// Loader.RedisAddr, or localhost:6379 when it is empty.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Loader.Cache {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheRedis:
		addr := c.Loader.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		rc, err := cache.DialRedis(ctx, addr, "", 0)
		if err != nil {
			return nil, err
		}
		// The Redis instance may be shared with other applications.
		return cache.NewScoped(rc, "dynsvg:"), nil
	default:
		return cache.NewFileCache(c.Loader.CacheDir)
	}
}

// NewLoader builds a loader over the configured cache and HTTP client. The
// caller closes the returned cache.
func (c Config) NewLoader(ctx context.Context, logger *log.Logger) (*loader.Fetcher, cache.Cache, error) {
	ch, err := c.OpenCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	client := httputil.NewClient(c.Loader.Timeout.D())
	client.Attempts = c.Loader.Attempts
	return loader.New(loader.Options{
		Cache:  ch,
		TTL:    c.Loader.TTL.D(),
		HTTP:   client,
		Logger: logger,
	}), ch, nil
}
