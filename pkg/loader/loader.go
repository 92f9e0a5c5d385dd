// Package loader fetches SVG documents for image hosts.
//
// A [Fetcher] reads local paths and file:// URLs from disk and fetches
// http(s) URLs with retries, caching remote documents for a configurable
// time-to-live. Documents are parsed with [scene.Parse] and must have an
// <svg> root element.
package loader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dynsvg/pkg/cache"
	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/httputil"
	"github.com/matzehuels/dynsvg/pkg/observability"
	"github.com/matzehuels/dynsvg/pkg/scene"
)

// DefaultTTL is how long remote documents stay cached.
const DefaultTTL = 24 * time.Hour

// Loader produces the document behind a URL.
type Loader interface {
	Load(ctx context.Context, url string) (*scene.Document, error)
}

// Func adapts a function to the Loader interface.
type Func func(ctx context.Context, url string) (*scene.Document, error)

// Load calls f.
func (f Func) Load(ctx context.Context, url string) (*scene.Document, error) { return f(ctx, url) }

// Options configures a Fetcher.
type Options struct {
	// Cache stores remote documents. Nil disables caching.
	Cache cache.Cache
	// TTL of cached documents. Zero means DefaultTTL.
	TTL time.Duration
	// HTTP fetches remote documents. Nil uses a client with a 30s timeout.
	HTTP *httputil.Client
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// Fetcher is the standard Loader.
type Fetcher struct {
	cache  cache.Cache
	ttl    time.Duration
	http   *httputil.Client
	logger *log.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HTTP == nil {
		opts.HTTP = httputil.NewClient(30 * time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Fetcher{cache: opts.Cache, ttl: opts.TTL, http: opts.HTTP, logger: opts.Logger}
}

// Load fetches and parses the document at rawURL.
func (f *Fetcher) Load(ctx context.Context, rawURL string) (*scene.Document, error) {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses data and checks that its root element is <svg>.
func Parse(data []byte) (*scene.Document, error) {
	doc, err := scene.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if tag := doc.Tag(doc.Root()); tag != "svg" && !strings.HasSuffix(tag, ":svg") {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSVG, "root element is <%s>, want <svg>", tag)
	}
	return doc, nil
}

// Fetch returns the raw bytes at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := apperrors.ValidateContentURL(rawURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid url %q", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchRemote(ctx, u.String())
	case "file":
		return readFile(filepath.FromSlash(u.Path))
	default:
		return readFile(rawURL)
	}
}

func (f *Fetcher) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.ContentKey(rawURL)
	hooks := observability.Cache()

	data, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn("cache read failed", "url", rawURL, "err", err)
	}
	if ok {
		hooks.OnCacheHit(ctx, cache.KeyType(key))
		f.logger.Debug("cache hit", "url", rawURL, "bytes", len(data))
		return data, nil
	}
	hooks.OnCacheMiss(ctx, cache.KeyType(key))

	data, err = f.http.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := Parse(data); err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "url", rawURL, "err", err)
	} else {
		hooks.OnCacheSet(ctx, cache.KeyType(key), len(data))
	}
	f.logger.Debug("fetched", "url", rawURL, "bytes", len(data))
	return data, nil
}

// Invalidate drops the cached copy of rawURL.
func (f *Fetcher) Invalidate(ctx context.Context, rawURL string) error {
	return f.cache.Delete(ctx, cache.ContentKey(rawURL))
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "%s", path)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "read %s", path)
	}
	return data, nil
}

var _ Loader = (*Fetcher)(nil)
