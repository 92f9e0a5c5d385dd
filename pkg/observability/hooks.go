// Package observability lets a program observe image hosts, the content
// cache and remote fetches without the libraries depending on a metrics
// backend.
//
// Libraries report events to the hooks returned by [View], [Cache] and
// [HTTP]. Those default to no-ops; main registers real implementations once
// at startup with [Register]. [Counters] is the implementation shipped with
// dynsvg: it counts events and serves a [Stats] snapshot.
//
//	counters := observability.NewCounters()
//	observability.Register(counters.Hooks())
//	...
//	stats := counters.Snapshot()
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// View Hooks
// =============================================================================

// ViewHooks receives events from image hosts.
//
// Zoom and undo events fire synchronously on the goroutine that owns the
// host; implementations must not block.
type ViewHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, hostID, url string)
	OnLoadComplete(ctx context.Context, hostID, url string, elements int, duration time.Duration, err error)

	// OnZoom records a viewport change (op is "zoom", "fit", "push", ...).
	OnZoom(hostID, op string, scale float64, duration time.Duration)

	// OnUndo records an undo stack change (op is "extend" or "pop") with the new depth.
	OnUndo(hostID, op string, depth int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives lookups and writes of the content cache. kind names
// the cached artifact, currently always "svg".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	// OnCacheSet reports a write of size bytes.
	OnCacheSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives the requests the loader makes for remote SVG
// documents, retries included.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, status int, elapsed time.Duration)
	// OnError reports a request that got no response at all.
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopViewHooks is a no-op implementation of ViewHooks.
type NoopViewHooks struct{}

func (NoopViewHooks) OnLoadStart(context.Context, string, string) {}
func (NoopViewHooks) OnLoadComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopViewHooks) OnZoom(string, string, float64, time.Duration) {}
func (NoopViewHooks) OnUndo(string, string, int)                    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// Hooks bundles one implementation per event category. Nil fields leave the
// registered implementation unchanged.
type Hooks struct {
	View  ViewHooks
	Cache CacheHooks
	HTTP  HTTPHooks
}

var (
	hooksMu    sync.RWMutex
	viewHooks  ViewHooks  = NoopViewHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
)

// Register installs the non-nil hooks of h.
func Register(h Hooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h.View != nil {
		viewHooks = h.View
	}
	if h.Cache != nil {
		cacheHooks = h.Cache
	}
	if h.HTTP != nil {
		httpHooks = h.HTTP
	}
}

// View returns the registered view hooks.
func View() ViewHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return viewHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks.
func Reset() {
	Register(Hooks{View: NoopViewHooks{}, Cache: NoopCacheHooks{}, HTTP: NoopHTTPHooks{}})
}
