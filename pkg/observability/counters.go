package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters counts events from every hook category. The zero value is ready
// to use and safe for concurrent use.
type Counters struct {
	loads, loadErrors     atomic.Int64
	loadNanos             atomic.Int64
	zooms, undos          atomic.Int64
	hits, misses, sets    atomic.Int64
	cachedBytes           atomic.Int64
	requests, httpErrors  atomic.Int64
	responses, serverErrs atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters { return &Counters{} }

// Hooks returns c as a hook bundle for Register.
func (c *Counters) Hooks() Hooks {
	return Hooks{View: viewCounter{c}, Cache: cacheCounter{c}, HTTP: httpCounter{c}}
}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Loads        int64         `json:"loads"`
	LoadErrors   int64         `json:"load_errors"`
	LoadTime     time.Duration `json:"load_time_ns"`
	Zooms        int64         `json:"zooms"`
	UndoChanges  int64         `json:"undo_changes"`
	CacheHits    int64         `json:"cache_hits"`
	CacheMisses  int64         `json:"cache_misses"`
	CacheWrites  int64         `json:"cache_writes"`
	CachedBytes  int64         `json:"cached_bytes"`
	Requests     int64         `json:"http_requests"`
	Responses    int64         `json:"http_responses"`
	ServerErrors int64         `json:"http_5xx"`
	HTTPErrors   int64         `json:"http_errors"`
}

// Snapshot copies the current counts.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Loads:        c.loads.Load(),
		LoadErrors:   c.loadErrors.Load(),
		LoadTime:     time.Duration(c.loadNanos.Load()),
		Zooms:        c.zooms.Load(),
		UndoChanges:  c.undos.Load(),
		CacheHits:    c.hits.Load(),
		CacheMisses:  c.misses.Load(),
		CacheWrites:  c.sets.Load(),
		CachedBytes:  c.cachedBytes.Load(),
		Requests:     c.requests.Load(),
		Responses:    c.responses.Load(),
		ServerErrors: c.serverErrs.Load(),
		HTTPErrors:   c.httpErrors.Load(),
	}
}

type viewCounter struct{ c *Counters }

func (v viewCounter) OnLoadStart(context.Context, string, string) {}

func (v viewCounter) OnLoadComplete(_ context.Context, _, _ string, _ int, d time.Duration, err error) {
	v.c.loads.Add(1)
	v.c.loadNanos.Add(int64(d))
	if err != nil {
		v.c.loadErrors.Add(1)
	}
}

func (v viewCounter) OnZoom(string, string, float64, time.Duration) { v.c.zooms.Add(1) }
func (v viewCounter) OnUndo(string, string, int)                    { v.c.undos.Add(1) }

type cacheCounter struct{ c *Counters }

func (k cacheCounter) OnCacheHit(context.Context, string)  { k.c.hits.Add(1) }
func (k cacheCounter) OnCacheMiss(context.Context, string) { k.c.misses.Add(1) }
func (k cacheCounter) OnCacheSet(_ context.Context, _ string, size int) {
	k.c.sets.Add(1)
	k.c.cachedBytes.Add(int64(size))
}

type httpCounter struct{ c *Counters }

func (h httpCounter) OnRequest(context.Context, string, string, string) { h.c.requests.Add(1) }

func (h httpCounter) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	h.c.responses.Add(1)
	if status >= 500 {
		h.c.serverErrs.Add(1)
	}
}

func (h httpCounter) OnError(context.Context, string, string, string, error) { h.c.httpErrors.Add(1) }
