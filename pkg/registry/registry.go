// Package registry keeps the image hosts of an application.
//
// A [Registry] is created once by the application shell and passed to
// whatever needs to enumerate hosts. [Registry.Attach] scans an HTML page
// for elements marked with the "dynamic-svg" class and creates one host per
// element, indexed by the element id.
package registry

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
)

// DefaultConcurrency bounds LoadAll.
const DefaultConcurrency = 4

// Registry indexes hosts by id, keeping insertion order. It is safe for
// concurrent use; the hosts themselves are not.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]*host.Host
	logger *log.Logger
}

// New creates an empty registry.
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Registry{byID: make(map[string]*host.Host), logger: logger}
}

// Add registers h. Ids must be valid and unique.
func (r *Registry) Add(h *host.Host) error {
	if err := apperrors.ValidateHostID(h.ID()); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[h.ID()]; dup {
		return apperrors.New(apperrors.ErrCodeInvalidID, "duplicate host id %q", h.ID())
	}
	r.byID[h.ID()] = h
	r.order = append(r.order, h.ID())
	return nil
}

// Remove unregisters id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the host registered under id.
func (r *Registry) Get(id string) (*host.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	return h, ok
}

// Lookup is Get with a HOST_NOT_FOUND error.
func (r *Registry) Lookup(id string) (*host.Host, error) {
	h, ok := r.Get(id)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeHostNotFound, "no host %q", id)
	}
	return h, nil
}

// IDs returns the registered ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Hosts returns the registered hosts in insertion order.
func (r *Registry) Hosts() []*host.Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*host.Host, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}

// Len returns the number of hosts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Attach scans page for marked elements and registers one host per element.
// opts applies to every host; each host hides its own data-hide list after
// load. The hosts are created but not loaded.
func (r *Registry) Attach(page io.Reader, base string, opts host.Options) ([]*host.Host, error) {
	markers, err := Scan(page, base)
	if err != nil {
		return nil, err
	}
	hosts := make([]*host.Host, 0, len(markers))
	for _, m := range markers {
		o := opts
		o.Hide = append(append([]string(nil), opts.Hide...), m.Hide...)
		h := host.New(host.Container{ID: m.ID, Width: m.Width, Height: m.Height}, m.URL, o)
		if err := r.Add(h); err != nil {
			return hosts, err
		}
		r.logger.Debug("attached", "id", h.ID(), "url", m.URL, "width", m.Width, "height", m.Height)
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// LoadAll loads every host that is not loaded yet, at most concurrency at a
// time. Every host is attempted; the failures are joined into the returned
// error.
func (r *Registry) LoadAll(ctx context.Context, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(concurrency)
	for _, h := range r.Hosts() {
		g.Go(func() error {
			err := h.Do(func(h *host.Host) error {
				if h.Loaded() {
					return nil
				}
				return h.Load(ctx)
			})
			if err != nil {
				r.logger.Warn("load failed", "id", h.ID(), "url", h.URL(), "err", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
