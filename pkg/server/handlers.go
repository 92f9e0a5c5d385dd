package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/transform"
)

// Summary is one entry of the host list.
type Summary struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Name      string         `json:"name"`
	Loaded    bool           `json:"loaded"`
	Container host.Container `json:"container"`
}

// Detail describes the view of one host.
type Detail struct {
	Summary
	BBox      transform.Rect      `json:"bbox"`
	Transform transform.Transform `json:"transform"`
	Current   transform.Transform `json:"current"`
	Default   transform.Transform `json:"default"`
	Depth     int                 `json:"depth"`
	Undo      int                 `json:"undo"`
	Hidden    []string            `json:"hidden"`
}

// CreateRequest adds a host.
type CreateRequest struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Hide   []string `json:"hide"`
}

// ZoomRequest sets or pushes a transform. DurationMS selects an animated
// change; omitted, Zoom is immediate and PushZoom uses the host default.
type ZoomRequest struct {
	Scale      float64 `json:"scale"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	DurationMS *int64  `json:"duration_ms,omitempty"`
}

// DurationRequest carries an optional duration.
type DurationRequest struct {
	DurationMS *int64 `json:"duration_ms,omitempty"`
}

// GestureRequest is a decoded pointer gesture.
type GestureRequest struct {
	// Type is "pan", "zoom", "wheel" or "dblclick".
	Type   string  `json:"type"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Shift  bool    `json:"shift"`
}

// NamesRequest lists selectors to show or hide.
type NamesRequest struct {
	Names []string `json:"names"`
}

// HighlightRequest is an undoable batch.
type HighlightRequest struct {
	Requests   []host.Request `json:"requests"`
	DurationMS *int64         `json:"duration_ms,omitempty"`
}

// PointRequest is a pointer position in container coordinates.
type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointResponse reports the result of a click or hover.
type PointResponse struct {
	Hit    bool   `json:"hit"`
	Detail Detail `json:"detail"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func duration(ms *int64, def time.Duration) time.Duration {
	if ms == nil {
		return def
	}
	return time.Duration(*ms) * time.Millisecond
}

func summary(h *host.Host) Summary {
	return Summary{ID: h.ID(), URL: h.URL(), Name: h.Name(), Loaded: h.Loaded(), Container: h.Container()}
}

// detail describes h. The caller holds h's lock.
func detail(h *host.Host) Detail {
	v := h.Viewport()
	d := Detail{
		Summary:   summary(h),
		Transform: v.Transform(),
		Current:   v.Current(),
		Default:   v.Default(),
		Depth:     v.Depth(),
		Undo:      h.Undo().Len(),
		Hidden:    h.Hidden(),
	}
	if h.Loaded() {
		d.BBox = h.BBox()
	}
	if d.Hidden == nil {
		d.Hidden = []string{}
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidTransform, apperrors.ErrCodeInvalidSelector,
		apperrors.ErrCodeInvalidCategory, apperrors.ErrCodeInvalidID:
		return http.StatusBadRequest
	case apperrors.ErrCodeHostNotFound, apperrors.ErrCodeNotFound, apperrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeNotLoaded:
		return http.StatusConflict
	case apperrors.ErrCodeInvalidSVG, apperrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", w.Header().Get(requestIDHeader), "err", err)
	}
	writeJSON(w, status, errorBody{Error: apperrors.UserMessage(err), Code: string(apperrors.GetCode(err))})
}

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*host.Host, bool) {
	h, err := s.reg.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return h, true
}

// mutate decodes the body into req, runs fn under the host lock, persists
// the host state and answers with the host detail.
func mutate[T any](s *Server, fn func(h *host.Host, req *T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := s.lookup(w, r)
		if !ok {
			return
		}
		var req T
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		var d Detail
		err := h.Do(func(h *host.Host) error {
			if err := fn(h, &req); err != nil {
				return err
			}
			s.persist(r.Context(), h)
			d = detail(h)
			return nil
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	hosts := s.reg.Hosts()
	out := make([]Summary, 0, len(hosts))
	for _, h := range hosts {
		_ = h.Do(func(h *host.Host) error {
			out = append(out, summary(h))
			return nil
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := apperrors.ValidateContentURL(req.URL); err != nil {
		s.writeError(w, r, err)
		return
	}
	c := host.Container{ID: req.ID, Width: req.Width, Height: req.Height}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = s.defSize.Width, s.defSize.Height
	}
	opts := s.hostOpts
	opts.Hide = append(append([]string(nil), opts.Hide...), req.Hide...)
	h := host.New(c, req.URL, opts)
	if err := h.Load(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.reg.Add(h); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.startHost(h)
	var d Detail
	_ = h.Do(func(h *host.Host) error {
		s.persist(r.Context(), h)
		d = detail(h)
		return nil
	})
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var d Detail
	_ = h.Do(func(h *host.Host) error {
		d = detail(h)
		return nil
	})
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.reg.Remove(id) {
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeHostNotFound, "host %q not found", id))
		return
	}
	s.stopHost(id)
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.logger.Warn("session delete failed", "host", id, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	settle := r.URL.Query().Get("settle") == "true"
	w.Header().Set("Content-Type", "image/svg+xml")
	_ = h.Do(func(h *host.Host) error {
		if settle {
			h.Settle()
		}
		if _, err := h.WriteSVG(w); err != nil {
			s.logger.Warn("svg write failed", "host", h.ID(), "err", err)
		}
		return nil
	})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *ZoomRequest) error {
		t := transform.Point{X: req.X, Y: req.Y}
		if d := duration(req.DurationMS, 0); d > 0 {
			h.Viewport().SmoothZoom(req.Scale, t, d)
			return nil
		}
		h.Viewport().Zoom(req.Scale, t)
		return nil
	})(w, r)
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *DurationRequest) error {
		if d := duration(req.DurationMS, 0); d > 0 {
			_, _ = h.Viewport().ZoomToFitSmooth(d)
			return nil
		}
		_, _ = h.Viewport().ZoomToFit()
		return nil
	})(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, _ *struct{}) error {
		h.Viewport().ResetZoom()
		return nil
	})(w, r)
}

func (s *Server) handlePushZoom(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *ZoomRequest) error {
		t := transform.Transform{Scale: req.Scale, Translate: transform.Point{X: req.X, Y: req.Y}}
		h.Viewport().PushZoom(t, duration(req.DurationMS, h.Options().SmoothDuration))
		return nil
	})(w, r)
}

func (s *Server) handlePopZoom(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *DurationRequest) error {
		h.Viewport().PopZoom(duration(req.DurationMS, h.Options().SmoothDuration))
		return nil
	})(w, r)
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *GestureRequest) error {
		g := h.Gestures()
		at := transform.Point{X: req.X, Y: req.Y}
		switch req.Type {
		case "pan":
			g.Pan(transform.Point{X: req.DX, Y: req.DY})
		case "zoom":
			g.ZoomBy(req.Factor, at)
		case "wheel":
			g.Wheel(req.DY, at)
		case "dblclick":
			g.DoubleClick(at, req.Shift)
		default:
			return apperrors.New(apperrors.ErrCodeInvalidInput, "unknown gesture %q", req.Type)
		}
		return nil
	})(w, r)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *NamesRequest) error {
		return h.Show(req.Names...)
	})(w, r)
}

func (s *Server) handleHide(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *NamesRequest) error {
		return h.Hide(req.Names...)
	})(w, r)
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *HighlightRequest) error {
		if len(req.Requests) == 0 {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "no requests")
		}
		rep, err := h.Extend(req.Requests, duration(req.DurationMS, h.Options().UndoDuration))
		if err != nil {
			return err
		}
		if len(rep.Stale) > 0 {
			s.logger.Debug("highlight skipped removed elements", "host", h.ID(), "stale", len(rep.Stale))
		}
		return nil
	})(w, r)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	mutate(s, func(h *host.Host, req *DurationRequest) error {
		h.Pop(duration(req.DurationMS, h.Options().UndoDuration))
		return nil
	})(w, r)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	s.point(w, r, func(h *host.Host, p transform.Point) bool {
		return h.Click(p) != nil
	})
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	s.point(w, r, (*host.Host).Hover)
}

func (s *Server) point(w http.ResponseWriter, r *http.Request, fn func(*host.Host, transform.Point) bool) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req PointRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp PointResponse
	_ = h.Do(func(h *host.Host) error {
		resp.Hit = fn(h, transform.Point{X: req.X, Y: req.Y})
		if resp.Hit {
			s.persist(r.Context(), h)
		}
		resp.Detail = detail(h)
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// persistAll writes the state of every host.
func (s *Server) persistAll(ctx context.Context) {
	for _, h := range s.reg.Hosts() {
		_ = h.Do(func(h *host.Host) error {
			s.persist(ctx, h)
			return nil
		})
	}
}
