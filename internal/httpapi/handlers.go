package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ironsheep/menu-lens/internal/imaging"
	"github.com/ironsheep/menu-lens/internal/layout"
	"github.com/ironsheep/menu-lens/internal/menu"
	"github.com/ironsheep/menu-lens/internal/ocr"
	"github.com/ironsheep/menu-lens/internal/region"
	"github.com/ironsheep/menu-lens/internal/session"
)

// Handler serves the menu-lens HTTP API.
type Handler struct {
	sessions       *session.Registry
	recognizer     ocr.Recognizer
	menu           *menu.Map
	maxUploadBytes int64
}

// RegisterRoutes registers every API route on router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/api/vision-ocr", h.VisionOCR).Methods("POST")
	router.HandleFunc("/api/menu/lookup", h.Lookup).Methods("GET")

	api := router.PathPrefix("/api/sessions").Subrouter()
	api.HandleFunc("", h.CreateSession).Methods("POST")
	api.HandleFunc("/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/{id}", h.DeleteSession).Methods("DELETE")

	// Pipeline and layout
	api.HandleFunc("/{id}/image", h.UploadImage).Methods("POST")
	api.HandleFunc("/{id}/frame", h.SetFrame).Methods("PUT")
	api.HandleFunc("/{id}/targets", h.HitTargets).Methods("GET")

	// Selection
	api.HandleFunc("/{id}/tap", h.Tap).Methods("POST")
	api.HandleFunc("/{id}/selection", h.GetSelection).Methods("GET")
	api.HandleFunc("/{id}/selection", h.Select).Methods("POST")
	api.HandleFunc("/{id}/selection", h.Dismiss).Methods("DELETE")
	api.HandleFunc("/{id}/reset", h.Reset).Methods("POST")

	// Preview
	api.HandleFunc("/{id}/overlay.png", h.Overlay).Methods("GET")
	api.HandleFunc("/{id}/regions/{index:[0-9]+}/crop.png", h.Crop).Methods("GET")
}

func writer(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return NewResponseWriter(w, RequestID(r.Context()))
}

// writeError maps domain errors onto status codes. fallback is used for
// errors no sentinel matches.
func writeError(rw *ResponseWriter, err error, fallback int) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		rw.RequestTooLarge(err.Error())
	case errors.Is(err, session.ErrNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, session.ErrNoImage),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, layout.ErrFrameUnknown):
		rw.Conflict(err.Error())
	case errors.Is(err, session.ErrPreprocess),
		errors.Is(err, session.ErrIndexRange),
		errors.Is(err, session.ErrInvalidSize),
		errors.Is(err, imaging.ErrEmptyImage),
		errors.Is(err, imaging.ErrUnsupportedFormat),
		errors.Is(err, layout.ErrStrategyMismatch),
		errors.Is(err, layout.ErrInvalidTransform):
		rw.BadRequest(err.Error())
	case errors.Is(err, ocr.ErrRecognition),
		errors.Is(err, ocr.ErrUnavailable),
		errors.Is(err, ocr.ErrNoCredentials),
		errors.Is(err, context.DeadlineExceeded):
		rw.BadGateway(err.Error())
	default:
		rw.Error(fallback, http.StatusText(fallback), err.Error())
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(writer(w, r), err, http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writer(w, r).Success(map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
		"menu":     h.menu.Len(),
	})
}

type visionOCRRequest struct {
	Image string `json:"image"`
}

// VisionOCR forwards a base64 image to the recognizer and returns its raw
// response, unwrapped, for clients that extract regions themselves.
func (h *Handler) VisionOCR(w http.ResponseWriter, r *http.Request) {
	rw := writer(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req visionOCRRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(rw, err, http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		rw.BadRequest("image is required")
		return
	}
	data, err := imaging.DecodePayload(req.Image)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	resp, err := h.recognizer.Recognize(r.Context(), data)
	if err != nil {
		writeError(rw, err, http.StatusBadGateway)
		return
	}
	rw.RawJSON(http.StatusOK, resp)
}

// Lookup resolves ?name= against the menu.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	rw := writer(w, r)
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		rw.BadRequest("name is required")
		return
	}
	desc, ok := h.menu.Find(name)
	if !ok {
		desc = h.menu.Fallback()
	}
	rw.Success(session.Described{Selected: name, Description: desc, Found: ok})
}

// === Session Lifecycle ===

// CreateSession starts a new session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writer(w, r).Created(s.Summarize())
}

// GetSession returns the session state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writer(w, r).Success(s.Summarize())
}

// DeleteSession cancels and removes the session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(writer(w, r), err, http.StatusNotFound)
		return
	}
	writer(w, r).NoContent()
}

// === Pipeline and Layout ===

type uploadResponse struct {
	State      session.Summary    `json:"state"`
	HitTargets []layout.HitTarget `json:"hit_targets"`
}

// readUpload accepts a multipart "image" file, a JSON {"image": base64} body
// or the raw image bytes.
func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadUpload, err)
		}
		defer f.Close()
		return io.ReadAll(f)
	case "application/json":
		var req visionOCRRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadUpload, err)
		}
		data, err := imaging.DecodePayload(req.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadUpload, err)
		}
		return data, nil
	default:
		return io.ReadAll(r.Body)
	}
}

var errBadUpload = errors.New("bad upload")

// UploadImage runs the recognition pipeline for the session.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	data, err := readUpload(r)
	if err != nil {
		writeError(rw, err, http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		rw.BadRequest("empty upload")
		return
	}

	st, err := s.Upload(r.Context(), data)
	if err != nil {
		writeError(rw, err, http.StatusBadGateway)
		return
	}
	targets, err := s.HitTargets()
	if err != nil {
		writeError(rw, err, http.StatusInternalServerError)
		return
	}
	rw.Success(uploadResponse{State: s.SummaryOf(st), HitTargets: targets})
}

type frameRequest struct {
	RenderedWidth  *float64 `json:"rendered_width"`
	RenderedHeight *float64 `json:"rendered_height"`
}

// SetFrame records the rendered image size.
func (h *Handler) SetFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	var req frameRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if req.RenderedWidth == nil || req.RenderedHeight == nil {
		rw.BadRequest("rendered_width and rendered_height are required")
		return
	}
	st, err := s.Resize(*req.RenderedWidth, *req.RenderedHeight)
	if err != nil {
		writeError(rw, err, http.StatusBadRequest)
		return
	}
	rw.Success(s.SummaryOf(st))
}

// transformFromQuery reads an optional zoom/offset_x/offset_y transform.
func transformFromQuery(r *http.Request) (*layout.Transform, error) {
	q := r.URL.Query()
	if q.Get("zoom") == "" {
		return nil, nil
	}
	var t layout.Transform
	var err error
	if t.Zoom, err = strconv.ParseFloat(q.Get("zoom"), 64); err != nil {
		return nil, fmt.Errorf("invalid zoom: %w", err)
	}
	for key, dst := range map[string]*float64{"offset_x": &t.OffsetX, "offset_y": &t.OffsetY} {
		if v := q.Get(key); v != "" {
			if *dst, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// HitTargets lists the session's hit-targets.
func (h *Handler) HitTargets(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	t, err := transformFromQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var targets []layout.HitTarget
	if t != nil {
		targets, err = s.ViewportTargets(*t)
	} else {
		targets, err = s.HitTargets()
	}
	if err != nil {
		writeError(rw, err, http.StatusInternalServerError)
		return
	}
	rw.Success(map[string]interface{}{
		"strategy":    s.Summarize().Strategy,
		"hit_targets": targets,
	})
}

// === Selection ===

type tapRequest struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Zoom    *float64 `json:"zoom"`
	OffsetX float64  `json:"offset_x"`
	OffsetY float64  `json:"offset_y"`
}

type tapResponse struct {
	Hit    bool              `json:"hit"`
	Target *layout.HitTarget `json:"target,omitempty"`
	Popup  session.Described `json:"popup"`
}

// Tap selects the hit-target under a point.
func (h *Handler) Tap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	var req tapRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if req.X == nil || req.Y == nil {
		rw.BadRequest("x and y are required")
		return
	}
	var t *layout.Transform
	if req.Zoom != nil {
		t = &layout.Transform{Zoom: *req.Zoom, OffsetX: req.OffsetX, OffsetY: req.OffsetY}
		if err := t.Validate(); err != nil {
			rw.BadRequest(err.Error())
			return
		}
	}

	target, desc, hit, err := s.Tap(region.Point{X: *req.X, Y: *req.Y}, t)
	if err != nil {
		writeError(rw, err, http.StatusInternalServerError)
		return
	}
	resp := tapResponse{Hit: hit, Popup: desc}
	if hit {
		resp.Target = &target
	}
	rw.Success(resp)
}

// GetSelection returns the popup content.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writer(w, r).Success(s.Describe())
}

type selectRequest struct {
	Index *int    `json:"index"`
	Text  *string `json:"text"`
}

// Select selects a region by index or any text.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	switch {
	case (req.Index == nil) == (req.Text == nil):
		rw.BadRequest("exactly one of index or text is required")
	case req.Index != nil:
		desc, err := s.SelectIndex(*req.Index)
		if err != nil {
			writeError(rw, err, http.StatusBadRequest)
			return
		}
		rw.Success(desc)
	default:
		rw.Success(s.SelectText(*req.Text))
	}
}

// Dismiss closes the popup.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writer(w, r).Success(s.SummaryOf(s.Dismiss()))
}

// Reset returns the session to the upload screen.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writer(w, r).Success(s.SummaryOf(s.Reset()))
}

// === Preview ===

// Overlay renders the image with hit-target outlines as PNG.
func (h *Handler) Overlay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	opts := s.OverlayDefaults()
	q := r.URL.Query()
	if c := q.Get("color"); c != "" {
		if !strings.HasPrefix(c, "#") {
			c = "#" + c
		}
		if _, err := imaging.ParseColor(c); err != nil {
			rw.BadRequest(err.Error())
			return
		}
		opts.Color = c
	}
	if v := q.Get("labels"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			rw.BadRequest("invalid labels: " + v)
			return
		}
		opts.Labels = b
	}
	if v := q.Get("stroke"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			rw.BadRequest("invalid stroke: " + v)
			return
		}
		opts.Stroke = n
	}

	res, err := s.Overlay(&opts)
	if err != nil {
		writeError(rw, err, http.StatusInternalServerError)
		return
	}
	rw.PNG(res.PNG)
}

// Crop returns one region cut out of the image as PNG.
func (h *Handler) Crop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rw := writer(w, r)

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		rw.BadRequest("invalid index")
		return
	}
	scale := 1.0
	if v := r.URL.Query().Get("scale"); v != "" {
		if scale, err = strconv.ParseFloat(v, 64); err != nil || scale <= 0 {
			rw.BadRequest("invalid scale: " + v)
			return
		}
	}

	res, err := s.Crop(index, scale)
	if err != nil {
		writeError(rw, err, http.StatusBadRequest)
		return
	}
	rw.PNG(res.PNG)
}
