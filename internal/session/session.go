package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ironsheep/menu-lens/internal/imaging"
	"github.com/ironsheep/menu-lens/internal/layout"
	"github.com/ironsheep/menu-lens/internal/menu"
	"github.com/ironsheep/menu-lens/internal/ocr"
	"github.com/ironsheep/menu-lens/internal/region"
)

var (
	// ErrNoImage is returned by operations that need an uploaded image.
	ErrNoImage = errors.New("no image uploaded")

	// ErrSuperseded is returned by an upload that was replaced by a newer
	// upload or a reset before it finished.
	ErrSuperseded = errors.New("upload superseded")

	// ErrPreprocess wraps failures to decode or compress an upload.
	ErrPreprocess = errors.New("preprocessing failed")

	// ErrIndexRange is returned for a region index outside the current set.
	ErrIndexRange = errors.New("region index out of range")

	// ErrInvalidSize is returned for a negative or non-finite rendered size.
	ErrInvalidSize = errors.New("invalid rendered size")
)

// Compressor prepares uploads for recognition.
type Compressor interface {
	Compress(data []byte) (*imaging.Compressed, error)
}

// Options wires a session to its collaborators. Recognizer is required.
type Options struct {
	Compressor Compressor
	Recognizer ocr.Recognizer
	Menu       *menu.Map
	Mapper     *layout.Mapper
	Extract    region.ExtractOptions

	// Timeout bounds one recognition call. Zero means no limit.
	Timeout time.Duration

	// Images caches decoded images for overlay and crop rendering.
	Images *imaging.ImageCache

	Overlay imaging.OverlayOptions
	Logger  *slog.Logger
}

// Session is one user's view of one menu photo. It is safe for concurrent use.
type Session struct {
	id   string
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	touched time.Time
}

// New creates an idle session.
func New(id string, opts Options) *Session {
	if opts.Compressor == nil {
		opts.Compressor = imaging.Compressor{}
	}
	if opts.Mapper == nil {
		opts.Mapper = layout.NewMapper(layout.NaturalPixel)
	}
	if opts.Menu == nil {
		opts.Menu = menu.New(nil)
	}
	if opts.Images == nil {
		opts.Images = imaging.NewImageCache(4)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		id:      id,
		opts:    opts,
		log:     logger.With("session", id),
		touched: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touched returns the time of the last mutation.
func (s *Session) Touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Session) update(f func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = f(s.state)
	s.touched = time.Now()
	return s.state
}

// Upload runs the pipeline on raw image bytes and returns the resulting
// state. Starting an upload cancels any pipeline still running in this
// session. Failures are stored as the state's notice and also returned.
func (s *Session) Upload(ctx context.Context, data []byte) (State, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.state = Begin(s.state)
	s.touched = time.Now()
	gen := s.state.Generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer cancel()
	defer s.update(func(st State) State { return Settle(st, gen) })

	log := s.log.With("generation", gen)
	log.Info("upload started", "bytes", len(data))

	comp, err := s.opts.Compressor.Compress(data)
	if err != nil {
		return s.fail(log, gen, fmt.Errorf("%w: %w", ErrPreprocess, err))
	}
	log.Debug("image preprocessed",
		"width", comp.Width, "height", comp.Height,
		"bytes", len(comp.Data), "quality", comp.Quality, "resized", comp.Resized())

	img := &Image{
		Data:     comp.Data,
		MimeType: comp.MimeType,
		Width:    comp.Width,
		Height:   comp.Height,
		Digest:   ocr.CacheKey(s.id, comp.Data),
	}
	if st := s.update(func(st State) State { return Show(st, gen, img) }); st.Generation != gen {
		return s.stale(log, gen)
	}

	rctx := ctx
	if s.opts.Timeout > 0 {
		var rcancel context.CancelFunc
		rctx, rcancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer rcancel()
	}
	resp, err := s.opts.Recognizer.Recognize(rctx, comp.Data)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return s.fail(log, gen, err)
	}

	regions := region.Extract(resp, s.opts.Extract)
	st := s.update(func(st State) State { return Complete(st, gen, regions) })
	if st.Generation != gen {
		return s.stale(log, gen)
	}
	log.Info("upload complete", "regions", len(regions))
	return st, nil
}

func (s *Session) fail(log *slog.Logger, gen uint64, err error) (State, error) {
	st := s.update(func(st State) State { return Fail(st, gen, err.Error()) })
	if st.Generation != gen {
		return s.stale(log, gen)
	}
	log.Warn("upload failed", "error", err)
	return st, err
}

func (s *Session) stale(log *slog.Logger, gen uint64) (State, error) {
	st := s.State()
	log.Info("discarding stale upload", "current", st.Generation)
	return st, fmt.Errorf("%w: generation %d replaced by %d", ErrSuperseded, gen, st.Generation)
}

// HitTargets maps the current regions for the current frame.
func (s *Session) HitTargets() ([]layout.HitTarget, error) {
	st := s.State()
	return s.opts.Mapper.HitTargets(st.Regions, st.Frame)
}

// ViewportTargets maps the current regions through a pan/zoom transform.
func (s *Session) ViewportTargets(t layout.Transform) ([]layout.HitTarget, error) {
	st := s.State()
	return s.opts.Mapper.ViewportTargets(st.Regions, t)
}

// Resize records the rendered size of the image element.
func (s *Session) Resize(width, height float64) (State, error) {
	if !validSize(width) || !validSize(height) {
		return s.State(), fmt.Errorf("%w: %vx%v", ErrInvalidSize, width, height)
	}
	return s.update(func(st State) State { return Resize(st, width, height) }), nil
}

func validSize(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Described is the popup content: the selected text and its description.
type Described struct {
	Selected    string `json:"selected"`
	Description string `json:"description"`
	Found       bool   `json:"found"`
}

// Describe returns the popup content for the current selection, or an empty
// value when nothing is selected.
func (s *Session) Describe() Described {
	return s.describe(s.State())
}

func (s *Session) describe(st State) Described {
	text := st.Selection.Text()
	if text == "" {
		return Described{}
	}
	desc, ok := s.opts.Menu.Find(text)
	if !ok {
		desc = s.opts.Menu.Fallback()
	}
	return Described{Selected: text, Description: desc, Found: ok}
}

// Tap selects the target under p. When t is non-nil, p is a viewport point
// and is mapped back through the transform first. A tap that hits nothing
// leaves the selection unchanged and reports false.
func (s *Session) Tap(p region.Point, t *layout.Transform) (layout.HitTarget, Described, bool, error) {
	var targets []layout.HitTarget
	var err error
	if t != nil {
		targets, err = s.ViewportTargets(*t)
	} else {
		targets, err = s.HitTargets()
	}
	if err != nil {
		return layout.HitTarget{}, Described{}, false, err
	}

	hit, ok := layout.HitTest(targets, p)
	if !ok {
		return layout.HitTarget{}, s.Describe(), false, nil
	}
	st := s.update(func(st State) State { return Select(st, hit.Text) })
	s.log.Debug("tap", "key", hit.Key, "text", hit.Text)
	return hit, s.describe(st), true, nil
}

// SelectIndex selects the region at index i.
func (s *Session) SelectIndex(i int) (Described, error) {
	var err error
	st := s.update(func(st State) State {
		if i < 0 || i >= len(st.Regions) {
			err = fmt.Errorf("%w: %d (have %d)", ErrIndexRange, i, len(st.Regions))
			return st
		}
		return Select(st, st.Regions[i].Text)
	})
	if err != nil {
		return Described{}, err
	}
	return s.describe(st), nil
}

// SelectText selects arbitrary text, as when a dish name is typed.
func (s *Session) SelectText(text string) Described {
	return s.describe(s.update(func(st State) State { return Select(st, text) }))
}

// Dismiss closes the popup.
func (s *Session) Dismiss() State {
	return s.update(Dismiss)
}

// Reset cancels any running pipeline and returns to the upload screen.
func (s *Session) Reset() State {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	st := s.update(Reset)
	s.log.Info("session reset", "generation", st.Generation)
	return st
}

// Lookup resolves a dish name against the menu.
func (s *Session) Lookup(name string) Described {
	name = strings.TrimSpace(name)
	desc, ok := s.opts.Menu.Find(name)
	if !ok {
		desc = s.opts.Menu.Fallback()
	}
	return Described{Selected: name, Description: desc, Found: ok}
}

func (s *Session) decoded(st State) (image.Image, error) {
	if !st.HasImage() {
		return nil, ErrNoImage
	}
	// Keyed by content: the generation moves ahead of the image while an
	// upload is still being preprocessed.
	key := st.Image.Digest
	if key == "" {
		key = ocr.CacheKey(s.id, st.Image.Data)
	}
	return s.opts.Images.Load(key, st.Image.Data)
}

// naturalTargets maps regions in image pixel space, whatever the session's
// strategy, for drawing on the image itself.
func naturalTargets(st State) []layout.HitTarget {
	targets, _ := layout.NewMapper(layout.NaturalPixel).HitTargets(st.Regions, st.Frame)
	return targets
}

// OverlayDefaults returns the configured overlay options.
func (s *Session) OverlayDefaults() imaging.OverlayOptions { return s.opts.Overlay }

// Overlay renders the current image with every hit-target outlined and the
// selected one tinted.
func (s *Session) Overlay(opts *imaging.OverlayOptions) (*imaging.OverlayResult, error) {
	st := s.State()
	img, err := s.decoded(st)
	if err != nil {
		return nil, err
	}
	o := s.opts.Overlay
	if opts != nil {
		o = *opts
	}

	targets := naturalTargets(st)
	o.Highlight = -1
	if sel := st.Selection.Text(); sel != "" {
		for _, t := range targets {
			if strings.TrimSpace(t.Text) == sel {
				o.Highlight = t.Key
				break
			}
		}
	}
	return imaging.RenderOverlay(img, targets, o)
}

// Crop returns the area of region i, scaled by scale.
func (s *Session) Crop(i int, scale float64) (*imaging.CropResult, error) {
	st := s.State()
	if i < 0 || i >= len(st.Regions) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexRange, i, len(st.Regions))
	}
	img, err := s.decoded(st)
	if err != nil {
		return nil, err
	}
	return imaging.CropRegion(img, layout.NaturalRect(st.Regions[i]), scale)
}

// Summary is the transport form of a State.
type Summary struct {
	ID         string              `json:"id"`
	Generation uint64              `json:"generation"`
	Loading    bool                `json:"loading"`
	Image      *Image              `json:"image,omitempty"`
	Regions    []region.TextRegion `json:"regions"`
	Frame      layout.DisplayFrame `json:"frame"`
	Scale      layout.Scale        `json:"scale"`
	Strategy   string              `json:"strategy"`
	Selected   string              `json:"selected,omitempty"`
	Notice     string              `json:"notice,omitempty"`
}

// Summarize returns the current state in transport form.
func (s *Session) Summarize() Summary {
	return s.summary(s.State())
}

func (s *Session) summary(st State) Summary {
	regions := st.Regions
	if regions == nil {
		regions = []region.TextRegion{}
	}
	return Summary{
		ID:         s.id,
		Generation: st.Generation,
		Loading:    st.Loading,
		Image:      st.Image,
		Regions:    regions,
		Frame:      st.Frame,
		Scale:      st.Frame.Scale(),
		Strategy:   s.opts.Mapper.Strategy().String(),
		Selected:   st.Selection.Text(),
		Notice:     st.Notice,
	}
}

// SummaryOf returns st in transport form, for callers holding a State
// returned by a mutation.
func (s *Session) SummaryOf(st State) Summary {
	return s.summary(st)
}
