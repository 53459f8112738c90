package session

import (
	"github.com/ironsheep/menu-lens/internal/layout"
	"github.com/ironsheep/menu-lens/internal/region"
	"github.com/ironsheep/menu-lens/internal/selection"
)

// Image is the preprocessed upload that regions were recognized in. Width
// and Height define the natural pixel space.
type Image struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	// Digest identifies Data; decoded images are cached under it.
	Digest string `json:"-"`
}

// State is an immutable snapshot of one session. Reducers return a new value
// and never modify the slices of the old one.
type State struct {
	// Generation identifies the most recent upload. Completions carrying an
	// older generation are stale.
	Generation uint64

	Loading   bool
	Image     *Image
	Regions   []region.TextRegion
	Frame     layout.DisplayFrame
	Selection selection.Selection

	// Notice is the last pipeline failure, shown to the user until the next
	// upload or reset.
	Notice string
}

// HasImage reports whether an image is shown.
func (s State) HasImage() bool { return s.Image != nil }

// Begin starts a new upload. The previous image stays visible until the new
// one is ready, but its regions and selection are cleared.
func Begin(s State) State {
	return State{
		Generation: s.Generation + 1,
		Loading:    true,
		Image:      s.Image,
		Frame:      s.Frame,
	}
}

// Show installs the preprocessed image for generation gen and pre-fills the
// frame's natural size from it. A reported rendered size is kept; an unknown
// one defaults to the natural size.
func Show(s State, gen uint64, img *Image) State {
	if gen != s.Generation {
		return s
	}
	frame := layout.NaturalFrame(img.Width, img.Height)
	if s.Frame.RenderedWidth > 0 && s.Frame.RenderedHeight > 0 {
		frame = frame.Resize(s.Frame.RenderedWidth, s.Frame.RenderedHeight)
	}
	s.Image = img
	s.Frame = frame
	return s
}

// Complete stores the regions recognized for generation gen.
func Complete(s State, gen uint64, regions []region.TextRegion) State {
	if gen != s.Generation {
		return s
	}
	s.Regions = regions
	s.Loading = false
	s.Notice = ""
	return s
}

// Fail records a pipeline failure for generation gen.
func Fail(s State, gen uint64, notice string) State {
	if gen != s.Generation {
		return s
	}
	s.Loading = false
	s.Notice = notice
	return s
}

// Settle clears the loading flag for generation gen. It runs on every exit
// of a pipeline, including cancellation.
func Settle(s State, gen uint64) State {
	if gen != s.Generation {
		return s
	}
	s.Loading = false
	return s
}

// Select makes text the current selection.
func Select(s State, text string) State {
	s.Selection = s.Selection.Select(text)
	return s
}

// Dismiss closes the description popup.
func Dismiss(s State) State {
	s.Selection = s.Selection.Dismiss()
	return s
}

// Reset returns to the upload screen. The generation advances so that any
// pipeline still running becomes stale.
func Reset(s State) State {
	return State{Generation: s.Generation + 1}
}

// Resize records the rendered size of the image element.
func Resize(s State, width, height float64) State {
	s.Frame = s.Frame.Resize(width, height)
	return s
}
