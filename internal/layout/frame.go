package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFrameUnknown is returned when the scaled strategy runs before the
	// image's natural dimensions are known.
	ErrFrameUnknown = errors.New("display frame not known: natural dimensions unavailable")

	// ErrStrategyMismatch is returned when a pan/zoom transform is combined
	// with the scaled-display strategy.
	ErrStrategyMismatch = errors.New("pan/zoom transform requires the natural-pixel strategy")

	// ErrInvalidTransform is returned for a pan/zoom transform with a
	// non-finite zoom or offset.
	ErrInvalidTransform = errors.New("invalid pan/zoom transform")
)

// Strategy selects how hit-targets are positioned.
type Strategy int

const (
	// NaturalPixel emits rectangles in natural image coordinates.
	NaturalPixel Strategy = iota
	// ScaledDisplay emits rectangles scaled to the rendered image size.
	ScaledDisplay
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case NaturalPixel:
		return "natural"
	case ScaledDisplay:
		return "scaled"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses a configuration name ("natural" or "scaled").
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "natural", "natural-pixel", "":
		return NaturalPixel, nil
	case "scaled", "scaled-display":
		return ScaledDisplay, nil
	default:
		return NaturalPixel, fmt.Errorf("unknown layout strategy: %q", name)
	}
}

// DisplayFrame describes the image element as currently shown.
type DisplayFrame struct {
	NaturalWidth   float64 `json:"natural_width"`
	NaturalHeight  float64 `json:"natural_height"`
	RenderedWidth  float64 `json:"rendered_width"`
	RenderedHeight float64 `json:"rendered_height"`
}

// NaturalFrame returns a frame for an image rendered at its natural size.
func NaturalFrame(width, height int) DisplayFrame {
	return DisplayFrame{
		NaturalWidth:   float64(width),
		NaturalHeight:  float64(height),
		RenderedWidth:  float64(width),
		RenderedHeight: float64(height),
	}
}

// Known reports whether both natural dimensions are positive.
func (f DisplayFrame) Known() bool {
	return f.NaturalWidth > 0 && f.NaturalHeight > 0
}

// Resize returns a copy of the frame with a new rendered size.
func (f DisplayFrame) Resize(renderedWidth, renderedHeight float64) DisplayFrame {
	f.RenderedWidth = renderedWidth
	f.RenderedHeight = renderedHeight
	return f
}

// Scale is the rendered-to-natural ratio on each axis.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the scale of an unknown frame.
var Identity = Scale{X: 1, Y: 1}

// Scale returns the frame's scale factors, or Identity while the frame is
// not known.
func (f DisplayFrame) Scale() Scale {
	if !f.Known() {
		return Identity
	}
	return Scale{
		X: f.RenderedWidth / f.NaturalWidth,
		Y: f.RenderedHeight / f.NaturalHeight,
	}
}
