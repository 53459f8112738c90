package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/menu-lens/internal/layout"
)

// DefaultStroke is the outline width in pixels.
const DefaultStroke = 2

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	// Color of the outlines, "#RRGGBB" or "#RRGGBBAA". Defaults to red.
	Color string

	// Stroke is the outline width in pixels. Defaults to DefaultStroke.
	Stroke int

	// Labels draws each target's key at its top-left corner.
	Labels bool

	// Highlight is the key of a target to tint, or -1 for none.
	Highlight int
}

// OverlayResult contains the image with region outlines drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Regions     int    `json:"regions"`

	// PNG is the encoded image, for callers that stream bytes.
	PNG []byte `json:"-"`
}

// RenderOverlay draws the outline of every target onto a copy of img. Target
// rectangles must be in img's pixel space, which is what a natural-pixel
// mapper produces.
func RenderOverlay(img image.Image, targets []layout.HitTarget, opts OverlayOptions) (*OverlayResult, error) {
	bounds := img.Bounds()

	stroke := opts.Stroke
	if stroke <= 0 {
		stroke = DefaultStroke
	}
	outline, err := ParseColor(opts.Color)
	if err != nil {
		outline, _ = ParseColor(DefaultOverlayColor)
	}

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for _, t := range targets {
		r := toImageRect(t.Rect)
		if t.Key == opts.Highlight {
			tint := outline
			tint.A = 64
			draw.Draw(result, r.Intersect(result.Bounds()), image.NewUniform(tint), image.Point{}, draw.Over)
		}
		drawOutline(result, r, stroke, outline)
	}

	if opts.Labels {
		fg := contrasting(outline)
		for _, t := range targets {
			r := toImageRect(t.Rect)
			drawLabel(result, r.Min.X, r.Min.Y, strconv.Itoa(t.Key), fg, outline)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Regions:     len(targets),
		PNG:         buf.Bytes(),
	}, nil
}

// toImageRect rounds a layout rectangle to pixels. image.Rect canonicalizes
// so inverted rectangles are drawn over the same area.
func toImageRect(r layout.Rect) image.Rectangle {
	x0 := int(math.Round(r.Left))
	y0 := int(math.Round(r.Top))
	x1 := int(math.Round(r.Left + r.Width))
	y1 := int(math.Round(r.Top + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// drawOutline draws a border of the given width just inside r.
func drawOutline(img *image.RGBA, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	bounds := img.Bounds()
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(r).Intersect(bounds), src, image.Point{}, draw.Over)
	}
}

// drawLabel draws text on a filled background with its top-left at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()
	box := image.Rect(x, y, x+width+2, y+height)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x+1, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}
