package layout

import (
	"fmt"
	"math"

	"github.com/ironsheep/menu-lens/internal/region"
)

// Rect is a hit-target rectangle in the coordinate space of the rendered
// image element.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the rectangle. Empty and negative
// rectangles contain nothing.
func (r Rect) Contains(p region.Point) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return p.X >= r.Left && p.X < r.Left+r.Width &&
		p.Y >= r.Top && p.Y < r.Top+r.Height
}

func (r Rect) finite() bool {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HitTarget is the presentational form of one region. Key is the region's
// index in the extracted sequence and is stable for re-render diffing.
type HitTarget struct {
	Key  int    `json:"key"`
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
}

// Mapper computes hit-target rectangles for one rendering strategy.
type Mapper struct {
	strategy Strategy
}

// NewMapper returns a mapper for the given strategy.
func NewMapper(strategy Strategy) *Mapper {
	return &Mapper{strategy: strategy}
}

// Strategy returns the mapper's rendering strategy.
func (m *Mapper) Strategy() Strategy { return m.strategy }

// NaturalRect returns the region's rectangle in natural coordinates.
func NaturalRect(r region.TextRegion) Rect {
	c := r.Corners
	return Rect{
		Left:   c[0].X,
		Top:    c[0].Y,
		Width:  c[1].X - c[0].X,
		Height: c[2].Y - c[1].Y,
	}
}

// MapRect returns the hit-target rectangle for r under the mapper's strategy.
// The natural-pixel strategy ignores the frame. The scaled strategy returns
// ErrFrameUnknown until the frame's natural size is known.
func (m *Mapper) MapRect(r region.TextRegion, frame DisplayFrame) (Rect, error) {
	rect := NaturalRect(r)
	if m.strategy == NaturalPixel {
		return rect, nil
	}
	if !frame.Known() {
		return Rect{}, ErrFrameUnknown
	}
	s := frame.Scale()
	return Rect{
		Left:   rect.Left * s.X,
		Top:    rect.Top * s.Y,
		Width:  rect.Width * s.X,
		Height: rect.Height * s.Y,
	}, nil
}

// HitTargets maps every region. The result is a pure function of its inputs.
func (m *Mapper) HitTargets(regions []region.TextRegion, frame DisplayFrame) ([]HitTarget, error) {
	targets := make([]HitTarget, 0, len(regions))
	for i, r := range regions {
		rect, err := m.MapRect(r, frame)
		if err != nil {
			return nil, err
		}
		targets = append(targets, HitTarget{Key: i, Text: r.Text, Rect: rect})
	}
	return targets, nil
}

// ViewportTargets maps every region and then applies a pan/zoom transform.
// Only the natural-pixel strategy supports a container transform.
func (m *Mapper) ViewportTargets(regions []region.TextRegion, t Transform) ([]HitTarget, error) {
	if m.strategy != NaturalPixel {
		return nil, ErrStrategyMismatch
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	targets, err := m.HitTargets(regions, DisplayFrame{})
	if err != nil {
		return nil, err
	}
	for i := range targets {
		rect := t.Apply(targets[i].Rect)
		if !rect.finite() {
			return nil, fmt.Errorf("%w: zoom %v overflows target %d", ErrInvalidTransform, t.Zoom, i)
		}
		targets[i].Rect = rect
	}
	return targets, nil
}

// HitTest returns the target under p. Later targets are drawn on top of
// earlier ones, so the search runs back to front.
func HitTest(targets []HitTarget, p region.Point) (HitTarget, bool) {
	for i := len(targets) - 1; i >= 0; i-- {
		if targets[i].Rect.Contains(p) {
			return targets[i], true
		}
	}
	return HitTarget{}, false
}
