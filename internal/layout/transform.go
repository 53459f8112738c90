package layout

import (
	"fmt"
	"math"

	"github.com/ironsheep/menu-lens/internal/region"
)

// Transform is a uniform pan/zoom applied to the image container:
// viewport = natural*Zoom + Offset.
type Transform struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// IdentityTransform leaves coordinates unchanged.
var IdentityTransform = Transform{Zoom: 1}

// Validate rejects NaN and infinite components.
func (t Transform) Validate() error {
	for _, v := range []float64{t.Zoom, t.OffsetX, t.OffsetY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: zoom %v offset (%v, %v)", ErrInvalidTransform, t.Zoom, t.OffsetX, t.OffsetY)
		}
	}
	return nil
}

func (t Transform) zoom() float64 {
	if t.Zoom <= 0 {
		return 1
	}
	return t.Zoom
}

// Apply maps a natural rectangle into viewport coordinates.
func (t Transform) Apply(r Rect) Rect {
	z := t.zoom()
	return Rect{
		Left:   r.Left*z + t.OffsetX,
		Top:    r.Top*z + t.OffsetY,
		Width:  r.Width * z,
		Height: r.Height * z,
	}
}

// ToNatural maps a viewport point back into natural image coordinates.
func (t Transform) ToNatural(p region.Point) region.Point {
	z := t.zoom()
	return region.Point{
		X: (p.X - t.OffsetX) / z,
		Y: (p.Y - t.OffsetY) / z,
	}
}
