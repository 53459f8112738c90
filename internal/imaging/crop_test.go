package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/menu-lens/internal/layout"
)

func quadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{0, 0, 255, 255}
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCropRegion(t *testing.T) {
	img := quadrantImage(100, 100)

	result, err := CropRegion(img, layout.Rect{Left: 10, Top: 10, Width: 40, Height: 20}, 1.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if result.Width != 40 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 40x20", result.Width, result.Height)
	}
	if result.MimeType != "image/png" || result.ImageBase64 == "" || len(result.PNG) == 0 {
		t.Errorf("unexpected encoding: %s", result.MimeType)
	}

	cropped, err := Decode(result.PNG)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	r, _, b, _ := cropped.At(5, 5).RGBA()
	if r>>8 != 255 || b>>8 != 0 {
		t.Errorf("expected red from top-left quadrant, got r=%d b=%d", r>>8, b>>8)
	}
}

func TestCropRegion_Scale(t *testing.T) {
	img := quadrantImage(100, 100)

	result, err := CropRegion(img, layout.Rect{Left: 0, Top: 0, Width: 20, Height: 10}, 2.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if result.Width != 40 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 40x20", result.Width, result.Height)
	}
}

func TestCropRegion_Clipped(t *testing.T) {
	img := quadrantImage(100, 100)

	result, err := CropRegion(img, layout.Rect{Left: 80, Top: -10, Width: 40, Height: 30}, 1.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if result.Width != 20 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 20x20", result.Width, result.Height)
	}
}

func TestCropRegion_NoOverlap(t *testing.T) {
	img := quadrantImage(100, 100)

	tests := []struct {
		name string
		r    layout.Rect
	}{
		{"outside", layout.Rect{Left: 200, Top: 200, Width: 10, Height: 10}},
		{"zero size", layout.Rect{Left: 10, Top: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(img, tt.r, 1.0); err == nil {
				t.Error("expected error")
			}
		})
	}
}
