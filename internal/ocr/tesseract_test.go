//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// renderLines draws each line in black on white, scaled up so Tesseract
// can read the bitmap font, and returns PNG bytes.
func renderLines(t *testing.T, lines []string, scale int) []byte {
	t.Helper()

	maxLen := 0
	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}
	small := image.NewRGBA(image.Rect(0, 0, maxLen*7+40, len(lines)*16+30))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	for i, line := range lines {
		drawText(small, 20, 20+i*16, line, color.Black)
	}

	b := small.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := small.At(x, y)
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(x*scale+dx, y*scale+dy, c)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func recognizeOrSkip(t *testing.T, r *TesseractRecognizer, data []byte) [][]string {
	t.Helper()
	resp, err := r.Recognize(context.Background(), data)
	if err != nil {
		// Tesseract or its language data might not be installed
		if errors.Is(err, ErrRecognition) {
			t.Skipf("Tesseract not available: %v", err)
		}
		t.Fatalf("Recognize failed: %v", err)
	}

	anns := resp.Annotations()
	out := make([][]string, 0, len(anns))
	for i, a := range anns {
		if a.BoundingPoly == nil || len(a.BoundingPoly.Vertices) != 4 {
			t.Errorf("annotation %d: want a 4-vertex polygon", i)
		}
		out = append(out, strings.Fields(a.Description))
	}
	return out
}

func TestTesseract_AggregateFirst(t *testing.T) {
	r := NewTesseractRecognizer(TesseractOptions{Language: "eng"})
	words := recognizeOrSkip(t, r, renderLines(t, []string{"HELLO WORLD"}, 4))

	t.Logf("Recognized: %v", words)
	if len(words) == 0 {
		t.Skip("no text recognized; engine may lack eng data")
	}
	if len(words) < 2 {
		t.Fatalf("got %d annotations, want aggregate plus regions", len(words))
	}

	// The aggregate holds every region's text in order.
	var joined []string
	for _, w := range words[1:] {
		joined = append(joined, w...)
	}
	if strings.Join(words[0], " ") != strings.Join(joined, " ") {
		t.Errorf("aggregate %v does not match regions %v", words[0], joined)
	}
}

func TestTesseract_LineLevel(t *testing.T) {
	r := NewTesseractRecognizer(TesseractOptions{Language: "eng", Level: "line"})
	words := recognizeOrSkip(t, r, renderLines(t, []string{"RAMEN 900", "GYOZA 500"}, 4))

	t.Logf("Recognized: %v", words)
	// Four words on two lines; word level would give four regions.
	if len(words) > 4 {
		t.Errorf("line level should group words, got %d regions", len(words)-1)
	}
}

func TestTesseract_BlankImage(t *testing.T) {
	r := NewTesseractRecognizer(TesseractOptions{Language: "eng"})
	words := recognizeOrSkip(t, r, renderLines(t, []string{""}, 2))
	if len(words) != 0 {
		t.Logf("blank image produced %d annotations", len(words))
	}
}

func TestTesseract_MinConfidence(t *testing.T) {
	r := NewTesseractRecognizer(TesseractOptions{Language: "eng", MinConfidence: 101})
	words := recognizeOrSkip(t, r, renderLines(t, []string{"HELLO"}, 4))
	if len(words) != 0 {
		t.Errorf("nothing scores above 100, got %v", words)
	}
}

func TestTesseract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewTesseractRecognizer(TesseractOptions{})
	if _, err := r.Recognize(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestTesseract_InvalidImage(t *testing.T) {
	r := NewTesseractRecognizer(TesseractOptions{Language: "eng"})
	if _, err := r.Recognize(context.Background(), []byte("not an image")); err == nil {
		t.Error("expected error for invalid image data")
	}
}
