//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/menu-lens/internal/region"
)

// TesseractRecognizer detects text with a local Tesseract engine.
// Each call uses its own engine instance, so it is safe for concurrent use.
type TesseractRecognizer struct {
	opts TesseractOptions
}

// NewTesseractRecognizer creates a recognizer with the given options.
func NewTesseractRecognizer(opts TesseractOptions) *TesseractRecognizer {
	return &TesseractRecognizer{opts: opts}
}

// Version returns the linked Tesseract version.
func (t *TesseractRecognizer) Version() string {
	return gosseract.Version()
}

// Recognize runs Tesseract on data and returns one annotation per word (or
// line), preceded by an aggregate annotation covering all of them.
func (t *TesseractRecognizer) Recognize(ctx context.Context, data []byte) (*region.RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return nil, recognitionError(tesseractBackend, fmt.Errorf("failed to set tessdata path: %w", err))
		}
	}
	if err := client.SetLanguage(t.opts.languages()...); err != nil {
		return nil, recognitionError(tesseractBackend, fmt.Errorf("failed to set language: %w", err))
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, recognitionError(tesseractBackend, fmt.Errorf("failed to set image: %w", err))
	}

	level, sep := gosseract.RIL_WORD, " "
	if t.opts.lineLevel() {
		level, sep = gosseract.RIL_TEXTLINE, "\n"
	}
	boxes, err := client.GetBoundingBoxes(level)
	if err != nil {
		return nil, recognitionError(tesseractBackend, err)
	}

	// The engine cannot be interrupted, but a caller that gave up does not
	// need the result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		anns  []region.RawAnnotation
		texts []string
		union image.Rectangle
	)
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || b.Confidence < t.opts.MinConfidence {
			continue
		}
		anns = append(anns, textAnnotation(text, b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y))
		texts = append(texts, text)
		union = union.Union(b.Box)
	}

	resp := region.RawImageResponse{}
	if len(anns) > 0 {
		all := textAnnotation(strings.Join(texts, sep), union.Min.X, union.Min.Y, union.Max.X, union.Max.Y)
		resp.TextAnnotations = append([]region.RawAnnotation{all}, anns...)
	}
	return &region.RawResponse{Responses: []region.RawImageResponse{resp}}, nil
}
