//go:build !cgo

package ocr

import (
	"context"
	"errors"

	"github.com/ironsheep/menu-lens/internal/region"
)

// TesseractRecognizer is unavailable without cgo.
type TesseractRecognizer struct {
	opts TesseractOptions
}

// NewTesseractRecognizer creates a recognizer that always fails.
func NewTesseractRecognizer(opts TesseractOptions) *TesseractRecognizer {
	return &TesseractRecognizer{opts: opts}
}

// Version returns an empty string.
func (t *TesseractRecognizer) Version() string { return "" }

// Recognize returns ErrUnavailable.
func (t *TesseractRecognizer) Recognize(ctx context.Context, data []byte) (*region.RawResponse, error) {
	return nil, &Error{Backend: tesseractBackend, Kind: ErrUnavailable, Err: errors.New("built without cgo")}
}
