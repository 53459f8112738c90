package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironsheep/menu-lens/internal/region"
)

var (
	// ErrRecognition marks a failed call to a recognition backend.
	ErrRecognition = errors.New("text recognition failed")

	// ErrUnavailable marks a backend that cannot run in this build or environment.
	ErrUnavailable = errors.New("text recognition backend unavailable")

	// ErrNoCredentials is returned when the Vision backend has nothing to authenticate with.
	ErrNoCredentials = errors.New("no Vision credentials configured")
)

// Recognizer detects text in an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*region.RawResponse, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) (*region.RawResponse, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (*region.RawResponse, error) {
	return f(ctx, image)
}

// Error wraps a backend failure with the backend name.
type Error struct {
	Backend string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Backend, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func recognitionError(backend string, err error) error {
	return &Error{Backend: backend, Kind: ErrRecognition, Err: err}
}

// textAnnotation builds an annotation whose polygon is the axis-aligned box
// (x0,y0)-(x1,y1) in clockwise order from the top-left.
func textAnnotation(text string, x0, y0, x1, y1 int) region.RawAnnotation {
	fx0, fy0, fx1, fy1 := float64(x0), float64(y0), float64(x1), float64(y1)
	return region.RawAnnotation{
		Description: text,
		BoundingPoly: &region.RawPoly{Vertices: []region.RawVertex{
			region.Vertex(fx0, fy0),
			region.Vertex(fx1, fy0),
			region.Vertex(fx1, fy1),
			region.Vertex(fx0, fy1),
		}},
	}
}
