package region

import (
	"encoding/json"
	"fmt"
)

// Point is a pixel coordinate in natural (unscaled) image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextRegion is one recognized word or phrase with its bounding quadrilateral.
type TextRegion struct {
	// Text is the fragment exactly as recognized, including any trailing
	// newline the recognizer attached.
	Text string `json:"text"`

	// Corners are ordered top-left, top-right, bottom-right, bottom-left.
	Corners [4]Point `json:"corners"`
}

// TopLeft returns the first corner.
func (r TextRegion) TopLeft() Point { return r.Corners[0] }

// RawVertex is a polygon vertex as reported by the recognizer. A nil
// coordinate means the field was absent from the payload.
type RawVertex struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// RawPoly is a bounding polygon as reported by the recognizer.
type RawPoly struct {
	Vertices []RawVertex `json:"vertices"`
}

// RawAnnotation is one entry of a response's textAnnotations list.
type RawAnnotation struct {
	Description  string   `json:"description"`
	Locale       string   `json:"locale,omitempty"`
	BoundingPoly *RawPoly `json:"boundingPoly,omitempty"`
}

// RawStatus is the per-image error a recognizer may attach to a response.
type RawStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RawImageResponse is the result for a single image.
type RawImageResponse struct {
	TextAnnotations []RawAnnotation `json:"textAnnotations,omitempty"`
	Error           *RawStatus      `json:"error,omitempty"`
}

// RawResponse is the complete recognizer payload.
type RawResponse struct {
	Responses []RawImageResponse `json:"responses"`
}

// Annotations returns the annotation list of the first response, or nil when
// the payload carries none.
func (r *RawResponse) Annotations() []RawAnnotation {
	if r == nil || len(r.Responses) == 0 {
		return nil
	}
	return r.Responses[0].TextAnnotations
}

// Err reports the per-image error of the first response, if any.
func (r *RawResponse) Err() error {
	if r == nil || len(r.Responses) == 0 || r.Responses[0].Error == nil {
		return nil
	}
	st := r.Responses[0].Error
	return fmt.Errorf("recognizer error %d: %s", st.Code, st.Message)
}

// Decode parses a raw recognizer payload. An empty body decodes to an empty
// response.
func Decode(data []byte) (*RawResponse, error) {
	var resp RawResponse
	if len(data) == 0 {
		return &resp, nil
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode recognizer response: %w", err)
	}
	return &resp, nil
}

// Coord returns a pointer to v, for building RawVertex values.
func Coord(v float64) *float64 { return &v }

// Vertex builds a RawVertex with both coordinates present.
func Vertex(x, y float64) RawVertex {
	return RawVertex{X: Coord(x), Y: Coord(y)}
}
