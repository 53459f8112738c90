package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Default preprocessing limits applied before recognition.
const (
	DefaultMaxBytes     = 1 << 20
	DefaultMaxDimension = 1024
)

const (
	startQuality = 90
	minQuality   = 40
	qualityStep  = 10
	shrinkFactor = 0.8
	minDimension = 16
)

// Compressor shrinks uploads so the longer edge is at most MaxDimension and
// the encoded size is at most MaxBytes. Zero fields take the defaults.
type Compressor struct {
	MaxBytes     int
	MaxDimension int

	// Enhance converts to grayscale and raises contrast, which helps
	// recognition on dim photographs.
	Enhance bool

	// Contrast is the contrast change used by Enhance, in [-1, 1].
	Contrast float64
}

// Compressed is the output of Compress. Width and Height are the dimensions
// of Data and define the natural pixel space of every region recognized in it.
type Compressed struct {
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MimeType string `json:"mime_type"`

	// Quality is the JPEG quality used, or 0 when the original bytes were kept.
	Quality int `json:"quality"`

	// Original describes the upload before compression.
	Original Info `json:"original"`
}

// Resized reports whether Compress changed the pixel dimensions.
func (c *Compressed) Resized() bool {
	return c.Width != c.Original.Width || c.Height != c.Original.Height
}

func (c Compressor) limits() (int, int) {
	maxBytes, maxDim := c.MaxBytes, c.MaxDimension
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return maxBytes, maxDim
}

// Compress decodes data, fits it within the configured limits and re-encodes
// it as JPEG. Data that is already a JPEG or PNG within both limits, with no
// EXIF rotation and Enhance off, is returned unchanged.
func (c Compressor) Compress(data []byte) (*Compressed, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	maxBytes, maxDim := c.limits()

	b := img.Bounds()
	if !c.Enhance && info.Orientation == 1 && len(data) <= maxBytes &&
		b.Dx() <= maxDim && b.Dy() <= maxDim &&
		(info.Format == "jpeg" || info.Format == "png") {
		return &Compressed{
			Data:     data,
			Width:    info.Width,
			Height:   info.Height,
			MimeType: info.MimeType,
			Original: *info,
		}, nil
	}

	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	if c.Enhance {
		img = enhance(img, c.Contrast)
	}
	img = flatten(img)

	for {
		for q := startQuality; q >= minQuality; q -= qualityStep {
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
				return nil, fmt.Errorf("failed to encode image: %w", err)
			}
			b := img.Bounds()
			if buf.Len() <= maxBytes || (q == minQuality && (b.Dx() <= minDimension || b.Dy() <= minDimension)) {
				return &Compressed{
					Data:     buf.Bytes(),
					Width:    b.Dx(),
					Height:   b.Dy(),
					MimeType: "image/jpeg",
					Quality:  q,
					Original: *info,
				}, nil
			}
		}
		b := img.Bounds()
		w := int(float64(b.Dx()) * shrinkFactor)
		h := int(float64(b.Dy()) * shrinkFactor)
		if w < minDimension {
			w = minDimension
		}
		if h < minDimension {
			h = minDimension
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
}

func enhance(img image.Image, contrast float64) image.Image {
	if contrast == 0 {
		contrast = 0.3
	}
	return adjust.Contrast(effect.Grayscale(img), contrast)
}

// flatten composites img onto white so transparent pixels do not turn black in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
