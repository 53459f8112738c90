package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

var (
	// ErrEmptyImage is returned for a zero-length upload.
	ErrEmptyImage = errors.New("image data is empty")

	// ErrUnsupportedFormat is returned when no registered decoder accepts the bytes.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Info contains metadata about an uploaded image.
type Info struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the sniffed format name: "jpeg", "png", "gif", "webp", "bmp" or "tiff".
	Format string `json:"format"`

	// MimeType is derived from Format.
	MimeType string `json:"mime_type"`

	// SizeBytes is the length of the encoded data.
	SizeBytes int `json:"size_bytes"`

	// Orientation is the EXIF orientation tag, 1 (upright) through 8.
	// Images without the tag report 1.
	Orientation int `json:"orientation"`
}

// Inspect sniffs the format and dimensions of encoded image data without
// decoding the pixels. Dimensions are those stored in the file, before any
// EXIF orientation is applied.
func Inspect(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	return &Info{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		MimeType:    MimeType(format),
		SizeBytes:   len(data),
		Orientation: exifOrientation(data, format),
	}, nil
}

// exifOrientation reads the orientation tag of a JPEG or TIFF. Missing or
// malformed EXIF data counts as upright.
func exifOrientation(data []byte, format string) int {
	if format != "jpeg" && format != "tiff" {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// Decode decodes image data, rotating it upright according to its EXIF
// orientation tag.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// MimeType maps a format name from image.DecodeConfig to its media type.
func MimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// ReadFile reads an image file from disk. A maxBytes of zero or less means no limit.
func ReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image file exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// DecodePayload decodes an image sent as text: plain base64 or a data URL
// such as "data:image/jpeg;base64,...". The prefix, when present, is dropped.
func DecodePayload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[comma+1:]
	}
	if s == "" {
		return nil, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip padding.
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	return data, nil
}

// ImageCache keeps recently decoded images so overlays and crops of the same
// upload do not decode it again. Keys are chosen by the caller and must
// change whenever the underlying bytes do.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	images *lru.Cache[string, image.Image]
}

// NewImageCache creates a cache holding at most size decoded images.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = 16
	}
	c, _ := lru.New[string, image.Image](size)
	return &ImageCache{images: c}
}

// Load returns the cached image for key or decodes data and caches it.
func (c *ImageCache) Load(key string, data []byte) (image.Image, error) {
	if img, ok := c.images.Get(key); ok {
		return img, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	c.images.Add(key, img)
	return img, nil
}

// Evict removes key from the cache.
func (c *ImageCache) Evict(key string) {
	c.images.Remove(key)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.images.Purge()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	return c.images.Len()
}
