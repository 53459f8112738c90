// Package imaging prepares menu photos for recognition and renders previews
// of the recognized regions.
//
// # Preprocessing
//
// Compressor mirrors what a browser does before uploading a photo: it honors
// EXIF orientation, fits the image within a maximum pixel dimension and
// re-encodes it as JPEG at decreasing quality until it is under a byte
// budget. The dimensions of the result define the natural pixel space that
// every recognized region lives in. With Enhance set, the image is also
// converted to grayscale and its contrast raised.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based, with (0,0) at the
// top-left corner, X increasing rightward and Y increasing downward.
// Rectangles are given as layout.Rect in natural image pixels.
//
// # Previews
//
// RenderOverlay outlines hit-targets on a copy of the image, optionally with
// each target's key as a label, and CropRegion cuts out a single region.
// Both return PNG bytes alongside a base64 form for JSON transports.
//
// # Decoding
//
// Decode and Inspect accept JPEG, PNG, GIF, WebP, BMP and TIFF. ImageCache
// keeps recently decoded images so repeated previews of one upload do not
// decode it again; it is safe for concurrent use.
package imaging
