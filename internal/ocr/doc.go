// Package ocr turns image bytes into a recognition payload.
//
// Every backend returns a *region.RawResponse shaped like a Google Cloud
// Vision TEXT_DETECTION reply: the first annotation is the aggregate of all
// text in the image and the remaining annotations are the individual
// regions. region.Extract consumes that shape regardless of which backend
// produced it.
//
// # Backends
//
//   - VisionRecognizer calls the Cloud Vision images:annotate endpoint using a
//     service account (client email and private key), a credentials file or
//     an API key.
//   - TesseractRecognizer runs a local Tesseract engine through gosseract. It
//     needs cgo and the language data for the configured language; builds
//     without cgo get a stub that always fails with ErrUnavailable.
//
// CachingRecognizer wraps either backend and memoizes results by the SHA-256
// of the image bytes, in process (MemoryStore) or in Redis (RedisStore).
//
// # Prerequisites
//
// Tesseract and its language data must be installed for the local backend:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn
//   - macOS: brew install tesseract tesseract-lang
//
// # Error Handling
//
// Backend failures are wrapped in *Error so callers can tell a transport or
// service failure (ErrRecognition) from a missing backend (ErrUnavailable).
// An image with no text is not an error; it yields a payload with no
// annotations.
package ocr
