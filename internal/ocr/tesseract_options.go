package ocr

import "strings"

const tesseractBackend = "tesseract"

// DefaultTesseractLanguage recognizes Japanese menus with English fallback.
const DefaultTesseractLanguage = "jpn+eng"

// TesseractOptions configures TesseractRecognizer.
type TesseractOptions struct {
	// Language is a Tesseract language spec such as "jpn" or "jpn+eng".
	Language string

	// TessdataPrefix is the directory holding *.traineddata files. Empty
	// uses the engine's default location.
	TessdataPrefix string

	// Level is "word" (default) or "line"; it sets which page units become regions.
	Level string

	// MinConfidence drops units scored below it, on Tesseract's 0-100 scale.
	MinConfidence float64
}

func (o TesseractOptions) languages() []string {
	lang := o.Language
	if lang == "" {
		lang = DefaultTesseractLanguage
	}
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (o TesseractOptions) lineLevel() bool {
	return strings.EqualFold(strings.TrimSpace(o.Level), "line")
}
