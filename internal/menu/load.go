package menu

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrMissingColumns is returned when the header row lacks a name or
// description column.
var ErrMissingColumns = errors.New("menu table header must contain name and description columns")

// LoadOptions controls how a menu table is read.
type LoadOptions struct {
	// Encoding is "auto" (default), "utf-8", "shift_jis" or "euc-jp".
	// Auto strips a UTF-8 BOM and falls back to Shift_JIS for bytes that are
	// not valid UTF-8, which is what spreadsheet exports on Japanese Windows
	// produce.
	Encoding string

	// Delimiter separates fields. Defaults to ','.
	Delimiter rune

	// Fallback replaces DefaultFallback.
	Fallback string
}

var encodings = map[string]encoding.Encoding{
	"utf-8":     unicode.UTF8,
	"utf8":      unicode.UTF8,
	"shift_jis": japanese.ShiftJIS,
	"sjis":      japanese.ShiftJIS,
	"euc-jp":    japanese.EUCJP,
}

// LoadFile reads a menu table from path.
func LoadFile(path string, opts LoadOptions) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open menu table: %w", err)
	}
	defer f.Close()

	m, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Load reads a delimited table whose header row names a "name" and a
// "description" column (any order, case-insensitive). Rows with an empty
// name or description are skipped.
func Load(r io.Reader, opts LoadOptions) (*Map, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu table: %w", err)
	}

	text, err := decode(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return New(nil, WithFallback(opts.Fallback)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read menu header: %w", err)
	}

	nameCol, descCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameCol = i
		case "description":
			descCol = i
		}
	}
	if nameCol < 0 || descCol < 0 {
		return nil, ErrMissingColumns
	}

	m := New(nil, WithFallback(opts.Fallback))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read menu row: %w", err)
		}
		if nameCol >= len(rec) || descCol >= len(rec) {
			continue
		}
		m.add(rec[nameCol], rec[descCol])
	}
	return m, nil
}

// decode converts raw table bytes to UTF-8.
func decode(raw []byte, name string) ([]byte, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
		if utf8.Valid(raw) {
			return raw, nil
		}
		name = "shift_jis"
	}

	enc, ok := encodings[name]
	if !ok {
		return nil, fmt.Errorf("unsupported menu encoding: %q", name)
	}

	// BOMOverride lets a UTF-8 BOM win over the declared encoding.
	dec := unicode.BOMOverride(enc.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode menu table as %s: %w", name, err)
	}
	return out, nil
}
