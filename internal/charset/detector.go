// Package charset guesses the text encoding of delimited exports and decodes
// them to UTF-8, falling back to Windows-1252 when the guess does not hold.
package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// UTF8 is the default label.
	UTF8 = "UTF-8"
	// Windows1252 is the legacy single-byte fallback label.
	Windows1252 = "windows-1252"
	// DefaultConfidenceThreshold is the minimum detector confidence (0-100)
	// accepted before falling back to UTF-8.
	DefaultConfidenceThreshold = 50
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detection is the outcome of Detect.
type Detection struct {
	Label      string
	Confidence int
	// Fallback is set when Label is the default rather than a detector result.
	Fallback bool
}

// Detector guesses encodings with a confidence threshold.
type Detector struct {
	threshold int
}

// NewDetector creates a detector. A non-positive threshold selects the default.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Detector{threshold: threshold}
}

// Detect inspects raw bytes and always returns a usable label. The slice is
// only read.
func (d *Detector) Detect(raw []byte) Detection {
	if bytes.HasPrefix(raw, utf8BOM) || utf8.Valid(raw) {
		return Detection{Label: UTF8, Confidence: 100}
	}
	res, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || res == nil || res.Confidence < d.threshold {
		return Detection{Label: UTF8, Fallback: true}
	}
	if _, err := Lookup(res.Charset); err != nil {
		return Detection{Label: UTF8, Confidence: res.Confidence, Fallback: true}
	}
	return Detection{Label: res.Charset, Confidence: res.Confidence}
}

// Detect runs a detector with the default threshold.
func Detect(raw []byte) Detection {
	return NewDetector(DefaultConfidenceThreshold).Detect(raw)
}

// Lookup resolves an encoding label such as "ISO-8859-1" or "utf-8".
func Lookup(label string) (encoding.Encoding, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" || l == "utf-8" || l == "utf8" {
		return unicode.UTF8, nil
	}
	e, err := htmlindex.Get(l)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return e, nil
}

// Decoded is text transcoded to UTF-8.
type Decoded struct {
	Text string
	// Label is the encoding actually used.
	Label string
	// FallbackReason is non-empty when Label differs from the requested one.
	FallbackReason string
}

// Decode transcodes raw bytes from label to UTF-8, stripping a UTF-8 BOM.
// When label does not decode the bytes cleanly it retries exactly once with
// Windows-1252, which accepts any byte sequence.
func Decode(raw []byte, label string) (Decoded, error) {
	return DecodeWithFallback(raw, label, Windows1252)
}

// DecodeWithFallback is Decode with a configurable fallback encoding.
func DecodeWithFallback(raw []byte, label, fallback string) (Decoded, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	text, err := decodeWith(raw, label)
	if err == nil {
		return Decoded{Text: text, Label: label}, nil
	}

	text, ferr := decodeWith(raw, fallback)
	if ferr != nil {
		return Decoded{}, fmt.Errorf("decode as %s: %w (fallback %s: %v)", label, err, fallback, ferr)
	}
	return Decoded{Text: text, Label: fallback, FallbackReason: err.Error()}, nil
}

func decodeWith(raw []byte, label string) (string, error) {
	enc, err := Lookup(label)
	if err != nil {
		return "", err
	}
	if enc == unicode.UTF8 {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(raw), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("decoder for %s produced invalid UTF-8", label)
	}
	return string(out), nil
}
