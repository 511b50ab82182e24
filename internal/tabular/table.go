package tabular

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
)

// Table is a rectangular dataset with canonical column names. Cells are kept
// as the raw text the export carried; numeric coercion happens on read.
// Tables are not modified after loading and are safe for concurrent reads.
type Table struct {
	Name string
	// Columns are canonical (see columns.Normalize) and unique.
	Columns []string
	// Headers are the original header texts, aligned with Columns.
	Headers []string
	Rows    [][]string
	// HeaderOffset is the zero-based source row the header was found on.
	HeaderOffset int
	Kind         Kind
	// Encoding is the label used to decode delimited text.
	Encoding string
	// Fallback is set when Encoding is the fallback rather than the detected one.
	Fallback *apperrors.EncodingFallbackUsed
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the trimmed cell text, or "" when col is out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Number returns the numeric value of a cell and whether it was coercible.
func (t *Table) Number(row, col int) (float64, bool) {
	return ParseNumber(t.Cell(row, col))
}

// Index returns the position of a canonical column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

var leadingNumber = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*[-–—:(]`)

// ParseNumber coerces spreadsheet text to a number. It accepts thousands
// separators and a leading score followed by a label ("5 - Very satisfied").
// Blank cells and markers such as "N/A" or "-" are not numeric.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	clean := strings.ReplaceAll(s, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")
	if v, err := strconv.ParseFloat(clean, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	if m := leadingNumber.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
