// Package tabular turns raw roster, caseload and survey exports into
// rectangular tables with canonical column names, locating the real header
// row among title and legend rows.
package tabular

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/worldsofmind/lab-newsletter-generator/internal/charset"
	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
)

// DefaultMaxHeaderOffset bounds the header search; real exports never bury
// the header deeper than this.
const DefaultMaxHeaderOffset = 20

// Source is one uploaded file.
type Source struct {
	// Name is the file name; its extension is only a container hint.
	Name string
	Data []byte
	Kind Kind
}

// Marker decides whether a candidate header row is the real one.
type Marker struct {
	// Name describes the marker in errors, e.g. "name or abbreviation".
	Name  string
	Match func(cols []string) bool
}

// Options tune a Loader.
type Options struct {
	MaxHeaderOffset     int
	ConfidenceThreshold int
	// FallbackEncoding decodes text the detected encoding rejects.
	FallbackEncoding string
	// Sheet selects a worksheet by name; empty means the first non-empty one.
	Sheet string
}

// Loader reads sources into tables.
type Loader struct {
	opts     Options
	detector *charset.Detector
	logger   *slog.Logger
}

// NewLoader creates a loader. Zero options select the defaults.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxHeaderOffset <= 0 {
		opts.MaxHeaderOffset = DefaultMaxHeaderOffset
	}
	if opts.FallbackEncoding == "" {
		opts.FallbackEncoding = charset.Windows1252
	}
	return &Loader{
		opts:     opts,
		detector: charset.NewDetector(opts.ConfidenceThreshold),
		logger:   logger.With(slog.String("component", "tabular_loader")),
	}
}

// Load reads src and returns the table whose header is the first row within
// the bounded search range that satisfies marker.
func (l *Loader) Load(ctx context.Context, src Source, marker Marker) (*Table, error) {
	kind := DetectKind(src.Kind, src.Name, src.Data)
	table := &Table{Name: src.Name, Kind: kind}

	var (
		rows [][]string
		err  error
	)
	switch kind {
	case KindSpreadsheet:
		rows, err = readSpreadsheet(src.Data, l.opts.Sheet)
	case KindLegacySpreadsheet:
		rows, err = readLegacySpreadsheet(src.Data)
	default:
		rows, err = l.readText(ctx, src, table)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}

	offset, err := FindHeader(rows, l.opts.MaxHeaderOffset, marker.Match)
	if err != nil {
		return nil, &apperrors.HeaderNotFoundError{
			File:      src.Name,
			Marker:    marker.Name,
			Attempted: min(len(rows), l.opts.MaxHeaderOffset+1),
		}
	}

	cols, err := columns.NormalizeAll(rows[offset])
	if err != nil {
		return nil, fmt.Errorf("%s: header row %d: %w", src.Name, offset, err)
	}
	table.Columns = cols
	table.Headers = append([]string(nil), rows[offset]...)
	table.HeaderOffset = offset
	table.Rows = rectangular(rows[offset+1:], len(cols))

	l.logger.InfoContext(ctx, "table loaded",
		slog.String("file", src.Name),
		slog.String("kind", kind.String()),
		slog.Int("header_offset", offset),
		slog.Int("columns", len(cols)),
		slog.Int("rows", len(table.Rows)),
		slog.String("encoding", table.Encoding))

	return table, nil
}

func (l *Loader) readText(ctx context.Context, src Source, table *Table) ([][]string, error) {
	det := l.detector.Detect(src.Data)
	decoded, err := charset.DecodeWithFallback(src.Data, det.Label, l.opts.FallbackEncoding)
	if err != nil {
		return nil, err
	}
	table.Encoding = decoded.Label

	if decoded.FallbackReason != "" {
		table.Fallback = &apperrors.EncodingFallbackUsed{
			File:     src.Name,
			Detected: det.Label,
			Used:     decoded.Label,
			Reason:   decoded.FallbackReason,
		}
		l.logger.WarnContext(ctx, "encoding fallback used",
			slog.String("file", src.Name),
			slog.String("detected", det.Label),
			slog.Int("confidence", det.Confidence),
			slog.String("used", decoded.Label),
			slog.String("reason", decoded.FallbackReason))
	}

	return readDelimited(decoded.Text)
}

// FindHeader returns the first offset in [0, maxOffset] whose normalized
// cells satisfy match. It is a pure bounded search: later offsets are never
// consulted once an earlier one matches.
func FindHeader(rows [][]string, maxOffset int, match func(cols []string) bool) (int, error) {
	for offset := 0; offset <= maxOffset && offset < len(rows); offset++ {
		cols := make([]string, len(rows[offset]))
		for i, cell := range rows[offset] {
			cols[i] = columns.Normalize(cell)
		}
		if match(cols) {
			return offset, nil
		}
	}
	return -1, fmt.Errorf("no header within %d rows", maxOffset+1)
}

// rectangular pads or truncates every row to width and drops rows that are
// entirely blank.
func rectangular(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		r := make([]string, width)
		copy(r, row)
		out = append(out, r)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
