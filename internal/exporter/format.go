package exporter

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// formatFigure renders a figure for CSV output: "N/A" or the shortest
// decimal form.
func formatFigure(f domain.Figure) string {
	if !f.Valid {
		return "N/A"
	}
	return formatFloat(f.Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// slug turns an officer label into a file-name-safe token.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "officer"
	}
	return out
}
