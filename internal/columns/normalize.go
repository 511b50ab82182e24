// Package columns canonicalizes spreadsheet headers and resolves them to the
// concepts the statistics need through a single alias table.
package columns

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
)

// Normalize canonicalizes a header or identity value: Unicode NFC, trim,
// case-fold and collapse every whitespace run (line breaks included) to a
// single space. It is total and idempotent.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Key is the matching key used to join identities across sources.
func Key(s string) string {
	return Normalize(s)
}

// NormalizeAll canonicalizes an ordered header list. Blank headers get a
// positional name so that rows stay addressable. Two distinct originals that
// normalize to the same name yield a ColumnCollisionError.
func NormalizeAll(names []string) ([]string, error) {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, name := range names {
		c := Normalize(name)
		if c == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		if j, ok := seen[c]; ok {
			return nil, &apperrors.ColumnCollisionError{Canonical: c, First: names[j], Second: name}
		}
		seen[c] = i
		out[i] = c
	}
	return out, nil
}

// containsWord reports whether token occurs in s delimited by non-letters, so
// that "assigned" does not match inside "reassigned".
func containsWord(s, token string) bool {
	if token == "" {
		return false
	}
	for from := 0; from <= len(s)-len(token); {
		i := strings.Index(s[from:], token)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(token)
		if !isLetterBefore(s, i) && !isLetterAt(s, end) {
			return true
		}
		from = i + 1
	}
	return false
}

func isLetterBefore(s string, i int) bool {
	return i > 0 && isLetter(s[i-1])
}

func isLetterAt(s string, i int) bool {
	return i < len(s) && isLetter(s[i])
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}
