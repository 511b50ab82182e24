// Package period derives the reporting period from date tokens embedded in
// caseload column headers.
package period

import (
	"regexp"
	"strconv"
	"time"

	"github.com/samber/lo"

	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Pattern identifies which header convention produced a period.
type Pattern string

const (
	PatternRange  Pattern = "range"  // "new cases 08/05/2024 to 02/08/2024"
	PatternAsAt   Pattern = "as-at"  // "in-house caseload as at 08/05/2024"
	PatternTokens Pattern = "tokens" // any header with two or more dates
)

// Patterns lists the conventions in priority order.
var Patterns = []Pattern{PatternRange, PatternAsAt, PatternTokens}

const dateToken = `(\d{1,2}[/.]\d{1,2}[/.](?:\d{4}|\d{2}))`

var (
	dateRe  = regexp.MustCompile(`(?:^|[^\d])` + dateToken + `(?:$|[^\d])`)
	rangeRe = regexp.MustCompile(dateToken + `\s*(?:to|until|till|-|–|—)\s*` + dateToken)
	asAtRe  = regexp.MustCompile(`\bas (?:at|of)\s+` + dateToken)
	partsRe = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{2}|\d{4})$`)
)

// Extract scans normalized headers and returns the period of the first
// convention that matches. The result does not depend on header order:
// every matching header contributes, and start/end are the earliest and
// latest dates found.
func Extract(headers []string) (domain.ReportingPeriod, Pattern, error) {
	if dates := rangeDates(headers); len(dates) > 0 {
		return span(dates), PatternRange, nil
	}
	if dates := asAtDates(headers); len(dates) >= 2 {
		return span(dates), PatternAsAt, nil
	}
	if dates := tokenDates(headers); len(dates) >= 2 {
		return span(dates), PatternTokens, nil
	}
	return domain.ReportingPeriod{}, "", &apperrors.PeriodNotFoundError{
		Patterns: lo.Map(Patterns, func(p Pattern, _ int) string { return string(p) }),
		Headers:  len(headers),
	}
}

func rangeDates(headers []string) []time.Time {
	var out []time.Time
	for _, h := range headers {
		for _, m := range rangeRe.FindAllStringSubmatch(h, -1) {
			a, okA := ParseDate(m[1])
			b, okB := ParseDate(m[2])
			if okA && okB {
				out = append(out, a, b)
			}
		}
	}
	return lo.Uniq(out)
}

func asAtDates(headers []string) []time.Time {
	var out []time.Time
	for _, h := range headers {
		for _, m := range asAtRe.FindAllStringSubmatch(h, -1) {
			if d, ok := ParseDate(m[1]); ok {
				out = append(out, d)
			}
		}
	}
	return lo.Uniq(out)
}

func tokenDates(headers []string) []time.Time {
	var out []time.Time
	for _, h := range headers {
		dates := DatesIn(h)
		if len(dates) >= 2 {
			out = append(out, dates[0], dates[len(dates)-1])
		}
	}
	return lo.Uniq(out)
}

func span(dates []time.Time) domain.ReportingPeriod {
	start := lo.MinBy(dates, func(a, b time.Time) bool { return a.Before(b) })
	end := lo.MaxBy(dates, func(a, b time.Time) bool { return a.After(b) })
	return domain.NewReportingPeriod(start, end)
}

// DatesIn returns the valid day/month/year dates in s, in order of
// appearance.
func DatesIn(s string) []time.Time {
	var out []time.Time
	// Tokens may share a delimiter ("01/01/2024 02/02/2024"), so scan by
	// advancing past each match's date group rather than the whole match.
	for rest := s; ; {
		loc := dateRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			return out
		}
		if d, ok := ParseDate(rest[loc[2]:loc[3]]); ok {
			out = append(out, d)
		}
		rest = rest[loc[3]:]
	}
}

// ParseDate parses a day/month/year token. Two-digit years are 20xx.
// Impossible dates such as 31/02/2024 are rejected.
func ParseDate(token string) (time.Time, bool) {
	m := partsRe.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}
