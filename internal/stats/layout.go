package stats

import (
	"context"
	"log/slog"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	"github.com/worldsofmind/lab-newsletter-generator/internal/period"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Layout records which caseload column holds each counter. Missing columns
// are -1 and degrade the affected figure to N/A.
type Layout struct {
	cols map[domain.Category]map[columns.Measure]int
	role int
}

// Column returns the column index of a counter, or -1.
func (l Layout) Column(c domain.Category, m columns.Measure) int {
	if idx, ok := l.cols[c][m]; ok {
		return idx
	}
	return -1
}

// plan resolves every counter column once per table.
func plan(ctx context.Context, aliases columns.AliasTable, t *tabular.Table, p domain.ReportingPeriod, logger *slog.Logger) Layout {
	l := Layout{cols: make(map[domain.Category]map[columns.Measure]int, len(domain.Categories)), role: -1}
	if idx, err := aliases.Find(t.Columns, columns.Role); err == nil {
		l.role = idx
	}

	for _, c := range domain.Categories {
		m := make(map[columns.Measure]int, len(columns.Measures))
		opening, ending := asAtColumns(aliases, t.Columns, c, p)
		for _, measure := range columns.Measures {
			idx := -1
			switch {
			case measure == columns.Opening && opening >= 0:
				idx = opening
			case measure == columns.Ending && ending >= 0:
				idx = ending
			default:
				if found, err := aliases.Find(t.Columns, columns.CaseloadConcept(c, measure)); err == nil {
					idx = found
				} else if measure != columns.Reassigned {
					logger.DebugContext(ctx, "caseload column missing",
						slog.String("table", t.Name),
						slog.String("concept", string(columns.CaseloadConcept(c, measure))))
				}
			}
			m[measure] = idx
		}
		l.cols[c] = m
	}
	return l
}

// asAtColumns finds the "<category> caseload as at <date>" columns dated on
// the first and last day of the period.
func asAtColumns(aliases columns.AliasTable, cols []string, c domain.Category, p domain.ReportingPeriod) (opening, ending int) {
	opening, ending = -1, -1
	for _, idx := range aliases.FindAll(cols, columns.CaseloadConcept(c, columns.AsAt)) {
		for _, d := range period.DatesIn(cols[idx]) {
			if opening < 0 && d.Equal(p.DateStart) {
				opening = idx
			}
			if ending < 0 && d.Equal(p.DateEnd) {
				ending = idx
			}
		}
	}
	return opening, ending
}
