// Package ratings aggregates satisfaction-survey answers per officer and per
// rated case.
package ratings

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

const scoreDecimals = 2

// DefaultQuestions are the survey questions reported when none are configured.
var DefaultQuestions = []string{
	"Courtesy",
	"Clarity of explanation",
	"Responsiveness",
	"Professionalism",
	"Overall satisfaction",
}

// Result is the survey part of one officer's report.
type Result struct {
	Survey   []domain.QuestionScore
	InHouse  []domain.CaseRating
	Assigned []domain.CaseRating
}

type question struct {
	label string
	col   int
}

// Aggregator reads one ratings table for a fixed, ordered question list.
type Aggregator struct {
	table     *tabular.Table
	questions []question
	caseRef   int
	applicant int
	category  int
	logger    *slog.Logger
}

// New resolves the question and case columns of t. Questions without a
// column are dropped, which omits them from every report.
func New(aliases columns.AliasTable, t *tabular.Table, labels []string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(labels) == 0 {
		labels = DefaultQuestions
	}
	a := &Aggregator{
		table:     t,
		caseRef:   find(aliases, t, columns.CaseRef),
		applicant: find(aliases, t, columns.Applicant),
		category:  find(aliases, t, columns.CaseCategory),
		logger:    logger.With(slog.String("component", "rating_aggregator")),
	}

	reserved := []int{a.caseRef, a.applicant, a.category}
	for _, label := range labels {
		col := questionColumn(t, label, reserved)
		if col < 0 {
			a.logger.Debug("survey question has no column", slog.String("question", label))
			continue
		}
		a.questions = append(a.questions, question{label: label, col: col})
	}
	return a
}

// Questions returns the labels that resolved to a column, in report order.
func (a *Aggregator) Questions() []string {
	return lo.Map(a.questions, func(q question, _ int) string { return q.label })
}

// Aggregate computes the per-question means over rows and the per-case
// scores split by case category.
func (a *Aggregator) Aggregate(ctx context.Context, rows []int) Result {
	res := Result{
		Survey:   []domain.QuestionScore{},
		InHouse:  []domain.CaseRating{},
		Assigned: []domain.CaseRating{},
	}

	sums := make([]float64, len(a.questions))
	counts := make([]int, len(a.questions))

	for _, row := range rows {
		var answers []float64
		for i, q := range a.questions {
			if v, ok := a.table.Number(row, q.col); ok {
				sums[i] += v
				counts[i]++
				answers = append(answers, v)
			}
		}

		ref, applicant := a.table.Cell(row, a.caseRef), a.table.Cell(row, a.applicant)
		if ref == "" || applicant == "" || len(answers) == 0 {
			continue
		}
		rating := domain.CaseRating{
			CaseRef:   ref,
			Applicant: applicant,
			Score:     round(lo.Sum(answers) / float64(len(answers))),
		}

		switch columns.CategoryOf(a.table.Cell(row, a.category)) {
		case domain.CategoryInHouse:
			res.InHouse = append(res.InHouse, rating)
		case domain.CategoryAssigned:
			res.Assigned = append(res.Assigned, rating)
		default:
			a.logger.WarnContext(ctx, "rated case has no category",
				slog.String("case_ref", ref),
				slog.String("value", a.table.Cell(row, a.category)))
		}
	}

	for i, q := range a.questions {
		if counts[i] == 0 {
			continue
		}
		res.Survey = append(res.Survey, domain.QuestionScore{
			Question:  q.label,
			Mean:      round(sums[i] / float64(counts[i])),
			Responses: counts[i],
		})
	}
	return res
}

func find(aliases columns.AliasTable, t *tabular.Table, c columns.Concept) int {
	idx, err := aliases.Find(t.Columns, c)
	if err != nil {
		return -1
	}
	return idx
}

// questionColumn matches a question label against canonical headers, exact
// first and then by containment, skipping the case columns.
func questionColumn(t *tabular.Table, label string, reserved []int) int {
	want := columns.Normalize(label)
	if want == "" {
		return -1
	}
	for i, c := range t.Columns {
		if c == want && !lo.Contains(reserved, i) {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.Contains(c, want) && !lo.Contains(reserved, i) {
			return i
		}
	}
	return -1
}

func round(v float64) float64 {
	p := math.Pow(10, scoreDecimals)
	return math.Round(v*p) / p
}
