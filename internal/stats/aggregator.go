// Package stats computes per-officer caseload counters and cohort peer
// averages from a resolved caseload table.
package stats

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	"github.com/worldsofmind/lab-newsletter-generator/internal/resolver"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// peerDecimals is the precision cohort averages are reported with.
const peerDecimals = 1

// Aggregator builds Snapshots for a caseload table.
type Aggregator struct {
	aliases columns.AliasTable
	logger  *slog.Logger
}

// New creates an aggregator.
func New(aliases columns.AliasTable, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		aliases: aliases,
		logger:  logger.With(slog.String("component", "stats_aggregator")),
	}
}

// Snapshot is a caseload table prepared for per-officer queries. Cohort
// averages are computed up front so that Own and Peer are read-only and
// safe to call from several goroutines.
type Snapshot struct {
	table    *tabular.Table
	layout   Layout
	owners   []int
	entities []domain.Identity
	cohorts  map[string]domain.PeerFigures
	logger   *slog.Logger
}

// Prepare resolves the column layout and precomputes the peer cohorts.
func (a *Aggregator) Prepare(ctx context.Context, t *tabular.Table, p domain.ReportingPeriod, res *resolver.Resolution) *Snapshot {
	s := &Snapshot{
		table:    t,
		layout:   plan(ctx, a.aliases, t, p, a.logger),
		owners:   res.CaseloadOwner,
		entities: res.Entities,
		logger:   a.logger,
	}
	s.cohorts = s.buildCohorts(ctx)
	return s
}

// Layout returns the resolved column layout.
func (s *Snapshot) Layout() Layout {
	return s.layout
}

// Own sums the counters over the given caseload rows. An officer without
// rows gets zeros for every column the table has.
func (s *Snapshot) Own(ctx context.Context, who domain.Identity, rows []int) domain.Figures {
	var f domain.Figures
	for _, c := range domain.Categories {
		cf := s.categoryFigures(c, rows)
		cf.Reassigned = s.reassigned(ctx, who.Label(), c, cf, rows)
		f = f.With(c, cf)
	}
	return f
}

// Peer returns the averages of the cohort sharing role.
func (s *Snapshot) Peer(role string) domain.PeerFigures {
	if p, ok := s.cohorts[columns.Key(role)]; ok {
		return p
	}
	return domain.PeerFigures{
		Cohort:  role,
		Figures: naFigures(),
	}
}

func (s *Snapshot) categoryFigures(c domain.Category, rows []int) domain.CategoryFigures {
	return domain.CategoryFigures{
		Opening: s.sum(s.layout.Column(c, columns.Opening), rows),
		Added:   s.sum(s.layout.Column(c, columns.Additions), rows),
		Closed:  s.sum(s.layout.Column(c, columns.NFA), rows),
		Ending:  s.sum(s.layout.Column(c, columns.Ending), rows),
	}
}

// reassigned prefers an explicit column; otherwise it is derived from the
// conservation identity opening + added - closed - reassigned = ending.
func (s *Snapshot) reassigned(ctx context.Context, who string, c domain.Category, cf domain.CategoryFigures, rows []int) domain.Figure {
	if col := s.layout.Column(c, columns.Reassigned); col >= 0 {
		return s.sum(col, rows)
	}
	v, ok := Conserve(cf)
	if !ok {
		return domain.NA
	}
	if v < 0 {
		s.logger.WarnContext(ctx, "caseload counters do not balance",
			slog.String("officer", who),
			slog.String("category", string(c)),
			slog.Float64("reassigned", v))
		return domain.Of(0)
	}
	return domain.Of(v)
}

// Conserve derives the reassigned count. The result may be negative when the
// source counters are inconsistent; ok is false if any input is N/A.
func Conserve(cf domain.CategoryFigures) (float64, bool) {
	if !cf.Opening.Valid || !cf.Added.Valid || !cf.Closed.Valid || !cf.Ending.Valid {
		return 0, false
	}
	return cf.Opening.Value + cf.Added.Value - cf.Closed.Value - cf.Ending.Value, true
}

func (s *Snapshot) sum(col int, rows []int) domain.Figure {
	if col < 0 {
		return domain.NA
	}
	total := 0.0
	for _, r := range rows {
		if v, ok := s.table.Number(r, col); ok {
			total += v
		}
	}
	return domain.Of(total)
}

// cohortMember holds the rows one officer contributes to a cohort. Rows that
// did not resolve to a roster entry each form their own member.
type cohortMember struct {
	rows []int
}

func (s *Snapshot) buildCohorts(ctx context.Context) map[string]domain.PeerFigures {
	type cohort struct {
		label   string
		members map[int]*cohortMember
		order   []int
	}
	cohorts := make(map[string]*cohort)
	var keys []string

	for row := 0; row < s.table.Len(); row++ {
		owner := -1
		if row < len(s.owners) {
			owner = s.owners[row]
		}
		role := s.table.Cell(row, s.layout.role)
		if role == "" && owner >= 0 {
			role = s.entities[owner].Role
		}
		key := columns.Key(role)
		if key == "" {
			continue
		}

		co, ok := cohorts[key]
		if !ok {
			co = &cohort{label: role, members: make(map[int]*cohortMember)}
			cohorts[key] = co
			keys = append(keys, key)
		}
		member := owner
		if member < 0 {
			member = len(s.entities) + row
		}
		m, ok := co.members[member]
		if !ok {
			m = &cohortMember{}
			co.members[member] = m
			co.order = append(co.order, member)
		}
		m.rows = append(m.rows, row)
	}

	out := make(map[string]domain.PeerFigures, len(cohorts))
	for _, key := range keys {
		co := cohorts[key]
		members := lo.Map(co.order, func(id int, _ int) *cohortMember { return co.members[id] })
		peer := domain.PeerFigures{Cohort: co.label, CohortSize: len(members)}
		for _, c := range domain.Categories {
			peer.Figures = peer.Figures.With(c, s.cohortAverage(ctx, co.label, c, members))
		}
		out[key] = peer
	}
	return out
}

// cohortAverage averages each counter over the members that have a numeric
// value for it. Members without one are left out of the denominator.
func (s *Snapshot) cohortAverage(ctx context.Context, label string, c domain.Category, members []*cohortMember) domain.CategoryFigures {
	var (
		opening, added, closed, reassigned, ending []float64
	)
	for _, m := range members {
		cf := domain.CategoryFigures{
			Opening: s.numericSum(s.layout.Column(c, columns.Opening), m.rows),
			Added:   s.numericSum(s.layout.Column(c, columns.Additions), m.rows),
			Closed:  s.numericSum(s.layout.Column(c, columns.NFA), m.rows),
			Ending:  s.numericSum(s.layout.Column(c, columns.Ending), m.rows),
		}
		if col := s.layout.Column(c, columns.Reassigned); col >= 0 {
			cf.Reassigned = s.numericSum(col, m.rows)
		} else if v, ok := Conserve(cf); ok {
			cf.Reassigned = domain.Of(max(v, 0))
		}
		opening = appendValid(opening, cf.Opening)
		added = appendValid(added, cf.Added)
		closed = appendValid(closed, cf.Closed)
		reassigned = appendValid(reassigned, cf.Reassigned)
		ending = appendValid(ending, cf.Ending)
	}
	s.logger.DebugContext(ctx, "cohort averaged",
		slog.String("cohort", label),
		slog.String("category", string(c)),
		slog.Int("members", len(members)))
	return domain.CategoryFigures{
		Opening:    Mean(opening),
		Added:      Mean(added),
		Closed:     Mean(closed),
		Reassigned: Mean(reassigned),
		Ending:     Mean(ending),
	}
}

// numericSum is sum restricted to rows that hold a number; a member whose
// cells are all blank or "N/A" yields N/A rather than zero.
func (s *Snapshot) numericSum(col int, rows []int) domain.Figure {
	if col < 0 {
		return domain.NA
	}
	total, seen := 0.0, false
	for _, r := range rows {
		if v, ok := s.table.Number(r, col); ok {
			total += v
			seen = true
		}
	}
	if !seen {
		return domain.NA
	}
	return domain.Of(total)
}

// Mean averages values rounded to one decimal, or N/A for no values.
func Mean(values []float64) domain.Figure {
	if len(values) == 0 {
		return domain.NA
	}
	return domain.Of(lo.Sum(values) / float64(len(values))).Rounded(peerDecimals)
}

func appendValid(dst []float64, f domain.Figure) []float64 {
	if f.Valid {
		return append(dst, f.Value)
	}
	return dst
}

func naFigures() domain.Figures {
	na := domain.CategoryFigures{
		Opening: domain.NA, Added: domain.NA, Closed: domain.NA, Reassigned: domain.NA, Ending: domain.NA,
	}
	return domain.Figures{InHouse: na, Assigned: na}
}
