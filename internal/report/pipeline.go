package report

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/infrastructure"
	"github.com/worldsofmind/lab-newsletter-generator/internal/period"
	"github.com/worldsofmind/lab-newsletter-generator/internal/ratings"
	"github.com/worldsofmind/lab-newsletter-generator/internal/resolver"
	"github.com/worldsofmind/lab-newsletter-generator/internal/stats"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Inputs are the three exports of one run plus an optional officer selection.
type Inputs struct {
	Roster   tabular.Source
	Caseload tabular.Source
	Ratings  tabular.Source
	// Select restricts output to these names or abbreviations.
	Select []string
}

// Result is the outcome of one run. Reports follow roster order.
type Result struct {
	RunID     string                            `json:"run_id"`
	Period    domain.ReportingPeriod            `json:"period"`
	Pattern   period.Pattern                    `json:"period_pattern"`
	Questions []string                          `json:"questions"`
	Reports   []domain.Report                   `json:"reports"`
	Fallbacks []*apperrors.EncodingFallbackUsed `json:"encoding_fallbacks,omitempty"`
}

// Options configure a Pipeline.
type Options struct {
	Loader tabular.Options
	// Aliases are extra column spellings merged into the default alias table.
	Aliases   map[string][]string
	Questions []string
	// Workers bounds per-officer aggregation; zero means GOMAXPROCS.
	Workers int
}

// Pipeline generates reports. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	opts     Options
	aliases  columns.AliasTable
	loader   *tabular.Loader
	resolver *resolver.Resolver
	stats    *stats.Aggregator
	logger   *slog.Logger
	metrics  *infrastructure.ReportMetrics
	tracer   trace.Tracer
	validate *validator.Validate
	now      func() time.Time
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(opts Options, logger *slog.Logger, metrics *infrastructure.ReportMetrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if len(opts.Questions) == 0 {
		opts.Questions = ratings.DefaultQuestions
	}
	aliases := columns.DefaultAliases().Extend(opts.Aliases)
	logger = infrastructure.WithComponent(logger, "report_pipeline")

	return &Pipeline{
		opts:     opts,
		aliases:  aliases,
		loader:   tabular.NewLoader(opts.Loader, logger),
		resolver: resolver.New(aliases, logger),
		stats:    stats.New(aliases, logger),
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(infrastructure.MeterName),
		validate: validator.New(),
		now:      time.Now,
	}
}

type loaded struct {
	roster, caseload, ratings *tabular.Table
}

// Generate runs one report generation. Any ingestion error aborts the run
// and no partial result is returned.
func (p *Pipeline) Generate(ctx context.Context, in Inputs) (res *Result, err error) {
	start := p.now()
	runID := uuid.NewString()
	reports := 0
	ctx = infrastructure.EnsureTraceID(ctx)

	ctx, span := p.tracer.Start(ctx, "report.generate", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("select.count", len(in.Select)),
	))
	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		span.End()
		p.metrics.RecordRun(ctx, p.now().Sub(start), reports, err)
	}()

	log := p.logger.With(slog.String("run_id", runID))
	log.InfoContext(ctx, "report generation started",
		slog.String("roster", in.Roster.Name),
		slog.String("caseload", in.Caseload.Name),
		slog.String("ratings", in.Ratings.Name))

	tables, err := p.load(ctx, in)
	if err != nil {
		log.ErrorContext(ctx, "ingestion failed", slog.String("error", err.Error()))
		return nil, err
	}

	res = &Result{RunID: runID}
	for _, t := range []*tabular.Table{tables.roster, tables.caseload, tables.ratings} {
		if t.Fallback != nil {
			res.Fallbacks = append(res.Fallbacks, t.Fallback)
			if p.metrics != nil {
				p.metrics.EncodingFallbacks.Add(ctx, 1)
			}
		}
	}

	res.Period, res.Pattern, err = period.Extract(tables.caseload.Columns)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("period.start", res.Period.DateStart.Format(time.DateOnly)),
		attribute.String("period.end", res.Period.DateEnd.Format(time.DateOnly)))

	resolution, err := p.resolver.Resolve(ctx, tables.roster, tables.caseload, tables.ratings)
	if err != nil {
		return nil, err
	}

	snapshot := p.stats.Prepare(ctx, tables.caseload, res.Period, resolution)
	survey := ratings.New(p.aliases, tables.ratings, p.opts.Questions, log)
	res.Questions = survey.Questions()

	matches := resolution.Select(ctx, log, in.Select)
	res.Reports, err = p.assemble(ctx, runID, res.Period, matches, snapshot, survey)
	if err != nil {
		return nil, err
	}
	reports = len(res.Reports)

	log.InfoContext(ctx, "report generation finished",
		slog.Int("reports", reports),
		slog.String("period", res.Period.RangeText()),
		slog.Duration("duration", p.now().Sub(start)))
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, in Inputs) (loaded, error) {
	ctx, span := p.tracer.Start(ctx, "report.load")
	defer span.End()

	var out loaded
	identity := []columns.Concept{columns.Name, columns.Abbreviation}
	withOfficer := []columns.Concept{columns.Name, columns.Abbreviation, columns.Officer}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.roster, err = p.loader.Load(gctx, in.Roster, p.marker(identity...))
		return err
	})
	g.Go(func() (err error) {
		out.caseload, err = p.loader.Load(gctx, in.Caseload, p.marker(identity...))
		return err
	})
	g.Go(func() (err error) {
		out.ratings, err = p.loader.Load(gctx, in.Ratings, p.marker(withOfficer...))
		return err
	})
	if err := g.Wait(); err != nil {
		return loaded{}, err
	}
	return out, nil
}

// marker accepts a row that names one of the identity concepts and has at
// least two filled cells, which rules out single-cell title rows.
func (p *Pipeline) marker(concepts ...columns.Concept) tabular.Marker {
	has := p.aliases.Marker(concepts...)
	names := make([]string, len(concepts))
	for i, c := range concepts {
		names[i] = string(c)
	}
	return tabular.Marker{
		Name: joinOr(names),
		Match: func(cols []string) bool {
			filled := 0
			for _, c := range cols {
				if c != "" {
					filled++
				}
			}
			return filled >= 2 && has(cols)
		},
	}
}

func (p *Pipeline) assemble(ctx context.Context, runID string, rp domain.ReportingPeriod, matches []resolver.Match, snapshot *stats.Snapshot, survey *ratings.Aggregator) ([]domain.Report, error) {
	ctx, span := p.tracer.Start(ctx, "report.aggregate", trace.WithAttributes(attribute.Int("officers", len(matches))))
	defer span.End()

	generated := p.now().UTC()
	out := make([]domain.Report, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, m := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Assemble(Parts{
				RunID:       runID,
				GeneratedAt: generated,
				Identity:    m.Entity,
				Period:      rp,
				Own:         snapshot.Own(gctx, m.Entity, m.CaseloadRows),
				Peer:        snapshot.Peer(m.Entity.Role),
				Ratings:     survey.Aggregate(gctx, m.RatingRows),
			})
			if err := p.validate.Struct(out[i]); err != nil {
				return fmt.Errorf("report for %s: %w", m.Entity.Label(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func joinOr(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	out := names[0]
	for _, n := range names[1 : len(names)-1] {
		out += ", " + n
	}
	return out + " or " + names[len(names)-1]
}
