package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/worldsofmind/lab-newsletter-generator/internal/exporter"
	"github.com/worldsofmind/lab-newsletter-generator/internal/report"
)

// Generator produces reports from one set of uploads.
type Generator interface {
	Generate(ctx context.Context, in report.Inputs) (*report.Result, error)
}

// ReportService bounds report generation in time and optionally writes the
// results to disk.
type ReportService struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewReportService creates the service. A zero timeout disables the bound.
func NewReportService(generator Generator, timeout time.Duration, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		generator: generator,
		timeout:   timeout,
		logger:    logger.With(slog.String("service", "report")),
	}
}

// Generate runs one generation.
func (s *ReportService) Generate(ctx context.Context, in report.Inputs) (*report.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, in)
}

// GenerateAndExport runs one generation and writes the results into dir.
func (s *ReportService) GenerateAndExport(ctx context.Context, in report.Inputs, dir string) (*report.Result, exporter.Files, error) {
	res, err := s.Generate(ctx, in)
	if err != nil {
		return nil, exporter.Files{}, err
	}
	files, err := exporter.New(dir, s.logger).Export(ctx, res.Reports, res.Questions)
	return res, files, err
}
