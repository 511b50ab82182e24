package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/worldsofmind/lab-newsletter-generator/internal/app"
	"github.com/worldsofmind/lab-newsletter-generator/internal/config"
	"github.com/worldsofmind/lab-newsletter-generator/internal/exporter"
	"github.com/worldsofmind/lab-newsletter-generator/internal/files"
	"github.com/worldsofmind/lab-newsletter-generator/internal/infrastructure"
	"github.com/worldsofmind/lab-newsletter-generator/internal/report"
	"github.com/worldsofmind/lab-newsletter-generator/internal/services"
	"github.com/worldsofmind/lab-newsletter-generator/internal/validation"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts"
)

type options struct {
	roster     string
	caseload   string
	ratings    string
	dir        string
	out        string
	configPath string
	selection  string
	version    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "newsletter:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("newsletter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.roster, "roster", "", "staff roster file (csv, xlsx, xls)")
	fs.StringVar(&opts.caseload, "caseload", "", "caseload statistics file")
	fs.StringVar(&opts.ratings, "ratings", "", "survey ratings file")
	fs.StringVar(&opts.dir, "dir", "", "directory to discover roster, caseload and ratings files in")
	fs.StringVar(&opts.out, "out", "output", "directory the summary and per-officer files are written to")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (defaults to config.yaml lookup)")
	fs.StringVar(&opts.selection, "select", "", "comma-separated names or abbreviations; empty selects everyone")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.version {
		return opts, nil
	}

	explicit := opts.roster != "" || opts.caseload != "" || opts.ratings != ""
	switch {
	case opts.dir != "" && explicit:
		return opts, errors.New("use either -dir or -roster/-caseload/-ratings, not both")
	case opts.dir == "" && (opts.roster == "" || opts.caseload == "" || opts.ratings == ""):
		return opts, errors.New("-roster, -caseload and -ratings are required unless -dir is given")
	}
	return opts, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the run summary.
	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = cfg.Telemetry.TraceExporter
	otelCfg.SampleRatio = cfg.Telemetry.SampleRatio
	otelCfg.MetricExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.Background())

	paths, err := resolveInputs(opts, logger)
	if err != nil {
		return err
	}

	validator := validation.NewFileValidator(cfg.Security.MaxUploadBytes, logger)
	if err := validator.ValidateInputs(paths[files.RoleRoster], paths[files.RoleCaseload], paths[files.RoleRatings]); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(opts.out); err != nil {
		return err
	}

	in, err := readInputs(paths)
	if err != nil {
		return err
	}
	in.Select = splitSelection(opts.selection)

	service := services.NewReportService(
		report.NewPipeline(app.PipelineOptions(cfg), logger, nil),
		cfg.Server.ReportTimeout,
		logger,
	)
	res, written, err := service.GenerateAndExport(ctx, in, opts.out)
	if err != nil {
		return err
	}

	printSummary(stdout, res, written)
	return nil
}

func resolveInputs(opts options, logger *slog.Logger) (map[files.Role]string, error) {
	if opts.dir == "" {
		return map[files.Role]string{
			files.RoleRoster:   opts.roster,
			files.RoleCaseload: opts.caseload,
			files.RoleRatings:  opts.ratings,
		}, nil
	}

	if err := validation.NewFileValidator(0, logger).ValidateInputDirectory(opts.dir); err != nil {
		return nil, err
	}
	found, err := files.NewDiscovery("").Discover(opts.dir)
	if err != nil {
		return nil, err
	}

	paths := make(map[files.Role]string, len(found))
	for role, f := range found {
		logger.Info("Discovered input file",
			slog.String("role", string(role)),
			slog.String("file", f.Path))
		paths[role] = f.Path
	}
	return paths, nil
}

func readInputs(paths map[files.Role]string) (report.Inputs, error) {
	var in report.Inputs
	var err error
	if in.Roster, err = files.ReadSource(paths[files.RoleRoster]); err != nil {
		return in, err
	}
	if in.Caseload, err = files.ReadSource(paths[files.RoleCaseload]); err != nil {
		return in, err
	}
	if in.Ratings, err = files.ReadSource(paths[files.RoleRatings]); err != nil {
		return in, err
	}
	return in, nil
}

func splitSelection(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(w io.Writer, res *report.Result, written exporter.Files) {
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "Period: %s\n", res.Period.LongRangeText())
	for _, fb := range res.Fallbacks {
		fmt.Fprintf(w, "Warning: %s\n", fb.Error())
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROLE\tIN-HOUSE END\tASSIGNED END\tFILE")
	for i, r := range res.Reports {
		file := ""
		if i < len(written.Officers) {
			file = filepath.Base(written.Officers[i])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Identity.Name,
			r.Identity.Role,
			r.Own.InHouse.Ending,
			r.Own.Assigned.Ending,
			file)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nSummary: %s\nWorkbook: %s\n", written.Summary, written.Workbook)
}
