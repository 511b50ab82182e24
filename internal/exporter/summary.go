package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

const (
	SummaryCSV      = "summary.csv"
	SummaryWorkbook = "summary.xlsx"
	summarySheet    = "Summary"
)

var measureLabels = []struct {
	label string
	pick  func(domain.CategoryFigures) domain.Figure
}{
	{"Opening", func(c domain.CategoryFigures) domain.Figure { return c.Opening }},
	{"Added", func(c domain.CategoryFigures) domain.Figure { return c.Added }},
	{"NFA", func(c domain.CategoryFigures) domain.Figure { return c.Closed }},
	{"Reassigned", func(c domain.CategoryFigures) domain.Figure { return c.Reassigned }},
	{"Ending", func(c domain.CategoryFigures) domain.Figure { return c.Ending }},
}

var categoryLabels = map[domain.Category]string{
	domain.CategoryInHouse:  "In-House",
	domain.CategoryAssigned: "Assigned",
}

// Files lists what an export wrote, relative to the output directory.
type Files struct {
	Summary  string   `json:"summary"`
	Workbook string   `json:"workbook"`
	Officers []string `json:"officers"`
}

// Exporter writes the hand-off files consumed by the renderer: a summary
// table in CSV and XLSX form plus one JSON document per officer.
type Exporter struct {
	dir    string
	csv    *CSVWriter
	logger *slog.Logger
}

// New creates an exporter writing into dir.
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		dir:    dir,
		csv:    NewCSVWriter(dir),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Export writes every report. questions fixes the survey columns of the
// summary.
func (e *Exporter) Export(ctx context.Context, reports []domain.Report, questions []string) (Files, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return Files{}, fmt.Errorf("create output directory: %w", err)
	}

	headers := SummaryHeaders(questions)
	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = SummaryRow(r, questions)
	}

	if err := e.csv.WriteSimpleCSV(SummaryCSV, headers, rows); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", SummaryCSV, err)
	}
	if err := writeWorkbook(filepath.Join(e.dir, SummaryWorkbook), headers, rows); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", SummaryWorkbook, err)
	}

	files := Files{Summary: SummaryCSV, Workbook: SummaryWorkbook, Officers: make([]string, 0, len(reports))}
	used := make(map[string]bool, len(reports))
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		name := uniqueName(slug(r.Identity.Label()), used) + ".json"

		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return files, fmt.Errorf("encode report for %s: %w", r.Identity.Label(), err)
		}
		if err := os.WriteFile(filepath.Join(e.dir, name), data, 0644); err != nil {
			return files, fmt.Errorf("write %s: %w", name, err)
		}
		files.Officers = append(files.Officers, name)
	}

	e.logger.InfoContext(ctx, "reports exported",
		slog.String("dir", e.dir),
		slog.Int("officers", len(files.Officers)))
	return files, nil
}

// SummaryHeaders returns the summary column titles.
func SummaryHeaders(questions []string) []string {
	headers := []string{"Name", "Abbreviation", "Role", "Period Start", "Period End"}
	for _, c := range domain.Categories {
		for _, m := range measureLabels {
			headers = append(headers, categoryLabels[c]+" "+m.label)
		}
	}
	for _, c := range domain.Categories {
		for _, m := range measureLabels {
			headers = append(headers, "Peer "+categoryLabels[c]+" "+m.label)
		}
	}
	headers = append(headers, "Peer Cohort Size")
	for _, q := range questions {
		headers = append(headers, "Survey "+q)
	}
	return append(headers, "In-House Cases Rated", "Assigned Cases Rated")
}

// SummaryRow flattens one report in SummaryHeaders order. Questions the
// officer has no responses for are left blank.
func SummaryRow(r domain.Report, questions []string) []string {
	row := []string{
		r.Identity.Name,
		r.Identity.Abbreviation,
		r.Identity.Role,
		r.Period.RawStart,
		r.Period.RawEnd,
	}
	for _, figs := range []domain.Figures{r.Own, r.Peer.Figures} {
		for _, c := range domain.Categories {
			cf := figs.For(c)
			for _, m := range measureLabels {
				row = append(row, formatFigure(m.pick(cf)))
			}
		}
	}
	row = append(row, strconv.Itoa(r.Peer.CohortSize))
	for _, q := range questions {
		if mean, ok := r.SurveyMean(q); ok {
			row = append(row, formatFloat(mean))
		} else {
			row = append(row, "")
		}
	}
	return append(row, strconv.Itoa(len(r.InHouseCases)), strconv.Itoa(len(r.AssignedCases)))
}

func writeWorkbook(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	write := func(i int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for j, v := range values {
			if n, err := strconv.ParseFloat(v, 64); err == nil && j >= 5 {
				row[j] = n
			} else {
				row[j] = v
			}
		}
		return f.SetSheetRow(summarySheet, cell, &row)
	}

	if err := write(0, headers); err != nil {
		return err
	}
	for i, r := range rows {
		if err := write(i+1, r); err != nil {
			return err
		}
	}
	if err := f.SetPanes(summarySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// uniqueName suffixes base with -2, -3, ... until it is unused, then marks
// the result used.
func uniqueName(base string, used map[string]bool) string {
	name := base
	for n := 2; used[name]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}
