package http

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/exporter"
	"github.com/worldsofmind/lab-newsletter-generator/internal/report"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
)

// Upload form fields.
const (
	FieldRoster   = "roster"
	FieldCaseload = "caseload"
	FieldRatings  = "ratings"
	FieldSelect   = "select"
)

// multipartMemory is kept in memory before multipart parts spill to disk.
const multipartMemory = 8 << 20

// ReportGenerator is the service the handler delegates to.
type ReportGenerator interface {
	Generate(ctx context.Context, in report.Inputs) (*report.Result, error)
}

// ReportHandler generates reports from multipart uploads.
type ReportHandler struct {
	service      ReportGenerator
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler.
func NewReportHandler(service ReportGenerator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validate:     validator.New(),
		logger:       logger.With(slog.String("handler", "report")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Generate)
	r.Post("/summary.csv", h.Summary)
	return r
}

type upload struct {
	Field string `validate:"required"`
	Name  string `validate:"required,max=255"`
	Size  int    `validate:"gt=0"`
}

type reportRequest struct {
	Roster   upload
	Caseload upload
	Ratings  upload
	Select   []string `validate:"max=500,dive,min=1,max=200"`

	inputs report.Inputs
}

// Generate handles POST /api/reports
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res)
}

// Summary handles POST /api/reports/summary.csv
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.SummaryCSV))
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.Write(exporter.SummaryHeaders(res.Questions))
	for _, rep := range res.Reports {
		cw.Write(exporter.SummaryRow(rep, res.Questions))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write summary", slog.String("error", err.Error()))
	}
}

func (h *ReportHandler) run(w http.ResponseWriter, r *http.Request) (*report.Result, bool) {
	req, err := h.parse(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	res, err := h.service.Generate(r.Context(), req.inputs)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	h.logger.InfoContext(r.Context(), "reports generated",
		slog.String("run_id", res.RunID),
		slog.Int("reports", len(res.Reports)),
		slog.Int("encoding_fallbacks", len(res.Fallbacks)))
	return res, true
}

func (h *ReportHandler) parse(r *http.Request) (*reportRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierrors.ErrPayloadTooLarge
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}

	req := &reportRequest{Select: parseSelect(r.MultipartForm.Value[FieldSelect])}
	var err error
	if req.Roster, req.inputs.Roster, err = readUpload(r, FieldRoster); err != nil {
		return nil, err
	}
	if req.Caseload, req.inputs.Caseload, err = readUpload(r, FieldCaseload); err != nil {
		return nil, err
	}
	if req.Ratings, req.inputs.Ratings, err = readUpload(r, FieldRatings); err != nil {
		return nil, err
	}
	req.inputs.Select = req.Select

	if err := h.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return req, nil
}

func readUpload(r *http.Request, field string) (upload, tabular.Source, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload{}, tabular.Source{}, apierrors.MissingFile(field)
		}
		return upload{}, tabular.Source{}, apierrors.InvalidRequestWithError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, tabular.Source{}, apierrors.InvalidRequestWithError(err)
	}
	return upload{Field: field, Name: header.Filename, Size: len(data)},
		tabular.Source{Name: header.Filename, Data: data},
		nil
}

// parseSelect accepts repeated fields and comma-separated lists.
func parseSelect(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   strings.ToLower(fe.Namespace()),
			Message: validationMessage(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
