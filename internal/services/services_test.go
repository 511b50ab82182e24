package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldsofmind/lab-newsletter-generator/internal/report"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

type generatorFunc func(ctx context.Context, in report.Inputs) (*report.Result, error)

func (f generatorFunc) Generate(ctx context.Context, in report.Inputs) (*report.Result, error) {
	return f(ctx, in)
}

func TestReportServiceAppliesTimeout(t *testing.T) {
	svc := NewReportService(generatorFunc(func(ctx context.Context, _ report.Inputs) (*report.Result, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return &report.Result{}, nil
	}), time.Minute, nil)

	_, err := svc.Generate(context.Background(), report.Inputs{})
	require.NoError(t, err)
}

func TestReportServiceGenerateAndExport(t *testing.T) {
	result := &report.Result{
		Questions: []string{"Courtesy"},
		Reports: []domain.Report{{
			Identity:      domain.Identity{Name: "Jane Doe", Abbreviation: "JD"},
			SurveyRatings: []domain.QuestionScore{},
			InHouseCases:  []domain.CaseRating{},
			AssignedCases: []domain.CaseRating{},
		}},
	}
	svc := NewReportService(generatorFunc(func(context.Context, report.Inputs) (*report.Result, error) {
		return result, nil
	}), 0, nil)

	dir := filepath.Join(t.TempDir(), "out")
	res, files, err := svc.GenerateAndExport(context.Background(), report.Inputs{}, dir)
	require.NoError(t, err)
	assert.Same(t, result, res)
	assert.Equal(t, []string{"jd.json"}, files.Officers)
	assert.FileExists(t, filepath.Join(dir, files.Summary))
}

func TestReportServicePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewReportService(generatorFunc(func(context.Context, report.Inputs) (*report.Result, error) {
		return nil, boom
	}), 0, nil)

	_, _, err := svc.GenerateAndExport(context.Background(), report.Inputs{}, t.TempDir())
	assert.ErrorIs(t, err, boom)
}

func TestHealthService(t *testing.T) {
	hs := NewHealthService("1.2.3", map[string]func(context.Context) error{
		"pipeline": func(context.Context) error { return nil },
		"output":   func(context.Context) error { return errors.New("not writable") },
	}, nil)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(context.Background()).Status)
	assert.Equal(t, "1.2.3", hs.Version()["version"])
	assert.Equal(t, contracts.DataFormatVersion, hs.Version()["data_format"])

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "ready", ready.Services["pipeline"].Status)
	assert.Equal(t, "not writable", ready.Services["output"].Message)
}
