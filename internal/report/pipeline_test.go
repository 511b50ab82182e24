package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/worldsofmind/lab-newsletter-generator/internal/config"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/infrastructure"
	"github.com/worldsofmind/lab-newsletter-generator/internal/period"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

const rosterCSV = `Name,Abbreviation,Function
Jane Doe,JD,LO
Ann Lee,AL,LO
Bob Tan,BT,LE
`

const caseloadCSV = `LAB Caseload Report
Generated for internal circulation
,
Name,Abbreviation,Function,In-House Caseload as at 08/05/2024,In-House New Cases 08/05/2024 to 02/08/2024,In-House NFA,In-House Caseload as at 02/08/2024,Assigned Caseload as at 08/05/2024,Assigned New Cases,Assigned NFA,Assigned Caseload as at 02/08/2024
Jane Doe,JD,LO,20,5,4,18,6,1,2,5
Ann Lee,AL,LO,10,2,1,11,0,0,0,0
Bob Tan,BT,LE,7,1,1,7,3,0,1,1
`

const ratingsCSV = `Officer Satisfaction Survey
Officer,Case Ref,Applicant,Case Type,Courtesy,Overall satisfaction
Jane Doe,C1,App A,In-House,4,5
JD,C2,App B,Assigned,5,4
Ann Lee,C3,App C,In-House,3,3
`

func inputs() Inputs {
	return Inputs{
		Roster:   tabular.Source{Name: "roster.csv", Data: []byte(rosterCSV)},
		Caseload: tabular.Source{Name: "caseload.csv", Data: []byte(caseloadCSV)},
		Ratings:  tabular.Source{Name: "ratings.csv", Data: []byte(ratingsCSV)},
	}
}

func TestGenerate(t *testing.T) {
	res, err := NewPipeline(Options{Workers: 2}, nil, nil).Generate(context.Background(), inputs())
	require.NoError(t, err)

	assert.Len(t, res.RunID, 36)
	assert.Equal(t, period.PatternRange, res.Pattern)
	assert.Equal(t, "08/05/2024", res.Period.RawStart)
	assert.Equal(t, "02/08/2024", res.Period.RawEnd)
	assert.Equal(t, "Personal Statistics - May–Aug 2024", res.Period.Subject())
	assert.Equal(t, []string{"Courtesy", "Overall satisfaction"}, res.Questions)
	assert.Empty(t, res.Fallbacks)

	require.Len(t, res.Reports, 3)
	names := []string{res.Reports[0].Identity.Name, res.Reports[1].Identity.Name, res.Reports[2].Identity.Name}
	assert.Equal(t, []string{"Jane Doe", "Ann Lee", "Bob Tan"}, names)

	jane := res.Reports[0]
	assert.Equal(t, res.RunID, jane.RunID)
	assert.Equal(t, domain.Of(20), jane.Own.InHouse.Opening)
	assert.Equal(t, domain.Of(5), jane.Own.InHouse.Added)
	assert.Equal(t, domain.Of(4), jane.Own.InHouse.Closed)
	assert.Equal(t, domain.Of(18), jane.Own.InHouse.Ending)
	assert.Equal(t, domain.Of(3), jane.Own.InHouse.Reassigned)
	assert.Equal(t, domain.Of(0), jane.Own.Assigned.Reassigned)

	assert.Equal(t, "LO", jane.Peer.Cohort)
	assert.Equal(t, 2, jane.Peer.CohortSize)
	assert.Equal(t, domain.Of(15), jane.Peer.Figures.InHouse.Opening)
	assert.Equal(t, domain.Of(14.5), jane.Peer.Figures.InHouse.Ending)
	assert.Equal(t, domain.Of(1.5), jane.Peer.Figures.InHouse.Reassigned)

	assert.Equal(t, []domain.QuestionScore{
		{Question: "Courtesy", Mean: 4.5, Responses: 2},
		{Question: "Overall satisfaction", Mean: 4.5, Responses: 2},
	}, jane.SurveyRatings)
	assert.Equal(t, []domain.CaseRating{{CaseRef: "C1", Applicant: "App A", Score: 4.5}}, jane.InHouseCases)
	assert.Equal(t, []domain.CaseRating{{CaseRef: "C2", Applicant: "App B", Score: 4.5}}, jane.AssignedCases)

	bob := res.Reports[2]
	assert.Equal(t, 1, bob.Peer.CohortSize)
	assert.Empty(t, bob.SurveyRatings)
	assert.NotNil(t, bob.InHouseCases)
	assert.Equal(t, domain.Of(1), bob.Own.Assigned.Reassigned)
}

func TestGenerateAsAtHeaders(t *testing.T) {
	in := Inputs{
		Roster: tabular.Source{Name: "roster.csv", Data: []byte("Name,Abbreviation,Function\nJane Doe,JD,LO\n")},
		Caseload: tabular.Source{Name: "caseload.csv", Data: []byte("Caseload Report\n" +
			"Legal Aid Bureau\n" +
			",\n" +
			"Name,Function,In-house Caseload as at 08/05/2024,In-house New Cases,In-house NFA,In-house Caseload as at 02/08/2024\n" +
			"Jane Doe,LO,20,5,4,18\n")},
		Ratings: tabular.Source{Name: "ratings.csv", Data: []byte("Officer,Case Ref,Applicant,Case Type,Courtesy\nJD,C1,App A,In-House,4\n")},
	}

	res, err := NewPipeline(Options{}, nil, nil).Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, period.PatternAsAt, res.Pattern)
	assert.Equal(t, "08/05/2024", res.Period.RawStart)
	assert.Equal(t, "02/08/2024", res.Period.RawEnd)
	assert.True(t, res.Period.DateStart.Before(res.Period.DateEnd))

	require.Len(t, res.Reports, 1)
	own := res.Reports[0].Own.InHouse
	assert.Equal(t, domain.Of(20), own.Opening)
	assert.Equal(t, domain.Of(5), own.Added)
	assert.Equal(t, domain.Of(4), own.Closed)
	assert.Equal(t, domain.Of(18), own.Ending)
	assert.Equal(t, domain.Of(3), own.Reassigned)
}

func TestGenerateSharedNames(t *testing.T) {
	in := Inputs{
		Roster: tabular.Source{Name: "roster.csv", Data: []byte("Name,Abbreviation,Function\nTan Wei,TW1,LO\nTan Wei,TW2,LE\n")},
		Caseload: tabular.Source{Name: "caseload.csv", Data: []byte(
			"Abbreviation,Function,In-House Caseload as at 08/05/2024,In-House New Cases,In-House NFA,In-House Caseload as at 02/08/2024\n" +
				"TW1,LO,10,2,1,9\n" +
				"TW2,LE,5,0,0,5\n")},
		Ratings: tabular.Source{Name: "ratings.csv", Data: []byte("Officer,Case Ref,Applicant,Case Type,Courtesy\nTW2,C1,App A,In-House,5\n")},
	}

	res, err := NewPipeline(Options{}, nil, nil).Generate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Reports, 2)

	first, second := res.Reports[0], res.Reports[1]
	assert.Equal(t, "TW1", first.Identity.Abbreviation)
	assert.Equal(t, domain.Of(10), first.Own.InHouse.Opening)
	assert.Equal(t, domain.Of(2), first.Own.InHouse.Reassigned)
	assert.Empty(t, first.SurveyRatings)

	assert.Equal(t, "TW2", second.Identity.Abbreviation)
	assert.Equal(t, domain.Of(5), second.Own.InHouse.Opening)
	assert.Equal(t, []domain.QuestionScore{{Question: "Courtesy", Mean: 5, Responses: 1}}, second.SurveyRatings)
}

func TestGenerateLogsCarryTraceID(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		traceID string
	}{
		{name: "generated", ctx: context.Background()},
		{name: "kept from caller", ctx: infrastructure.WithTraceID(context.Background(), "cli-run-1"), traceID: "cli-run-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
			require.NoError(t, err)

			_, err = NewPipeline(Options{}, logger, nil).Generate(tt.ctx, inputs())
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.NotEmpty(t, lines)

			var traceIDs []string
			for _, line := range lines {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &entry))
				if entry["component"] != "report_pipeline" {
					continue
				}
				id, _ := entry["trace_id"].(string)
				require.NotEmpty(t, id, line)
				traceIDs = append(traceIDs, id)
			}
			require.Len(t, traceIDs, 2)
			for _, id := range traceIDs {
				assert.Equal(t, traceIDs[0], id)
			}
			if tt.traceID != "" {
				assert.Equal(t, tt.traceID, traceIDs[0])
			}
		})
	}
}

func TestGenerateSelection(t *testing.T) {
	in := inputs()
	in.Select = []string{" bt ", "Nobody"}

	res, err := NewPipeline(Options{}, nil, nil).Generate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "Bob Tan", res.Reports[0].Identity.Name)
	// Peer figures still cover the whole cohort.
	assert.Equal(t, domain.Of(7), res.Reports[0].Peer.Figures.InHouse.Opening)
}

func TestGenerateIngestionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Inputs)
		check  func(t *testing.T, err error)
	}{
		{
			name: "ratings header missing",
			mutate: func(in *Inputs) {
				in.Ratings.Data = []byte("Survey\nQ1,Q2\n4,5\n")
			},
			check: func(t *testing.T, err error) {
				var target *apperrors.HeaderNotFoundError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "ratings.csv", target.File)
			},
		},
		{
			name: "caseload without dates",
			mutate: func(in *Inputs) {
				in.Caseload.Data = []byte("Name,In-House Opening,In-House End\nJane Doe,1,1\n")
			},
			check: func(t *testing.T, err error) {
				var target *apperrors.PeriodNotFoundError
				require.True(t, errors.As(err, &target))
			},
		},
		{
			name: "duplicate roster entry",
			mutate: func(in *Inputs) {
				in.Roster.Data = []byte(rosterCSV + "jane doe,,LE\n")
			},
			check: func(t *testing.T, err error) {
				var target *apperrors.DuplicateEntityError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "jane doe", target.Key)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inputs()
			tt.mutate(&in)
			res, err := NewPipeline(Options{}, nil, nil).Generate(context.Background(), in)
			require.Error(t, err)
			assert.Nil(t, res)
			tt.check(t, err)
		})
	}
}

func TestGenerateRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := infrastructure.NewReportMetrics(mp.Meter("test"))
	require.NoError(t, err)

	p := NewPipeline(Options{}, nil, metrics)
	_, err = p.Generate(context.Background(), inputs())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	reports := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "newsletter_reports_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				reports += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), reports)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(Options{}, nil, nil).Generate(ctx, inputs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssembleCopiesSlices(t *testing.T) {
	parts := Parts{RunID: "r"}
	parts.Ratings.InHouse = []domain.CaseRating{{CaseRef: "C1"}}

	rep := Assemble(parts)
	parts.Ratings.InHouse[0].CaseRef = "changed"

	assert.Equal(t, "C1", rep.InHouseCases[0].CaseRef)
	assert.NotNil(t, rep.SurveyRatings)
	assert.NotNil(t, rep.AssignedCases)
}

func TestJoinOr(t *testing.T) {
	assert.Equal(t, "", joinOr(nil))
	assert.Equal(t, "name", joinOr([]string{"name"}))
	assert.Equal(t, "name or abbreviation", joinOr([]string{"name", "abbreviation"}))
	assert.Equal(t, "name, abbreviation or officer", joinOr([]string{"name", "abbreviation", "officer"}))
}
