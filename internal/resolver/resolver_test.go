package resolver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	"github.com/worldsofmind/lab-newsletter-generator/internal/shared/testutil"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
)

func roster(rows ...[]string) *tabular.Table {
	return &tabular.Table{
		Name:    "roster.csv",
		Columns: []string{"name", "abbreviation", "function"},
		Rows:    rows,
	}
}

func TestResolve(t *testing.T) {
	caseload := &tabular.Table{
		Name:    "caseload.xlsx",
		Columns: []string{"abbreviation", "in-house opening"},
		Rows: [][]string{
			{"jd", "1"},
			{"XX", "2"},
			{" JD ", "3"},
		},
	}
	ratings := &tabular.Table{
		Name:    "ratings.csv",
		Columns: []string{"officer", "q1"},
		Rows: [][]string{
			{"JANE   DOE", "5"},
			{"Ann Lee", "4"},
		},
	}

	r := New(columns.DefaultAliases(), nil)
	res, err := r.Resolve(context.Background(),
		roster([]string{"Jane Doe", "JD", "LO"}, []string{"Ann Lee", "", "LE"}, []string{"New Joiner", "NJ", "LO"}),
		caseload, ratings)
	require.NoError(t, err)

	require.Len(t, res.Matches, 3)
	assert.Equal(t, "Jane Doe", res.Matches[0].Entity.Name)
	assert.Equal(t, []int{0, 2}, res.Matches[0].CaseloadRows)
	assert.Equal(t, []int{0}, res.Matches[0].RatingRows)

	assert.Empty(t, res.Matches[1].CaseloadRows)
	assert.Equal(t, []int{1}, res.Matches[1].RatingRows)

	assert.Empty(t, res.Matches[2].CaseloadRows)
	assert.Empty(t, res.Matches[2].RatingRows)

	assert.Equal(t, []int{0, -1, 0}, res.CaseloadOwner)
	assert.Equal(t, []int{0, 1}, res.RatingOwner)
}

func TestRosterDuplicates(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		key  string
	}{
		{
			name: "same name without abbreviations",
			rows: [][]string{{"Jane Doe", "", "LO"}, {" jane  doe ", "", "LE"}},
			key:  "jane doe",
		},
		{
			name: "same name and abbreviation",
			rows: [][]string{{"Jane Doe", "JD", "LO"}, {"JANE DOE", " jd ", "LE"}},
			key:  "jd",
		},
		{
			name: "same abbreviation",
			rows: [][]string{{"Jane Doe", "JD", "LO"}, {"John Dee", "jd", "LE"}},
			key:  "jd",
		},
		{
			name: "abbreviation equals another name",
			rows: [][]string{{"Max", "", "LO"}, {"Maximilian", "MAX", "LE"}},
			key:  "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(columns.DefaultAliases(), nil).Roster(roster(tt.rows...))
			require.Error(t, err)

			var dup *apperrors.DuplicateEntityError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.key, dup.Key)
			assert.Equal(t, 1, dup.FirstRow)
			assert.Equal(t, 2, dup.SecondRow)
		})
	}
}

func TestSharedNameResolvesByAbbreviation(t *testing.T) {
	caseload := &tabular.Table{
		Name:    "caseload.xlsx",
		Columns: []string{"name", "abbreviation", "in-house opening"},
		Rows: [][]string{
			{"Tan Wei", "TW1", "4"},
			{"Tan Wei", "tw2", "6"},
			{"Tan Wei", "", "9"},
			{"Ann Lee", "", "2"},
		},
	}
	ratings := &tabular.Table{
		Name:    "ratings.csv",
		Columns: []string{"officer", "q1"},
		Rows:    [][]string{{"TW2", "5"}, {"tan wei", "3"}},
	}

	logger, logs := testutil.NewTestLogger(t)
	res, err := New(columns.DefaultAliases(), logger).Resolve(context.Background(),
		roster([]string{"Tan Wei", "TW1", "LO"}, []string{"Tan Wei", "TW2", "LE"}, []string{"Ann Lee", "", "LE"}),
		caseload, ratings)
	require.NoError(t, err)

	require.Len(t, res.Matches, 3)
	assert.Equal(t, []int{0}, res.Matches[0].CaseloadRows)
	assert.Equal(t, []int{1}, res.Matches[1].CaseloadRows)
	assert.Equal(t, []int{3}, res.Matches[2].CaseloadRows)
	assert.Equal(t, []int{0}, res.Matches[1].RatingRows)
	assert.Equal(t, []int{0, 1, -1, 2}, res.CaseloadOwner)
	assert.Equal(t, []int{1, -1}, res.RatingOwner)

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "shared by several roster entries")
	testutil.AssertLogAttr(t, logs, "name", "Tan Wei")

	selected := res.Select(context.Background(), logger, []string{"Tan Wei", "tw1"})
	require.Len(t, selected, 1)
	assert.Equal(t, "TW1", selected[0].Entity.Abbreviation)
}

func TestNameCollidingWithAbbreviation(t *testing.T) {
	_, index, err := New(columns.DefaultAliases(), nil).Roster(roster(
		[]string{"Max", "MX", "LO"},
		[]string{"Maximilian", "MAX", "LE"},
	))
	require.NoError(t, err)

	idx, ok := index.Lookup("max")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	idx, ok = index.Lookup("mx")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.False(t, index.Ambiguous("max"))
}

func TestRosterSkipsBlankRowsAndFillsName(t *testing.T) {
	entities, _, err := New(columns.DefaultAliases(), nil).Roster(roster(
		[]string{"", "", ""},
		[]string{"", "AB", "LO"},
	))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "AB", entities[0].Name)
	assert.Equal(t, "LO", entities[0].Role)
}

func TestRosterWithoutIdentityColumn(t *testing.T) {
	table := &tabular.Table{Name: "roster.csv", Columns: []string{"function"}, Rows: [][]string{{"LO"}}}

	_, _, err := New(columns.DefaultAliases(), nil).Roster(table)
	var missing *apperrors.ColumnNotFoundError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "roster.csv", missing.Table)
}

func TestSelect(t *testing.T) {
	res, err := New(columns.DefaultAliases(), nil).Resolve(context.Background(),
		roster([]string{"Jane Doe", "JD", "LO"}, []string{"Ann Lee", "AL", "LE"}),
		&tabular.Table{Columns: []string{"name"}},
		&tabular.Table{Columns: []string{"officer"}})
	require.NoError(t, err)

	assert.Len(t, res.Select(context.Background(), nil, nil), 2)

	logger, logs := testutil.NewTestLogger(t)
	selected := res.Select(context.Background(), logger, []string{"al", "Nobody"})
	require.Len(t, selected, 1)
	assert.Equal(t, "Ann Lee", selected[0].Entity.Name)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "not on roster")
	testutil.AssertLogAttr(t, logs, "identity", "Nobody")

	assert.Empty(t, res.Select(context.Background(), nil, []string{"Nobody"}))
}
