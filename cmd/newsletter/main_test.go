package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rosterCSV   = "Name,Abbreviation,Function\nJane Doe,JD,LO\nAnn Lee,AL,LO\nBob Tan,BT,LE\n"
	caseloadCSV = "Caseload Report\n" +
		"Name,Function,In-House Caseload as at 08/05/2024,In-House New Cases 08/05/2024 to 02/08/2024,In-House NFA,In-House Caseload as at 02/08/2024\n" +
		"Jane Doe,LO,20,5,4,18\n" +
		"Ann Lee,LO,10,2,1,11\n" +
		"Bob Tan,LE,7,1,1,7\n"
	ratingsCSV = "Officer,Case Ref,Applicant,Case Type,Courtesy\nJD,C1,App A,In-House,4\nJD,C2,App B,In-House,5\n"
)

func writeInputs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	contents := []string{rosterCSV, caseloadCSV, ratingsCSV}
	for i, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents[i]), 0644))
	}
	return dir
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		errorContains string
	}{
		{name: "explicit files", args: []string{"-roster", "r.csv", "-caseload", "c.csv", "-ratings", "s.csv"}},
		{name: "directory", args: []string{"-dir", "in"}},
		{name: "version only", args: []string{"-version"}},
		{name: "nothing", args: nil, errorContains: "required unless -dir"},
		{name: "partial", args: []string{"-roster", "r.csv"}, errorContains: "required unless -dir"},
		{name: "both", args: []string{"-dir", "in", "-roster", "r.csv"}, errorContains: "not both"},
		{name: "extra args", args: []string{"-dir", "in", "stray"}, errorContains: "unexpected arguments"},
		{name: "unknown flag", args: []string{"-nope"}, errorContains: "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorContains)
		})
	}
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "LAB Newsletter Generator v")
}

func TestSplitSelection(t *testing.T) {
	assert.Nil(t, splitSelection(""))
	assert.Equal(t, []string{"JD", "Ann Lee"}, splitSelection(" JD , ,Ann Lee"))
}

func TestRunExplicitFiles(t *testing.T) {
	in := writeInputs(t, "roster.csv", "caseload.csv", "ratings.csv")
	out := filepath.Join(t.TempDir(), "out")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-roster", filepath.Join(in, "roster.csv"),
		"-caseload", filepath.Join(in, "caseload.csv"),
		"-ratings", filepath.Join(in, "ratings.csv"),
		"-select", "JD,BT",
		"-out", out,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "Jane Doe")
	assert.Contains(t, stdout.String(), "Bob Tan")
	assert.NotContains(t, stdout.String(), "Ann Lee")

	assert.FileExists(t, filepath.Join(out, "summary.csv"))
	assert.FileExists(t, filepath.Join(out, "summary.xlsx"))

	data, err := os.ReadFile(filepath.Join(out, "jd.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "period")
}

func TestRunDiscoversDirectory(t *testing.T) {
	in := writeInputs(t, "Staff Roster.csv", "Caseload Q2.csv", "Survey Ratings.csv")
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-dir", in, "-out", out}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Ann Lee")
	assert.Contains(t, stderr.String(), "Discovered input file")
}

func TestRunErrors(t *testing.T) {
	in := writeInputs(t, "roster.csv", "caseload.csv")

	t.Run("missing input file", func(t *testing.T) {
		err := run(context.Background(), []string{
			"-roster", filepath.Join(in, "roster.csv"),
			"-caseload", filepath.Join(in, "caseload.csv"),
			"-ratings", filepath.Join(in, "ratings.csv"),
			"-out", t.TempDir(),
		}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("discovery incomplete", func(t *testing.T) {
		err := run(context.Background(), []string{"-dir", in, "-out", t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "no ratings file found")
	})

	t.Run("bad config file", func(t *testing.T) {
		err := run(context.Background(), []string{"-dir", in, "-config", filepath.Join(in, "nope.yaml")}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "failed to load config")
	})
}
