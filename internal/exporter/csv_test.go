package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) (bool, [][]string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	bom := bytes.HasPrefix(data, utf8BOM)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return bom, records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		options  WriteOptions
		expected [][]string
		bom      bool
	}{
		{
			name: "headers and records with BOM",
			options: WriteOptions{
				Headers:   []string{"Name", "Score"},
				Records:   [][]string{{"Jane Doe", "4.5"}, {"Lee, Ann", "N/A"}},
				BOMPrefix: true,
			},
			expected: [][]string{{"Name", "Score"}, {"Jane Doe", "4.5"}, {"Lee, Ann", "N/A"}},
			bom:      true,
		},
		{
			name: "records only",
			options: WriteOptions{
				Records: [][]string{{"a", "b"}},
			},
			expected: [][]string{{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			w := NewCSVWriter(dir)
			require.NoError(t, w.WriteCSV(filepath.Join("nested", "out.csv"), tt.options))

			bom, records := readCSV(t, filepath.Join(dir, "nested", "out.csv"))
			assert.Equal(t, tt.bom, bom)
			assert.Equal(t, tt.expected, records)
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	require.NoError(t, w.WriteSimpleCSV("out.csv", []string{"h"}, [][]string{{"1"}}))
	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{Headers: []string{"ignored"}, Records: [][]string{{"2"}}, Append: true, BOMPrefix: true}))

	bom, records := readCSV(t, filepath.Join(dir, "out.csv"))
	assert.True(t, bom)
	assert.Equal(t, [][]string{{"h"}, {"1"}, {"2"}}, records)
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.csv")
	require.NoError(t, NewCSVWriter("/nonexistent-root").WriteSimpleCSV(abs, []string{"h"}, nil))
	assert.FileExists(t, abs)
}
