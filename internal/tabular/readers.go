package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// delimiterSniffLines bounds how many lines are inspected to pick a delimiter.
const delimiterSniffLines = 30

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// readDelimited parses decoded text into ragged rows.
func readDelimited(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	return rows, nil
}

// sniffDelimiter picks the candidate that occurs most often in the leading
// lines, ignoring quoted sections. Comma wins ties and the no-signal case.
func sniffDelimiter(text string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	lines := 0
	inQuotes := false
	for _, ch := range text {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == '\n' && !inQuotes:
			lines++
		case !inQuotes:
			counts[ch]++
		}
		if lines >= delimiterSniffLines {
			break
		}
	}
	best, bestCount := ',', counts[',']
	for _, d := range candidateDelimiters[1:] {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// readSpreadsheet reads an OOXML workbook. The named sheet is used when it
// exists, otherwise the first sheet that has any rows.
func readSpreadsheet(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet != "" {
		if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
			rows, err := f.GetRows(sheet)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
			return rows, nil
		}
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, fmt.Errorf("workbook has no rows")
}

// readLegacySpreadsheet reads the first sheet of a BIFF (.xls) workbook.
// Missing rows are kept as empty rows so header offsets stay aligned.
func readLegacySpreadsheet(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no worksheet found")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := legacyRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// legacyRow returns nil for rows the workbook never stored; xls.WorkSheet.Row
// dereferences them unchecked.
func legacyRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
