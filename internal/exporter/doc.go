// Package exporter writes generated reports to disk for the newsletter
// renderer.
//
// Export produces three kinds of file in the output directory:
//
//   - summary.csv: one row per officer, UTF-8 with a BOM so spreadsheet
//     tools pick the right encoding.
//   - summary.xlsx: the same table as a workbook with a frozen header row.
//   - <officer>.json: the full report of one officer.
//
// Example usage:
//
//	files, err := exporter.New("out", logger).Export(ctx, result.Reports, result.Questions)
package exporter
