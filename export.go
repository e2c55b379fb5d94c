package main

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM keeps common spreadsheet tools from mangling the Chinese titles
// when the export is opened directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{"Simplified Chinese", "Traditional Chinese", "Date"}

// writePerformanceCSV serializes a detail result set as UTF-8 CSV with a
// byte-order mark and a header row. Only the two name columns and the date
// are exported.
func writePerformanceCSV(w io.Writer, records []PerformanceRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("could not write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("could not write CSV header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Simplified.String,
			rec.Traditional.String,
			rec.PerformedOn.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("could not write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// exportFilename builds the download name for a song's history file.
func exportFilename(selectedName string) string {
	return fmt.Sprintf("%s_performance-history.csv", selectedName)
}
