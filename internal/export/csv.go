// Package export writes pipeline results as CSV, XLSX and iCalendar files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"meetblocks/internal/availability"
)

// WriteMatrixCSV writes the wide matrix with its header row. Person names
// containing delimiters or quotes are quoted by encoding/csv.
func WriteMatrixCSV(w io.Writer, mx availability.Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(mx.Header()); err != nil {
		return fmt.Errorf("export: matrix header: %w", err)
	}
	if err := cw.WriteAll(mx.Rows); err != nil {
		return fmt.Errorf("export: matrix rows: %w", err)
	}
	return nil
}

// WriteOverviewCSV writes the weekly overview: a leading Rank column, then
// one column per range label.
func WriteOverviewCSV(w io.Writer, ov availability.Overview) error {
	cw := csv.NewWriter(w)
	for _, rec := range OverviewRecords(ov) {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: overview: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// OverviewRecords renders the overview as table records including the rank
// column and header.
func OverviewRecords(ov availability.Overview) [][]string {
	out := make([][]string, 0, len(ov.Rows)+1)
	out = append(out, append([]string{"Rank"}, ov.Labels...))
	for i, row := range ov.Rows {
		out = append(out, append([]string{strconv.Itoa(i + 1)}, row...))
	}
	return out
}
