package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"meetblocks/internal/availability"
)

const (
	matrixSheet   = "Slots"
	overviewSheet = "Week"
)

// WriteMatrixXLSX writes a workbook with the wide matrix on one sheet and the
// weekly overview on another. Flag and count columns get a white-to-green
// colour scale.
func WriteMatrixXLSX(w io.Writer, mx availability.Matrix, ov availability.Overview) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", matrixSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := writeMatrixSheet(f, mx); err != nil {
		return err
	}

	if _, err := f.NewSheet(overviewSheet); err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}
	for r, rec := range OverviewRecords(ov) {
		for c, v := range rec {
			if err := setCell(f, overviewSheet, c+1, r+1, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeMatrixSheet(f *excelize.File, mx availability.Matrix) error {
	for c, col := range mx.Columns {
		if err := setCell(f, matrixSheet, c+1, 1, col.Name); err != nil {
			return err
		}
	}

	for r, row := range mx.Rows {
		for c, v := range row {
			var val any = v
			switch mx.Columns[c].Kind {
			case availability.KindFlag, availability.KindCount:
				if n, err := strconv.Atoi(v); err == nil {
					val = n
				}
			}
			if err := setCell(f, matrixSheet, c+1, r+2, val); err != nil {
				return err
			}
		}
	}

	if len(mx.Rows) == 0 {
		return nil
	}
	for c, col := range mx.Columns {
		if col.Kind != availability.KindFlag && col.Kind != availability.KindCount {
			continue
		}
		from, _ := excelize.CoordinatesToCellName(c+1, 2)
		to, _ := excelize.CoordinatesToCellName(c+1, len(mx.Rows)+1)
		err := f.SetConditionalFormat(matrixSheet, from+":"+to, []excelize.ConditionalFormatOptions{{
			Type:     "2_color_scale",
			Criteria: "=",
			MinType:  "min",
			MaxType:  "max",
			MinColor: "#FFFFFF",
			MaxColor: "#00B050",
		}})
		if err != nil {
			return fmt.Errorf("export: colour scale %s: %w", col.Name, err)
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("export: cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("export: set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
