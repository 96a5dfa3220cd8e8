package export

import (
	"fmt"
	"io"

	"github.com/dusk-indust/analyst/internal/table"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds exported results.
const SheetName = "Results"

// WriteXLSX writes rs as a single-sheet workbook. The first row holds the
// display header labels in bold; numeric cells keep their type.
func WriteXLSX(w io.Writer, rs table.ResultSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := rs.Headers()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}

	if len(headers) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
			return err
		}
	}

	cols := rs.ColumnNames()
	for r, row := range rs.Rows {
		for c, col := range cols {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
