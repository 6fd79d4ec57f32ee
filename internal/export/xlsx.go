package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

const summarySheet = "Summary"

var workbookHeaders = []string{
	"Table", "Row", "Col", "Text", "Header", "Number", "Date", "Page", "Confidence",
}

// WriteTablesXLSX writes a workbook with a summary sheet and one sheet per
// method listing every table cell, so extractions can be compared side by
// side in a spreadsheet.
func WriteTablesXLSX(path string, results []schema.ExtractionResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	set := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for i, h := range []string{"Method", "Success", "Tables", "Cells", "Empty Cells", "Text Blocks", "Avg Confidence", "Time (sec)"} {
		set(summarySheet, i+1, 1, h)
	}

	for i, res := range results {
		row := i + 2
		set(summarySheet, 1, row, string(res.Method))
		set(summarySheet, 2, row, res.Success)
		set(summarySheet, 3, row, res.TotalTables)
		set(summarySheet, 4, row, res.TotalCells)
		set(summarySheet, 5, row, res.EmptyCells)
		set(summarySheet, 6, row, res.TotalTextBlocks)
		if res.AvgConfidence != nil {
			set(summarySheet, 7, row, *res.AvgConfidence)
		}
		set(summarySheet, 8, row, res.ProcessingTime)

		sheet := sheetName(res.Method)
		if index, _ := f.GetSheetIndex(sheet); index == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("new sheet %s: %w", sheet, err)
			}
		}
		for c, h := range workbookHeaders {
			set(sheet, c+1, 1, h)
		}
		r := 2
		for _, t := range res.Document.Tables {
			for _, cell := range t.Cells {
				set(sheet, 1, r, t.TableID)
				set(sheet, 2, r, cell.RowIdx)
				set(sheet, 3, r, cell.ColIdx)
				set(sheet, 4, r, cell.RawText)
				set(sheet, 5, r, cell.IsHeader)
				if cell.ParsedNumber != nil {
					set(sheet, 6, r, *cell.ParsedNumber)
				}
				if cell.ParsedDate != nil {
					set(sheet, 7, r, *cell.ParsedDate)
				}
				page, _, conf := provFields(cell.Provenance)
				set(sheet, 8, r, page)
				if conf != nil {
					set(sheet, 9, r, *conf)
				}
				r++
			}
		}
		_ = f.SetColWidth(sheet, "A", "A", 14)
		_ = f.SetColWidth(sheet, "D", "D", 40)
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)

	index, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(index)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// sheetName fits a method name into the 31 character sheet limit.
func sheetName(m schema.Method) string {
	s := string(m)
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
