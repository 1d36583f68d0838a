// Package export renders shopping lists as spreadsheet, PDF and QR code
// documents.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/report"
)

// Sheet names of the XLSX workbook.
const (
	SummarySheet = "Innkjøpsliste"
	DetailSheet  = "Detaljer"
)

var (
	summaryHeader = []interface{}{"Preparat", "Reg.nr", "Totalt behov", "Enhet", "Anbefalt innkjøp", "Antall beholdere"}
	detailHeader  = []interface{}{"Preparat", "Skifte", "Areal (daa)", "Dose", "Doseenhet", "Mengde"}
)

// WriteXLSX writes a workbook with one summary row per product and one detail
// row per plot contribution.
func WriteXLSX(w io.Writer, items []planner.ShoppingListItem) error {
	if len(items) == 0 {
		return ErrEmptyList
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if err := writeRow(f, DetailSheet, 1, detailHeader); err != nil {
		return err
	}

	detailRow := 2
	for i, item := range items {
		summary := []interface{}{
			item.Product.Name,
			item.Product.RegNr,
			item.Results.TotalInCanonicalUnit,
			item.Results.UnitLabel,
			report.Packages(item.Results),
			item.Results.TotalContainers(),
		}
		if err := writeRow(f, SummarySheet, i+2, summary); err != nil {
			return err
		}

		for _, c := range item.Breakdown {
			detail := []interface{}{item.Product.Name, c.PlotName, c.Area, c.Dose, string(c.DoseUnit), c.Quantity()}
			if err := writeRow(f, DetailSheet, detailRow, detail); err != nil {
				return err
			}
			detailRow++
		}
	}

	for _, sheet := range []string{SummarySheet, DetailSheet} {
		if err := f.SetCellStyle(sheet, "A1", "F1", bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetColWidth(SummarySheet, "E", "E", 36); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
