package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/report"
)

// Page layout constants (A4 portrait in mm).
const (
	pdfMargin     = 15.0
	pdfPageWidth  = 210.0
	pdfLineHeight = 6.0
	pdfContentW   = pdfPageWidth - 2*pdfMargin
)

// WritePDF renders the shopping list as an A4 document with one table per
// product followed by the plots it is used on.
func WritePDF(w io.Writer, items []planner.ShoppingListItem) error {
	if len(items) == 0 {
		return ErrEmptyList
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(report.Header, true)
	pdf.SetCreator(report.Footer, true)

	// Core fonts are cp1252; translate the Norwegian letters.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, pdfLineHeight, tr(fmt.Sprintf("%s - side %d", report.Footer, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pdfContentW, 10, tr(report.Header), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(pdfContentW, pdfLineHeight, time.Now().Format("02.01.2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, item := range items {
		renderItem(pdf, tr, item)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func renderItem(pdf *fpdf.Fpdf, tr func(string) string, item planner.ShoppingListItem) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(220, 235, 220)
	title := item.Product.Name
	if item.Product.RegNr != "" {
		title += " (" + item.Product.RegNr + ")"
	}
	pdf.CellFormat(pdfContentW, 8, tr(title), "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(50, pdfLineHeight, tr("Totalt behov"), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(pdfContentW-50, pdfLineHeight, tr(report.Quantity(item.Results)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(50, pdfLineHeight, tr("Anbefalt innkjøp"), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(pdfContentW-50, pdfLineHeight, tr(report.Packages(item.Results)), "RB", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "I", 9)
	for _, c := range item.Breakdown {
		line := fmt.Sprintf("%s (%s %s) - %s %s/%s", c.PlotName, report.FormatNumber(c.Area), report.AreaUnit,
			report.FormatNumber(c.Dose), c.DoseUnit, report.AreaUnit)
		pdf.CellFormat(pdfContentW, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}
