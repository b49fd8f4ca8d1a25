package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yukikurage/relief-management-api/internal/models"
)

// Landscape A4 leaves 277mm between the 10mm margins.
var needColumnMillimetres = []float64{
	12, // ID
	32, // Area
	32, // Product
	24, // Category
	14, // Unit
	16, // Quantity
	16, // Priority
	20, // Status
	80, // Notes
	31, // Created At
}

const (
	pdfRowHeight  = 7
	pdfFontFamily = "Helvetica"
)

func WriteNeedsPDF(w io.Writer, needs []models.Need) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle("Relief needs", true)
	// Core fonts are cp1252, so text is translated before it is drawn.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerRow := func() {
		pdf.SetFont(pdfFontFamily, "B", 9)
		pdf.SetFillColor(230, 243, 255)
		for col, header := range NeedHeader {
			pdf.CellFormat(needColumnMillimetres[col], pdfRowHeight, tr(header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFontFamily, "", 8)
	}
	pdf.SetHeaderFunc(headerRow)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(pdfFontFamily, "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for _, n := range needs {
		for col, value := range needRow(n) {
			align := "L"
			if col == 0 || col == 5 {
				align = "R"
			}
			text := fitCell(pdf, tr(strings.Join(strings.Fields(value), " ")), needColumnMillimetres[col]-2)
			pdf.CellFormat(needColumnMillimetres[col], pdfRowHeight, text, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(needs) == 0 {
		pdf.CellFormat(0, pdfRowHeight, "No needs match the filter.", "1", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, pdfRowHeight, tr(strconv.Itoa(len(needs))+" needs"), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// fitCell shortens translated text with a trailing "..." until it fits in
// width. Translated text is single-byte, so it is cut by bytes.
func fitCell(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for n := len(text) - 1; n > 0; n-- {
		candidate := text[:n] + "..."
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
