package report

// pdf.go renders the period summary as an A4 PDF with go-pdf/fpdf:
//   - header with period and generation time
//   - totals block (ingresos, egresos, neto)
//   - per-category tables with percentage
//   - daily table
//
// The file is written to dir/reporte_{from}_{to}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"atmricky/internal/dateformat"
	"atmricky/internal/money"

	"github.com/go-pdf/fpdf"
)

// RenderPDF writes the summary to dir (created if needed) and returns the file path.
func RenderPDF(s *Summary, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}
	filePath := filepath.Join(dir, fmt.Sprintf("reporte_%s_%s.pdf", s.Period.From, s.Period.To))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	// Core fonts are cp1252; accents need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "ATM Ricky Rich", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr(fmt.Sprintf("Reporte del %s al %s",
		dateformat.FromYMDKey(s.Period.From), dateformat.FromYMDKey(s.Period.To))), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, tr("Generado: "+dateformat.DateTime(now)), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(4)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW * 0.6
	valueW := contentW * 0.4
	total := func(label string, v int64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(labelW, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 7, money.FormatCLP(v), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(labelW, 7, "Movimientos", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 7, fmt.Sprintf("%d", s.Count), "", 1, "R", false, 0, "")
	total("Ingresos", s.Ingresos, false)
	total("Egresos", s.Egresos, false)
	total("Neto", s.Neto, true)
	pdf.Ln(4)

	// ── Categories ───────────────────────────────────────────────────────────
	col1 := contentW * 0.5
	col2 := contentW * 0.15
	col3 := contentW * 0.35
	categories := func(title string, rows []CategoryRow) {
		if len(rows) == 0 {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(col1, 6, tr("Categoría"), "B", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, "%", "B", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 6, "Total", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, r := range rows {
			nombre := r.Nombre
			if len([]rune(nombre)) > 40 {
				nombre = string([]rune(nombre)[:39]) + "..."
			}
			pdf.CellFormat(col1, 5, tr(fmt.Sprintf("%s (%d)", nombre, r.Count)), "", 0, "L", false, 0, "")
			pdf.CellFormat(col2, 5, r.Pct.StringFixed(1), "", 0, "R", false, 0, "")
			pdf.CellFormat(col3, 5, money.FormatCLP(r.Total), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}
	categories("Ingresos por categoría", s.IngresosPorCategoria)
	categories("Egresos por categoría", s.EgresosPorCategoria)

	// ── Daily ────────────────────────────────────────────────────────────────
	if len(s.Daily) > 0 {
		dayW := contentW * 0.31
		numW := contentW * 0.23
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, tr("Por día"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(dayW, 6, "Fecha", "B", 0, "L", false, 0, "")
		pdf.CellFormat(numW, 6, "Ingresos", "B", 0, "R", false, 0, "")
		pdf.CellFormat(numW, 6, "Egresos", "B", 0, "R", false, 0, "")
		pdf.CellFormat(numW, 6, "Neto", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, d := range s.Daily {
			pdf.CellFormat(dayW, 5, tr(dateformat.FromYMDKey(d.Day)), "", 0, "L", false, 0, "")
			pdf.CellFormat(numW, 5, money.FormatCLP(d.Ingresos), "", 0, "R", false, 0, "")
			pdf.CellFormat(numW, 5, money.FormatCLP(d.Egresos), "", 0, "R", false, 0, "")
			pdf.CellFormat(numW, 5, money.FormatCLP(d.Neto), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("report: write pdf: %w", err)
	}
	return filePath, nil
}
