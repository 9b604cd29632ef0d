package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"gatelog/internal/domain"
)

const (
	// DefaultTitle heads a report when no title is configured.
	DefaultTitle = "Riwayat Buka/Tutup Gerbang TK"
	// EmptyMarker is printed instead of the table when a report has no rows.
	EmptyMarker = "Riwayat Tidak Tersedia"
)

var (
	headers = []string{"No", "Tanggal", "Status", "Nama User", "RFID"}
	widths  = []float64{12, 52, 26, 60, 40}
)

// PDFRenderer lays out report rows as an A4 table.
type PDFRenderer struct {
	Title    string
	Subtitle string
	// Uncompressed leaves page streams readable, which keeps rendered text greppable.
	Uncompressed bool
}

func NewPDFRenderer(title, subtitle string) *PDFRenderer {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return &PDFRenderer{Title: title, Subtitle: subtitle}
}

func (r *PDFRenderer) Render(rows []domain.ReportRow) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!r.Uncompressed)
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(r.Title), "", 1, "C", false, 0, "")
	if r.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 7, tr(r.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(8)

	if len(rows) == 0 {
		pdf.SetY(110)
		pdf.SetFont("Helvetica", "I", 14)
		pdf.SetTextColor(0x33, 0x33, 0x33)
		pdf.CellFormat(0, 10, EmptyMarker, "", 1, "C", false, 0, "")
		return output(pdf)
	}

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(0x33, 0x33, 0x33)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			writeHeader()
		}
	})
	writeHeader()

	for i, row := range rows {
		cells := []string{
			strconv.Itoa(i + 1),
			row.Tanggal,
			row.Event.Status.Label(),
			tr(row.Event.Owner.Fullname),
			row.Event.Owner.RFID,
		}
		for j, c := range cells {
			align := "L"
			if j == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[j], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
