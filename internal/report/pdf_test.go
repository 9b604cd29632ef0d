package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/domain"
	"gatelog/internal/report"
)

func TestPDFRenderer_EmptyReportShowsMarker(t *testing.T) {
	r := report.NewPDFRenderer("", "TK Tadika Mesra")
	r.Uncompressed = true

	out, err := r.Render(nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), report.EmptyMarker)
	assert.Contains(t, string(out), "Riwayat Buka/Tutup Gerbang TK")
	assert.Contains(t, string(out), "TK Tadika Mesra")
}

func TestPDFRenderer_RowsRenderTable(t *testing.T) {
	r := report.NewPDFRenderer("Riwayat Gerbang Barat", "TK Tadika Mesra")
	r.Uncompressed = true

	rows := []domain.ReportRow{
		{
			Event: domain.SensorEvent{
				ID:        1,
				Status:    domain.StatusOpen,
				CreatedAt: time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC),
				Owner:     domain.EventOwner{ID: 2, Fullname: "Siti Aminah", RFID: "AB12CD34"},
			},
			Tanggal: "01/02/2024 10.00.00 WIB",
		},
		{
			Event: domain.SensorEvent{
				ID:     2,
				Status: domain.StatusClosed,
				Owner:  domain.EventOwner{ID: 2, Fullname: "Siti Aminah", RFID: "AB12CD34"},
			},
			Tanggal: "01/02/2024 10.05.00 WIB",
		},
	}

	out, err := r.Render(rows)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "Siti Aminah")
	assert.Contains(t, text, "Terbuka")
	assert.Contains(t, text, "Tertutup")
	assert.NotContains(t, text, report.EmptyMarker)
	assert.Contains(t, text, "Riwayat Gerbang Barat")
	assert.NotContains(t, text, report.DefaultTitle)
}

func TestPDFRenderer_ManyRowsSpanPages(t *testing.T) {
	r := report.NewPDFRenderer("", "")
	rows := make([]domain.ReportRow, 120)
	for i := range rows {
		rows[i] = domain.ReportRow{
			Event:   domain.SensorEvent{ID: int64(i + 1), Status: domain.StatusOpen, Owner: domain.EventOwner{Fullname: "Budi", RFID: "12345678"}},
			Tanggal: "01/02/2024 10.00.00 WIB",
		}
	}

	out, err := r.Render(rows)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
