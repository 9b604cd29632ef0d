package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatelog/internal/domain"
	"gatelog/internal/repository"
)

// tanggalLayout renders report timestamps as dd/mm/yyyy HH.MM.SS followed by the zone name.
const tanggalLayout = "02/01/2006 15.04.05 MST"

// ReportRenderer turns report rows into a document. An empty row set must still render.
type ReportRenderer interface {
	Render(rows []domain.ReportRow) ([]byte, error)
}

// ReportArchive stores rendered documents and returns where they were written.
type ReportArchive interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

type ReportRequest struct {
	Status string
	Month  int
	Year   int
}

// Document is a rendered and archived report.
type Document struct {
	Filename string
	Path     string
	Content  []byte
	Rows     int
}

type ReportService interface {
	Query(ctx context.Context, filter domain.StatusFilter, month, year int) ([]domain.ReportRow, error)
	Generate(ctx context.Context, req ReportRequest) (*Document, error)
}

type reportService struct {
	sensors  repository.SensorRepository
	renderer ReportRenderer
	archive  ReportArchive
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(sensors repository.SensorRepository, renderer ReportRenderer, archive ReportArchive, loc *time.Location) ReportService {
	if loc == nil {
		loc = domain.LocalZone(7)
	}
	return &reportService{
		sensors:  sensors,
		renderer: renderer,
		archive:  archive,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *reportService) Query(ctx context.Context, filter domain.StatusFilter, month, year int) ([]domain.ReportRow, error) {
	if month < 1 || month > 12 {
		return nil, invalid("Bulan harus antara 1 dan 12")
	}
	if year < 1900 || year > 2100 {
		return nil, invalid("Tahun harus antara 1900 dan 2100")
	}

	from, to := domain.MonthRange(year, time.Month(month), s.loc)
	events, err := s.sensors.ListBetween(ctx, from, to, filter.Statuses()...)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ReportRow, len(events))
	for i := range events {
		rows[i] = domain.ReportRow{
			Event:   events[i],
			Tanggal: events[i].CreatedAt.In(s.loc).Format(tanggalLayout),
		}
	}
	return rows, nil
}

func (s *reportService) Generate(ctx context.Context, req ReportRequest) (*Document, error) {
	filter, err := domain.ParseStatusFilter(req.Status)
	if err != nil {
		return nil, invalid("Status harus terbuka, tertutup, atau semua")
	}

	rows, err := s.Query(ctx, filter, req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.Render(rows)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("%d-%s.pdf", s.now().UnixMilli(), uuid.NewString())
	path, err := s.archive.Save(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("archive report: %w", err)
	}

	return &Document{
		Filename: filename,
		Path:     path,
		Content:  content,
		Rows:     len(rows),
	}, nil
}
