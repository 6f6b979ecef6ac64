package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/export"
)

// OverdueHeaders is the column order of the overdue report.
var OverdueHeaders = []string{"titulo", "nombre", "telefono", "fecha_solicitud", "fecha_devolucion", "estado"}

const overdueReportTitle = "Préstamos vencidos"

type statusLister interface {
	ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanRequest, error)
}

type bookBatchFinder interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Book, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// IsOverdue reports whether a picked-up request is past the end of its due
// date in loc at instant ref.
func IsOverdue(req models.LoanRequest, ref time.Time, loc *time.Location) bool {
	if req.Status != models.LoanStatusPickedUp || req.DueDate == nil || req.DueDate.IsZero() {
		return false
	}
	return req.DueDate.EndOfDay(loc).Before(ref)
}

// OverdueList keeps the overdue requests, preserving order.
func OverdueList(requests []models.LoanRequest, ref time.Time, loc *time.Location) []models.LoanRequest {
	overdue := make([]models.LoanRequest, 0)
	for _, req := range requests {
		if IsOverdue(req, ref, loc) {
			overdue = append(overdue, req)
		}
	}
	return overdue
}

// OverdueService projects overdue loans into lists and reports.
type OverdueService struct {
	requests statusLister
	books    bookBatchFinder
	loc      *time.Location
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewOverdueService constructs the service. loc is the library's time zone.
func NewOverdueService(requests statusLister, books bookBatchFinder, loc *time.Location, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &OverdueService{requests: requests, books: books, loc: loc, csv: csv, pdf: pdf, logger: logger}
}

// List returns the requests overdue at ref.
func (s *OverdueService) List(ctx context.Context, ref time.Time) ([]models.LoanRequest, error) {
	picked, err := s.requests.ListByStatus(ctx, models.LoanStatusPickedUp)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loan requests")
	}
	return OverdueList(picked, ref, s.loc), nil
}

// Dataset builds the report rows for the requests overdue at ref.
func (s *OverdueService) Dataset(ctx context.Context, ref time.Time) (export.Dataset, error) {
	overdue, err := s.List(ctx, ref)
	if err != nil {
		return export.Dataset{}, err
	}

	ids := make([]int64, 0, len(overdue))
	for _, req := range overdue {
		if req.BookID > 0 {
			ids = append(ids, req.BookID)
		}
	}
	books, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		// Titles degrade to the request snapshot.
		s.logger.Warn("failed to resolve book titles for overdue report", zap.Error(err))
		books = map[int64]models.Book{}
	}

	rows := make([]map[string]string, 0, len(overdue))
	for _, req := range overdue {
		var book *models.Book
		if b, ok := books[req.BookID]; ok {
			book = &b
		}
		rows = append(rows, overdueRow(req, book))
	}
	return export.Dataset{Headers: OverdueHeaders, Rows: rows}, nil
}

// CSV renders the overdue report as CSV.
func (s *OverdueService) CSV(ctx context.Context, ref time.Time) ([]byte, error) {
	data, err := s.Dataset(ctx, ref)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return payload, nil
}

// PDF renders the overdue report as a PDF document.
func (s *OverdueService) PDF(ctx context.Context, ref time.Time) ([]byte, error) {
	data, err := s.Dataset(ctx, ref)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(data, overdueReportTitle)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return payload, nil
}

func overdueRow(req models.LoanRequest, book *models.Book) map[string]string {
	requested := ""
	if !req.RequestDate.IsZero() {
		requested = req.RequestDate.UTC().Format(models.DateLayout)
	}
	due := ""
	if req.DueDate != nil {
		due = req.DueDate.String()
	}
	return map[string]string{
		"titulo":           models.BookDisplayTitle(book, req.BookTitle, req.BookID),
		"nombre":           req.RequesterName,
		"telefono":         req.RequesterPhone,
		"fecha_solicitud":  requested,
		"fecha_devolucion": due,
		"estado":           strings.ToLower(string(req.Status)),
	}
}
