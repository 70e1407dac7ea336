package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/export"
)

// ExportFormat names a rendered timetable format.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf, case insensitively. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

type recordSource interface {
	Records(ctx context.Context, q models.TimetableQuery) ([]models.FlatRecord, error)
}

type exportStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Path(filename string) string
}

type csvWriter interface {
	Write(w io.Writer, rows [][]string) error
}

type pdfRenderer interface {
	Render(w io.Writer, data export.Dataset, title string) error
}

// ExportService renders projected timetables as CSV or PDF.
type ExportService struct {
	records recordSource
	storage exportStorage
	csv     csvWriter
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. storage may be nil when
// only streaming exports are used.
func NewExportService(records recordSource, storage exportStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		records: records,
		storage: storage,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// Write renders the timetable of q to w.
func (s *ExportService) Write(ctx context.Context, q models.TimetableQuery, format ExportFormat, w io.Writer) error {
	records, err := s.records.Records(ctx, q)
	if err != nil {
		return err
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.CSVRow()
	}

	switch format {
	case FormatCSV:
		err = s.csv.Write(w, rows)
	case FormatPDF:
		err = s.pdf.Render(w, export.Dataset{Headers: models.CSVColumns, Rows: rows}, ExportTitle(q))
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render timetable")
	}
	s.logger.Debug("timetable exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return nil
}

// Save renders the timetable of q into the export directory and returns the file name.
func (s *ExportService) Save(ctx context.Context, q models.TimetableQuery, format ExportFormat) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "no export directory configured")
	}
	var buf bytes.Buffer
	if err := s.Write(ctx, q, format, &buf); err != nil {
		return "", err
	}
	name, err := s.storage.SaveStream(ExportFileName(q, format), &buf)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store export")
	}
	s.logger.Info("timetable saved", zap.String("path", s.storage.Path(name)))
	return name, nil
}

// ExportFileName names the file a query is saved under.
func ExportFileName(q models.TimetableQuery, format ExportFormat) string {
	return fmt.Sprintf("timetable-%s-%d-%s-%s.%s", q.Kind, q.ID,
		q.Start.Format("20060102"), q.End.Format("20060102"), format)
}

// ExportTitle is the heading of a rendered timetable.
func ExportTitle(q models.TimetableQuery) string {
	return fmt.Sprintf("Timetable %s %d, %s to %s", q.Kind, q.ID,
		q.Start.Format(models.DateLayout), q.End.Format(models.DateLayout))
}
