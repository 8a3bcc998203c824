package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type historyLister interface {
	List(ctx context.Context, session *models.Session) (*dto.HistoryResponse, error)
}

// ExportService renders the student's outpass history as a downloadable file.
type ExportService struct {
	history historyLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// NewExportService builds an ExportService.
func NewExportService(history historyLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		history: history,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// Render fetches the history and renders it in the requested format.
func (s *ExportService) Render(ctx context.Context, session *models.Session, format string) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	history, err := s.history.List(ctx, session)
	if err != nil {
		return nil, err
	}

	dataset := historyDataset(history.Requests)

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Filename: "outpass-history.csv", ContentType: "text/csv", Content: content}, nil
	default:
		content, err := s.pdf.Render(dataset, "Outpass History")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Filename: "outpass-history.pdf", ContentType: "application/pdf", Content: content}, nil
	}
}

func historyDataset(items []dto.OutpassItem) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"ID", "Destination", "Start", "End", "Transport", "Status", "Rejection Reason", "Created"},
		Rows:    make([][]string, 0, len(items)),
	}
	for _, item := range items {
		rejection := ""
		if item.RejectionReason != nil {
			rejection = *item.RejectionReason
		}
		dataset.Rows = append(dataset.Rows, []string{
			item.ID,
			item.Destination,
			item.StartDate + " " + item.StartTime,
			item.EndDate + " " + item.EndTime,
			string(item.TransportMode),
			string(item.Status),
			rejection,
			item.CreatedAt,
		})
	}
	return dataset
}
