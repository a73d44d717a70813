package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/fee"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
	"github.com/noah-isme/library-fee-api/pkg/export"
	"github.com/noah-isme/library-fee-api/pkg/storage"
)

// ExportFormat selects the rendered report type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var feeReportHeaders = []string{"Name", "Phone", "Join Date", "Status", "Monthly Fee", "Unpaid Months", "Total Due", "Last Paid"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Sweep(cutoff time.Time) ([]string, error)
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data export.Dataset) ([]byte, error)
	Extension() string
	ContentType() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	OrgName   string
	ResultTTL time.Duration
}

// ExportService renders fee reports and hands them out through signed links.
type ExportService struct {
	source    standingsSource
	storage   fileStorage
	renderers map[ExportFormat]Renderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(source standingsSource, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		source:  source,
		storage: store,
		renderers: map[ExportFormat]Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// GenerateFeeReport renders every student's standing and returns a signed download link.
func (s *ExportService) GenerateFeeReport(ctx context.Context, format ExportFormat) (*dto.ExportResponse, error) {
	renderer, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	standings, asOf, err := s.source.Standings(ctx)
	if err != nil {
		return nil, err
	}

	dataset := s.feeDataset(standings, asOf)
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}

	filename := fmt.Sprintf("fees/fees_%s_%s.%s", fee.MonthOf(asOf), time.Now().UTC().Format("20060102_150405"), renderer.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign report link")
	}

	s.metrics.RecordExport(renderer.Extension())
	s.logger.Info("fee report generated", zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &dto.ExportResponse{
		Format:    renderer.Extension(),
		Rows:      len(dataset.Rows),
		URL:       fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and returns the stored file with its content type.
func (s *ExportService) Resolve(token string) (*os.File, string, error) {
	relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrExportExpired, "download link has expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrExportExpired, "report is no longer available")
	}
	contentType := "application/octet-stream"
	for _, r := range s.renderers {
		if strings.HasSuffix(relPath, "."+r.Extension()) {
			contentType = r.ContentType()
		}
	}
	return file, contentType, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.Sweep(time.Now().Add(-ttl))
}

func (s *ExportService) feeDataset(standings []Standing, asOf time.Time) export.Dataset {
	rows := make([][]string, 0, len(standings))
	for _, st := range standings {
		rows = append(rows, []string{
			st.Student.Name,
			st.Student.Phone,
			st.Student.JoinDate.Format("2006-01-02"),
			string(st.Student.Status),
			st.Student.MonthlyFee.String(),
			strings.Join(st.Result.UnpaidMonths, ", "),
			st.Result.TotalDue.String(),
			st.Result.LastPaidMonth,
		})
	}
	title := fmt.Sprintf("Fee Report %s", fee.MonthOf(asOf).Label())
	if s.cfg.OrgName != "" {
		title = s.cfg.OrgName + " " + title
	}
	return export.Dataset{
		Title:   title,
		Headers: feeReportHeaders,
		Rows:    rows,
		Footer:  fmt.Sprintf("Generated %s", asOf.Format("2006-01-02 15:04")),
	}
}
