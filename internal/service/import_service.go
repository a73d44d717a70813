package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/library-fee-api/internal/fee"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type legacyStudentSource interface {
	FetchStudents(ctx context.Context) ([]models.LegacyStudent, error)
}

type importStudentStore interface {
	FindByPhone(ctx context.Context, phone string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type importPaymentStore interface {
	ImportPayments(ctx context.Context, payments []models.Payment) (int, error)
}

// ImportConfig tunes the legacy import.
type ImportConfig struct {
	DefaultFee   decimal.Decimal
	PhotoURLBase string
	Parallelism  int
	DryRun       bool
}

// ImportService copies legacy student documents into the relational store.
type ImportService struct {
	source   legacyStudentSource
	students importStudentStore
	payments importPaymentStore
	cache    dashboardInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ImportConfig
}

// NewImportService constructs an ImportService.
func NewImportService(source legacyStudentSource, students importStudentStore, payments importPaymentStore, cache dashboardInvalidator, metrics *MetricsService, cfg ImportConfig, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.PhotoURLBase == "" {
		cfg.PhotoURLBase = "https://picsum.photos/seed"
	}
	return &ImportService{source: source, students: students, payments: payments, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Run imports every legacy document. Students are matched by phone so repeated runs only add what is missing.
func (s *ImportService) Run(ctx context.Context) (*models.ImportReport, error) {
	docs, err := s.source.FetchStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to read legacy students")
	}

	report := &models.ImportReport{Documents: len(docs), Skipped: []string{}, Shapes: map[string]int{}}
	var mu sync.Mutex
	seen := make(map[string]struct{}, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, doc := range docs {
		doc := doc
		phone := strings.TrimSpace(doc.Phone)
		if reason := skipReason(doc, phone, seen); reason != "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %s", doc.DocumentID, reason))
			continue
		}
		seen[phone] = struct{}{}

		g.Go(func() error {
			outcome, err := s.importOne(gctx, doc, phone)
			if err != nil {
				return fmt.Errorf("import %s: %w", doc.DocumentID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if outcome.created {
				report.StudentsCreated++
			} else {
				report.StudentsExisting++
			}
			report.PaymentsInserted += outcome.inserted
			for shape, n := range outcome.shapes {
				report.Shapes[shape] += n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, appErrors.Internal(err, "legacy import failed")
	}

	if !s.cfg.DryRun {
		s.cache.InvalidateDashboard(ctx)
	}
	s.logger.Info("legacy import finished",
		zap.Int("documents", report.Documents),
		zap.Int("created", report.StudentsCreated),
		zap.Int("existing", report.StudentsExisting),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("payments", report.PaymentsInserted),
		zap.Bool("dry_run", s.cfg.DryRun),
	)
	return report, nil
}

type importOutcome struct {
	created  bool
	inserted int
	shapes   map[string]int
}

func (s *ImportService) importOne(ctx context.Context, doc models.LegacyStudent, phone string) (importOutcome, error) {
	outcome := importOutcome{shapes: map[string]int{}}
	for _, e := range fee.Classify(doc.Payments) {
		outcome.shapes[e.Shape.String()]++
		s.metrics.RecordLegacyEntry(e.Shape.String())
	}

	student, err := s.students.FindByPhone(ctx, phone)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		student = s.studentFromLegacy(doc, phone)
		outcome.created = true
		if !s.cfg.DryRun {
			if err := s.students.Create(ctx, student); err != nil {
				return outcome, err
			}
		}
	default:
		return outcome, err
	}

	payments := legacyPayments(student, fee.NormalizePayments(doc.Payments))
	if s.cfg.DryRun {
		outcome.inserted = len(payments)
		return outcome, nil
	}
	inserted, err := s.payments.ImportPayments(ctx, payments)
	if err != nil {
		return outcome, err
	}
	outcome.inserted = inserted
	if inserted > 0 {
		s.metrics.RecordPayment("import")
	}
	return outcome, nil
}

func (s *ImportService) studentFromLegacy(doc models.LegacyStudent, phone string) *models.Student {
	monthlyFee, ok := legacyFee(doc.MonthlyFee)
	if !ok {
		monthlyFee = s.cfg.DefaultFee
	}
	student := &models.Student{
		Name:       strings.TrimSpace(doc.Name),
		Phone:      phone,
		FatherName: doc.FatherName,
		Address:    doc.Address,
		PhotoURL:   doc.PhotoURL,
		MonthlyFee: monthlyFee,
		Status:     LegacyStatus(doc.Status),
		CanLogin:   true,
	}
	if doc.JoinDate != nil {
		student.JoinDate = *doc.JoinDate
	}
	if student.Status == models.StudentStatusInactive {
		student.CanLogin = false
		student.ExitDate = doc.ExitDate
	}
	if student.PhotoURL == "" {
		student.PhotoURL = seededPhotoURL(s.cfg.PhotoURLBase, student.Name)
	}
	return student
}

// LegacyStatus maps the old status vocabulary onto ACTIVE or INACTIVE.
func LegacyStatus(raw string) models.StudentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "softdeleted", "inactive", "left":
		return models.StudentStatusInactive
	default:
		return models.StudentStatusActive
	}
}

func legacyPayments(student *models.Student, canonical []fee.Payment) []models.Payment {
	payments := make([]models.Payment, 0, len(canonical))
	for _, p := range canonical {
		amount := p.Amount
		if amount.IsZero() && p.Status == fee.StatusPaid {
			amount = student.MonthlyFee
		}
		payments = append(payments, models.Payment{
			StudentID: student.ID,
			MonthKey:  p.Month.String(),
			Amount:    amount,
			Status:    models.PaymentStatus(p.Status),
			PaidOn:    p.PaidOn,
		})
	}
	return payments
}

func legacyFee(raw interface{}) (decimal.Decimal, bool) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case int64:
		d = decimal.NewFromInt(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case float64:
		d = decimal.NewFromFloat(v)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false
		}
		d = parsed
	default:
		return decimal.Decimal{}, false
	}
	if d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func skipReason(doc models.LegacyStudent, phone string, seen map[string]struct{}) string {
	switch {
	case phone == "":
		return "missing phone"
	case strings.TrimSpace(doc.Name) == "":
		return "missing name"
	case doc.JoinDate == nil:
		return "missing join date"
	}
	if _, dup := seen[phone]; dup {
		return "duplicate phone"
	}
	return ""
}
