package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/models"
	"github.com/noah-isme/library-fee-api/internal/service"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin, Name: "Admin"}, nil
	case "student-token":
		return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, Name: "Asha"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type fakeAuthSrv struct{}

func (fakeAuthSrv) AdminLogin(_ context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "admin-token", User: models.UserInfo{ID: "admin1", Role: models.RoleAdmin}}, nil
}

func (fakeAuthSrv) StudentLogin(_ context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	if req.Phone != "9876543210" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "student-token", User: models.UserInfo{ID: "s1", Role: models.RoleStudent}}, nil
}

type fakeStudentSrv struct {
	photoFor string
	photoURL string
}

func (f *fakeStudentSrv) List(context.Context, models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return []models.Student{{ID: "s1", Name: "Asha"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if id != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.Student{ID: "s1", Name: "Asha", Phone: "9876543210", Status: models.StudentStatusActive}, nil
}

func (f *fakeStudentSrv) Members(context.Context) ([]models.Member, error) {
	return []models.Member{{ID: "s1", Name: "Asha", Phone: "******3210"}}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: "s9", Name: req.Name, Phone: req.Phone}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id, Name: req.Name}, nil
}

func (f *fakeStudentSrv) Deactivate(_ context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, Status: models.StudentStatusInactive}, nil
}

func (f *fakeStudentSrv) Reactivate(_ context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, Status: models.StudentStatusActive}, nil
}

func (f *fakeStudentSrv) Delete(context.Context, string) error { return nil }

func (f *fakeStudentSrv) UpdatePhoto(_ context.Context, id, photoURL string) error {
	f.photoFor, f.photoURL = id, photoURL
	return nil
}

type fakeFeeSrv struct {
	asOf time.Time
}

func (f fakeFeeSrv) ForStudent(_ context.Context, studentID string) (*dto.FeeStatusResponse, error) {
	if studentID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &dto.FeeStatusResponse{
		StudentID:    studentID,
		UnpaidCount:  1,
		UnpaidMonths: []string{"Mar 2025"},
		TotalDue:     decimal.NewFromInt(500),
		AsOf:         f.asOf,
	}, nil
}

type fakePaymentSrv struct {
	lastAdmin   string
	lastStudent string
	lastMonth   string
	lastLimit   int
}

func (f *fakePaymentSrv) MarkCurrentMonthPaid(_ context.Context, studentID, adminID string) (*models.Payment, error) {
	f.lastStudent, f.lastAdmin = studentID, adminID
	return &models.Payment{StudentID: studentID, MonthKey: "2025-03", Status: models.PaymentStatusPaid}, nil
}

func (f *fakePaymentSrv) ApprovePayment(_ context.Context, studentID, adminID string, req dto.ApprovePaymentRequest) (*models.Payment, error) {
	if studentID == "gone" {
		return nil, appErrors.ErrStudentInactive
	}
	f.lastStudent, f.lastAdmin, f.lastMonth = studentID, adminID, req.MonthKey
	return &models.Payment{StudentID: studentID, MonthKey: req.MonthKey, Status: models.PaymentStatusPaid}, nil
}

func (f *fakePaymentSrv) History(_ context.Context, studentID string) ([]models.Payment, error) {
	return []models.Payment{{StudentID: studentID, MonthKey: "2025-02"}}, nil
}

func (f *fakePaymentSrv) Approvals(_ context.Context, limit int) ([]models.Approval, error) {
	f.lastLimit = limit
	return []models.Approval{}, nil
}

type fakeReminderSrv struct{}

func (fakeReminderSrv) Batch(context.Context) (*dto.ReminderBatchResponse, error) {
	return &dto.ReminderBatchResponse{
		Reminders: []dto.Reminder{{StudentID: "s1", Message: "Dear Asha"}},
		Broadcast: "Dear Asha",
	}, nil
}

type fakeStoreSrv struct {
	lastRole models.UserRole
}

func (f *fakeStoreSrv) Catalog(_ context.Context, role models.UserRole) ([]models.StoreItem, error) {
	f.lastRole = role
	return []models.StoreItem{}, nil
}

func (f *fakeStoreSrv) Get(_ context.Context, id string) (*models.StoreItem, error) {
	return &models.StoreItem{ID: id}, nil
}

func (f *fakeStoreSrv) Create(_ context.Context, req service.StoreItemRequest) (*models.StoreItem, error) {
	return &models.StoreItem{ID: "i1", Title: req.Title}, nil
}

func (f *fakeStoreSrv) Update(_ context.Context, id string, req service.StoreItemRequest) (*models.StoreItem, error) {
	return &models.StoreItem{ID: id, Title: req.Title}, nil
}

func (f *fakeStoreSrv) Delete(context.Context, string) error { return nil }

type fakeExportSrv struct {
	file        string
	contentType string
	lastFormat  service.ExportFormat
}

func (f *fakeExportSrv) GenerateFeeReport(_ context.Context, format service.ExportFormat) (*dto.ExportResponse, error) {
	f.lastFormat = format
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &dto.ExportResponse{Format: string(format), URL: "/api/v1/exports/tok"}, nil
}

func (f *fakeExportSrv) Resolve(token string) (*os.File, string, error) {
	switch token {
	case "expired":
		return nil, "", appErrors.ErrExportExpired
	case "good":
		file, err := os.Open(f.file)
		if err != nil {
			return nil, "", err
		}
		return file, f.contentType, nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid")
}

type fakeMetrics struct{}

func (fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fee_http_requests_total 1\n"))
	})
}

func (fakeMetrics) Snapshot() models.SystemMetrics {
	return models.SystemMetrics{RequestsTotal: 1}
}
