package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[string]*models.Student
	nextID   int
	err      error
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[string]*models.Student{}}
	for i := range students {
		st := students[i]
		repo.students[st.ID] = &st
	}
	return repo
}

func (f *fakeStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	all, err := f.ListAll(context.Background(), filter.Status)
	if err != nil {
		return nil, 0, err
	}
	return all, len(all), nil
}

func (f *fakeStudentRepo) ListAll(_ context.Context, status *models.StudentStatus) ([]models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Student, 0, len(f.students))
	for _, st := range f.students {
		if status != nil && st.Status != *status {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *st
	return &copied, nil
}

func (f *fakeStudentRepo) FindByPhone(_ context.Context, phone string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, st := range f.students {
		if st.Phone == phone {
			copied := *st
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByPhone(_ context.Context, phone string, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.students {
		if st.Phone == phone && st.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if student.ID == "" {
		f.nextID++
		student.ID = fmt.Sprintf("stu-%d", f.nextID)
	}
	copied := *student
	f.students[student.ID] = &copied
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *student
	f.students[student.ID] = &copied
	return nil
}

func (f *fakeStudentRepo) SetStatus(_ context.Context, id string, status models.StudentStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.Status = status
	if status == models.StudentStatusInactive {
		st.ExitDate = &at
		st.CanLogin = false
	} else {
		st.ExitDate = nil
		st.LastRejoinDate = &at
		st.CanLogin = true
	}
	return nil
}

func (f *fakeStudentRepo) UpdatePhoto(_ context.Context, id, photoURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.PhotoURL = photoURL
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

type fakePaymentRepo struct {
	mu          sync.Mutex
	payments    map[string][]models.Payment
	approvals   []models.Approval
	batchCalls  int
	err         error
	recordErr   error
	approvalCap int
}

func newFakePaymentRepo(payments ...models.Payment) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: map[string][]models.Payment{}}
	for _, p := range payments {
		repo.payments[p.StudentID] = append(repo.payments[p.StudentID], p)
	}
	return repo
}

func (f *fakePaymentRepo) ListByStudent(_ context.Context, studentID string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Payment(nil), f.payments[studentID]...), nil
}

func (f *fakePaymentRepo) ListByStudents(_ context.Context, ids []string) (map[string][]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]models.Payment, len(ids))
	for _, id := range ids {
		if p, ok := f.payments[id]; ok {
			out[id] = append([]models.Payment(nil), p...)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) RecordPaid(_ context.Context, payment *models.Payment, approval *models.Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	existing := f.payments[payment.StudentID]
	for i := range existing {
		if existing[i].MonthKey == payment.MonthKey {
			existing[i] = *payment
			f.approvals = append(f.approvals, *approval)
			return nil
		}
	}
	payment.ID = fmt.Sprintf("pay-%s-%s", payment.StudentID, payment.MonthKey)
	f.payments[payment.StudentID] = append(existing, *payment)
	f.approvals = append(f.approvals, *approval)
	return nil
}

func (f *fakePaymentRepo) ListApprovals(_ context.Context, limit int) ([]models.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvalCap = limit
	out := make([]models.Approval, len(f.approvals))
	for i := range f.approvals {
		out[len(f.approvals)-1-i] = f.approvals[i]
	}
	return out, nil
}

func (f *fakePaymentRepo) ImportPayments(_ context.Context, payments []models.Payment) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	inserted := 0
	for _, p := range payments {
		dup := false
		for _, existing := range f.payments[p.StudentID] {
			if existing.MonthKey == p.MonthKey {
				dup = true
				break
			}
		}
		if !dup {
			f.payments[p.StudentID] = append(f.payments[p.StudentID], p)
			inserted++
		}
	}
	return inserted, nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) AsOf() time.Time { return c.at }

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func fixtureStudent(id, name, phone string, joined time.Time, fee int64) models.Student {
	return models.Student{
		ID:         id,
		Name:       name,
		Phone:      phone,
		JoinDate:   joined,
		MonthlyFee: decimal.NewFromInt(fee),
		Status:     models.StudentStatusActive,
		CanLogin:   true,
	}
}

func paidRecord(studentID, month string, amount int64) models.Payment {
	return models.Payment{
		StudentID: studentID,
		MonthKey:  month,
		Amount:    decimal.NewFromInt(amount),
		Status:    models.PaymentStatusPaid,
	}
}

func newTestFeeService(students *fakeStudentRepo, payments *fakePaymentRepo, now time.Time) *FeeService {
	svc := NewFeeService(students, payments, nil, time.UTC, nil)
	svc.now = func() time.Time { return now }
	return svc
}
