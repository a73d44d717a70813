package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/library-fee-api/internal/models"
)

const paymentColumns = `id, student_id, month_key, amount, status, paid_on, created_at`

// PaymentRepository persists monthly payments and the approvals that settled them.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByStudent returns a student's payments, newest month first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE student_id = $1 ORDER BY month_key DESC", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListByStudents loads payments for many students at once, grouped by student ID.
func (r *PaymentRepository) ListByStudents(ctx context.Context, studentIDs []string) (map[string][]models.Payment, error) {
	grouped := make(map[string][]models.Payment, len(studentIDs))
	if len(studentIDs) == 0 {
		return grouped, nil
	}
	query := fmt.Sprintf("SELECT %s FROM payments WHERE student_id = ANY($1) ORDER BY student_id, month_key", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list payments by students: %w", err)
	}
	for _, p := range payments {
		grouped[p.StudentID] = append(grouped[p.StudentID], p)
	}
	return grouped, nil
}

// RecordPaid marks a month as paid and writes the approval row in one transaction. An existing
// row for the same month is overwritten.
func (r *PaymentRepository) RecordPaid(ctx context.Context, payment *models.Payment, approval *models.Approval) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if approval.ApprovedAt.IsZero() {
		approval.ApprovedAt = now
	}
	payment.Status = models.PaymentStatusPaid

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO payments (id, student_id, month_key, amount, status, paid_on, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, month_key)
        DO UPDATE SET amount = EXCLUDED.amount, status = EXCLUDED.status, paid_on = EXCLUDED.paid_on
        RETURNING id, created_at`
	if err = tx.QueryRowxContext(ctx, upsert,
		payment.ID, payment.StudentID, payment.MonthKey, payment.Amount, payment.Status, payment.PaidOn, payment.CreatedAt,
	).Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}

	const insertApproval = `INSERT INTO payment_approvals (id, admin_id, student_id, student_name, amount, month_key, approved_at)
        VALUES (:id, :admin_id, :student_id, :student_name, :amount, :month_key, :approved_at)`
	if _, err = tx.NamedExecContext(ctx, insertApproval, approval); err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record payment: %w", err)
	}
	return nil
}

// ListApprovals returns the most recent approvals first.
func (r *PaymentRepository) ListApprovals(ctx context.Context, limit int) ([]models.Approval, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const query = `SELECT id, admin_id, student_id, student_name, amount, month_key, approved_at
        FROM payment_approvals ORDER BY approved_at DESC LIMIT $1`
	var approvals []models.Approval
	if err := r.db.SelectContext(ctx, &approvals, query, limit); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return approvals, nil
}

// ImportPayments inserts canonical payments for a student, leaving existing months untouched.
func (r *PaymentRepository) ImportPayments(ctx context.Context, payments []models.Payment) (inserted int, err error) {
	if len(payments) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import payments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO payments (id, student_id, month_key, amount, status, paid_on, created_at)
        VALUES (:id, :student_id, :month_key, :amount, :status, :paid_on, :created_at)
        ON CONFLICT (student_id, month_key) DO NOTHING`
	now := time.Now().UTC()
	for i := range payments {
		p := payments[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		res, execErr := tx.NamedExecContext(ctx, query, &p)
		if execErr != nil {
			err = fmt.Errorf("import payment %s: %w", p.MonthKey, execErr)
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += int(n)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import payments: %w", err)
	}
	return inserted, nil
}
