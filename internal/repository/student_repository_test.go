package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/library-fee-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "name", "phone", "father_name", "address", "photo_url", "join_date", "exit_date", "monthly_fee", "due_day", "status", "can_login", "last_rejoin_date", "created_at", "updated_at"}

func studentRow(rows *sqlmock.Rows, id, name, phone string, status models.StudentStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, name, phone, "Father", "Street", "https://picsum.photos/seed/x/200", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nil, "500.00", 0, string(status), true, nil, now, now)
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRow(sqlmock.NewRows(studentRowColumns), "1", "Asha", "9876543210", models.StudentStatusActive)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 AND status = $1 AND (LOWER(name) LIKE $2 OR phone LIKE $2) ORDER BY name ASC LIMIT 10 OFFSET 10")).
		WithArgs(models.StudentStatusActive, "%ash%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND status = $1")).
		WithArgs(models.StudentStatusActive, "%ash%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	status := models.StudentStatusActive
	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Search: "Ash", Status: &status, Page: 2, PageSize: 10, SortBy: "name", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 11, total)
	assert.True(t, decimal.NewFromInt(500).Equal(students[0].MonthlyFee))
	assert.Nil(t, students[0].ExitDate)
	assert.True(t, students[0].IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListDefaultsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.StudentFilter{SortBy: "phone; DROP TABLE", PageSize: 1000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByPhone(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE phone = $1")).
		WithArgs("9876543210").
		WillReturnRows(studentRow(sqlmock.NewRows(studentRowColumns), "1", "Asha", "9876543210", models.StudentStatusInactive))

	student, err := repo.FindByPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInactive, student.Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE phone = $1")).
		WithArgs("000").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByPhone(context.Background(), "000")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByPhone(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE phone = $1 AND id <> $2 LIMIT 1")).
		WithArgs("123", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	exists, err := repo.ExistsByPhone(context.Background(), "123", "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE phone = $1 LIMIT 1")).
		WithArgs("456").
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsByPhone(context.Background(), "456", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "Asha", "9876543210", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Asha", Phone: "9876543210", JoinDate: time.Now(), MonthlyFee: decimal.NewFromInt(500), Status: models.StudentStatusActive, CanLogin: true}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	at := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, exit_date = $3, can_login = false")).
		WithArgs("s1", models.StudentStatusInactive, at, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetStatus(context.Background(), "s1", models.StudentStatusInactive, at))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, exit_date = NULL, last_rejoin_date = $3")).
		WithArgs("s1", models.StudentStatusActive, at, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SetStatus(context.Background(), "s1", models.StudentStatusActive, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Error(t, repo.SetStatus(context.Background(), "s1", models.StudentStatus("GONE"), at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
