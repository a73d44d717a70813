package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/fee"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type rosterReader interface {
	ListAll(ctx context.Context, status *models.StudentStatus) ([]models.Student, error)
}

type paymentBatchReader interface {
	ListByStudents(ctx context.Context, studentIDs []string) (map[string][]models.Payment, error)
}

type feeCalculator interface {
	AsOf() time.Time
	StatsFor(student models.Student, payments []models.Payment, asOf time.Time) fee.Result
}

// Standing is one student's reconciled fee position.
type Standing struct {
	Student models.Student
	Result  fee.Result
}

// Unpaid reports whether an active student owes at least one month.
func (s Standing) Unpaid() bool {
	return s.Student.IsActive() && s.Result.UnpaidCount > 0
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	// BatchSize bounds how many student IDs go into one payments query.
	BatchSize int
	// Parallelism bounds concurrent payment batch queries.
	Parallelism int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students rosterReader
	Payments paymentBatchReader
	Fees     feeCalculator
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// DashboardService reconciles the whole roster for the admin console.
type DashboardService struct {
	students rosterReader
	payments paymentBatchReader
	fees     feeCalculator
	cache    *CacheService
	logger   *zap.Logger
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students: params.Students,
		payments: params.Payments,
		fees:     params.Fees,
		cache:    params.Cache,
		logger:   logger,
		cfg:      cfg,
	}
}

// Admin returns the overview for the current month and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	asOf := s.fees.AsOf()
	cacheKey := DashboardCacheKey(fee.MonthOf(asOf))

	var cached dto.AdminDashboardResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	standings, err := s.standingsAt(ctx, asOf)
	if err != nil {
		return nil, false, err
	}
	summary := Summarize(standings, asOf)
	s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

// Unpaid lists active students who owe fees, largest balance first.
func (s *DashboardService) Unpaid(ctx context.Context) ([]dto.UnpaidStudentEntry, error) {
	standings, _, err := s.Standings(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]dto.UnpaidStudentEntry, 0)
	for _, st := range UnpaidStandings(standings) {
		entries = append(entries, dto.UnpaidStudentEntry{
			StudentID:    st.Student.ID,
			Name:         st.Student.Name,
			Phone:        st.Student.Phone,
			PhotoURL:     st.Student.PhotoURL,
			UnpaidCount:  st.Result.UnpaidCount,
			UnpaidMonths: st.Result.UnpaidMonths,
			TotalDue:     st.Result.TotalDue,
		})
	}
	return entries, nil
}

// Activity lists students who joined or left during the current month.
func (s *DashboardService) Activity(ctx context.Context) (*dto.ActivityResponse, error) {
	students, err := s.students.ListAll(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	month := fee.MonthOf(s.fees.AsOf())
	resp := &dto.ActivityResponse{
		Month:  month.String(),
		Joined: []dto.ActivityEntry{},
		Left:   []dto.ActivityEntry{},
	}
	for _, st := range students {
		if fee.MonthOf(st.JoinDate) == month {
			resp.Joined = append(resp.Joined, dto.ActivityEntry{StudentID: st.ID, Name: st.Name, Date: st.JoinDate})
		}
		if st.ExitDate != nil && fee.MonthOf(*st.ExitDate) == month {
			resp.Left = append(resp.Left, dto.ActivityEntry{StudentID: st.ID, Name: st.Name, Date: *st.ExitDate})
		}
	}
	sort.Slice(resp.Joined, func(i, j int) bool { return resp.Joined[i].Date.Before(resp.Joined[j].Date) })
	sort.Slice(resp.Left, func(i, j int) bool { return resp.Left[i].Date.Before(resp.Left[j].Date) })
	return resp, nil
}

// Standings reconciles every student against the current clock reading.
func (s *DashboardService) Standings(ctx context.Context) ([]Standing, time.Time, error) {
	asOf := s.fees.AsOf()
	standings, err := s.standingsAt(ctx, asOf)
	return standings, asOf, err
}

func (s *DashboardService) standingsAt(ctx context.Context, asOf time.Time) ([]Standing, error) {
	students, err := s.students.ListAll(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	payments, err := s.loadPayments(ctx, students)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payments")
	}

	standings := make([]Standing, 0, len(students))
	for _, st := range students {
		standings = append(standings, Standing{Student: st, Result: s.fees.StatsFor(st, payments[st.ID], asOf)})
	}
	return standings, nil
}

func (s *DashboardService) loadPayments(ctx context.Context, students []models.Student) (map[string][]models.Payment, error) {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}

	var mu sync.Mutex
	merged := make(map[string][]models.Payment, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for start := 0; start < len(ids); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		g.Go(func() error {
			grouped, err := s.payments.ListByStudents(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, p := range grouped {
				merged[id] = p
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Summarize aggregates standings into the admin overview.
func Summarize(standings []Standing, asOf time.Time) *dto.AdminDashboardResponse {
	summary := &dto.AdminDashboardResponse{
		Month:                 fee.MonthOf(asOf).String(),
		TotalStudents:         len(standings),
		ExpectedMonthlyIncome: decimal.Zero,
		TotalUnpaid:           decimal.Zero,
		GeneratedAt:           time.Now().UTC(),
	}
	for _, st := range standings {
		if !st.Student.IsActive() {
			summary.InactiveStudents++
			continue
		}
		summary.ActiveStudents++
		summary.ExpectedMonthlyIncome = summary.ExpectedMonthlyIncome.Add(st.Student.MonthlyFee)
		if st.Unpaid() {
			summary.UnpaidStudents++
			summary.TotalUnpaid = summary.TotalUnpaid.Add(st.Result.TotalDue)
		}
	}
	return summary
}

// UnpaidStandings filters to active students with dues, largest balance first then by name.
func UnpaidStandings(standings []Standing) []Standing {
	unpaid := make([]Standing, 0)
	for _, st := range standings {
		if st.Unpaid() {
			unpaid = append(unpaid, st)
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		if cmp := unpaid[i].Result.TotalDue.Cmp(unpaid[j].Result.TotalDue); cmp != 0 {
			return cmp > 0
		}
		return unpaid[i].Student.Name < unpaid[j].Student.Name
	})
	return unpaid
}
