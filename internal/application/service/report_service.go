package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// ReportType selects which transactions a report totals
type ReportType string

const (
	// ReportSales is credit extended, excluding cancelled credits
	ReportSales ReportType = "sales"
	// ReportCash is payments received
	ReportCash ReportType = "cash"
	// ReportCredit is credit still outstanding
	ReportCredit ReportType = "credit"
)

// ParseReportType maps a path segment onto a report type
func ParseReportType(s string) (ReportType, error) {
	switch ReportType(strings.ToLower(s)) {
	case ReportSales:
		return ReportSales, nil
	case ReportCash:
		return ReportCash, nil
	case ReportCredit:
		return ReportCredit, nil
	}
	return "", apperror.NewFieldValidationError("type", "must be one of sales, cash, credit")
}

// ReportService totals transactions over business dates
type ReportService struct {
	txRepo repository.TransactionRepository
	now    func() time.Time
}

// NewReportService creates a new report service
func NewReportService(txRepo repository.TransactionRepository) *ReportService {
	return &ReportService{txRepo: txRepo, now: time.Now}
}

// Report is the total of one report type over a date range
type Report struct {
	Type         ReportType
	StartDate    time.Time
	EndDate      time.Time
	Total        decimal.Decimal
	Count        int64
	Transactions []entity.Transaction
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type         ReportType           `json:"type"`
		StartDate    string               `json:"start_date"`
		EndDate      string               `json:"end_date"`
		Total        float64              `json:"total"`
		Count        int64                `json:"count"`
		Transactions []entity.Transaction `json:"transactions"`
	}{
		Type:         r.Type,
		StartDate:    r.StartDate.Format(entity.DateLayout),
		EndDate:      r.EndDate.Format(entity.DateLayout),
		Total:        r.Total.InexactFloat64(),
		Count:        r.Count,
		Transactions: r.Transactions,
	})
}

// Daily reports a single business date; an empty date means today
func (s *ReportService) Daily(ctx context.Context, reportType ReportType, date string) (*Report, error) {
	day := entity.BusinessDate(s.now())
	if date != "" {
		parsed, err := parseDateParam("date", date)
		if err != nil {
			return nil, err
		}
		day = *parsed
	}
	return s.build(ctx, reportType, day, day)
}

// Period reports an inclusive range of business dates
func (s *ReportService) Period(ctx context.Context, reportType ReportType, startDate, endDate string) (*Report, error) {
	start, err := parseDateParam("start_date", startDate)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, apperror.NewFieldValidationError("start_date", "is required")
	}
	end, err := parseDateParam("end_date", endDate)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, apperror.NewFieldValidationError("end_date", "is required")
	}
	if end.Before(*start) {
		return nil, apperror.NewFieldValidationError("end_date", "must not be before start_date")
	}
	return s.build(ctx, reportType, *start, *end)
}

func (s *ReportService) build(ctx context.Context, reportType ReportType, start, end time.Time) (*Report, error) {
	filter := reportFilter(reportType)
	filter.StartDate = &start
	filter.EndDate = &end

	total, err := s.txRepo.Sum(ctx, filter)
	if err != nil {
		return nil, err
	}

	params := &pagination.PaginationParams{Page: 1, PerPage: pagination.MaxPerPage}
	txs, _, err := s.txRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}

	return &Report{
		Type:         reportType,
		StartDate:    start,
		EndDate:      end,
		Total:        total.Total,
		Count:        total.Count,
		Transactions: txs,
	}, nil
}

func reportFilter(reportType ReportType) repository.TransactionFilter {
	credit := enum.TransactionKindCredit
	payment := enum.TransactionKindPayment

	switch reportType {
	case ReportCash:
		return repository.TransactionFilter{Kind: &payment}
	case ReportCredit:
		return repository.TransactionFilter{
			Kind:     &credit,
			Statuses: []enum.TransactionStatus{enum.TransactionStatusPending},
		}
	default:
		return repository.TransactionFilter{
			Kind:     &credit,
			Statuses: []enum.TransactionStatus{enum.TransactionStatusPending, enum.TransactionStatusPaid},
		}
	}
}
