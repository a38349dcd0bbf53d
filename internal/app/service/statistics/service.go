package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

type DailyPaymentStat struct {
	Date   string `json:"date"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

type Overview struct {
	TotalUsers    int64              `json:"total_users"`
	PremiumUsers  int64              `json:"premium_users"`
	TotalPayments int64              `json:"total_payments"`
	TotalAmount   int64              `json:"total_amount"`
	Daily         []DailyPaymentStat `json:"daily"`
}

// GetOverview returns headline counts plus per-day payment totals for the
// admin dashboard.
func (s *Service) GetOverview(ctx context.Context, from, to time.Time) (*Overview, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid range: from must precede to")
	}

	var out Overview
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&out.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&models.Entitlement{}).
		Where("plan = ? AND status = ?", types.PlanPremium, types.EntitlementStatusActive).
		Count(&out.PremiumUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count premium users: %w", err)
	}

	type totals struct {
		Count  int64
		Amount int64
	}
	var t totals
	if err := db.Model(&models.Payment{}).
		Select("count(*) as count, coalesce(sum(amount), 0) as amount").
		Scan(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to total payments: %w", err)
	}
	out.TotalPayments = t.Count
	out.TotalAmount = t.Amount

	rows := []DailyPaymentStat{}
	err := db.Model(&models.Payment{}).
		Select("to_char(paid_at, 'YYYY-MM-DD') as date, count(*) as count, coalesce(sum(amount), 0) as amount").
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Group("1").Order("1").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily payments: %w", err)
	}
	out.Daily = rows
	return &out, nil
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// filtersWhere wraps a list of filters into a single clause.Expression.
type filtersWhere struct{ filters []*types.CommonFilter }

func (w filtersWhere) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

// ScanPayments lists payment records for the admin payments page with
// filtering, pagination and sorting.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	size := req.Size
	if size <= 0 || size > 500 {
		size = 100
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "paid_at"
	}
	sortOrder := req.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	q := s.db.WithContext(ctx).Model(&models.Payment{}).
		Clauses(clause.Where{Exprs: []clause.Expression{filtersWhere{filters: req.Filters}}})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var items []*models.Payment
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: sortOrder == "desc"}).
		Offset(req.From).Limit(size).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: items, Total: total}, nil
}
