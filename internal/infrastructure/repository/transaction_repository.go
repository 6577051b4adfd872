package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/pkg/pagination"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) domainRepo.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	return conn(ctx, r.db).Omit("Customer").Create(tx).Error
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var tx entity.Transaction
	err := conn(ctx, r.db).Scopes(OwnerScope(ctx)).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &tx, err
}

func (r *transactionRepository) UpdateDetails(ctx context.Context, tx *entity.Transaction) error {
	return conn(ctx, r.db).Model(tx).
		Scopes(OwnerScope(ctx)).
		Select("description", "payment_method", "notes").
		Updates(tx).Error
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enum.TransactionStatus, settledAt time.Time) error {
	result := conn(ctx, r.db).Model(&entity.Transaction{}).
		Scopes(OwnerScope(ctx)).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"settled_at": settledAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrConcurrentUpdate
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Scopes(OwnerScope(ctx)).Delete(&entity.Transaction{}, "id = ?", id).Error
}

func (r *transactionRepository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	return conn(ctx, r.db).Scopes(OwnerScope(ctx)).
		Where("customer_id = ?", customerID).
		Delete(&entity.Transaction{}).Error
}

func (r *transactionRepository) filtered(ctx context.Context, filter domainRepo.TransactionFilter) *gorm.DB {
	query := conn(ctx, r.db).Model(&entity.Transaction{}).Scopes(OwnerScope(ctx))

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", entity.BusinessDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", entity.BusinessDate(*filter.EndDate))
	}
	return query
}

func (r *transactionRepository) List(ctx context.Context, filter domainRepo.TransactionFilter, params *pagination.PaginationParams) ([]entity.Transaction, int64, error) {
	var txs []entity.Transaction
	var total int64

	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("date DESC, created_at DESC").
		Find(&txs).Error

	return txs, total, err
}

func (r *transactionRepository) History(ctx context.Context, customerID uuid.UUID) ([]entity.Transaction, error) {
	var txs []entity.Transaction
	err := conn(ctx, r.db).Scopes(OwnerScope(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at ASC, sequence ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) Recent(ctx context.Context, limit int) ([]entity.Transaction, error) {
	var txs []entity.Transaction
	err := conn(ctx, r.db).Scopes(OwnerScope(ctx)).
		Preload("Customer").
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) Sum(ctx context.Context, filter domainRepo.TransactionFilter) (*domainRepo.TransactionTotal, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}

	err := r.filtered(ctx, filter).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &domainRepo.TransactionTotal{Total: row.Total, Count: row.Count}, nil
}
