package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sangkips/khata-api/internal/domain/entity"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/pkg/pagination"
)

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) domainRepo.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	var customer entity.Customer
	err := conn(ctx, r.db).Scopes(OwnerScope(ctx)).First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	var customer entity.Customer
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(OwnerScope(ctx)).
		First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

func (r *customerRepository) GetByMobile(ctx context.Context, mobile string) (*entity.Customer, error) {
	var customer entity.Customer
	err := conn(ctx, r.db).Scopes(OwnerScope(ctx)).First(&customer, "mobile = ?", mobile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

func (r *customerRepository) Update(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Model(customer).
		Scopes(OwnerScope(ctx)).
		Select("name", "mobile", "address", "category", "notes", "is_active").
		Updates(customer).Error
}

func (r *customerRepository) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, totalDue decimal.Decimal, lastTransactionDate *time.Time) error {
	updates := map[string]interface{}{
		"total_due": totalDue,
		"version":   gorm.Expr("version + 1"),
	}
	if lastTransactionDate != nil {
		updates["last_transaction_date"] = *lastTransactionDate
	}

	result := conn(ctx, r.db).Model(&entity.Customer{}).
		Scopes(OwnerScope(ctx)).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrConcurrentUpdate
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Scopes(OwnerScope(ctx)).Delete(&entity.Customer{}, "id = ?", id).Error
}

func (r *customerRepository) filtered(ctx context.Context, filter domainRepo.CustomerFilter) *gorm.DB {
	query := conn(ctx, r.db).Model(&entity.Customer{}).Scopes(OwnerScope(ctx))

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR mobile LIKE ?)", like, like)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.HasDue != nil {
		if *filter.HasDue {
			query = query.Where("total_due > 0")
		} else {
			query = query.Where("total_due <= 0")
		}
	}
	return query
}

func (r *customerRepository) List(ctx context.Context, filter domainRepo.CustomerFilter, params *pagination.PaginationParams) ([]entity.Customer, int64, error) {
	var customers []entity.Customer
	var total int64

	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&customers).Error

	return customers, total, err
}

// ListWithCursor walks customers in creation order
func (r *customerRepository) ListWithCursor(ctx context.Context, filter domainRepo.CustomerFilter, params *pagination.CursorParams) ([]entity.Customer, error) {
	var customers []entity.Customer

	params.Validate()
	cursor, err := params.DecodeCursor()
	if err != nil {
		return nil, err
	}

	query := r.filtered(ctx, filter)
	order := "created_at ASC, id ASC"
	if cursor != nil {
		if params.Direction == pagination.CursorDirectionPrev {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
			order = "created_at DESC, id DESC"
		} else {
			query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	if err := query.Limit(params.Limit + 1).Order(order).Find(&customers).Error; err != nil {
		return nil, err
	}

	if cursor != nil && params.Direction == pagination.CursorDirectionPrev {
		for i, j := 0, len(customers)-1; i < j; i, j = i+1, j-1 {
			customers[i], customers[j] = customers[j], customers[i]
		}
	}
	return customers, nil
}

func (r *customerRepository) Summary(ctx context.Context) (*domainRepo.CustomerSummary, error) {
	var row struct {
		TotalCustomers   int64
		TotalOutstanding decimal.Decimal
		WithOutstanding  int64
	}

	err := conn(ctx, r.db).Model(&entity.Customer{}).
		Scopes(OwnerScope(ctx)).
		Select("COUNT(*) AS total_customers, " +
			"COALESCE(SUM(total_due), 0) AS total_outstanding, " +
			"COALESCE(SUM(CASE WHEN total_due > 0 THEN 1 ELSE 0 END), 0) AS with_outstanding").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &domainRepo.CustomerSummary{
		TotalCustomers:   row.TotalCustomers,
		TotalOutstanding: row.TotalOutstanding,
		WithOutstanding:  row.WithOutstanding,
	}, nil
}
