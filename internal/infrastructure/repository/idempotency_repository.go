package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sangkips/khata-api/internal/domain/entity"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) domainRepo.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error) {
	var ikey entity.IdempotencyKey
	err := conn(ctx, r.db).
		Where("idempotency_key = ? AND user_id = ?", key, userID).
		First(&ikey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ikey, err
}

// Claim relies on the (user_id, idempotency_key) unique index, so of two
// concurrent claims only one inserts a row.
func (r *idempotencyRepository) Claim(ctx context.Context, ikey *entity.IdempotencyKey) (bool, error) {
	db := conn(ctx, r.db)
	err := db.
		Where("idempotency_key = ? AND user_id = ? AND expires_at < ?", ikey.Key, ikey.UserID, time.Now()).
		Delete(&entity.IdempotencyKey{}).Error
	if err != nil {
		return false, err
	}

	if ikey.Status == "" {
		ikey.Status = entity.IdempotencyStatusProcessing
	}
	result := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(ikey)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, ikey *entity.IdempotencyKey) error {
	return conn(ctx, r.db).
		Model(&entity.IdempotencyKey{}).
		Where("idempotency_key = ? AND user_id = ?", ikey.Key, ikey.UserID).
		Updates(map[string]interface{}{
			"status":        entity.IdempotencyStatusCompleted,
			"response_code": ikey.ResponseCode,
			"response_body": ikey.ResponseBody,
			"expires_at":    ikey.ExpiresAt,
		}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, key string, userID uuid.UUID) error {
	return conn(ctx, r.db).
		Where("idempotency_key = ? AND user_id = ? AND status = ?", key, userID, entity.IdempotencyStatusProcessing).
		Delete(&entity.IdempotencyKey{}).Error
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at < ?", time.Now()).
		Delete(&entity.IdempotencyKey{})
	return result.RowsAffected, result.Error
}
