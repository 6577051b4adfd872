// Package testutil holds fixtures shared by package tests. It is only
// imported from _test.go files.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/infrastructure/database"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
)

// NewTestDB opens a fresh in-memory SQLite database with the schema applied.
// The pool is pinned to one connection so every query sees the same memory
// database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewOwner stores a user and returns it with a context scoped to it.
func NewOwner(t *testing.T, db *gorm.DB) (*entity.User, context.Context) {
	t.Helper()

	shop := "Test Kirana"
	user := &entity.User{
		Name:     "Owner",
		Email:    uuid.NewString() + "@example.com",
		Password: "not-a-real-hash",
		ShopName: &shop,
	}
	require.NoError(t, db.Create(user).Error)

	return user, infraRepo.WithOwner(context.Background(), user.ID)
}
