package service

import (
	"fmt"
	"strings"
	"testing"

	"messagely/internal/auth"
	"messagely/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens an isolated in-memory sqlite database per test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	// A single connection serializes concurrent writers the way a real
	// store's transaction isolation would.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Message{}))
	return gdb
}

func newTestUserService(db *gorm.DB) *UserService {
	hasher := auth.NewHasher(bcrypt.MinCost)
	issuer := auth.NewTokenIssuer("test-secret", 15)
	return NewUserService(db, hasher, issuer)
}

func seedUser(t *testing.T, db *gorm.DB, username string) {
	t.Helper()
	svc := newTestUserService(db)
	_, _, err := svc.Register(RegisterInput{
		Username:  username,
		Password:  "pw-" + username,
		FirstName: username,
		LastName:  "Test",
		Phone:     "+15551234",
	})
	require.NoError(t, err)
}
