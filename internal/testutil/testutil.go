// Package testutil builds in-memory databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Uint64

// Logger returns a logrus logger that discards its output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewDB opens a migrated, private in-memory sqlite database with foreign keys on.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps every connection on the same data.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db, Logger()))
	return db
}

// HashPassword hashes password with the minimum bcrypt cost.
func HashPassword(t testing.TB, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: HashPassword(t, "password123"),
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateArea(t testing.TB, db *gorm.DB, name string) *models.Area {
	t.Helper()
	area := &models.Area{
		Name:        name,
		Description: name + " relief zone",
		Address:     "1 Main Road",
		PostalCode:  "400001",
	}
	require.NoError(t, db.Create(area).Error)
	return area
}

func CreateCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Description: name + " supplies"}
	require.NoError(t, db.Create(category).Error)
	return category
}

func CreateProduct(t testing.TB, db *gorm.DB, categoryID uint64, name, unit string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Unit: unit, CategoryID: categoryID}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CreateAreaAdmin creates an area admin identity with an active assignment to areaID.
func CreateAreaAdmin(t testing.TB, db *gorm.DB, username string, areaID uint64) (*models.User, *models.AreaAssignment) {
	t.Helper()
	user := CreateUser(t, db, username, models.RoleAreaAdmin)
	assignment := &models.AreaAssignment{
		UserID:   user.ID,
		AreaID:   areaID,
		Name:     username,
		Email:    user.Email,
		IsActive: true,
	}
	require.NoError(t, db.Create(assignment).Error)
	return user, assignment
}

func CreateNeed(t testing.TB, db *gorm.DB, areaID, productID uint64, quantity int, priority models.NeedPriority) *models.Need {
	t.Helper()
	need := &models.Need{
		AreaID:    areaID,
		ProductID: productID,
		Quantity:  quantity,
		Priority:  priority,
		Status:    models.NeedStatusPending,
	}
	require.NoError(t, db.Create(need).Error)
	return need
}

// Count returns the number of rows in the table backing model.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
