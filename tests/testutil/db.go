package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database.
// It is pinned to one connection so every query sees the same memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with a predictable email derived from auth0ID
func CreateUser(t *testing.T, db *gorm.DB, auth0ID, role string) models.User {
	t.Helper()

	user := models.User{
		Auth0ID:     auth0ID,
		Name:        "User " + auth0ID,
		Email:       auth0ID + "@example.com",
		Role:        role,
		CompanyName: "Acme Retail " + auth0ID,
		Address: models.Address{
			Line1:       "12 Ayala Ave",
			City:        "Makati",
			CountryCode: models.LocalCountryCode,
		},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateProduct inserts an active product weighing weightGrams per unit
func CreateProduct(t *testing.T, db *gorm.DB, name string, weightGrams float64) models.Product {
	t.Helper()

	product := models.Product{Name: name, Description: name + " hanger", WeightGrams: weightGrams, IsActive: true}
	require.NoError(t, db.Create(&product).Error)
	return product
}

// CreateMaterial inserts a material priced per kilogram
func CreateMaterial(t *testing.T, db *gorm.DB, name string, pricePerKg int64) models.Material {
	t.Helper()

	material := models.Material{Name: name, PricePerKg: decimal.NewFromInt(pricePerKg), IsActive: true}
	require.NoError(t, db.Create(&material).Error)
	return material
}

// CreateOrder inserts an order for customer in the given status
func CreateOrder(t *testing.T, db *gorm.DB, customer models.User, product models.Product, status models.OrderStatus) models.Order {
	t.Helper()

	order := models.Order{
		CustomerID:      customer.ID,
		ProductID:       product.ID,
		Quantity:        10,
		Status:          status,
		DeliveryAddress: customer.Address,
	}
	order.Materials = datatypes.NewJSONType(models.MaterialMix{"Steel": 100})
	if status.Rank() > models.StatusContractSigning.Rank() {
		order.ContractSigned = true
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

// SignatureDataURL is a minimal PNG signature as the signing pad would post it
func SignatureDataURL() string {
	img := append([]byte("\x89PNG\r\n\x1a\n"), []byte("signature-strokes")...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
}
