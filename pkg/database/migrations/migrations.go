// Package migrations registers the ordered schema migration list.
// Imported for side effects by cmd/api and the test suite.
package migrations

import (
	"go-farm-market/internal/model"
	"go-farm-market/pkg/database"

	"gorm.io/gorm"
)

func init() {
	database.Register("20250301000000_create_users_table", func(db *gorm.DB) error {
		return db.AutoMigrate(&model.User{})
	})
	database.Register("20250301000001_create_products_table", func(db *gorm.DB) error {
		return db.AutoMigrate(&model.Product{})
	})
	database.Register("20250301000002_create_product_images_table", func(db *gorm.DB) error {
		return db.AutoMigrate(&model.ProductImage{})
	})
	database.Register("20250301000003_create_transactions_table", func(db *gorm.DB) error {
		return db.AutoMigrate(&model.Transaction{})
	})
	database.Register("20250301000004_create_refresh_tokens_table", func(db *gorm.DB) error {
		return db.AutoMigrate(&model.RefreshToken{})
	})
}
