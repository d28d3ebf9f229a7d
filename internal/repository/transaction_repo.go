package repository

import (
	"time"

	"go-farm-market/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository is the append-only sales log. Rows are never updated;
// the only delete path is the cascade from a product delete.
type TransactionRepository interface {
	// Create appends one sale inside the caller's transaction scope.
	Create(tx *gorm.DB, t *model.Transaction) error
	// FindByProduct returns sales for a product, most recent first, ties on
	// date_of_sale broken by insertion order (id descending). A non-nil since
	// restricts to date_of_sale >= since.
	FindByProduct(productID uuid.UUID, since *time.Time) ([]model.Transaction, error)
	CountByProduct(productID uuid.UUID) (int64, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(tx *gorm.DB, t *model.Transaction) error {
	return tx.Create(t).Error
}

func (r *transactionRepo) FindByProduct(productID uuid.UUID, since *time.Time) ([]model.Transaction, error) {
	var transactions []model.Transaction
	q := r.db.Preload("Buyer").Where("product_id = ?", productID)
	if since != nil {
		q = q.Where("date_of_sale >= ?", *since)
	}
	err := q.Order("date_of_sale DESC, id DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) CountByProduct(productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Transaction{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}
