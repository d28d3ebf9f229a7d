package repository

import (
	"time"

	"go-farm-market/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	// FindLowStockByOwner returns the owner's products at/below threshold,
	// oldest low-stock episode first, never-dated rows last.
	FindLowStockByOwner(ownerID uuid.UUID) ([]model.Product, error)
	Delete(product *model.Product) error

	// Transaction-scoped methods receive the *gorm.DB of the enclosing
	// db.Transaction block.
	Get(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	GetForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	DecrementStock(tx *gorm.DB, id uuid.UUID, qty float64) (int64, error)
	UpdateFields(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	SetLowStockSince(tx *gorm.DB, id uuid.UUID, since *time.Time) error

	AddImage(image *model.ProductImage) error
	ImagesByProduct(productID uuid.UUID) ([]model.ProductImage, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("Images").Order("created_at DESC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.Preload("Images").First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindLowStockByOwner(ownerID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.
		Where("owner_id = ? AND stock <= low_stock_threshold", ownerID).
		Order("low_stock_since_date ASC NULLS LAST, id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Delete(product *model.Product) error {
	// Hard delete so transaction and image rows cascade with the product.
	return r.db.Select("Images", "Transactions").Unscoped().Delete(product).Error
}

func (r *productRepo) Get(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetForUpdate reads the row under a row lock so a read-modify-write cannot
// interleave with a concurrent purchase. sqlite has no FOR UPDATE; its single
// writer already serializes transactions.
func (r *productRepo) GetForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product model.Product
	if err := q.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock applies the guarded atomic decrement. Zero rows affected
// means the product is missing or its stock is smaller than qty; the caller
// distinguishes the two with a follow-up Get in the same transaction.
func (r *productRepo) DecrementStock(tx *gorm.DB, id uuid.UUID, qty float64) (int64, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected, res.Error
}

// UpdateFields writes only the named columns, never the whole row.
func (r *productRepo) UpdateFields(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *productRepo) SetLowStockSince(tx *gorm.DB, id uuid.UUID, since *time.Time) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Update("low_stock_since_date", since).Error
}

func (r *productRepo) AddImage(image *model.ProductImage) error {
	return r.db.Create(image).Error
}

func (r *productRepo) ImagesByProduct(productID uuid.UUID) ([]model.ProductImage, error) {
	var images []model.ProductImage
	err := r.db.Where("product_id = ?", productID).Find(&images).Error
	return images, err
}
