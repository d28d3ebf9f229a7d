package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLowStockThreshold applies when a villager does not pick one (kg).
const DefaultLowStockThreshold = 7.0

type Product struct {
	BaseModel
	OwnerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id" validate:"uuid_required"`
	Owner    *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty" validate:"-"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category string    `gorm:"type:varchar(100)" json:"category"`
	Price    float64   `gorm:"not null;default:0" json:"price" validate:"gte=0"`

	// Stock is in kilograms; fractional amounts are normal for produce.
	Stock             float64 `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
	LowStockThreshold float64 `gorm:"not null;default:7" json:"low_stock_threshold" validate:"gte=0"`

	// Set when stock first drops to/below the threshold, cleared on recovery.
	// Non-null iff the product was low-stock when last evaluated.
	LowStockSinceDate *time.Time `json:"low_stock_since_date"`

	// Relations
	Images       []ProductImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty" validate:"-"`
	Transactions []Transaction  `gorm:"constraint:OnDelete:CASCADE" json:"transactions,omitempty" validate:"-"`
}

// IsLowStock reports whether the product currently sits at or below its threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// ProductView is the trimmed product shape returned by purchase and low-stock
// endpoints.
type ProductView struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Stock             float64    `json:"stock"`
	LowStockThreshold float64    `json:"low_stock_threshold"`
	LowStockSinceDate *time.Time `json:"low_stock_since_date"`
}

// ToView converts Product to ProductView
func (p *Product) ToView() ProductView {
	return ProductView{
		ID:                p.ID,
		Name:              p.Name,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		LowStockSinceDate: p.LowStockSinceDate,
	}
}
