package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is one completed sale. Rows are append-only: never updated or
// deleted except by cascade when the product is deleted. The serial primary
// key doubles as the insertion-order tie-break for history queries.
type Transaction struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product      *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	BuyerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer_id" validate:"uuid_required"`
	Buyer        *User     `gorm:"foreignKey:BuyerID" json:"buyer,omitempty" validate:"-"`
	QuantitySold float64   `gorm:"not null" json:"quantity_sold" validate:"required,gt=0"`
	DateOfSale   time.Time `gorm:"not null;index" json:"date_of_sale"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.DateOfSale.IsZero() {
		t.DateOfSale = time.Now()
	}
	return
}

// TransactionResponse is the history-view shape, with the buyer's email
// joined in for the villager.
type TransactionResponse struct {
	ID           uint      `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	BuyerEmail   string    `json:"buyer_email,omitempty"`
	QuantitySold float64   `json:"quantity_sold"`
	DateOfSale   time.Time `json:"date_of_sale"`
}

// ToResponse converts Transaction to TransactionResponse
func (t *Transaction) ToResponse() TransactionResponse {
	resp := TransactionResponse{
		ID:           t.ID,
		ProductID:    t.ProductID,
		BuyerID:      t.BuyerID,
		QuantitySold: t.QuantitySold,
		DateOfSale:   t.DateOfSale,
	}
	if t.Buyer != nil {
		resp.BuyerEmail = t.Buyer.Email
	}
	return resp
}
