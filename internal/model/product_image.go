package model

import "github.com/google/uuid"

// ProductImage is one uploaded photo for a product listing. Rows cascade with
// the product; the file itself is removed best-effort.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	ImagePath string    `gorm:"type:varchar(500);not null" json:"image_path"` // relative to the upload dir
}
