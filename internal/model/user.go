package model

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User represents a marketplace account: a villager (seller) or a user (buyer)
type User struct {
	BaseModel
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	Role     Role   `gorm:"type:varchar(20);not null" json:"role" validate:"required,oneof=VILLAGER USER"`

	// Villager profile (empty for buyers)
	FarmName    string `gorm:"type:varchar(255)" json:"farm_name,omitempty"`
	Address     string `gorm:"type:text" json:"address,omitempty"`
	ContactInfo string `gorm:"type:varchar(255)" json:"contact_info,omitempty"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// NotifyEmail returns the address low-stock alerts go to. Villagers may list
// a separate contact address; fall back to the login email.
func (u *User) NotifyEmail() string {
	if u.ContactInfo != "" {
		return u.ContactInfo
	}
	return u.Email
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	FarmName    string    `json:"farm_name,omitempty"`
	Address     string    `json:"address,omitempty"`
	ContactInfo string    `json:"contact_info,omitempty"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		FarmName:    u.FarmName,
		Address:     u.Address,
		ContactInfo: u.ContactInfo,
	}
}
