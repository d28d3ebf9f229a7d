package repository

import (
	"time"

	"go-farm-market/internal/model"

	"gorm.io/gorm"
)

type RefreshTokenRepository interface {
	Create(token *model.RefreshToken) error
	FindByJTI(jti string) (*model.RefreshToken, error)
	Revoke(jti string) error
	PurgeExpired() error
}

type refreshTokenRepo struct {
	db *gorm.DB
}

func NewRefreshTokenRepo(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepo{db}
}

func (r *refreshTokenRepo) Create(token *model.RefreshToken) error {
	return r.db.Create(token).Error
}

func (r *refreshTokenRepo) FindByJTI(jti string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.First(&token, "jti = ?", jti).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepo) Revoke(jti string) error {
	now := time.Now()
	return r.db.Model(&model.RefreshToken{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", &now).Error
}

func (r *refreshTokenRepo) PurgeExpired() error {
	return r.db.Where("expires_at < ?", time.Now()).Delete(&model.RefreshToken{}).Error
}
