package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordHashing(t *testing.T) {
	u := &User{Email: "a@b.com"}
	require.NoError(t, u.SetPassword("secret123"))
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestNotifyEmailFallsBackToLogin(t *testing.T) {
	u := &User{Email: "login@b.com"}
	assert.Equal(t, "login@b.com", u.NotifyEmail())
	u.ContactInfo = "alerts@b.com"
	assert.Equal(t, "alerts@b.com", u.NotifyEmail())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleVillager.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("ADMIN").Valid())
}

func TestProductIsLowStock(t *testing.T) {
	p := &Product{Stock: 10, LowStockThreshold: 10}
	assert.True(t, p.IsLowStock(), "at the threshold counts as low")
	p.Stock = 10.5
	assert.False(t, p.IsLowStock())
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	rt := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, rt.Usable(now))

	revoked := now
	rt.RevokedAt = &revoked
	assert.False(t, rt.Usable(now))

	rt = &RefreshToken{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, rt.Usable(now))
}
