package service

import (
	"log"
	"time"

	"go-farm-market/internal/apperr"
	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/pkg/jwt"
	"go-farm-market/pkg/validator"
)

type RegisterRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=VILLAGER USER"`

	// Villager profile, ignored for buyers
	FarmName    string `json:"farm_name"`
	Address     string `json:"address"`
	ContactInfo string `json:"contact_info"`
}

// LoginResult carries both tokens; the handler moves the refresh token into
// an httpOnly cookie.
type LoginResult struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"-"`
	User         model.UserResponse `json:"user"`
}

type AuthService interface {
	Register(req *RegisterRequest) (*model.User, error)
	Login(email, password string) (*LoginResult, error)
	// Refresh rotates: the presented token's JTI is revoked and a fresh pair
	// is issued. A revoked or expired token is rejected.
	Refresh(refreshToken string) (*LoginResult, error)
	Logout(refreshToken string) error
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
}

func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.RefreshTokenRepository) AuthService {
	return &authService{userRepo: userRepo, tokenRepo: tokenRepo}
}

func (s *authService) Register(req *RegisterRequest) (*model.User, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.FirstMessage(errs))
	}

	if existing, _ := s.userRepo.FindByEmail(req.Email); existing != nil {
		return nil, apperr.Validation("Email might already be in use.")
	}

	user := &model.User{
		Email: req.Email,
		Role:  req.Role,
	}
	if req.Role == model.RoleVillager {
		user.FarmName = req.FarmName
		user.Address = req.Address
		user.ContactInfo = req.ContactInfo
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperr.Storage("hash password", err)
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, apperr.Storage("create user", err)
	}
	return user, nil
}

func (s *authService) Login(email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(refreshToken string) (*LoginResult, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	stored, err := s.tokenRepo.FindByJTI(claims.ID)
	if err != nil || !stored.Usable(time.Now()) {
		return nil, apperr.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, apperr.ErrUserNotFound
	}

	// Rotate before issuing so a replayed token is dead either way.
	if err := s.tokenRepo.Revoke(claims.ID); err != nil {
		return nil, apperr.Storage("revoke refresh token", err)
	}
	return s.issueTokens(user)
}

func (s *authService) Logout(refreshToken string) error {
	claims, err := jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return apperr.ErrInvalidToken
	}
	if err := s.tokenRepo.Revoke(claims.ID); err != nil {
		return apperr.Storage("revoke refresh token", err)
	}
	// Rotation leaves dead rows behind; sweep them while we're here.
	if err := s.tokenRepo.PurgeExpired(); err != nil {
		log.Println("purge expired refresh tokens:", err)
	}
	return nil
}

func (s *authService) issueTokens(user *model.User) (*LoginResult, error) {
	access, err := jwt.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperr.Storage("sign access token", err)
	}

	refresh, jti, expiresAt, err := jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Storage("sign refresh token", err)
	}
	row := &model.RefreshToken{JTI: jti, UserID: user.ID, ExpiresAt: expiresAt}
	if err := s.tokenRepo.Create(row); err != nil {
		return nil, apperr.Storage("store refresh token", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.ToResponse(),
	}, nil
}
