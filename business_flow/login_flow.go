package businessflow

import (
	"context"

	"github.com/adilet-dev/leadflow/app/dto"
	"github.com/adilet-dev/leadflow/app/services"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow represents the authentication flow used by handlers
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements LoginFlow
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
}

// NewLoginFlow creates a new login flow
func NewLoginFlow(userRepo repository.UserRepository, tokenService services.TokenService) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		tokenService: tokenService,
	}
}

// Login verifies credentials and issues a token pair
func (f *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", ErrIncorrectPassword)
	}

	user, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	logAudit("user_logged_in", user.ID, metadata)
	return buildLoginResponse(user, accessToken, refreshToken), nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (f *LoginFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if req == nil || req.RefreshToken == "" {
		return nil, NewBusinessError("REFRESH_VALIDATION_FAILED", "Refresh token is required", ErrUserNotFound)
	}

	accessToken, refreshToken, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Failed to refresh token", err)
	}

	claims, err := f.tokenService.ValidateToken(accessToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Failed to validate refreshed token", err)
	}

	user, err := f.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	logAudit("token_refreshed", user.ID, metadata)
	return buildLoginResponse(user, accessToken, refreshToken), nil
}

func buildLoginResponse(user *models.User, accessToken, refreshToken string) *dto.LoginResponse {
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    utils.UTCNow().Add(utils.AccessTokenTTL),
		User: dto.UserInfo{
			ID:       user.ID,
			UUID:     user.UUID.String(),
			Email:    user.Email,
			FullName: user.FullName,
			IsActive: user.IsActive,
			IsAdmin:  user.IsAdmin,
		},
	}
}
