// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"owner@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string    `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresAt    time.Time `json:"expires_at" example:"2026-01-15T16:30:00Z"`
	User         UserInfo  `json:"user"`
}

// RefreshTokenRequest represents the request to refresh an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// UserInfo represents user information returned in login response
type UserInfo struct {
	ID       uint   `json:"id" example:"123"`
	UUID     string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email    string `json:"email" example:"owner@example.com"`
	FullName string `json:"full_name" example:"Aidar Bekov"`
	IsActive *bool  `json:"is_active" example:"true"`
	IsAdmin  *bool  `json:"is_admin" example:"false"`
}
