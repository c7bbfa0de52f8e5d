package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole enumerates the roles known to the API.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleParent  UserRole = "parent"
)

// Valid reports whether the role is supported.
func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleParent
}

// User is an identity resolved through one of the platform adapters.
type User struct {
	ID             string    `db:"id" json:"id"`
	Platform       string    `db:"platform" json:"platform"`
	PlatformUserID string    `db:"platform_user_id" json:"platform_user_id"`
	Name           string    `db:"name" json:"name"`
	AvatarURL      string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	PasswordHash   *string   `db:"password_hash" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LoginRequest carries platform credentials.
// Zalo logins send an access token; web logins send email and password.
type LoginRequest struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role" validate:"omitempty,oneof=teacher parent"`
}

// RegisterRequest creates a web account with email/password credentials.
// Password length is capped at bcrypt's 72-byte input limit.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=teacher parent"`
}

// LoginResponse returns the issued token and resolved user.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Platform string   `json:"platform"`
	jwt.RegisteredClaims
}

// Pagination describes list slicing metadata in responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
