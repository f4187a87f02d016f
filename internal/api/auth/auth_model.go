package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/nmateus/go-user-accounts/internal/types"
)

// RegisterRequest carries the fields a new account is created from. The
// organizational attributes are optional.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
	Zone     string `json:"zone,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Division string `json:"division,omitempty"`
	Role     string `json:"role,omitempty"`
	Lob      string `json:"lob,omitempty"`
}

// LoginRequest accepts a username or an email; at least one is required.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginResponse is the data payload of a successful login.
type LoginResponse struct {
	User         *types.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// RefreshTokenRequest carries the refresh token when the client cannot use
// the cookie (mobile clients, tests).
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenPairResponse is the data payload of a successful rotation.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Claims is the JWT payload for both access and refresh tokens. The jti gives
// every issued token a distinct identity even within the same second.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
