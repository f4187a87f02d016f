package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nmateus/go-user-accounts/config"
	"github.com/nmateus/go-user-accounts/internal/types"
)

// TokenIssuer signs and verifies the access/refresh token pair. The two token
// kinds use separate secrets and TTLs; both come from the injected config and
// never change after construction.
type TokenIssuer struct {
	cfg config.JWTConfig
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

// IssueAccessToken signs a short-lived token carrying the user identity.
func (t *TokenIssuer) IssueAccessToken(userID string) (string, error) {
	return t.issue(userID, []byte(t.cfg.SecretKey), t.cfg.AccessTokenTTL)
}

// IssueRefreshToken signs a long-lived token with the refresh secret. Its
// value is additionally persisted on the user record for the rotation check.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	return t.issue(userID, []byte(t.cfg.RefreshSecretKey), t.cfg.RefreshTokenTTL)
}

func (t *TokenIssuer) issue(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature, expiry and issuer against the access
// secret. Returns types.ErrTokenExpired or types.ErrTokenInvalid on failure.
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	return t.verify(tokenString, []byte(t.cfg.SecretKey))
}

// VerifyRefreshToken validates against the refresh secret.
func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return t.verify(tokenString, []byte(t.cfg.RefreshSecretKey))
}

func (t *TokenIssuer) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.ErrTokenExpired
		}
		return nil, types.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, types.ErrTokenInvalid
	}
	if claims.Issuer != t.cfg.Issuer {
		return nil, types.ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, types.ErrTokenInvalid
	}
	return claims, nil
}
