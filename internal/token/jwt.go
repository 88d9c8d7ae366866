package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/linkauth/server/internal/model"
)

// Claims represents session JWT claims with the authenticated identity.
type Claims struct {
	jwt.RegisteredClaims
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	TokenType string    `json:"typ"`
}

// JWT implements SessionManager backed by symmetric HMAC.
type JWT struct {
	secretKey string
}

// NewJWT creates a new session credential manager with the provided secret key.
func NewJWT(secretKey string) model.SessionManager {
	return &JWT{secretKey: secretKey}
}

const (
	sessionTTL  = 7 * 24 * time.Hour
	typeSession = "session"
)

// Generate creates a signed, time-bounded session credential for a verified
// account identity.
func (j *JWT) Generate(accountID uuid.UUID, email string, verified bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
		AccountID: accountID,
		Email:     email,
		Verified:  verified,
		TokenType: typeSession,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session credential: %w", err)
	}

	return tokenString, nil
}

// Parse validates signature and expiry and extracts the account ID. Embedded
// email and verified claims are identity hints only; the account record
// remains the source of truth.
func (j *JWT) Parse(credential string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse session credential: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("session credential is invalid")
	}
	if claims.TokenType != typeSession {
		return uuid.Nil, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}
	return claims.AccountID, nil
}
