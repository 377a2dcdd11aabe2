package middleware

import (
	"errors"
	"fmt"
	"time"

	"qgo-dispatch/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a login token stays valid
const TokenTTL = 12 * time.Hour

var ErrNoSecret = errors.New("JWT secret not configured")

// Claims identify a session on one device
type Claims struct {
	Role     session.Role `json:"role"`
	DriverID string       `json:"driver_id,omitempty"`
	DeviceID string       `json:"device_id"`
	jwt.RegisteredClaims
}

// Session rebuilds the session carried by the token
func (c *Claims) Session() (session.Session, error) {
	return session.New(c.Role, c.DriverID)
}

// IssueToken signs an HS256 token for sess
func IssueToken(secret string, sess session.Session, deviceID string, now time.Time) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	rec := session.ToRecord(sess)
	claims := Claims{
		Role:     rec.Role,
		DriverID: rec.ID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(rec.Role) + ":" + rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims
func ParseToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
