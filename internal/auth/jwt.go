// Package auth issues and checks the bearer tokens that guard the admin API.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token this package creates.
const Issuer = "mithril-studio"

// DefaultTokenTTL is used when CreateAccessToken is given a non-positive ttl.
const DefaultTokenTTL = 15 * time.Minute

// Claims holds the JWT claims for an access token. The operator is stored in
// the standard "sub" claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CreateAccessToken signs an HS256 token for subject that expires after ttl.
func CreateAccessToken(subject, email, secret string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses tokenString, checks its HMAC signature and
// expiry, and requires the studio issuer.
func ValidateAccessToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}
