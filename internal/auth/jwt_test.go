package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing"

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestCreateAndValidateAccessToken(t *testing.T) {
	token, err := CreateAccessToken("ops-bot", "ops@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("CreateAccessToken: unexpected error: %v", err)
	}

	claims, err := ValidateAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateAccessToken: unexpected error: %v", err)
	}
	if claims.Subject != "ops-bot" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops-bot")
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ops@example.com")
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, Issuer)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != time.Hour {
		t.Errorf("token ttl = %v, want %v", ttl, time.Hour)
	}
}

func TestCreateAccessToken_DefaultTTL(t *testing.T) {
	token, err := CreateAccessToken("ops-bot", "", testSecret, 0)
	if err != nil {
		t.Fatalf("CreateAccessToken: unexpected error: %v", err)
	}
	claims, err := ValidateAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateAccessToken: unexpected error: %v", err)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != DefaultTokenTTL {
		t.Errorf("token ttl = %v, want %v", ttl, DefaultTokenTTL)
	}
}

func TestCreateAccessToken_EmptySubject(t *testing.T) {
	if _, err := CreateAccessToken("", "x@example.com", testSecret, time.Minute); err == nil {
		t.Fatal("CreateAccessToken: expected error for empty subject, got nil")
	}
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "id",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		Issuer:    Issuer,
	}

	expired := valid
	expired.IssuedAt = jwt.NewNumericDate(now.Add(-time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-45 * time.Minute))

	foreign := valid
	foreign.Issuer = "someone-else"

	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"malformed", func(t *testing.T) string { return "not-a-jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte("wrong-secret"), Claims{RegisteredClaims: valid})
		}},
		{"expired", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: expired})
		}},
		{"foreign issuer", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: foreign})
		}},
		{"no expiry", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{RegisteredClaims: noExpiry})
		}},
		{"none signing method", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{RegisteredClaims: valid})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateAccessToken(tt.token(t), testSecret); err == nil {
				t.Fatal("ValidateAccessToken: expected error, got nil")
			}
		})
	}
}
