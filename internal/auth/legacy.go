package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// LegacyClaims represents legacy JWT claims (HMAC-signed tokens)
type LegacyClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateLegacyToken validates a token using HMAC signing
func ValidateLegacyToken(tokenString, secret string) (*LegacyClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LegacyClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*LegacyClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// LegacyVerifier adapts HMAC validation to TokenVerifier
type LegacyVerifier struct {
	secret string
}

func NewLegacyVerifier(secret string) *LegacyVerifier {
	return &LegacyVerifier{secret: secret}
}

func (v *LegacyVerifier) Validate(tokenString string) (*Claims, error) {
	legacy, err := ValidateLegacyToken(tokenString, v.secret)
	if err != nil {
		return nil, err
	}
	return &Claims{
		UserID:           legacy.UserID,
		Email:            legacy.Email,
		RegisteredClaims: legacy.RegisteredClaims,
	}, nil
}

func (v *LegacyVerifier) Close() error { return nil }

// GenerateLegacyToken signs an HMAC token for the given user. Used by tests and local tooling.
func GenerateLegacyToken(secret, userID, email string) (string, error) {
	claims := LegacyClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "lyrics-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
