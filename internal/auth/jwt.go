package auth

import (
	"errors"
	"time"

	"debate-lab-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for tokens that verify but carry no user id.
var ErrMissingSubject = errors.New("token has no subject")

// Claims are the provider-issued claims this service understands.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	ClassCode string `json:"classCode,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and maps its claims to a user.
// An empty issuer skips the issuer check.
func ParseToken(secret, issuer, tokenString string) (domain.User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return domain.User{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.User{}, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return domain.User{}, ErrMissingSubject
	}
	return domain.User{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      domain.Role(claims.Role),
		ClassCode: claims.ClassCode,
	}, nil
}

// NewToken signs a token for user. Used by tests and local tooling.
func NewToken(secret, issuer string, user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		ClassCode: user.ClassCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
