package common

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//Claims represents the data stored in the JWT token
type Claims struct {
	// user id, name and role are custom claims
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims //comes from the package: exp, iat, etc
}

// TokenIssuer signs and validates access tokens. The secret lives on the
// instance rather than in a package-level variable so the gateway and its
// tests can each run with their own key.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

func (ti *TokenIssuer) Issue(userID, name string, role SenderRole) (string, error) {
	claims := &Claims{
		UserID: userID,
		Name:   name,
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "coursechat",
			Subject:   "user-auth",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(ti.secret)
}

func (ti *TokenIssuer) Validate(tokenstring string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenstring, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
