package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a self-signed access token. It deliberately has
// no room for credential material.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewClaims(subject, email, issuer string, issuedAt time.Time, ttl time.Duration) Claims {
	return Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

func Sign(claims Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ClaimsFromToken verifies signature and expiry. A token whose exp equals the
// verification instant is already expired.
func ClaimsFromToken(tokenStr string, secret []byte, opts ...jwt.ParserOption) (*Claims, error) {
	var claims Claims
	opts = append([]jwt.ParserOption{jwt.WithExpirationRequired()}, opts...)
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
