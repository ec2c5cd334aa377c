package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/mealsync/internal/clock"
)

const tokenIssuer = "mealsync"

// ErrInvalidToken wraps every reason a bearer token is rejected.
var ErrInvalidToken = errors.New("invalid access token")

// Claims: user id хранится в sub
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens. There are no refresh
// tokens: the client logs in again once the access token expires.
type Tokens struct {
	clk    clock.Clock
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret []byte, ttl time.Duration, clk clock.Clock) *Tokens {
	if clk == nil {
		clk = clock.System{}
	}
	return &Tokens{secret: secret, ttl: ttl, clk: clk}
}

// Issue returns a signed token and its lifetime in seconds.
func (t *Tokens) Issue(userID, username string) (string, int64, error) {
	now := t.clk.Now()

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int64(t.ttl / time.Second), nil
}

// Verify checks signature, issuer and expiry against the injected clock.
func (t *Tokens) Verify(raw string) (Principal, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clk.Now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return Principal{UserID: claims.Subject, Username: claims.Username}, nil
}
