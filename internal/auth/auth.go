package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired means the token was well-formed and signed by us but its
	// TTL has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// wrong signing method, malformed claims.
	ErrInvalid = errors.New("token invalid")
)

// Claims carried by an access token. The refresh token carries only the
// identity fields; role and premium status are re-derived on every refresh.
type Claims struct {
	UserID    int64
	Username  string
	Role      string
	IsPremium bool
}

type Authenticator interface {
	GenerateTokens(claims Claims) (access string, refresh string, err error)
	ValidateAccessToken(token string) (*jwt.Token, error)
	ValidateRefreshToken(token string) (*jwt.Token, error)
}
