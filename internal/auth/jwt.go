package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenTTL and RefreshTokenTTL are the default lifetimes. There is no
// server-side token store: a token stays valid until its TTL passes or the
// signature check fails, so the access window is kept short.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 14 * 24 * time.Hour
)

type JWTAuthenticator struct {
	secret        string
	refreshSecret string
	aud           string
	iss           string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTAuthenticator(secret, refreshSecret, aud, iss string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:        secret,
		refreshSecret: refreshSecret,
		aud:           aud,
		iss:           iss,
		accessTTL:     AccessTokenTTL,
		refreshTTL:    RefreshTokenTTL,
	}
}

// GenerateTokens generates both access and refresh tokens. The pair always
// rotates together; issuing never invalidates older tokens.
func (a *JWTAuthenticator) GenerateTokens(c Claims) (string, string, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub":        c.UserID,
		"username":   c.Username,
		"role":       c.Role,
		"is_premium": c.IsPremium,
		"exp":        now.Add(a.accessTTL).Unix(),
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"iss":        a.iss,
		"aud":        a.aud,
	}

	refreshClaims := jwt.MapClaims{
		"sub":      c.UserID,
		"username": c.Username,
		"exp":      now.Add(a.refreshTTL).Unix(),
		"iat":      now.Unix(),
		"iss":      a.iss,
	}

	accessToken, err := a.generateTokenWithClaims(accessClaims, a.secret)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := a.generateTokenWithClaims(refreshClaims, a.refreshSecret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (a *JWTAuthenticator) generateTokenWithClaims(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature and TTL of an access token.
func (a *JWTAuthenticator) ValidateAccessToken(token string) (*jwt.Token, error) {
	return a.validate(token, a.secret)
}

// ValidateRefreshToken verifies signature and TTL of a refresh token.
func (a *JWTAuthenticator) ValidateRefreshToken(token string) (*jwt.Token, error) {
	return a.validate(token, a.refreshSecret)
}

func (a *JWTAuthenticator) validate(token, secret string) (*jwt.Token, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}
	return parsed, nil
}

// SubjectClaims pulls the identity fields back out of a verified token.
func SubjectClaims(token *jwt.Token) (Claims, error) {
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalid
	}

	sub, ok := mapClaims["sub"].(float64)
	if !ok {
		return Claims{}, ErrInvalid
	}

	c := Claims{UserID: int64(sub)}
	if username, ok := mapClaims["username"].(string); ok {
		c.Username = username
	}
	if role, ok := mapClaims["role"].(string); ok {
		c.Role = role
	}
	if isPremium, ok := mapClaims["is_premium"].(bool); ok {
		c.IsPremium = isPremium
	}
	return c, nil
}
