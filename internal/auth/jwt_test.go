package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "pressroom-test", "pressroom-test")
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	a := newTestAuthenticator()

	claims := Claims{UserID: 42, Username: "jdoe", Role: "editor", IsPremium: true}

	access, refresh, err := a.GenerateTokens(claims)
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	if access == refresh {
		t.Fatalf("access and refresh tokens must differ")
	}

	parsed, err := a.ValidateAccessToken(access)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	got, err := SubjectClaims(parsed)
	if err != nil {
		t.Fatalf("SubjectClaims: %v", err)
	}
	if got != claims {
		t.Fatalf("round-tripped claims = %+v, want %+v", got, claims)
	}

	if _, err := a.ValidateRefreshToken(refresh); err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
}

func TestRefreshTokenCarriesIdentityOnly(t *testing.T) {
	a := newTestAuthenticator()

	_, refresh, err := a.GenerateTokens(Claims{UserID: 7, Username: "jdoe", Role: "admin", IsPremium: true})
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	parsed, err := a.ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}

	got, err := SubjectClaims(parsed)
	if err != nil {
		t.Fatalf("SubjectClaims: %v", err)
	}
	if got.UserID != 7 || got.Username != "jdoe" {
		t.Fatalf("identity fields lost: %+v", got)
	}
	// Role and premium are re-derived on refresh, never trusted from the
	// refresh token.
	if got.Role != "" || got.IsPremium {
		t.Fatalf("refresh token must not carry role or premium, got %+v", got)
	}
}

func TestTokensUseDifferentSecrets(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(Claims{UserID: 1, Username: "x"})
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	if _, err := a.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalid) {
		t.Errorf("refresh token must not validate as access token, got %v", err)
	}
	if _, err := a.ValidateRefreshToken(access); !errors.Is(err, ErrInvalid) {
		t.Errorf("access token must not validate as refresh token, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	a := newTestAuthenticator()

	expired, err := a.generateTokenWithClaims(jwt.MapClaims{
		"sub": int64(1),
		"exp": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	}, a.secret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := a.ValidateAccessToken(expired); !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
}

func TestValidateRejectsMissingExpiry(t *testing.T) {
	a := newTestAuthenticator()

	noExp, err := a.generateTokenWithClaims(jwt.MapClaims{"sub": int64(1)}, a.secret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := a.ValidateAccessToken(noExp); !errors.Is(err, ErrInvalid) {
		t.Fatalf("a token without exp must be rejected, got %v", err)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	a := newTestAuthenticator()

	access, _, err := a.GenerateTokens(Claims{UserID: 1, Username: "x"})
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	tampered := access[:len(access)-2] + "xx"
	if _, err := a.ValidateAccessToken(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("tampered token must be rejected, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	a := newTestAuthenticator()
	if _, err := a.ValidateAccessToken("not-a-token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestIssuingNeverInvalidatesOlderTokens(t *testing.T) {
	a := newTestAuthenticator()

	first, _, err := a.GenerateTokens(Claims{UserID: 5, Username: "y"})
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	if _, _, err := a.GenerateTokens(Claims{UserID: 5, Username: "y"}); err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	if _, err := a.ValidateAccessToken(first); err != nil {
		t.Fatalf("older token must stay valid after a new pair is issued: %v", err)
	}
}
