package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pressroom/internal/auth"
	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/policy"
)

type ctxKey string

const principalCtxKey ctxKey = "principal"

// AuthTokenMiddleware requires a valid bearer access token and loads the
// backing account. Token problems are 401; a token for an account that is
// pending approval or suspended is 403, so clients can tell the two apart.
func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		jwtToken, err := app.authenticator.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpired) {
				app.unauthorizedErrorResponse(w, r, errors.New("token expired"))
				return
			}
			app.unauthorizedErrorResponse(w, r, errors.New("invalid token"))
			return
		}

		claims, err := auth.SubjectClaims(jwtToken)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		principal, err := app.store.Users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				app.unauthorizedErrorResponse(w, r, errors.New("invalid token"))
				return
			}
			app.internalServerError(w, r, err)
			return
		}

		if !principal.IsActive {
			app.forbiddenResponse(w, r, errors.New("account pending approval"))
			return
		}
		if principal.IsSuspended {
			app.forbiddenResponse(w, r, errors.New("account suspended"))
			return
		}

		ctx := context.WithValue(r.Context(), principalCtxKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware loads the principal when a usable bearer token is
// present and otherwise lets the request through anonymously. Suspended and
// pending accounts read as anonymous here rather than being rejected.
func (app *application) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		jwtToken, err := app.authenticator.ValidateAccessToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := auth.SubjectClaims(jwtToken)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := app.store.Users.GetByID(r.Context(), claims.UserID)
		if err != nil || !principal.IsActive || principal.IsSuspended {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalCtxKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdminTier runs after AuthTokenMiddleware and lets only the admin
// tiers through: owner, superuser, admin base role, or an active subadmin role.
func (app *application) RequireAdminTier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := getPrincipalFromContext(r)
		if principal == nil {
			app.unauthorizedErrorResponse(w, r, errors.New("authentication required"))
			return
		}

		if !policy.ResolveTier(principal).IsAdminTier() {
			app.forbiddenResponse(w, r, errors.New("admin access required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			username := app.config.auth.basic.user
			pass := app.config.auth.basic.pass

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || creds[0] != username || creds[1] != pass {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.rateLimiter.Enabled {
			if allow, retryAfter := app.rateLimiter.Allow(r.RemoteAddr); !allow {
				app.rateLimitExceededResponse(w, r, retryAfter.String())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("authorization header is malformed")
	}

	return parts[1], nil
}

func getPrincipalFromContext(r *http.Request) *identity.Principal {
	principal, _ := r.Context().Value(principalCtxKey).(*identity.Principal)
	return principal
}
