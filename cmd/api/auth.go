package main

import (
	"errors"
	"net/http"
	"time"

	"pressroom/internal/auth"
	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/policy"
	"pressroom/internal/domain/premium"
	"pressroom/internal/domain/subscriptions"
)

type RegisterUserPayload struct {
	Username  string `json:"username" validate:"required,min=3,max=40"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

type CreateTokenPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserEnvelope `json:"user"`
}

// UserEnvelope is the public account shape on token responses and /auth/me.
type UserEnvelope struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	IsPremium bool       `json:"is_premium"`
	Verified  bool       `json:"verified"`
	LastLogin *time.Time `json:"last_login"`
}

func userEnvelope(p *identity.Principal, isPremium bool) UserEnvelope {
	return UserEnvelope{
		ID:        p.ID,
		Username:  p.Username,
		Role:      policy.ResolveTier(p).String(),
		IsPremium: isPremium,
		Verified:  p.Verified,
		LastLogin: p.LastLogin,
	}
}

// registerUserHandler godoc
//
//	@Summary		Register a new account
//	@Description	Creates an account in pending state; an admin must approve it before login works
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RegisterUserPayload	true	"Registration payload"
//	@Success		201		{object}	map[string]any
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"username or email already taken"
//	@Router			/auth/register [post]
func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload RegisterUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &identity.Principal{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		BaseRole:  identity.RoleGeneral,
	}

	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicateUsername), errors.Is(err, identity.ErrDuplicateEmail):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	resp := map[string]any{
		"user_id": user.ID,
		"status":  "pending_approval",
	}
	if err := writeJSON(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createTokenHandler godoc
//
//	@Summary		Log in
//	@Description	Exchanges username and password for an access/refresh token pair
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateTokenPayload	true	"Credentials"
//	@Success		200		{object}	TokenPairResponse
//	@Failure		401		{object}	error	"invalid credentials"
//	@Failure		403		{object}	error	"account pending approval or suspended"
//	@Router			/auth/login [post]
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		// Same answer whether the account is missing or the password is
		// wrong, so usernames cannot be probed.
		if errors.Is(err, identity.ErrNotFound) {
			app.unauthorizedErrorResponse(w, r, errors.New("invalid credentials"))
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, errors.New("invalid credentials"))
		return
	}

	if !user.IsActive {
		app.forbiddenResponse(w, r, errors.New("account pending approval"))
		return
	}
	if user.IsSuspended {
		app.forbiddenResponse(w, r, errors.New("account suspended"))
		return
	}

	if err := app.store.Users.UpdateLastLogin(r.Context(), user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	now := time.Now()
	user.LastLogin = &now

	app.issueTokenPair(w, r, user)
}

// refreshTokenHandler godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates a refresh token into a new access/refresh pair; role and premium status are re-derived
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshTokenPayload	true	"Refresh token"
//	@Success		200		{object}	TokenPairResponse
//	@Failure		401		{object}	error
//	@Failure		403		{object}	error	"account no longer allowed to log in"
//	@Router			/auth/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	token, err := app.authenticator.ValidateRefreshToken(payload.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			app.unauthorizedErrorResponse(w, r, errors.New("refresh token expired"))
			return
		}
		app.unauthorizedErrorResponse(w, r, errors.New("invalid refresh token"))
		return
	}

	claims, err := auth.SubjectClaims(token)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.unauthorizedErrorResponse(w, r, errors.New("invalid refresh token"))
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if !user.IsActive {
		app.forbiddenResponse(w, r, errors.New("account pending approval"))
		return
	}
	if user.IsSuspended {
		app.forbiddenResponse(w, r, errors.New("account suspended"))
		return
	}

	app.issueTokenPair(w, r, user)
}

// getCurrentUserHandler godoc
//
//	@Summary		Current account
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	UserEnvelope
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/me [get]
func (app *application) getCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	isPremium := premium.HasActiveAccess(time.Now(), user, app.currentSubscription(r, user.ID))

	if err := writeJSON(w, http.StatusOK, userEnvelope(user, isPremium)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary		Log out
//	@Description	Stateless acknowledgment; tokens remain valid until they expire, so clients must discard them
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/auth/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// issueTokenPair signs a fresh access/refresh pair for user and writes the
// login response shape.
func (app *application) issueTokenPair(w http.ResponseWriter, r *http.Request, user *identity.Principal) {
	isPremium := premium.HasActiveAccess(time.Now(), user, app.currentSubscription(r, user.ID))

	access, refresh, err := app.authenticator.GenerateTokens(auth.Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      policy.ResolveTier(user).String(),
		IsPremium: isPremium,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(auth.AccessTokenTTL.Seconds()),
		User:         userEnvelope(user, isPremium),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// currentSubscription fetches the user's newest relevant subscription; absence
// is not an error for premium checks.
func (app *application) currentSubscription(r *http.Request, userID int64) *subscriptions.Subscription {
	sub, err := app.store.Subscriptions.GetCurrent(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, subscriptions.ErrNotFound) {
			app.logger.Errorw("fetching current subscription", "user_id", userID, "error", err.Error())
		}
		return nil
	}
	return sub
}
