package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/premium"
	"pressroom/internal/domain/storage"
	"pressroom/internal/domain/subscriptions"

	"github.com/go-chi/chi/v5"
)

type CreateSubscriptionPayload struct {
	DurationDays int     `json:"duration_days" validate:"omitempty,min=1,max=366"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	AutoRenew    bool    `json:"auto_renew"`
}

type SubscriptionStatusResponse struct {
	HasPremiumAccess   bool                        `json:"has_premium_access"`
	PremiumExpiresAt   *time.Time                  `json:"premium_expires_at"`
	ActiveSubscription *subscriptions.Subscription `json:"active_subscription"`
	AdPreferences      identity.AdPreferences      `json:"ad_preferences"`
}

// getSubscriptionStatusHandler godoc
//
//	@Summary		Premium status
//	@Description	Reports whether the caller currently has premium access and the subscription backing it
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	SubscriptionStatusResponse
//	@Security		ApiKeyAuth
//	@Router			/subscriptions/status [get]
func (app *application) getSubscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	sub := app.currentSubscription(r, user.ID)

	resp := SubscriptionStatusResponse{
		HasPremiumAccess: premium.HasActiveAccess(time.Now(), user, sub),
		PremiumExpiresAt: user.Premium.PremiumExpiresAt,
		AdPreferences:    user.Premium.AdPreferences,
	}
	if sub != nil && sub.Status == subscriptions.StatusActive {
		resp.ActiveSubscription = sub
		resp.PremiumExpiresAt = &sub.EndDate
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createSubscriptionHandler godoc
//
//	@Summary		Start a subscription
//	@Description	Opens a premium window for the caller; refused while another subscription is active
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateSubscriptionPayload	true	"Subscription payload"
//	@Success		201		{object}	subscriptions.Subscription
//	@Failure		409		{object}	error	"active subscription already exists"
//	@Security		ApiKeyAuth
//	@Router			/subscriptions [post]
func (app *application) createSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	var payload CreateSubscriptionPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	days := payload.DurationDays
	if days == 0 {
		days = 30
	}

	now := time.Now()
	sub := &subscriptions.Subscription{
		UserID:    user.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, days),
		Amount:    payload.Amount,
		AutoRenew: payload.AutoRenew,
	}

	// The subscription row and the account's cached premium window must land
	// in the same transaction.
	err := app.store.WithAccountsTx(r.Context(), func(s *storage.AccountsTx) error {
		if err := s.Subscriptions.Create(r.Context(), sub); err != nil {
			return err
		}
		return s.Users.SetPremium(r.Context(), user.ID, true, &sub.EndDate)
	})
	if err != nil {
		if errors.Is(err, subscriptions.ErrActiveExists) {
			app.conflictResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, sub); err != nil {
		app.internalServerError(w, r, err)
	}
}

// cancelSubscriptionHandler godoc
//
//	@Summary		Cancel a subscription
//	@Description	Marks the subscription cancelled; premium access runs until the paid window lapses
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	error
//	@Failure		409	{object}	error	"already cancelled"
//	@Security		ApiKeyAuth
//	@Router			/subscriptions/{subscriptionID} [delete]
func (app *application) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "subscriptionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid subscription id"))
		return
	}

	if err := app.store.Subscriptions.Cancel(r.Context(), id, user.ID); err != nil {
		switch {
		case errors.Is(err, subscriptions.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, subscriptions.ErrAlreadyCancelled):
			app.stateConflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "subscription cancelled"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
