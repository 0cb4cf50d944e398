package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/storage"
	"pressroom/internal/mailer"
	"pressroom/internal/params"

	"github.com/go-chi/chi/v5"
)

type SuspendUserPayload struct {
	Reason *string    `json:"reason" validate:"omitempty,max=500"`
	Until  *time.Time `json:"until"`
}

type AssignRolePayload struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

type BulkUserIDsPayload struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// listUsersHandler godoc
//
//	@Summary		List accounts
//	@Tags			admin
//	@Produce		json
//	@Param			search		query		string	false	"username or email fragment"
//	@Param			role		query		string	false	"general | admin | superuser"
//	@Param			suspended	query		bool	false	"filter by suspension state"
//	@Success		200			{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/admin/users [get]
func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	filter := identity.ListFilter{
		Search:   r.URL.Query().Get("search"),
		BaseRole: identity.BaseRole(r.URL.Query().Get("role")),
	}
	if v := r.URL.Query().Get("suspended"); v != "" {
		if suspended, err := strconv.ParseBool(v); err == nil {
			filter.Suspended = &suspended
		}
	}

	users, total, err := app.store.Users.List(r.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"users": users, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listPendingUsersHandler godoc
//
//	@Summary		List accounts awaiting approval
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/admin/users/pending [get]
func (app *application) listPendingUsersHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	users, total, err := app.store.Users.ListPending(r.Context(), p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"users": users, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// approveUserHandler godoc
//
//	@Summary		Approve a pending account
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"user id"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"already active"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/approve [post]
func (app *application) approveUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	if err := app.store.Users.Approve(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, identity.ErrAlreadyActive):
			app.stateConflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.notifyUser(r, id, mailer.AccountApprovedTemplate, nil)

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "account approved"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// rejectUserHandler godoc
//
//	@Summary		Reject a pending account
//	@Description	Rejection deletes the pending record; the username becomes available again
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path	int	true	"user id"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/reject [delete]
func (app *application) rejectUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	target, err := app.store.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if target.IsActive {
		app.stateConflictResponse(w, r, errors.New("account is already active; suspend it instead"))
		return
	}

	if err := app.store.Users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// suspendUserHandler godoc
//
//	@Summary		Suspend an account
//	@Description	Suspension has no automatic expiry; until is advisory and an admin must unsuspend explicitly
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"user id"
//	@Param			payload	body		SuspendUserPayload	true	"suspension details"
//	@Success		200		{object}	map[string]string
//	@Failure		403		{object}	error	"self-suspension or owner protection"
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/suspend [post]
func (app *application) suspendUserHandler(w http.ResponseWriter, r *http.Request) {
	caller := getPrincipalFromContext(r)

	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	var payload SuspendUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.suspendOne(r, caller, id, payload.Reason, payload.Until); err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, identity.ErrSelfSuspension), errors.Is(err, identity.ErrOwnerSuspension):
			app.forbiddenResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.notifyUser(r, id, mailer.AccountSuspendedTemplate, map[string]any{
		"Reason": payload.Reason,
	})

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "account suspended"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// unsuspendUserHandler godoc
//
//	@Summary		Lift a suspension
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"user id"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/unsuspend [post]
func (app *application) unsuspendUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	if err := app.store.Users.Unsuspend(r.Context(), id); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "suspension lifted"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// assignCustomRoleHandler godoc
//
//	@Summary		Assign a custom role to an account
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"user id"
//	@Param			payload	body		AssignRolePayload	true	"role id"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/role [post]
func (app *application) assignCustomRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	var payload AssignRolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.store.AccessControl.GetRole(r.Context(), payload.RoleID); err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	if err := app.store.Users.SetCustomRole(r.Context(), id, &payload.RoleID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "role assigned"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// clearCustomRoleHandler godoc
//
//	@Summary		Remove an account's custom role
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"user id"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/role [delete]
func (app *application) clearCustomRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.userIDParam(w, r)
	if !ok {
		return
	}

	if err := app.store.Users.SetCustomRole(r.Context(), id, nil); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "role removed"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bulkApproveUsersHandler godoc
//
//	@Summary		Approve accounts in bulk
//	@Description	Per-id outcomes; already-active and missing accounts are tagged, not errors
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BulkUserIDsPayload	true	"user ids"
//	@Success		200		{object}	identity.BulkResult
//	@Security		ApiKeyAuth
//	@Router			/admin/users/bulk/approve [post]
func (app *application) bulkApproveUsersHandler(w http.ResponseWriter, r *http.Request) {
	var payload BulkUserIDsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var result identity.BulkResult
	err := app.store.WithAccountsTx(r.Context(), func(s *storage.AccountsTx) error {
		var err error
		result, err = s.Users.BulkApprove(r.Context(), payload.IDs)
		return err
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Approval notices go out only once the batch has committed.
	for _, o := range result.Outcomes {
		if o.Status == identity.BulkUpdated {
			app.notifyUser(r, o.ID, mailer.AccountApprovedTemplate, nil)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bulkSuspendUsersHandler godoc
//
//	@Summary		Suspend accounts in bulk
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BulkUserIDsPayload	true	"user ids"
//	@Success		200		{object}	identity.BulkResult
//	@Security		ApiKeyAuth
//	@Router			/admin/users/bulk/suspend [post]
func (app *application) bulkSuspendUsersHandler(w http.ResponseWriter, r *http.Request) {
	caller := getPrincipalFromContext(r)

	var payload BulkUserIDsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	canSuspend := func(id int64, isOwner bool) error {
		if caller != nil && caller.ID == id {
			return identity.ErrSelfSuspension
		}
		if isOwner && (caller == nil || !caller.IsOwner) {
			return identity.ErrOwnerSuspension
		}
		return nil
	}

	var result identity.BulkResult
	err := app.store.WithAccountsTx(r.Context(), func(s *storage.AccountsTx) error {
		var err error
		result, err = s.Users.BulkSuspend(r.Context(), payload.IDs, canSuspend)
		return err
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}

// suspendOne enforces the suspension protections: nobody suspends themselves,
// and only the owner account may suspend the owner account.
func (app *application) suspendOne(r *http.Request, caller *identity.Principal, id int64, reason *string, until *time.Time) error {
	if caller != nil && caller.ID == id {
		return identity.ErrSelfSuspension
	}

	target, err := app.store.Users.GetByID(r.Context(), id)
	if err != nil {
		return err
	}

	if target.IsOwner && (caller == nil || !caller.IsOwner) {
		return identity.ErrOwnerSuspension
	}

	return app.store.Users.Suspend(r.Context(), id, reason, until)
}

func (app *application) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user id"))
		return 0, false
	}
	return id, true
}

// notifyUser sends an account-lifecycle email in the background; delivery
// failure never fails the admin action.
func (app *application) notifyUser(r *http.Request, userID int64, template string, data map[string]any) {
	user, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil || user.Email == "" {
		return
	}

	go func(username, email string) {
		if data == nil {
			data = map[string]any{}
		}
		data["Username"] = username

		status, err := app.mailer.Send(template, username, email, data)
		if err != nil {
			app.logger.Errorw("sending lifecycle email", "email", email, "error", err.Error())
			return
		}
		app.logger.Infow("lifecycle email sent", "email", email, "status_code", status)
	}(user.Username, user.Email)
}
