package main

import (
	"errors"
	"net/http"
	"strconv"

	"pressroom/internal/domain/accesscontrol"
	"pressroom/internal/domain/identity"

	"github.com/go-chi/chi/v5"
)

type CreateRolePayload struct {
	Name        string `json:"name" validate:"required,min=2,max=60"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type SetRoleActivePayload struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type SetRolePermissionsPayload struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

type EnsurePermissionPayload struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type AssignWriterPayload struct {
	EditorID int64 `json:"editor_id" validate:"required,gt=0"`
	WriterID int64 `json:"writer_id" validate:"required,gt=0"`
}

// listCustomRolesHandler godoc
//
//	@Summary		List custom roles
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	[]identity.CustomRole
//	@Security		ApiKeyAuth
//	@Router			/admin/roles [get]
func (app *application) listCustomRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, err := app.store.AccessControl.ListRoles(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, roles); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createCustomRoleHandler godoc
//
//	@Summary		Create a custom role
//	@Description	New roles start active with no permissions; names are unique case-insensitively
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateRolePayload	true	"Role payload"
//	@Success		201		{object}	identity.CustomRole
//	@Failure		409		{object}	error	"role name already taken"
//	@Security		ApiKeyAuth
//	@Router			/admin/roles [post]
func (app *application) createCustomRoleHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateRolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	role := &identity.CustomRole{
		Name:        payload.Name,
		Description: payload.Description,
		IsActive:    true,
	}

	if err := app.store.AccessControl.CreateRole(r.Context(), role); err != nil {
		if errors.Is(err, accesscontrol.ErrDuplicateRoleName) {
			app.conflictResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCustomRoleHandler godoc
//
//	@Summary		Get a custom role with its permissions
//	@Tags			admin
//	@Produce		json
//	@Param			roleID	path		int	true	"role id"
//	@Success		200		{object}	identity.CustomRole
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/roles/{roleID} [get]
func (app *application) getCustomRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.roleIDParam(w, r)
	if !ok {
		return
	}

	role, err := app.store.AccessControl.GetRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, accesscontrol.ErrRoleNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

// setCustomRoleActiveHandler godoc
//
//	@Summary		Activate or deactivate a custom role
//	@Description	A deactivated role stops granting anything immediately; assignments stay in place
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			roleID	path		int						true	"role id"
//	@Param			payload	body		SetRoleActivePayload	true	"target state"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/roles/{roleID}/active [patch]
func (app *application) setCustomRoleActiveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.roleIDParam(w, r)
	if !ok {
		return
	}

	var payload SetRoleActivePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.AccessControl.SetRoleActive(r.Context(), id, *payload.IsActive); err != nil {
		if errors.Is(err, accesscontrol.ErrRoleNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "role updated"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCustomRoleHandler godoc
//
//	@Summary		Delete a custom role
//	@Description	Accounts holding the role fall back to their base role
//	@Tags			admin
//	@Produce		json
//	@Param			roleID	path	int	true	"role id"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/roles/{roleID} [delete]
func (app *application) deleteCustomRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.roleIDParam(w, r)
	if !ok {
		return
	}

	if err := app.store.AccessControl.DeleteRole(r.Context(), id); err != nil {
		if errors.Is(err, accesscontrol.ErrRoleNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setRolePermissionsHandler godoc
//
//	@Summary		Replace a role's permission set
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			roleID	path		int							true	"role id"
//	@Param			payload	body		SetRolePermissionsPayload	true	"permission ids"
//	@Success		200		{object}	identity.CustomRole
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/roles/{roleID}/permissions [put]
func (app *application) setRolePermissionsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.roleIDParam(w, r)
	if !ok {
		return
	}

	var payload SetRolePermissionsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.AccessControl.SetRolePermissions(r.Context(), id, payload.PermissionIDs); err != nil {
		if errors.Is(err, accesscontrol.ErrRoleNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	role, err := app.store.AccessControl.GetRole(r.Context(), id)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, role); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listPermissionsHandler godoc
//
//	@Summary		List permissions
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	[]identity.Permission
//	@Security		ApiKeyAuth
//	@Router			/admin/permissions [get]
func (app *application) listPermissionsHandler(w http.ResponseWriter, r *http.Request) {
	perms, err := app.store.AccessControl.ListPermissions(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, perms); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ensurePermissionHandler godoc
//
//	@Summary		Register a permission
//	@Description	Idempotent by name ("resource:action"); re-posting updates the description
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		EnsurePermissionPayload	true	"Permission payload"
//	@Success		200		{object}	identity.Permission
//	@Security		ApiKeyAuth
//	@Router			/admin/permissions [post]
func (app *application) ensurePermissionHandler(w http.ResponseWriter, r *http.Request) {
	var payload EnsurePermissionPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	perm, err := app.store.AccessControl.EnsurePermission(r.Context(), payload.Name, payload.Description)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, perm); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listWriterAssignmentsHandler godoc
//
//	@Summary		List an editor's delegated writers
//	@Tags			admin
//	@Produce		json
//	@Param			editorID	path		int	true	"editor user id"
//	@Success		200			{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/admin/writers/{editorID} [get]
func (app *application) listWriterAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	editorID, err := strconv.ParseInt(chi.URLParam(r, "editorID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid editor id"))
		return
	}

	ids, err := app.store.AccessControl.ListWriterIDs(r.Context(), editorID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"editor_id": editorID, "writer_ids": ids}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// assignWriterHandler godoc
//
//	@Summary		Delegate a writer to an editor
//	@Description	Grants the editor listing visibility over the writer's content, not mutation rights
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AssignWriterPayload	true	"editor and writer ids"
//	@Success		201		{object}	map[string]string
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/writers [post]
func (app *application) assignWriterHandler(w http.ResponseWriter, r *http.Request) {
	var payload AssignWriterPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	for _, id := range []int64{payload.EditorID, payload.WriterID} {
		if _, err := app.store.Users.GetByID(r.Context(), id); err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				app.notFoundResponse(w, r, err)
				return
			}
			app.internalServerError(w, r, err)
			return
		}
	}

	if err := app.store.AccessControl.AssignWriter(r.Context(), payload.EditorID, payload.WriterID); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, map[string]string{"message": "writer assigned"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// removeWriterHandler godoc
//
//	@Summary		Remove a writer delegation
//	@Tags			admin
//	@Produce		json
//	@Param			editorID	path	int	true	"editor user id"
//	@Param			writerID	path	int	true	"writer user id"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/writers/{editorID}/{writerID} [delete]
func (app *application) removeWriterHandler(w http.ResponseWriter, r *http.Request) {
	editorID, err1 := strconv.ParseInt(chi.URLParam(r, "editorID"), 10, 64)
	writerID, err2 := strconv.ParseInt(chi.URLParam(r, "writerID"), 10, 64)
	if err1 != nil || err2 != nil {
		app.badRequestResponse(w, r, errors.New("invalid editor or writer id"))
		return
	}

	if err := app.store.AccessControl.RemoveWriter(r.Context(), editorID, writerID); err != nil {
		if errors.Is(err, accesscontrol.ErrAssignmentNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) roleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid role id"))
		return 0, false
	}
	return id, true
}
