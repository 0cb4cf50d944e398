package main

import (
	"errors"
	"net/http"
	"strconv"

	"pressroom/internal/domain/content"
	"pressroom/internal/domain/policy"
	"pressroom/internal/params"

	"github.com/go-chi/chi/v5"
)

type CreateAlbumPayload struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	CoverURL    *string `json:"cover_url" validate:"omitempty,url"`
	IsVisible   *bool   `json:"is_visible"`
}

type UpdateAlbumPayload struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	CoverURL    *string `json:"cover_url" validate:"omitempty,url"`
}

// listAlbumsHandler godoc
//
//	@Summary		List albums in the caller's scope
//	@Tags			albums
//	@Produce		json
//	@Param			status	query		string	false	"all | draft | published | archived"
//	@Success		200		{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/content/albums [get]
func (app *application) listAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	status := content.StatusFilter(r.URL.Query().Get("status"))
	if status == "" {
		status = content.StatusAny
	}

	scope := policy.ListScope(user, app.writerIDsFor(r, user))

	albums, total, err := app.store.Albums.List(r.Context(), scope, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"albums": albums, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createAlbumHandler godoc
//
//	@Summary		Create an album
//	@Tags			albums
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateAlbumPayload	true	"Album payload"
//	@Success		201		{object}	content.Album
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/albums [post]
func (app *application) createAlbumHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	var payload CreateAlbumPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// Albums follow the media default: staff-created albums start hidden.
	visible := policy.DefaultMediaVisibility(user)
	if payload.IsVisible != nil {
		visible = *payload.IsVisible
	}

	album := &content.Album{
		OwnerID:     user.ID,
		Title:       payload.Title,
		Description: payload.Description,
		CoverURL:    payload.CoverURL,
		IsVisible:   visible,
	}

	if err := app.store.Albums.Create(r.Context(), album); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, album); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateAlbumHandler godoc
//
//	@Summary		Update an album
//	@Tags			albums
//	@Accept			json
//	@Produce		json
//	@Param			albumID	path		int					true	"album id"
//	@Param			payload	body		UpdateAlbumPayload	true	"Fields to change"
//	@Success		200		{object}	content.Album
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/albums/{albumID} [patch]
func (app *application) updateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := app.fetchModifiableAlbum(w, r)
	if !ok {
		return
	}

	var payload UpdateAlbumPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if payload.Title != nil {
		album.Title = *payload.Title
	}
	if payload.Description != nil {
		album.Description = *payload.Description
	}
	if payload.CoverURL != nil {
		album.CoverURL = payload.CoverURL
	}

	if err := app.store.Albums.Update(r.Context(), album); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, album); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteAlbumHandler godoc
//
//	@Summary		Delete an album
//	@Description	Media in the album is detached, not deleted
//	@Tags			albums
//	@Produce		json
//	@Param			albumID	path	int	true	"album id"
//	@Success		204
//	@Failure		403	{object}	error
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/albums/{albumID} [delete]
func (app *application) deleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := app.fetchModifiableAlbum(w, r)
	if !ok {
		return
	}

	if err := app.store.Albums.Delete(r.Context(), album.ID); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) publishAlbumHandler(w http.ResponseWriter, r *http.Request) {
	app.setAlbumFlag(w, r, func(id int64) error {
		return app.store.Albums.SetVisibility(r.Context(), id, true)
	})
}

func (app *application) hideAlbumHandler(w http.ResponseWriter, r *http.Request) {
	app.setAlbumFlag(w, r, func(id int64) error {
		return app.store.Albums.SetVisibility(r.Context(), id, false)
	})
}

func (app *application) archiveAlbumHandler(w http.ResponseWriter, r *http.Request) {
	app.setAlbumFlag(w, r, func(id int64) error {
		return app.store.Albums.SetArchived(r.Context(), id, true)
	})
}

func (app *application) unarchiveAlbumHandler(w http.ResponseWriter, r *http.Request) {
	app.setAlbumFlag(w, r, func(id int64) error {
		return app.store.Albums.SetArchived(r.Context(), id, false)
	})
}

func (app *application) fetchModifiableAlbum(w http.ResponseWriter, r *http.Request) (*content.Album, bool) {
	user := getPrincipalFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "albumID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid album id"))
		return nil, false
	}

	album, err := app.store.Albums.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return nil, false
		}
		app.internalServerError(w, r, err)
		return nil, false
	}

	if !policy.CanModify(user, album.OwnerID) {
		app.forbiddenResponse(w, r, errors.New("you cannot modify this album"))
		return nil, false
	}

	return album, true
}

func (app *application) setAlbumFlag(w http.ResponseWriter, r *http.Request, op func(id int64) error) {
	album, ok := app.fetchModifiableAlbum(w, r)
	if !ok {
		return
	}

	if err := op(album.ID); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "ok"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
