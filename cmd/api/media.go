package main

import (
	"errors"
	"net/http"
	"strconv"

	"pressroom/internal/domain/content"
	"pressroom/internal/domain/policy"
	"pressroom/internal/domain/storage"
	"pressroom/internal/params"

	"github.com/go-chi/chi/v5"
)

type BulkMediaVisibilityPayload struct {
	IDs     []int64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
	Visible *bool   `json:"visible" validate:"required"`
}

// listMediaHandler godoc
//
//	@Summary		List media in the caller's scope
//	@Tags			media
//	@Produce		json
//	@Param			kind	query		string	false	"image | video"
//	@Success		200		{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/content/media [get]
func (app *application) listMediaHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	kind := content.MediaKind(r.URL.Query().Get("kind"))

	scope := policy.ListScope(user, app.writerIDsFor(r, user))

	items, total, err := app.store.Media.List(r.Context(), scope, kind, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"media": items, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// uploadMediaHandler godoc
//
//	@Summary		Upload a media item
//	@Description	Multipart upload; staff-created media starts hidden unless is_visible is set
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"media file"
//	@Param			kind		formData	string	true	"image | video"
//	@Param			title		formData	string	false	"title"
//	@Param			album_id	formData	int		false	"album to attach to"
//	@Param			is_visible	formData	bool	false	"override the default visibility"
//	@Success		201			{object}	content.MediaItem
//	@Failure		400			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/media [post]
func (app *application) uploadMediaHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		app.badRequestResponse(w, r, errors.New("unable to parse form"))
		return
	}

	kind := content.MediaKind(r.FormValue("kind"))
	if kind != content.MediaImage && kind != content.MediaVideo {
		app.badRequestResponse(w, r, errors.New("kind must be image or video"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		app.badRequestResponse(w, r, errors.New("unable to retrieve file"))
		return
	}
	defer file.Close()

	visible := policy.DefaultMediaVisibility(user)
	if v := r.FormValue("is_visible"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			visible = parsed
		}
	}

	// Resolve the target album before touching Cloudinary: a rejected
	// album must not leave an orphaned remote asset behind.
	var albumID *int64
	if v := r.FormValue("album_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			app.badRequestResponse(w, r, errors.New("invalid album id"))
			return
		}
		album, err := app.store.Albums.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				app.notFoundResponse(w, r, err)
				return
			}
			app.internalServerError(w, r, err)
			return
		}
		if !policy.CanModify(user, album.OwnerID) {
			app.forbiddenResponse(w, r, errors.New("you cannot add media to this album"))
			return
		}
		albumID = &id
	}

	url, publicID, err := app.uploadMediaFile(r.Context(), file)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	item := &content.MediaItem{
		OwnerID:   user.ID,
		Kind:      kind,
		Title:     r.FormValue("title"),
		URL:       url,
		PublicID:  publicID,
		IsVisible: visible,
		AlbumID:   albumID,
	}

	if err := app.store.Media.Create(r.Context(), item); err != nil {
		// The asset is already remote; reclaim it so a failed insert
		// does not strand it.
		if derr := app.destroyMediaFile(r.Context(), publicID); derr != nil {
			app.logger.Errorw("destroying media after failed insert", "public_id", publicID, "error", derr.Error())
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// setMediaVisibilityHandler godoc
//
//	@Summary		Show or hide a media item
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Param			mediaID	path		int				true	"media id"
//	@Param			payload	body		map[string]bool	true	"{\"visible\": true}"
//	@Success		200		{object}	map[string]string
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/media/{mediaID}/visibility [patch]
func (app *application) setMediaVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	item, ok := app.fetchModifiableMedia(w, r)
	if !ok {
		return
	}

	var payload struct {
		Visible *bool `json:"visible" validate:"required"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if payload.Visible == nil {
		app.badRequestResponse(w, r, errors.New("visible is required"))
		return
	}

	if err := app.store.Media.SetVisibility(r.Context(), item.ID, *payload.Visible); err != nil {
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

// deleteMediaHandler godoc
//
//	@Summary		Delete a media item
//	@Description	Removes the database row first, then best-effort destroys the stored asset
//	@Tags			media
//	@Produce		json
//	@Param			mediaID	path	int	true	"media id"
//	@Success		204
//	@Failure		403	{object}	error
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/media/{mediaID} [delete]
func (app *application) deleteMediaHandler(w http.ResponseWriter, r *http.Request) {
	item, ok := app.fetchModifiableMedia(w, r)
	if !ok {
		return
	}

	if err := app.store.Media.Delete(r.Context(), item.ID); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.destroyMediaFile(r.Context(), item.PublicID); err != nil {
		// The row is gone; an orphaned asset is logged, not surfaced.
		app.logger.Errorw("destroying media asset", "media_id", item.ID, "error", err.Error())
	}

	w.WriteHeader(http.StatusNoContent)
}

// bulkMediaVisibilityHandler godoc
//
//	@Summary		Bulk show/hide media
//	@Description	Each id gets a tagged outcome; the batch commits as one transaction
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BulkMediaVisibilityPayload	true	"ids and target visibility"
//	@Success		200		{object}	content.BulkResult
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/media/bulk/visibility [post]
func (app *application) bulkMediaVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	var payload BulkMediaVisibilityPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	canModify := func(ownerID int64) bool { return policy.CanModify(user, ownerID) }

	var result content.BulkResult
	err := app.store.WithContentTx(r.Context(), func(s *storage.ContentTx) error {
		var err error
		result, err = s.Media.BulkSetVisibility(r.Context(), payload.IDs, *payload.Visible, canModify)
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

func (app *application) fetchModifiableMedia(w http.ResponseWriter, r *http.Request) (*content.MediaItem, bool) {
	user := getPrincipalFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "mediaID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid media id"))
		return nil, false
	}

	item, err := app.store.Media.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return nil, false
		}
		app.internalServerError(w, r, err)
		return nil, false
	}

	if !policy.CanModify(user, item.OwnerID) {
		app.forbiddenResponse(w, r, errors.New("you cannot modify this media item"))
		return nil, false
	}

	return item, true
}
