package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pressroom/internal/domain/content"
	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/policy"
	"pressroom/internal/domain/premium"
	"pressroom/internal/domain/storage"
	"pressroom/internal/domain/subscriptions"
	"pressroom/internal/params"

	"github.com/go-chi/chi/v5"
)

type CreateArticlePayload struct {
	Title     string `json:"title" validate:"required,max=200"`
	Summary   string `json:"summary" validate:"omitempty,max=500"`
	Body      string `json:"body" validate:"required"`
	IsPremium bool   `json:"is_premium"`
	IsVisible *bool  `json:"is_visible"`
}

type UpdateArticlePayload struct {
	Title     *string `json:"title" validate:"omitempty,max=200"`
	Summary   *string `json:"summary" validate:"omitempty,max=500"`
	Body      *string `json:"body"`
	IsPremium *bool   `json:"is_premium"`
}

type BulkIDsPayload struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
}

type gatedArticleResponse struct {
	Article *content.Article   `json:"article"`
	Gate    premium.GateResult `json:"gate"`
}

// listPublishedArticlesHandler godoc
//
//	@Summary		Public news feed
//	@Description	Published, non-archived articles; bodies are not included, only summaries
//	@Tags			articles
//	@Produce		json
//	@Param			limit	query		int	false	"page size"
//	@Param			page	query		int	false	"page number"
//	@Success		200		{object}	map[string]any
//	@Router			/content/articles [get]
func (app *application) listPublishedArticlesHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	articles, total, err := app.store.Articles.ListPublished(r.Context(), p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	// Feed entries never carry bodies; the gate only runs on single reads.
	for i := range articles {
		articles[i].Body = ""
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"articles": articles, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getArticleHandler godoc
//
//	@Summary		Read an article
//	@Description	Premium bodies are truncated to a preview unless the reader has premium access
//	@Tags			articles
//	@Produce		json
//	@Param			slug	path		string	true	"article slug"
//	@Success		200		{object}	gatedArticleResponse
//	@Failure		404		{object}	error
//	@Router			/content/articles/{slug} [get]
func (app *application) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	article, err := app.store.Articles.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	// Hidden and archived articles read as absent unless the caller owns
	// them or holds the read escape hatch.
	if !article.IsVisible || article.IsArchived {
		allowed := user != nil && (user.ID == article.OwnerID || policy.CanViewHidden(user, "news:read"))
		if !allowed {
			app.notFoundResponse(w, r, content.ErrNotFound)
			return
		}
	}

	var sub *subscriptions.Subscription
	if user != nil {
		sub = app.currentSubscription(r, user.ID)
	}

	gate := premium.GateRead(time.Now(), user, sub, article.Body, article.IsPremium, premium.DefaultMaxWords)
	article.Body = ""

	resp := gatedArticleResponse{Article: article, Gate: gate}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listOwnArticlesHandler godoc
//
//	@Summary		List articles in the caller's scope
//	@Description	Admin tiers see everything, editors see their writers' items too; ?owner=all switches admins to the narrowed cross-owner view
//	@Tags			articles
//	@Produce		json
//	@Param			status	query		string	false	"all | draft | published | archived"
//	@Param			owner	query		string	false	"mine | all"
//	@Success		200		{object}	map[string]any
//	@Security		ApiKeyAuth
//	@Router			/content/articles/mine [get]
func (app *application) listOwnArticlesHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	status := content.StatusFilter(r.URL.Query().Get("status"))
	if status == "" {
		status = content.StatusAny
	}

	mode := policy.NewsOwnershipMode(r.URL.Query().Get("owner"))
	if mode == "" {
		mode = policy.NewsOwnershipMine
	}

	scope := policy.NewsOwnershipScope(user, mode, app.writerIDsFor(r, user))

	articles, total, err := app.store.Articles.List(r.Context(), scope, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{"articles": articles, "pagination": p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createArticleHandler godoc
//
//	@Summary		Create an article
//	@Description	Articles start hidden unless is_visible is set explicitly
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateArticlePayload	true	"Article payload"
//	@Success		201		{object}	content.Article
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/articles [post]
func (app *application) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)

	var payload CreateArticlePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	visible := policy.DefaultArticleVisibility()
	if payload.IsVisible != nil {
		visible = *payload.IsVisible
	}

	article := &content.Article{
		OwnerID:   user.ID,
		Title:     payload.Title,
		Summary:   payload.Summary,
		Body:      payload.Body,
		IsPremium: payload.IsPremium,
		IsVisible: visible,
	}

	if err := app.store.Articles.Create(r.Context(), article); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, article); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateArticleHandler godoc
//
//	@Summary		Update an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			articleID	path		int						true	"article id"
//	@Param			payload		body		UpdateArticlePayload	true	"Fields to change"
//	@Success		200			{object}	content.Article
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/articles/{articleID} [patch]
func (app *application) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, ok := app.fetchModifiableArticle(w, r)
	if !ok {
		return
	}

	var payload UpdateArticlePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if payload.Title != nil {
		article.Title = *payload.Title
	}
	if payload.Summary != nil {
		article.Summary = *payload.Summary
	}
	if payload.Body != nil {
		article.Body = *payload.Body
	}
	if payload.IsPremium != nil {
		article.IsPremium = *payload.IsPremium
	}

	if err := app.store.Articles.Update(r.Context(), article); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, article); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteArticleHandler godoc
//
//	@Summary		Delete an article
//	@Tags			articles
//	@Produce		json
//	@Param			articleID	path	int	true	"article id"
//	@Success		204
//	@Failure		403	{object}	error
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/articles/{articleID} [delete]
func (app *application) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, ok := app.fetchModifiableArticle(w, r)
	if !ok {
		return
	}

	if err := app.store.Articles.Delete(r.Context(), article.ID); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) publishArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.setArticleFlag(w, r, func(id int64) error {
		return app.store.Articles.SetVisibility(r.Context(), id, true)
	})
}

func (app *application) hideArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.setArticleFlag(w, r, func(id int64) error {
		return app.store.Articles.SetVisibility(r.Context(), id, false)
	})
}

func (app *application) archiveArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.setArticleFlag(w, r, func(id int64) error {
		return app.store.Articles.SetArchived(r.Context(), id, true)
	})
}

func (app *application) unarchiveArticleHandler(w http.ResponseWriter, r *http.Request) {
	app.setArticleFlag(w, r, func(id int64) error {
		return app.store.Articles.SetArchived(r.Context(), id, false)
	})
}

// shareArticleHandler godoc
//
//	@Summary		Record a share
//	@Description	Increments the public share counter; works for anonymous callers
//	@Tags			articles
//	@Produce		json
//	@Param			slug	path		string	true	"article slug"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	error
//	@Router			/content/articles/{slug}/share [post]
func (app *application) shareArticleHandler(w http.ResponseWriter, r *http.Request) {
	article, err := app.store.Articles.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if !article.IsVisible || article.IsArchived {
		app.notFoundResponse(w, r, content.ErrNotFound)
		return
	}

	if err := app.store.Articles.Share(r.Context(), article.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, map[string]string{"message": "share recorded"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bulkArticlesHandler godoc
//
//	@Summary		Bulk article lifecycle
//	@Description	Applies publish/hide/archive/unarchive/delete to a batch; each id gets a tagged outcome and the batch commits as one transaction
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			action	path		string			true	"publish | hide | archive | unarchive | delete"
//	@Param			payload	body		BulkIDsPayload	true	"article ids"
//	@Success		200		{object}	content.BulkResult
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/content/articles/bulk/{action} [post]
func (app *application) bulkArticlesHandler(w http.ResponseWriter, r *http.Request) {
	user := getPrincipalFromContext(r)
	action := chi.URLParam(r, "action")

	var payload BulkIDsPayload
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
		switch action {
		case "publish":
			result, err = s.Articles.BulkSetVisibility(r.Context(), payload.IDs, true, canModify)
		case "hide":
			result, err = s.Articles.BulkSetVisibility(r.Context(), payload.IDs, false, canModify)
		case "archive":
			result, err = s.Articles.BulkSetArchived(r.Context(), payload.IDs, true, canModify)
		case "unarchive":
			result, err = s.Articles.BulkSetArchived(r.Context(), payload.IDs, false, canModify)
		case "delete":
			result, err = s.Articles.BulkDelete(r.Context(), payload.IDs, canModify)
		default:
			return fmt.Errorf("unknown bulk action %q", action)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}

// fetchModifiableArticle loads the {articleID} route param and enforces the
// single-item modify rule. On failure it has already written the response.
func (app *application) fetchModifiableArticle(w http.ResponseWriter, r *http.Request) (*content.Article, bool) {
	user := getPrincipalFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid article id"))
		return nil, false
	}

	article, err := app.store.Articles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return nil, false
		}
		app.internalServerError(w, r, err)
		return nil, false
	}

	if !policy.CanModify(user, article.OwnerID) {
		app.forbiddenResponse(w, r, errors.New("you cannot modify this article"))
		return nil, false
	}

	return article, true
}

func (app *application) setArticleFlag(w http.ResponseWriter, r *http.Request, op func(id int64) error) {
	article, ok := app.fetchModifiableArticle(w, r)
	if !ok {
		return
	}

	if err := op(article.ID); err != nil {
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

// writerIDsFor resolves the delegated writer set when the caller is an editor;
// everyone else gets none.
func (app *application) writerIDsFor(r *http.Request, user *identity.Principal) []int64 {
	if user == nil || policy.ResolveTier(user) != policy.TierEditor {
		return nil
	}
	ids, err := app.store.AccessControl.ListWriterIDs(r.Context(), user.ID)
	if err != nil {
		app.logger.Errorw("listing writer assignments", "editor_id", user.ID, "error", err.Error())
		return nil
	}
	return ids
}
