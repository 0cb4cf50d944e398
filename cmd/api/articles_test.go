package main

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"pressroom/internal/domain/content"
	"pressroom/internal/domain/premium"
	"pressroom/internal/domain/storage"
	"pressroom/internal/domain/subscriptions"
)

func longBody(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func gatedFixture(t *testing.T) (http.Handler, *stubUserStore, *stubSubscriptionStore) {
	t.Helper()

	articles := &stubArticleStore{articles: map[string]*content.Article{
		"free-story": {
			ID: 1, Slug: "free-story", OwnerID: 9, Title: "Free",
			Body: longBody(300), IsVisible: true,
		},
		"paid-story": {
			ID: 2, Slug: "paid-story", OwnerID: 9, Title: "Paid",
			Body: longBody(300), IsPremium: true, IsVisible: true,
		},
		"hidden-story": {
			ID: 3, Slug: "hidden-story", OwnerID: 9, Title: "Hidden",
			Body: longBody(300), IsVisible: false,
		},
	}}

	users := newStubUserStore()
	subs := newStubSubscriptionStore()
	app := newTestApplication(t, &storage.Container{
		Users:         users,
		Subscriptions: subs,
		Articles:      articles,
	})
	return app.mount(), users, subs
}

func getArticle(t *testing.T, mux http.Handler, slug, token string) (*http.Response, gatedArticleResponse) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodGet, "/content/articles/"+slug, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := execRequest(mux, req).Result()

	var envelope struct {
		Data gatedArticleResponse `json:"data"`
	}
	if resp.StatusCode == http.StatusOK {
		decodeBody(t, resp, &envelope)
	}
	return resp, envelope.Data
}

func TestGetArticleFreeFullBody(t *testing.T) {
	mux, _, _ := gatedFixture(t)

	resp, body := getArticle(t, mux, "free-story", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Gate.IsTruncated || body.Gate.ShowPremiumNotice {
		t.Fatalf("free article must not be gated: %+v", body.Gate)
	}
	if got := premium.CountWords(body.Gate.Content); got != 300 {
		t.Fatalf("full body has %d words, want 300", got)
	}
}

func TestGetArticlePremiumAnonymousPreview(t *testing.T) {
	mux, _, _ := gatedFixture(t)

	resp, body := getArticle(t, mux, "paid-story", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !body.Gate.IsTruncated || !body.Gate.ShowPremiumNotice {
		t.Fatalf("anonymous premium read must truncate: %+v", body.Gate)
	}
	if !strings.HasSuffix(body.Gate.Content, premium.Ellipsis) {
		t.Fatalf("preview must end with the ellipsis marker")
	}
	if got := premium.CountWords(strings.TrimSuffix(body.Gate.Content, premium.Ellipsis)); got != premium.DefaultMaxWords {
		t.Fatalf("preview has %d words, want %d", got, premium.DefaultMaxWords)
	}
	// Stats still describe the original body.
	if body.Gate.Stats.TotalWords != 300 {
		t.Fatalf("stats words = %d, want 300", body.Gate.Stats.TotalWords)
	}
	if body.Article.Body != "" {
		t.Fatalf("the raw body field must never be serialized on gated reads")
	}
}

func TestGetArticlePremiumSubscriberFullBody(t *testing.T) {
	mux, users, subs := gatedFixture(t)

	resp := postJSON(t, mux, "/auth/register", map[string]string{"username": "sub", "password": "s3cret-pass"})
	var created struct {
		UserID int64 `json:"user_id"`
	}
	decodeBody(t, resp, &created)
	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := subs.Create(t.Context(), &subscriptions.Subscription{
		UserID:    created.UserID,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	login := postJSON(t, mux, "/auth/login", map[string]string{"username": "sub", "password": "s3cret-pass"})
	var pair TokenPairResponse
	decodeBody(t, login, &pair)
	if !pair.User.IsPremium {
		t.Fatalf("subscriber login must carry is_premium")
	}

	got, body := getArticle(t, mux, "paid-story", pair.AccessToken)
	if got.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", got.StatusCode)
	}
	if body.Gate.IsTruncated {
		t.Fatalf("premium reader must get the full body")
	}
	if n := premium.CountWords(body.Gate.Content); n != 300 {
		t.Fatalf("full body has %d words, want 300", n)
	}
	if !body.Gate.Stats.UserHasAccess {
		t.Fatalf("stats must reflect the reader's access: %+v", body.Gate.Stats)
	}
}

func TestGetArticleHiddenReadsAsAbsent(t *testing.T) {
	mux, _, _ := gatedFixture(t)

	resp, _ := getArticle(t, mux, "hidden-story", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("hidden article status = %d, want 404", resp.StatusCode)
	}

	resp, _ = getArticle(t, mux, "no-such-story", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing article status = %d, want 404", resp.StatusCode)
	}
}
