package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"pressroom/internal/domain/storage"
	"pressroom/internal/domain/subscriptions"
)

func postJSON(t *testing.T, mux http.Handler, path string, body any) *http.Response {
	t.Helper()

	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return execRequest(mux, req).Result()
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRegisterLoginLifecycle(t *testing.T) {
	users := newStubUserStore()
	subs := newStubSubscriptionStore()
	app := newTestApplication(t, &storage.Container{Users: users, Subscriptions: subs})
	mux := app.mount()

	register := map[string]string{
		"username": "jdoe",
		"password": "s3cret-pass",
		"email":    "jdoe@example.com",
	}
	creds := map[string]string{"username": "jdoe", "password": "s3cret-pass"}

	// Registration lands in pending state.
	resp := postJSON(t, mux, "/auth/register", register)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		UserID int64  `json:"user_id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &created)
	if created.Status != "pending_approval" {
		t.Fatalf("register status field = %q, want pending_approval", created.Status)
	}
	if created.UserID == 0 {
		t.Fatalf("register must return the new user id")
	}

	// Re-registering the same username conflicts.
	resp = postJSON(t, mux, "/auth/register", register)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// Correct credentials before approval are refused with 403, not 401.
	resp = postJSON(t, mux, "/auth/login", creds)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending login status = %d, want 403", resp.StatusCode)
	}

	// Wrong password is 401, whether or not the account exists.
	resp = postJSON(t, mux, "/auth/login", map[string]string{"username": "jdoe", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, mux, "/auth/login", map[string]string{"username": "ghost", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d, want 401", resp.StatusCode)
	}

	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	resp = postJSON(t, mux, "/auth/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approved login status = %d, want 200", resp.StatusCode)
	}
	var pair TokenPairResponse
	decodeBody(t, resp, &pair)
	if pair.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", pair.TokenType)
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", pair.ExpiresIn)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("login must return both tokens")
	}
	if pair.User.Username != "jdoe" || pair.User.Role != "general" {
		t.Errorf("user envelope = %+v", pair.User)
	}
	if pair.User.LastLogin == nil {
		t.Errorf("login must stamp last_login")
	}
	if !pair.User.Verified {
		t.Errorf("approval must mark the account verified")
	}

	// The access token works on /auth/me.
	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	me := execRequest(mux, req).Result()
	if me.StatusCode != http.StatusOK {
		t.Fatalf("/auth/me status = %d, want 200", me.StatusCode)
	}
	var meBody UserEnvelope
	decodeBody(t, me, &meBody)
	if meBody.ID != created.UserID || meBody.Username != "jdoe" {
		t.Errorf("/auth/me = %+v", meBody)
	}

	// Refresh rotates the pair.
	resp = postJSON(t, mux, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	var rotated TokenPairResponse
	decodeBody(t, resp, &rotated)
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatalf("refresh must return a full pair")
	}

	// Logout is a stateless acknowledgment.
	resp = postJSON(t, mux, "/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	var loggedOut map[string]string
	decodeBody(t, resp, &loggedOut)
	if loggedOut["message"] != "logged out" {
		t.Errorf("logout message = %q", loggedOut["message"])
	}

	// The old access token still works afterwards; clients discard it.
	req, _ = http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	if got := execRequest(mux, req).Result(); got.StatusCode != http.StatusOK {
		t.Fatalf("access token after logout status = %d, want 200", got.StatusCode)
	}
}

func TestSuspensionBlocksLoginWithoutExpiry(t *testing.T) {
	users := newStubUserStore()
	app := newTestApplication(t, &storage.Container{Users: users, Subscriptions: newStubSubscriptionStore()})
	mux := app.mount()

	resp := postJSON(t, mux, "/auth/register", map[string]string{"username": "suspended", "password": "s3cret-pass"})
	var created struct {
		UserID int64 `json:"user_id"`
	}
	decodeBody(t, resp, &created)
	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	creds := map[string]string{"username": "suspended", "password": "s3cret-pass"}
	if got := postJSON(t, mux, "/auth/login", creds); got.StatusCode != http.StatusOK {
		t.Fatalf("pre-suspension login status = %d, want 200", got.StatusCode)
	}

	// Suspend with an until timestamp already in the past: it is advisory,
	// so the account stays blocked until an admin lifts it.
	past := time.Now().Add(-time.Hour)
	reason := "policy violation"
	if err := users.Suspend(t.Context(), created.UserID, &reason, &past); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if got := postJSON(t, mux, "/auth/login", creds); got.StatusCode != http.StatusForbidden {
		t.Fatalf("suspended login status = %d, want 403", got.StatusCode)
	}

	if err := users.Unsuspend(t.Context(), created.UserID); err != nil {
		t.Fatalf("unsuspend: %v", err)
	}
	if got := postJSON(t, mux, "/auth/login", creds); got.StatusCode != http.StatusOK {
		t.Fatalf("post-unsuspend login status = %d, want 200", got.StatusCode)
	}
}

func TestAuthMiddlewareDistinguishesTokenAndAccountErrors(t *testing.T) {
	users := newStubUserStore()
	app := newTestApplication(t, &storage.Container{Users: users, Subscriptions: newStubSubscriptionStore()})
	mux := app.mount()

	// No token, malformed header, garbage token: all 401.
	for _, header := range []string{"", "Nonsense", "Bearer not-a-token"} {
		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := execRequest(mux, req).Result(); got.StatusCode != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, got.StatusCode)
		}
	}

	// A valid token for an account that was suspended afterwards: 403.
	resp := postJSON(t, mux, "/auth/register", map[string]string{"username": "later", "password": "s3cret-pass"})
	var created struct {
		UserID int64 `json:"user_id"`
	}
	decodeBody(t, resp, &created)
	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	login := postJSON(t, mux, "/auth/login", map[string]string{"username": "later", "password": "s3cret-pass"})
	var pair TokenPairResponse
	decodeBody(t, login, &pair)

	if err := users.Suspend(t.Context(), created.UserID, nil, nil); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	if got := execRequest(mux, req).Result(); got.StatusCode != http.StatusForbidden {
		t.Fatalf("suspended account with live token: status = %d, want 403", got.StatusCode)
	}
}

func TestSubscriptionStatusReflectsCancelledWindow(t *testing.T) {
	users := newStubUserStore()
	subs := newStubSubscriptionStore()
	app := newTestApplication(t, &storage.Container{Users: users, Subscriptions: subs})
	mux := app.mount()

	resp := postJSON(t, mux, "/auth/register", map[string]string{"username": "reader", "password": "s3cret-pass"})
	var created struct {
		UserID int64 `json:"user_id"`
	}
	decodeBody(t, resp, &created)
	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	login := postJSON(t, mux, "/auth/login", map[string]string{"username": "reader", "password": "s3cret-pass"})
	var pair TokenPairResponse
	decodeBody(t, login, &pair)

	status := func() SubscriptionStatusResponse {
		req, _ := http.NewRequest(http.MethodGet, "/subscriptions/status", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		got := execRequest(mux, req).Result()
		if got.StatusCode != http.StatusOK {
			t.Fatalf("status endpoint = %d, want 200", got.StatusCode)
		}
		var body SubscriptionStatusResponse
		decodeBody(t, got, &body)
		return body
	}

	if s := status(); s.HasPremiumAccess {
		t.Fatalf("fresh account must not be premium: %+v", s)
	}

	// An active window grants access; cancelling keeps it until the window
	// lapses.
	sub := &subscriptions.Subscription{
		UserID:    created.UserID,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	if err := subs.Create(t.Context(), sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if s := status(); !s.HasPremiumAccess {
		t.Fatalf("active subscription must grant premium: %+v", s)
	}

	if err := subs.Cancel(t.Context(), sub.ID, created.UserID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if s := status(); !s.HasPremiumAccess {
		t.Fatalf("cancelled-but-unlapsed subscription must keep premium: %+v", s)
	}
}
