package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pressroom/internal/auth"
	"pressroom/internal/domain/content"
	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/policy"
	"pressroom/internal/domain/storage"
	"pressroom/internal/domain/subscriptions"
	"pressroom/internal/ratelimiter"

	"go.uber.org/zap"
)

func newTestApplication(t *testing.T, store *storage.Container) *application {
	t.Helper()

	return &application{
		config: config{
			addr: ":0",
			env:  "test",
			auth: authConfig{
				token: tokenConfig{
					secret:        "test-access-secret",
					refreshSecret: "test-refresh-secret",
					iss:           "pressroom-test",
				},
			},
			rateLimiter: ratelimiter.Config{Enabled: false},
		},
		store:         store,
		logger:        zap.NewNop().Sugar(),
		authenticator: auth.NewJWTAuthenticator("test-access-secret", "test-refresh-secret", "pressroom-test", "pressroom-test"),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(100, time.Second),
		mailer:        &stubMailer{},
	}
}

func execRequest(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

type stubMailer struct{}

func (m *stubMailer) Send(templateFile, username, email string, data any) (int, error) {
	return http.StatusOK, nil
}

// stubUserStore is an in-memory identity.Store.
type stubUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*identity.Principal
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{nextID: 1, users: map[int64]*identity.Principal{}}
}

func (s *stubUserStore) Create(ctx context.Context, p *identity.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == p.Username {
			return identity.ErrDuplicateUsername
		}
		if p.Email != "" && u.Email == p.Email {
			return identity.ErrDuplicateEmail
		}
	}
	p.ID = s.nextID
	s.nextID++
	p.IsActive = false
	p.CreatedAt = time.Now()
	s.users[p.ID] = p
	return nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id int64) (*identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) GetByUsername(ctx context.Context, username string) (*identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *stubUserStore) Approve(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return identity.ErrNotFound
	}
	if u.IsActive {
		return identity.ErrAlreadyActive
	}
	u.IsActive = true
	u.Verified = true
	return nil
}

func (s *stubUserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return identity.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubUserStore) Suspend(ctx context.Context, id int64, reason *string, until *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return identity.ErrNotFound
	}
	u.IsSuspended = true
	u.SuspensionReason = reason
	u.SuspensionUntil = until
	return nil
}

func (s *stubUserStore) Unsuspend(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return identity.ErrNotFound
	}
	u.IsSuspended = false
	u.SuspensionReason = nil
	u.SuspensionUntil = nil
	return nil
}

func (s *stubUserStore) UpdateLastLogin(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return identity.ErrNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func (s *stubUserStore) SetCustomRole(ctx context.Context, userID int64, roleID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return identity.ErrNotFound
	}
	return nil
}

func (s *stubUserStore) SetPremium(ctx context.Context, userID int64, hasAccess bool, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.Premium.HasPremiumAccess = hasAccess
	u.Premium.PremiumExpiresAt = expiresAt
	return nil
}

func (s *stubUserStore) ListPending(ctx context.Context, limit, offset int) ([]identity.Principal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []identity.Principal
	for _, u := range s.users {
		if !u.IsActive {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (s *stubUserStore) List(ctx context.Context, f identity.ListFilter, limit, offset int) ([]identity.Principal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []identity.Principal
	for _, u := range s.users {
		if f.Search != "" && !strings.Contains(u.Username, f.Search) && !strings.Contains(u.Email, f.Search) {
			continue
		}
		if f.BaseRole != "" && u.BaseRole != f.BaseRole {
			continue
		}
		if f.Suspended != nil && u.IsSuspended != *f.Suspended {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *stubUserStore) BulkApprove(ctx context.Context, ids []int64) (identity.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res identity.BulkResult
	for _, id := range ids {
		u, ok := s.users[id]
		switch {
		case !ok:
			res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkNotFound})
		case u.IsActive:
			res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkSkipped, Reason: "already active"})
		default:
			u.IsActive = true
			u.Verified = true
			res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkUpdated})
			res.Updated++
		}
	}
	return res, nil
}

func (s *stubUserStore) BulkSuspend(ctx context.Context, ids []int64, canSuspend func(id int64, isOwner bool) error) (identity.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res identity.BulkResult
	for _, id := range ids {
		u, ok := s.users[id]
		if !ok {
			res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkNotFound})
			continue
		}
		if err := canSuspend(id, u.IsOwner); err != nil {
			res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkSkipped, Reason: err.Error()})
			continue
		}
		u.IsSuspended = true
		res.Outcomes = append(res.Outcomes, identity.BulkOutcome{ID: id, Status: identity.BulkUpdated})
		res.Updated++
	}
	return res, nil
}

// stubSubscriptionStore keeps one subscription per user.
type stubSubscriptionStore struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]*subscriptions.Subscription // keyed by user id
}

func newStubSubscriptionStore() *stubSubscriptionStore {
	return &stubSubscriptionStore{nextID: 1, subs: map[int64]*subscriptions.Subscription{}}
}

func (s *stubSubscriptionStore) Create(ctx context.Context, sub *subscriptions.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subs[sub.UserID]; ok && existing.Status == subscriptions.StatusActive {
		return subscriptions.ErrActiveExists
	}
	sub.ID = s.nextID
	s.nextID++
	sub.Status = subscriptions.StatusActive
	s.subs[sub.UserID] = sub
	return nil
}

func (s *stubSubscriptionStore) GetByID(ctx context.Context, id int64) (*subscriptions.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

func (s *stubSubscriptionStore) GetCurrent(ctx context.Context, userID int64) (*subscriptions.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok || sub.Status == subscriptions.StatusExpired {
		return nil, subscriptions.ErrNotFound
	}
	return sub, nil
}

func (s *stubSubscriptionStore) Cancel(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok || sub.ID != id {
		return subscriptions.ErrNotFound
	}
	if sub.Status == subscriptions.StatusCancelled {
		return subscriptions.ErrAlreadyCancelled
	}
	sub.Status = subscriptions.StatusCancelled
	return nil
}

func (s *stubSubscriptionStore) ExpireLapsed(ctx context.Context) (int64, error) {
	return 0, nil
}

// stubArticleStore serves fixed articles by id and slug.
type stubArticleStore struct {
	articles map[string]*content.Article // keyed by slug
}

func (s *stubArticleStore) Create(ctx context.Context, a *content.Article) error { return nil }

func (s *stubArticleStore) GetByID(ctx context.Context, id int64) (*content.Article, error) {
	for _, a := range s.articles {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, content.ErrNotFound
}

func (s *stubArticleStore) GetBySlug(ctx context.Context, slug string) (*content.Article, error) {
	a, ok := s.articles[slug]
	if !ok {
		return nil, content.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *stubArticleStore) List(ctx context.Context, scope policy.Scope, status content.StatusFilter, limit, offset int) ([]content.Article, int, error) {
	return nil, 0, nil
}

func (s *stubArticleStore) ListPublished(ctx context.Context, limit, offset int) ([]content.Article, int, error) {
	var out []content.Article
	for _, a := range s.articles {
		if a.IsVisible && !a.IsArchived {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (s *stubArticleStore) Update(ctx context.Context, a *content.Article) error         { return nil }
func (s *stubArticleStore) SetVisibility(ctx context.Context, id int64, v bool) error    { return nil }
func (s *stubArticleStore) SetArchived(ctx context.Context, id int64, archived bool) error { return nil }
func (s *stubArticleStore) Delete(ctx context.Context, id int64) error                   { return nil }
func (s *stubArticleStore) Share(ctx context.Context, id int64) error                    { return nil }

func (s *stubArticleStore) BulkSetVisibility(ctx context.Context, ids []int64, v bool, canModify func(int64) bool) (content.BulkResult, error) {
	return content.BulkResult{}, nil
}

func (s *stubArticleStore) BulkSetArchived(ctx context.Context, ids []int64, archived bool, canModify func(int64) bool) (content.BulkResult, error) {
	return content.BulkResult{}, nil
}

func (s *stubArticleStore) BulkDelete(ctx context.Context, ids []int64, canModify func(int64) bool) (content.BulkResult, error) {
	return content.BulkResult{}, nil
}

// stubAlbumStore answers GetByID from a map; listing and mutation are not
// exercised by the handler tests.
type stubAlbumStore struct {
	albums map[int64]*content.Album
}

func (s *stubAlbumStore) GetByID(ctx context.Context, id int64) (*content.Album, error) {
	al, ok := s.albums[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	copied := *al
	return &copied, nil
}

func (s *stubAlbumStore) Create(ctx context.Context, al *content.Album) error { return nil }
func (s *stubAlbumStore) List(ctx context.Context, scope policy.Scope, status content.StatusFilter, limit, offset int) ([]content.Album, int, error) {
	return nil, 0, nil
}
func (s *stubAlbumStore) Update(ctx context.Context, al *content.Album) error              { return nil }
func (s *stubAlbumStore) SetVisibility(ctx context.Context, id int64, v bool) error        { return nil }
func (s *stubAlbumStore) SetArchived(ctx context.Context, id int64, archived bool) error   { return nil }
func (s *stubAlbumStore) Delete(ctx context.Context, id int64) error                       { return nil }
