package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"testing"

	"pressroom/internal/domain/content"
	"pressroom/internal/domain/storage"
)

func postMediaUpload(t *testing.T, mux http.Handler, token, albumID string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("kind", "image"); err != nil {
		t.Fatalf("write kind: %v", err)
	}
	if albumID != "" {
		if err := form.WriteField("album_id", albumID); err != nil {
			t.Fatalf("write album_id: %v", err)
		}
	}
	part, err := form.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write([]byte("not really a jpeg")); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/content/media", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return execRequest(mux, req).Result()
}

// A rejected album_id must be caught before the remote upload even starts:
// the fixture carries no Cloudinary client, so reaching the upload would
// panic and surface as a 500 instead of the precise status.
func TestUploadMediaRejectedAlbumSkipsRemoteUpload(t *testing.T) {
	users := newStubUserStore()
	albums := &stubAlbumStore{albums: map[int64]*content.Album{
		7: {ID: 7, OwnerID: 42, Title: "Someone else's", IsVisible: true},
	}}
	app := newTestApplication(t, &storage.Container{
		Users:         users,
		Subscriptions: newStubSubscriptionStore(),
		Albums:        albums,
	})
	mux := app.mount()

	resp := postJSON(t, mux, "/auth/register", map[string]string{
		"username": "uploader",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		UserID int64 `json:"user_id"`
	}
	decodeBody(t, resp, &created)
	if err := users.Approve(t.Context(), created.UserID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	resp = postJSON(t, mux, "/auth/login", map[string]string{
		"username": "uploader",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var pair TokenPairResponse
	decodeBody(t, resp, &pair)

	// Missing album: 404 before any upload.
	resp = postMediaUpload(t, mux, pair.AccessToken, "999")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing album status = %d, want 404", resp.StatusCode)
	}

	// Album owned by someone else: 403 before any upload.
	resp = postMediaUpload(t, mux, pair.AccessToken, "7")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign album status = %d, want 403", resp.StatusCode)
	}

	// Malformed album id: 400 before any upload.
	resp = postMediaUpload(t, mux, pair.AccessToken, "not-a-number")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad album id status = %d, want 400", resp.StatusCode)
	}
}
